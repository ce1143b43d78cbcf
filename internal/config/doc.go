// Package config loads, normalizes, and validates constellation settings for
// the CLI and the HTTP server.
//
// Settings come from built-in defaults, then an optional TOML file, then the
// CONSTELLATION_DB_PATH, CONSTELLATION_TEMP_DIR and LOG_LEVEL environment
// variables. The result converts into service options and a logger config so
// the binaries never assemble either by hand.
package config
