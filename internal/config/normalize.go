package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/himanishpuri/constellation/pkg/constellation"
)

const (
	envDBPath   = "CONSTELLATION_DB_PATH"
	envTempDir  = "CONSTELLATION_TEMP_DIR"
	envLogLevel = "LOG_LEVEL"
)

func (c *Config) normalize() error {
	c.applyEnv()
	c.normalizeStorage()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(envDBPath); ok && strings.TrimSpace(v) != "" {
		c.Storage.Path = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(envTempDir); ok && strings.TrimSpace(v) != "" {
		c.Audio.TempDir = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(envLogLevel); ok && strings.TrimSpace(v) != "" {
		c.Logging.Level = v
	}
}

func (c *Config) normalizeStorage() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = constellation.BackendSQLite
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		c.Storage.Path = defaultDBPath
		if c.Storage.Backend == constellation.BackendBadger {
			c.Storage.Path = defaultBadgerPath
		}
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Storage.Path, err = expandPath(c.Storage.Path); err != nil {
		return fmt.Errorf("storage.path: %w", err)
	}
	if c.Audio.TempDir, err = expandPath(c.Audio.TempDir); err != nil {
		return fmt.Errorf("audio.temp_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Color = strings.ToLower(strings.TrimSpace(c.Logging.Color))
	if c.Logging.Color == "" {
		c.Logging.Color = defaultLogColor
	}
}
