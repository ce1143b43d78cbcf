package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/himanishpuri/constellation/pkg/constellation"
	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
	"github.com/himanishpuri/constellation/pkg/logger"
)

//go:embed sample_config.toml
var sampleConfig string

// Storage selects where the fingerprint index lives.
type Storage struct {
	Backend string `toml:"backend"`
	// Path is a file for sqlite and a directory for badger. Empty picks a
	// per-backend default under ~/.local/share/constellation.
	Path string `toml:"path"`
}

// Audio controls decoding.
type Audio struct {
	SampleRate int    `toml:"sample_rate"`
	TempDir    string `toml:"temp_dir"`
}

// Search tunes database matching.
type Search struct {
	Workers        int     `toml:"workers"`
	StopScore      float64 `toml:"stop_score"`
	MatchThreshold float64 `toml:"match_threshold"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level      string `toml:"level"`
	Color      string `toml:"color"` // auto, always or never
	ShowCaller bool   `toml:"show_caller"`
}

// Server configures cmd/server.
type Server struct {
	Bind         string `toml:"bind"`
	MaxUploadMiB int    `toml:"max_upload_mib"`
}

type Config struct {
	Pipeline fingerprint.Config `toml:"pipeline"`
	Storage  Storage            `toml:"storage"`
	Audio    Audio              `toml:"audio"`
	Search   Search             `toml:"search"`
	Logging  Logging            `toml:"log"`
	Server   Server             `toml:"server"`
}

// Load locates, parses, and validates a configuration file. An empty path
// tries ~/.config/constellation/config.toml, then ./constellation.toml; a
// missing file is not an error. It returns the config, the resolved path and
// whether that file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("constellation.toml")
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}

	return defaultPath, false, nil
}

// DefaultConfigPath is where Load looks first when given no path.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/constellation/config.toml")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// CreateSample writes a commented sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ServiceOptions translates the configuration into constellation options.
func (c *Config) ServiceOptions() []constellation.Option {
	opts := []constellation.Option{
		constellation.WithBackend(c.Storage.Backend),
		constellation.WithDBPath(c.Storage.Path),
		constellation.WithSampleRate(c.Audio.SampleRate),
		constellation.WithPipeline(c.Pipeline),
		constellation.WithWorkers(c.Search.Workers),
		constellation.WithStopScore(c.Search.StopScore),
		constellation.WithMatchThreshold(c.Search.MatchThreshold),
	}
	if c.Audio.TempDir != "" {
		opts = append(opts, constellation.WithTempDir(c.Audio.TempDir))
	}
	return opts
}

// LoggerConfig builds the logger settings. Level has already been validated.
func (c *Config) LoggerConfig() logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level, _ = logger.ParseLevel(c.Logging.Level)
	cfg.ShowCaller = c.Logging.ShowCaller
	switch c.Logging.Color {
	case "always":
		cfg.Colorize = true
	case "never":
		cfg.Colorize = false
	}
	return cfg
}
