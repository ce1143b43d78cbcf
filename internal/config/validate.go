package config

import (
	"fmt"

	"github.com/himanishpuri/constellation/pkg/constellation"
	"github.com/himanishpuri/constellation/pkg/logger"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateSearch(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateServer()
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case constellation.BackendSQLite, constellation.BackendBadger:
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q",
			constellation.BackendSQLite, constellation.BackendBadger, c.Storage.Backend)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.SampleRate < 0 {
		return fmt.Errorf("audio.sample_rate must not be negative, got %d", c.Audio.SampleRate)
	}
	return nil
}

func (c *Config) validateSearch() error {
	if c.Search.Workers < 0 {
		return fmt.Errorf("search.workers must not be negative, got %d", c.Search.Workers)
	}
	if c.Search.StopScore < 0 {
		return fmt.Errorf("search.stop_score must not be negative, got %v", c.Search.StopScore)
	}
	if c.Search.MatchThreshold < 0 {
		return fmt.Errorf("search.match_threshold must not be negative, got %v", c.Search.MatchThreshold)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Logging.Color {
	case "auto", "always", "never":
		return nil
	}
	return fmt.Errorf("log.color must be auto, always or never, got %q", c.Logging.Color)
}

func (c *Config) validateServer() error {
	if c.Server.Bind == "" {
		return fmt.Errorf("server.bind is required")
	}
	if c.Server.MaxUploadMiB <= 0 {
		return fmt.Errorf("server.max_upload_mib must be positive, got %d", c.Server.MaxUploadMiB)
	}
	return nil
}
