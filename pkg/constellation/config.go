package constellation

import (
	"github.com/himanishpuri/constellation/pkg/constellation/audio"
	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
)

const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"

	// DefaultMatchThreshold is the score a candidate needs to count as a
	// match: its densest offset bin at least three times the mean.
	DefaultMatchThreshold = 3.0
)

type Config struct {
	DBPath         string
	Backend        string
	TempDir        string
	SampleRate     int
	Pipeline       fingerprint.Config
	Workers        int
	StopScore      float64
	MatchThreshold float64
	Logger         Logger
	Storage        Storage
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

// WithBackend selects the storage engine opened at DBPath: BackendSQLite
// (a file) or BackendBadger (a directory).
func WithBackend(backend string) Option {
	return func(c *Config) {
		c.Backend = backend
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

// WithSampleRate sets the rate audio is resampled to before fingerprinting.
// Zero fingerprints mono WAV input at its native rate.
func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithPipeline(p fingerprint.Config) Option {
	return func(c *Config) {
		c.Pipeline = p
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

// WithStopScore ends a database search as soon as one song scores at least
// score. Zero scans every candidate.
func WithStopScore(score float64) Option {
	return func(c *Config) {
		c.StopScore = score
	}
}

func WithMatchThreshold(threshold float64) Option {
	return func(c *Config) {
		c.MatchThreshold = threshold
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:         "constellation.sqlite3",
		Backend:        BackendSQLite,
		SampleRate:     audio.DefaultSampleRate,
		Pipeline:       fingerprint.DefaultConfig(),
		MatchThreshold: DefaultMatchThreshold,
	}
}
