package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/constellation/internal/config"
	"github.com/himanishpuri/constellation/pkg/constellation"
	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
	"github.com/himanishpuri/constellation/pkg/logger"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("CONSTELLATION_DB_PATH", "")
	t.Setenv("CONSTELLATION_TEMP_DIR", "")
	t.Setenv("LOG_LEVEL", "")
	return home
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "constellation.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(t.TempDir(), "absent.toml")

	cfg, resolved, exists, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, resolved)
	assert.False(t, exists)
	assert.Equal(t, fingerprint.DefaultConfig(), cfg.Pipeline)
	assert.Equal(t, constellation.BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(home, ".local", "share", "constellation", "index.sqlite3"), cfg.Storage.Path)
	assert.Equal(t, 11025, cfg.Audio.SampleRate)
	assert.Equal(t, constellation.DefaultMatchThreshold, cfg.Search.MatchThreshold)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Bind)
}

func TestLoadEmptyPathSearchesDefaultLocation(t *testing.T) {
	home := isolate(t)
	t.Chdir(t.TempDir())

	_, resolved, exists, err := config.Load("")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, filepath.Join(home, ".config", "constellation", "config.toml"), resolved)

	require.NoError(t, config.CreateSample(resolved))
	_, again, exists, err := config.Load("")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, resolved, again)
}

func TestLoadFile(t *testing.T) {
	home := isolate(t)
	path := writeConfig(t, `
[pipeline]
segment_length = 256
overlap = 64
window = "hann"
min_distance = 10
relative_threshold = 0.05
time_window = 0.5
freq_window = 800.0

[storage]
backend = "Badger"
path = "~/fp"

[audio]
sample_rate = 0

[search]
workers = 4
stop_score = 12.5
match_threshold = 2.5

[log]
level = "DEBUG"
color = "never"
show_caller = true
`)

	cfg, _, exists, err := config.Load(path)
	require.NoError(t, err)
	require.True(t, exists)

	assert.Equal(t, fingerprint.Config{
		SegmentLength:     256,
		Overlap:           64,
		Window:            fingerprint.WindowHann,
		MinDistance:       10,
		RelativeThreshold: 0.05,
		TimeWindow:        0.5,
		FreqWindow:        800,
	}, cfg.Pipeline)
	assert.Equal(t, constellation.BackendBadger, cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(home, "fp"), cfg.Storage.Path)
	assert.Zero(t, cfg.Audio.SampleRate)
	assert.Equal(t, 4, cfg.Search.Workers)
	assert.Equal(t, 12.5, cfg.Search.StopScore)
	assert.Equal(t, "debug", cfg.Logging.Level)

	logCfg := cfg.LoggerConfig()
	assert.Equal(t, logger.DEBUG, logCfg.Level)
	assert.False(t, logCfg.Colorize)
	assert.True(t, logCfg.ShowCaller)
}

func TestLoadBadgerDefaultPath(t *testing.T) {
	home := isolate(t)
	path := writeConfig(t, "[storage]\nbackend = \"badger\"\n")

	cfg, _, _, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".local", "share", "constellation", "index.badger"), cfg.Storage.Path)
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	dbPath := filepath.Join(t.TempDir(), "env.sqlite3")
	tmp := t.TempDir()
	t.Setenv("CONSTELLATION_DB_PATH", dbPath)
	t.Setenv("CONSTELLATION_TEMP_DIR", tmp)
	t.Setenv("LOG_LEVEL", "warn")

	path := writeConfig(t, "[storage]\npath = \"/somewhere/else.sqlite3\"\n")
	cfg, _, _, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, dbPath, cfg.Storage.Path)
	assert.Equal(t, tmp, cfg.Audio.TempDir)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown backend", "[storage]\nbackend = \"postgres\"\n", "storage.backend"},
		{"bad pipeline", "[pipeline]\nsegment_length = 128\noverlap = 128\n", "pipeline"},
		{"negative workers", "[search]\nworkers = -1\n", "search.workers"},
		{"negative threshold", "[search]\nmatch_threshold = -3.0\n", "search.match_threshold"},
		{"negative sample rate", "[audio]\nsample_rate = -8000\n", "audio.sample_rate"},
		{"bad level", "[log]\nlevel = \"loud\"\n", "log.level"},
		{"bad color", "[log]\ncolor = \"sometimes\"\n", "log.color"},
		{"zero upload", "[server]\nmax_upload_mib = 0\n", "server.max_upload_mib"},
		{"unknown field", "[search]\nthreads = 4\n", "parse config"},
		{"malformed", "[search\n", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			_, _, _, err := config.Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSampleConfigLoadsToDefaults(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, config.CreateSample(path))

	cfg, _, exists, err := config.Load(path)
	require.NoError(t, err)
	require.True(t, exists)

	def := config.Default()
	assert.Equal(t, def.Pipeline, cfg.Pipeline)
	assert.Equal(t, def.Search, cfg.Search)
	assert.Equal(t, def.Audio.SampleRate, cfg.Audio.SampleRate)
	assert.Equal(t, def.Server, cfg.Server)
}

func TestServiceOptions(t *testing.T) {
	isolate(t)
	tmp := t.TempDir()
	path := writeConfig(t, `
[storage]
backend = "badger"
path = "`+filepath.ToSlash(filepath.Join(tmp, "idx"))+`"

[audio]
sample_rate = 8000
temp_dir = "`+filepath.ToSlash(tmp)+`"

[search]
workers = 2
stop_score = 9.0
match_threshold = 4.0
`)
	cfg, _, _, err := config.Load(path)
	require.NoError(t, err)

	var got constellation.Config
	for _, opt := range cfg.ServiceOptions() {
		opt(&got)
	}

	assert.Equal(t, constellation.BackendBadger, got.Backend)
	assert.Equal(t, filepath.Join(tmp, "idx"), got.DBPath)
	assert.Equal(t, tmp, got.TempDir)
	assert.Equal(t, 8000, got.SampleRate)
	assert.Equal(t, 2, got.Workers)
	assert.Equal(t, 9.0, got.StopScore)
	assert.Equal(t, 4.0, got.MatchThreshold)
	assert.Equal(t, fingerprint.DefaultConfig(), got.Pipeline)
}

func TestLoggerConfigColor(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Color = "always"
	assert.True(t, cfg.LoggerConfig().Colorize)

	cfg.Logging.Level = "error"
	assert.Equal(t, logger.ERROR, cfg.LoggerConfig().Level)
}
