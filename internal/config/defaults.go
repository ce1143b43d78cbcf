package config

import (
	"github.com/himanishpuri/constellation/pkg/constellation"
	"github.com/himanishpuri/constellation/pkg/constellation/audio"
	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
)

const (
	defaultDBPath     = "~/.local/share/constellation/index.sqlite3"
	defaultBadgerPath = "~/.local/share/constellation/index.badger"
	defaultLogLevel   = "info"
	defaultLogColor   = "auto"
	defaultServerBind = "127.0.0.1:8080"
	defaultUploadMiB  = 32
)

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Pipeline: fingerprint.DefaultConfig(),
		Storage: Storage{
			Backend: constellation.BackendSQLite,
		},
		Audio: Audio{
			SampleRate: audio.DefaultSampleRate,
		},
		Search: Search{
			MatchThreshold: constellation.DefaultMatchThreshold,
		},
		Logging: Logging{
			Level: defaultLogLevel,
			Color: defaultLogColor,
		},
		Server: Server{
			Bind:         defaultServerBind,
			MaxUploadMiB: defaultUploadMiB,
		},
	}
}
