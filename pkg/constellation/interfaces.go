package constellation

import (
	"context"

	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
	"github.com/himanishpuri/constellation/pkg/constellation/storage"
)

type Service interface {
	AddSong(ctx context.Context, audioPath, title, artist string) (string, error)
	MatchSong(ctx context.Context, audioPath string) ([]MatchResult, error)
	MatchSignal(ctx context.Context, sig fingerprint.Signal) ([]MatchResult, error)
	MatchFingerprint(ctx context.Context, fp *fingerprint.Fingerprint) ([]MatchResult, error)
	Compare(ctx context.Context, referencePath, queryPath string) (*Comparison, error)
	GetSongByID(songID string) (*Song, error)
	ListSongs() ([]Song, error)
	DeleteSong(songID string) error
	Close() error
}

// Storage is implemented by storage.DBClient and storage.BadgerStore.
type Storage interface {
	RegisterSong(title, artist string, durationMs, sampleRate int) (string, error)
	StoreFingerprint(songID string, fp *fingerprint.Fingerprint) error
	LoadFingerprint(songID string) (*fingerprint.Fingerprint, error)
	CandidateSongs(keys []uint64) ([]storage.SongHits, error)
	FingerprintCount(songID string) (int, error)
	GetSongByID(songID string) (*storage.Song, error)
	ListSongs() ([]storage.Song, error)
	DeleteSongByID(songID string) error
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
