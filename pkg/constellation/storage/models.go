// Package storage persists songs and their fingerprints. Two backends are
// provided: DBClient on SQLite through gorm, and BadgerStore on an embedded
// key-value store.
package storage

import (
	"errors"
	"iter"
	"sort"
	"time"

	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
)

var (
	ErrSongNotFound = errors.New("song not found")
	ErrNilClient    = errors.New("storage client is nil")
)

type Song struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title      string    `gorm:"uniqueIndex:idx_song_unique,priority:1" json:"title"`
	Artist     string    `gorm:"uniqueIndex:idx_song_unique,priority:2" json:"artist"`
	DurationMs int       `json:"duration_ms"`
	SampleRate int       `json:"sample_rate"`
	CreatedAt  time.Time `json:"created_at"`
}

// HashRecord is one stored fingerprint record. HashKey is the record's key
// digest reinterpreted as a signed integer, which is what SQLite indexes.
type HashRecord struct {
	ID         uint    `gorm:"primaryKey;autoIncrement"`
	SongID     string  `gorm:"type:varchar(36);index:idx_song_seq,priority:1"`
	Seq        int     `gorm:"index:idx_song_seq,priority:2"`
	HashKey    int64   `gorm:"index:idx_hash_key"`
	AnchorTime float64
	DeltaTime  float64
	AnchorFreq float64
	TargetFreq float64
}

// SongHits counts how many distinct query keys a stored song shares.
type SongHits struct {
	SongID string
	Hits   int
}

func sortHits(counts map[string]int) []SongHits {
	out := make([]SongHits, 0, len(counts))
	for id, n := range counts {
		out = append(out, SongHits{SongID: id, Hits: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Hits != out[j].Hits {
			return out[i].Hits > out[j].Hits
		}
		return out[i].SongID < out[j].SongID
	})
	return out
}

// Loader loads a stored fingerprint by song ID.
type Loader interface {
	LoadFingerprint(songID string) (*fingerprint.Fingerprint, error)
}

// Entries lazily loads the fingerprints of ids in order. A song that fails to
// load is handed to skip, when non-nil, and left out of the sequence.
func Entries(l Loader, ids []string, skip func(id string, err error)) iter.Seq2[string, *fingerprint.Fingerprint] {
	return func(yield func(string, *fingerprint.Fingerprint) bool) {
		for _, id := range ids {
			fp, err := l.LoadFingerprint(id)
			if err != nil {
				if skip != nil {
					skip(id, err)
				}
				continue
			}
			if !yield(id, fp) {
				return
			}
		}
	}
}

func durationMs(fp *fingerprint.Fingerprint) int {
	return int(fp.Duration*1000 + 0.5)
}
