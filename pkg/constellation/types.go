package constellation

import (
	"time"

	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
	"github.com/himanishpuri/constellation/pkg/constellation/storage"
)

// ErrSongNotFound is returned for unknown song IDs.
var ErrSongNotFound = storage.ErrSongNotFound

// Song is a registered song.
type Song struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Artist     string    `json:"artist"`
	DurationMs int       `json:"duration_ms"`
	SampleRate int       `json:"sample_rate"`
	Records    int       `json:"records"`
	CreatedAt  time.Time `json:"created_at"`
}

// MatchResult is one stored song scored against a query.
type MatchResult struct {
	SongID string  `json:"song_id"`
	Title  string  `json:"title"`
	Artist string  `json:"artist"`
	Score  float64 `json:"score"`
	// OffsetSec is the query time minus the song time at the densest offset.
	OffsetSec float64 `json:"offset_sec"`
	Pairs     int     `json:"pairs"`
	IsMatch   bool    `json:"is_match"`
}

// Comparison holds everything computed when two recordings are compared
// directly, for inspection or plotting.
type Comparison struct {
	Reference *fingerprint.Analysis   `json:"reference"`
	Query     *fingerprint.Analysis   `json:"query"`
	Result    fingerprint.MatchResult `json:"result"`
	IsMatch   bool                    `json:"is_match"`
}

func songFromStorage(s *storage.Song, records int) Song {
	return Song{
		ID:         s.ID,
		Title:      s.Title,
		Artist:     s.Artist,
		DurationMs: s.DurationMs,
		SampleRate: s.SampleRate,
		Records:    records,
		CreatedAt:  s.CreatedAt,
	}
}
