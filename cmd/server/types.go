package main

import (
	"time"

	"github.com/himanishpuri/constellation/pkg/constellation"
)

// SongDTO represents a song in API responses
type SongDTO struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Artist     string    `json:"artist"`
	DurationMs int       `json:"duration_ms"`
	SampleRate int       `json:"sample_rate"`
	Records    int       `json:"records"`
	CreatedAt  time.Time `json:"created_at"`
}

func songDTO(s constellation.Song) SongDTO {
	return SongDTO{
		ID:         s.ID,
		Title:      s.Title,
		Artist:     s.Artist,
		DurationMs: s.DurationMs,
		SampleRate: s.SampleRate,
		Records:    s.Records,
		CreatedAt:  s.CreatedAt,
	}
}

// ListSongsResponse is the response for GET /api/songs
type ListSongsResponse struct {
	Songs []SongDTO `json:"songs"`
	Count int       `json:"count"`
}

// AddSongResponse is the response for successful song addition
type AddSongResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
	Title   string `json:"title"`
	Artist  string `json:"artist"`
}

type DeleteSongResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// MatchResultDTO is one ranked song from POST /api/match.
type MatchResultDTO struct {
	SongID    string  `json:"song_id"`
	Title     string  `json:"title"`
	Artist    string  `json:"artist"`
	Score     float64 `json:"score"`
	OffsetSec float64 `json:"offset_sec"`
	Pairs     int     `json:"pairs"`
	IsMatch   bool    `json:"is_match"`
}

type MatchResponse struct {
	Matches []MatchResultDTO `json:"matches"`
	Count   int              `json:"count"`
	// Best is the top-ranked song when it clears the match threshold.
	Best *MatchResultDTO `json:"best,omitempty"`
}

func matchResponse(results []constellation.MatchResult) MatchResponse {
	resp := MatchResponse{Matches: make([]MatchResultDTO, len(results)), Count: len(results)}
	for i, m := range results {
		resp.Matches[i] = MatchResultDTO{
			SongID:    m.SongID,
			Title:     m.Title,
			Artist:    m.Artist,
			Score:     m.Score,
			OffsetSec: m.OffsetSec,
			Pairs:     m.Pairs,
			IsMatch:   m.IsMatch,
		}
	}
	if len(resp.Matches) > 0 && resp.Matches[0].IsMatch {
		resp.Best = &resp.Matches[0]
	}
	return resp
}

// CompareResponse summarizes POST /api/compare. Spectrograms are left out.
type CompareResponse struct {
	Score           float64 `json:"score"`
	OffsetSec       float64 `json:"offset_sec"`
	Pairs           int     `json:"pairs"`
	IsMatch         bool    `json:"is_match"`
	ReferencePeaks  int     `json:"reference_peaks"`
	QueryPeaks      int     `json:"query_peaks"`
	ReferenceHashes int     `json:"reference_hashes"`
	QueryHashes     int     `json:"query_hashes"`
}

func compareResponse(c *constellation.Comparison) CompareResponse {
	return CompareResponse{
		Score:           c.Result.Score,
		OffsetSec:       c.Result.Offset,
		Pairs:           len(c.Result.Pairs),
		IsMatch:         c.IsMatch,
		ReferencePeaks:  len(c.Reference.Landmarks),
		QueryPeaks:      len(c.Query.Landmarks),
		ReferenceHashes: len(c.Reference.Fingerprint.Records),
		QueryHashes:     len(c.Query.Fingerprint.Records),
	}
}

// MetricsResponse provides server health and database metrics
type MetricsResponse struct {
	Status       string `json:"status"`
	Backend      string `json:"backend"`
	DatabasePath string `json:"database_path"`
	SongCount    int    `json:"song_count"`
	RecordCount  int    `json:"record_count"`
	SampleRate   int    `json:"sample_rate"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
