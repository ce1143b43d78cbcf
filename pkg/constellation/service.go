// Package constellation indexes songs by landmark fingerprints and identifies
// recordings against the index.
package constellation

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/himanishpuri/constellation/pkg/constellation/audio"
	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
	"github.com/himanishpuri/constellation/pkg/constellation/search"
	"github.com/himanishpuri/constellation/pkg/constellation/storage"
	"github.com/himanishpuri/constellation/pkg/logger"
)

// constellationService is the default implementation of the Service interface.
type constellationService struct {
	storage Storage
	log     Logger
	config  *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Pipeline.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}
	if cfg.MatchThreshold < 0 {
		return nil, fmt.Errorf("match threshold %v must not be negative", cfg.MatchThreshold)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	stor := cfg.Storage
	if stor == nil {
		var err error
		stor, err = OpenStorage(cfg.Backend, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &constellationService{
		storage: stor,
		log:     cfg.Logger,
		config:  cfg,
	}, nil
}

func (s *constellationService) loadConfig() audio.LoadConfig {
	return audio.LoadConfig{SampleRate: s.config.SampleRate, TempDir: s.config.TempDir}
}

func (s *constellationService) fingerprintFile(ctx context.Context, path string) (*fingerprint.Fingerprint, error) {
	sig, err := audio.Load(ctx, path, s.loadConfig())
	if err != nil {
		return nil, fmt.Errorf("loading audio: %w", err)
	}
	fp, err := fingerprint.Generate(sig, s.config.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("fingerprinting %s: %w", filepath.Base(path), err)
	}
	return fp, nil
}

// AddSong fingerprints an audio file and stores it under title and artist.
// Adding the same title and artist again replaces the stored fingerprint.
func (s *constellationService) AddSong(ctx context.Context, audioPath, title, artist string) (string, error) {
	s.log.Infof("Processing song: %s by %s", title, artist)

	// 1. Decode and fingerprint
	fp, err := s.fingerprintFile(ctx, audioPath)
	if err != nil {
		return "", err
	}
	if fp.Empty() {
		s.log.Warnf("No landmarks found in %s; the song will never match", filepath.Base(audioPath))
	}
	s.log.Infof("Generated %d hash records (%.1fs of audio)", len(fp.Records), fp.Duration)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	// 2. Register song
	songID, err := s.storage.RegisterSong(title, artist, int(fp.Duration*1000), fp.SampleRate)
	if err != nil {
		return "", fmt.Errorf("failed to register song: %w", err)
	}

	existing, err := s.storage.FingerprintCount(songID)
	if err != nil {
		return "", fmt.Errorf("failed to inspect song %s: %w", songID, err)
	}
	if existing > 0 {
		s.log.Infof("Song %s already indexed with %d records, replacing", songID, existing)
	}

	// 3. Store fingerprint
	if err := s.storage.StoreFingerprint(songID, fp); err != nil {
		if existing == 0 {
			if rbErr := s.storage.DeleteSongByID(songID); rbErr != nil {
				s.log.Errorf("Rollback of song %s failed: %v", songID, rbErr)
			}
		}
		return "", fmt.Errorf("failed to store fingerprint: %w", err)
	}

	s.log.Infof("Successfully added song ID=%s", songID)
	return songID, nil
}

// MatchSong identifies the recording at audioPath.
func (s *constellationService) MatchSong(ctx context.Context, audioPath string) ([]MatchResult, error) {
	s.log.Infof("Matching audio: %s", audioPath)

	fp, err := s.fingerprintFile(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	return s.MatchFingerprint(ctx, fp)
}

func (s *constellationService) MatchSignal(ctx context.Context, sig fingerprint.Signal) ([]MatchResult, error) {
	fp, err := fingerprint.Generate(sig, s.config.Pipeline)
	if err != nil {
		return nil, err
	}
	return s.MatchFingerprint(ctx, fp)
}

// MatchFingerprint scores every stored song sharing a key with fp and returns
// them best first. Songs below the match threshold are included with IsMatch
// unset.
func (s *constellationService) MatchFingerprint(ctx context.Context, fp *fingerprint.Fingerprint) ([]MatchResult, error) {
	if fp.Empty() {
		s.log.Warnf("Query has no hash records, nothing to match")
		return nil, nil
	}

	// 1. Candidate songs by shared keys
	keys := fp.KeySums()
	hits, err := s.storage.CandidateSongs(keys)
	if err != nil {
		return nil, fmt.Errorf("candidate lookup failed: %w", err)
	}
	s.log.Debugf("Query has %d distinct keys, %d candidate songs", len(keys), len(hits))
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.SongID
	}

	// 2. Score candidates in parallel
	entries := storage.Entries(s.storage, ids, func(id string, err error) {
		s.log.Warnf("Skipping song %s: %v", id, err)
	})
	out, err := search.Search(ctx, fp, entries, search.Options{
		Workers:   s.config.Workers,
		StopScore: s.config.StopScore,
	})
	if err != nil {
		return nil, err
	}
	if out.Stopped {
		s.log.Debugf("Stopped after %d of %d candidates", out.Scanned, len(ids))
	}

	// 3. Attach song metadata
	results := make([]MatchResult, 0, len(out.Ranked))
	for _, c := range out.Ranked {
		song, err := s.storage.GetSongByID(c.ID)
		if err != nil {
			s.log.Warnf("Failed to get song %s: %v", c.ID, err)
			continue
		}
		results = append(results, MatchResult{
			SongID:    song.ID,
			Title:     song.Title,
			Artist:    song.Artist,
			Score:     c.Result.Score,
			OffsetSec: c.Result.Offset,
			Pairs:     len(c.Result.Pairs),
			IsMatch:   c.Result.IsMatch(s.config.MatchThreshold),
		})
	}

	if len(results) > 0 {
		s.log.Infof("Best candidate: %s by %s (score %.2f)", results[0].Title, results[0].Artist, results[0].Score)
	}
	return results, nil
}

// Compare fingerprints two files and matches the query against the reference.
func (s *constellationService) Compare(ctx context.Context, referencePath, queryPath string) (*Comparison, error) {
	ref, err := audio.Load(ctx, referencePath, s.loadConfig())
	if err != nil {
		return nil, fmt.Errorf("loading reference: %w", err)
	}
	query, err := audio.Load(ctx, queryPath, s.loadConfig())
	if err != nil {
		return nil, fmt.Errorf("loading query: %w", err)
	}
	return CompareSignals(ref, query, s.config.Pipeline, s.config.MatchThreshold)
}

// CompareSignals analyzes both signals with cfg and matches query against
// reference.
func CompareSignals(reference, query fingerprint.Signal, cfg fingerprint.Config, threshold float64) (*Comparison, error) {
	ra, err := fingerprint.Analyze(reference, cfg)
	if err != nil {
		return nil, fmt.Errorf("analyzing reference: %w", err)
	}
	qa, err := fingerprint.Analyze(query, cfg)
	if err != nil {
		return nil, fmt.Errorf("analyzing query: %w", err)
	}
	res := fingerprint.Match(ra.Fingerprint, qa.Fingerprint)
	return &Comparison{
		Reference: ra,
		Query:     qa,
		Result:    res,
		IsMatch:   res.IsMatch(threshold),
	}, nil
}

// GetSongByID retrieves a song's metadata by its ID.
func (s *constellationService) GetSongByID(songID string) (*Song, error) {
	song, err := s.storage.GetSongByID(songID)
	if err != nil {
		return nil, err
	}
	n, err := s.storage.FingerprintCount(songID)
	if err != nil {
		return nil, err
	}
	out := songFromStorage(song, n)
	return &out, nil
}

// ListSongs returns all songs in the database.
func (s *constellationService) ListSongs() ([]Song, error) {
	stored, err := s.storage.ListSongs()
	if err != nil {
		return nil, err
	}
	songs := make([]Song, 0, len(stored))
	for i := range stored {
		n, err := s.storage.FingerprintCount(stored[i].ID)
		if err != nil && !errors.Is(err, ErrSongNotFound) {
			return nil, err
		}
		songs = append(songs, songFromStorage(&stored[i], n))
	}
	return songs, nil
}

// DeleteSong removes a song and all its hash records.
func (s *constellationService) DeleteSong(songID string) error {
	if err := s.storage.DeleteSongByID(songID); err != nil {
		return err
	}
	s.log.Infof("Deleted song %s", songID)
	return nil
}

// Close releases all resources held by the service.
func (s *constellationService) Close() error {
	return s.storage.Close()
}
