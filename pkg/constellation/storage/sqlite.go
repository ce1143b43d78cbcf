package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
	"github.com/himanishpuri/constellation/pkg/utils"
)

const DefaultDBFile = "constellation.sqlite3"

// keyChunk bounds the number of bound parameters in one IN clause.
const keyChunk = 500

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Song{}, &HashRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// RegisterSong returns the ID of the song with this title and artist,
// creating it when it does not exist yet.
func (c *DBClient) RegisterSong(title, artist string, durationMs, sampleRate int) (string, error) {
	if c == nil || c.DB == nil {
		return "", ErrNilClient
	}

	var song Song
	err := c.DB.Where("title = ? AND artist = ?", title, artist).First(&song).Error
	if err == nil {
		return song.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("querying existing song: %w", err)
	}

	song = Song{
		ID:         utils.GenerateUUID(),
		Title:      title,
		Artist:     artist,
		DurationMs: durationMs,
		SampleRate: sampleRate,
	}
	if err := c.DB.Create(&song).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			if fetchErr := c.DB.Where("title = ? AND artist = ?", title, artist).First(&song).Error; fetchErr != nil {
				return "", fmt.Errorf("fetching song after constraint violation: %w", fetchErr)
			}
			return song.ID, nil
		}
		return "", fmt.Errorf("creating song: %w", err)
	}
	return song.ID, nil
}

// StoreFingerprint replaces the stored records of songID with fp's.
func (c *DBClient) StoreFingerprint(songID string, fp *fingerprint.Fingerprint) error {
	if c == nil || c.DB == nil {
		return ErrNilClient
	}
	if fp == nil {
		fp = &fingerprint.Fingerprint{}
	}

	rows := make([]HashRecord, len(fp.Records))
	for i, r := range fp.Records {
		rows[i] = HashRecord{
			SongID:     songID,
			Seq:        i,
			HashKey:    int64(r.Key().Sum64()),
			AnchorTime: r.AnchorTime,
			DeltaTime:  r.DeltaTime,
			AnchorFreq: r.AnchorFreq,
			TargetFreq: r.TargetFreq,
		}
	}

	return c.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Song{}).Where("id = ?", songID).Updates(map[string]any{
			"duration_ms": durationMs(fp),
			"sample_rate": fp.SampleRate,
		})
		if res.Error != nil {
			return fmt.Errorf("updating song: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%s: %w", songID, ErrSongNotFound)
		}
		if err := tx.Where("song_id = ?", songID).Delete(&HashRecord{}).Error; err != nil {
			return fmt.Errorf("clearing old records: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, keyChunk).Error; err != nil {
			return fmt.Errorf("batch insert records: %w", err)
		}
		return nil
	})
}

// LoadFingerprint rebuilds the fingerprint of songID with its records in
// their original order.
func (c *DBClient) LoadFingerprint(songID string) (*fingerprint.Fingerprint, error) {
	song, err := c.GetSongByID(songID)
	if err != nil {
		return nil, err
	}

	var rows []HashRecord
	if err := c.DB.Where("song_id = ?", songID).Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}

	fp := &fingerprint.Fingerprint{
		SampleRate: song.SampleRate,
		Duration:   float64(song.DurationMs) / 1000,
		Records:    make([]fingerprint.HashRecord, len(rows)),
	}
	for i, r := range rows {
		fp.Records[i] = fingerprint.HashRecord{
			AnchorTime: r.AnchorTime,
			DeltaTime:  r.DeltaTime,
			AnchorFreq: r.AnchorFreq,
			TargetFreq: r.TargetFreq,
		}
	}
	return fp, nil
}

// CandidateSongs returns the songs sharing at least one of keys, most shared
// keys first.
func (c *DBClient) CandidateSongs(keys []uint64) ([]SongHits, error) {
	if c == nil || c.DB == nil {
		return nil, ErrNilClient
	}

	counts := make(map[string]int)
	for start := 0; start < len(keys); start += keyChunk {
		end := min(start+keyChunk, len(keys))
		chunk := make([]int64, 0, end-start)
		for _, k := range keys[start:end] {
			chunk = append(chunk, int64(k))
		}

		var rows []SongHits
		err := c.DB.Model(&HashRecord{}).
			Select("song_id, COUNT(DISTINCT hash_key) AS hits").
			Where("hash_key IN ?", chunk).
			Group("song_id").
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("batch querying keys: %w", err)
		}
		for _, r := range rows {
			counts[r.SongID] += r.Hits
		}
	}
	return sortHits(counts), nil
}

func (c *DBClient) FingerprintCount(songID string) (int, error) {
	if c == nil || c.DB == nil {
		return 0, ErrNilClient
	}
	var n int64
	if err := c.DB.Model(&HashRecord{}).Where("song_id = ?", songID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return int(n), nil
}

func (c *DBClient) GetSongByID(songID string) (*Song, error) {
	if c == nil || c.DB == nil {
		return nil, ErrNilClient
	}
	var song Song
	if err := c.DB.Where("id = ?", songID).First(&song).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", songID, ErrSongNotFound)
		}
		return nil, fmt.Errorf("querying song: %w", err)
	}
	return &song, nil
}

// ListSongs returns every song ordered by title, then artist.
func (c *DBClient) ListSongs() ([]Song, error) {
	if c == nil || c.DB == nil {
		return nil, ErrNilClient
	}
	var songs []Song
	if err := c.DB.Order("title").Order("artist").Find(&songs).Error; err != nil {
		return nil, fmt.Errorf("listing songs: %w", err)
	}
	return songs, nil
}

func (c *DBClient) DeleteSongByID(songID string) error {
	if c == nil || c.DB == nil {
		return ErrNilClient
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("song_id = ?", songID).Delete(&HashRecord{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", songID).Delete(&Song{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%s: %w", songID, ErrSongNotFound)
		}
		return nil
	})
}
