package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v3"

	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
	"github.com/himanishpuri/constellation/pkg/utils"
)

// Key layout:
//
//	s/<id>                    gob Song
//	t/<title>\x00<artist>     song id
//	f/<id>                    gob Fingerprint
//	k/<key sum, 8 bytes BE><id>  posting, empty value
var (
	prefixSong    = []byte("s/")
	prefixTitle   = []byte("t/")
	prefixFP      = []byte("f/")
	prefixPosting = []byte("k/")
)

type BadgerStore struct {
	db *badger.DB
	// mu serializes writers so registration stays idempotent.
	mu sync.Mutex
}

// NewBadgerStore opens (or creates) a store in dir. An empty dir opens an
// in-memory store.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	} else if err := utils.MakeDir(dir); err != nil {
		return nil, fmt.Errorf("creating badger dir: %w", err)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger db: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func songKey(id string) []byte {
	return append(bytes.Clone(prefixSong), id...)
}

func titleKey(title, artist string) []byte {
	k := append(bytes.Clone(prefixTitle), title...)
	k = append(k, 0)
	return append(k, artist...)
}

func fpKey(id string) []byte {
	return append(bytes.Clone(prefixFP), id...)
}

func postingPrefix(sum uint64) []byte {
	k := make([]byte, len(prefixPosting)+8)
	copy(k, prefixPosting)
	binary.BigEndian.PutUint64(k[len(prefixPosting):], sum)
	return k
}

func postingKey(sum uint64, id string) []byte {
	return append(postingPrefix(sum), id...)
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeItem(item *badger.Item, v any) error {
	return item.Value(func(val []byte) error {
		return gob.NewDecoder(bytes.NewReader(val)).Decode(v)
	})
}

func getSong(txn *badger.Txn, id string) (*Song, error) {
	item, err := txn.Get(songKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s: %w", id, ErrSongNotFound)
	}
	if err != nil {
		return nil, err
	}
	var song Song
	if err := decodeItem(item, &song); err != nil {
		return nil, fmt.Errorf("decoding song %s: %w", id, err)
	}
	return &song, nil
}

func getFingerprint(txn *badger.Txn, id string) (*fingerprint.Fingerprint, error) {
	item, err := txn.Get(fpKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return &fingerprint.Fingerprint{}, nil
	}
	if err != nil {
		return nil, err
	}
	var fp fingerprint.Fingerprint
	if err := decodeItem(item, &fp); err != nil {
		return nil, fmt.Errorf("decoding fingerprint %s: %w", id, err)
	}
	return &fp, nil
}

// RegisterSong returns the ID of the song with this title and artist,
// creating it when it does not exist yet.
func (b *BadgerStore) RegisterSong(title, artist string, durationMs, sampleRate int) (string, error) {
	if b == nil || b.db == nil {
		return "", ErrNilClient
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	var id string
	err := b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(titleKey(title, artist))
		if err == nil {
			return item.Value(func(val []byte) error {
				id = string(val)
				return nil
			})
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		song := Song{
			ID:         utils.GenerateUUID(),
			Title:      title,
			Artist:     artist,
			DurationMs: durationMs,
			SampleRate: sampleRate,
			CreatedAt:  time.Now().UTC(),
		}
		val, err := encode(song)
		if err != nil {
			return err
		}
		if err := txn.Set(songKey(song.ID), val); err != nil {
			return err
		}
		id = song.ID
		return txn.Set(titleKey(title, artist), []byte(song.ID))
	})
	if err != nil {
		return "", fmt.Errorf("registering song: %w", err)
	}
	return id, nil
}

// StoreFingerprint replaces the stored fingerprint of songID with fp and
// rewrites its postings.
func (b *BadgerStore) StoreFingerprint(songID string, fp *fingerprint.Fingerprint) error {
	if b == nil || b.db == nil {
		return ErrNilClient
	}
	if fp == nil {
		fp = &fingerprint.Fingerprint{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	var old *fingerprint.Fingerprint
	err := b.db.Update(func(txn *badger.Txn) error {
		song, err := getSong(txn, songID)
		if err != nil {
			return err
		}
		if old, err = getFingerprint(txn, songID); err != nil {
			return err
		}

		song.DurationMs = durationMs(fp)
		song.SampleRate = fp.SampleRate
		val, err := encode(song)
		if err != nil {
			return err
		}
		return txn.Set(songKey(songID), val)
	})
	if err != nil {
		return fmt.Errorf("updating song: %w", err)
	}

	val, err := encode(fp)
	if err != nil {
		return fmt.Errorf("encoding fingerprint: %w", err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	for _, sum := range old.KeySums() {
		if err := wb.Delete(postingKey(sum, songID)); err != nil {
			return fmt.Errorf("clearing old postings: %w", err)
		}
	}
	if err := wb.Set(fpKey(songID), val); err != nil {
		return fmt.Errorf("writing fingerprint: %w", err)
	}
	for _, sum := range fp.KeySums() {
		if err := wb.Set(postingKey(sum, songID), nil); err != nil {
			return fmt.Errorf("writing postings: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flushing fingerprint: %w", err)
	}
	return nil
}

func (b *BadgerStore) LoadFingerprint(songID string) (*fingerprint.Fingerprint, error) {
	if b == nil || b.db == nil {
		return nil, ErrNilClient
	}
	var fp *fingerprint.Fingerprint
	err := b.db.View(func(txn *badger.Txn) error {
		if _, err := getSong(txn, songID); err != nil {
			return err
		}
		var err error
		fp, err = getFingerprint(txn, songID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return fp, nil
}

// CandidateSongs returns the songs sharing at least one of keys, most shared
// keys first.
func (b *BadgerStore) CandidateSongs(keys []uint64) ([]SongHits, error) {
	if b == nil || b.db == nil {
		return nil, ErrNilClient
	}

	counts := make(map[string]int)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		seen := make(map[uint64]bool, len(keys))
		for _, sum := range keys {
			if seen[sum] {
				continue
			}
			seen[sum] = true

			prefix := postingPrefix(sum)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				counts[string(it.Item().Key()[len(prefix):])]++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning postings: %w", err)
	}
	return sortHits(counts), nil
}

func (b *BadgerStore) FingerprintCount(songID string) (int, error) {
	fp, err := b.LoadFingerprint(songID)
	if err != nil {
		return 0, err
	}
	return len(fp.Records), nil
}

func (b *BadgerStore) GetSongByID(songID string) (*Song, error) {
	if b == nil || b.db == nil {
		return nil, ErrNilClient
	}
	var song *Song
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		song, err = getSong(txn, songID)
		return err
	})
	return song, err
}

// ListSongs returns every song ordered by title, then artist.
func (b *BadgerStore) ListSongs() ([]Song, error) {
	if b == nil || b.db == nil {
		return nil, ErrNilClient
	}

	var songs []Song
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefixSong); it.ValidForPrefix(prefixSong); it.Next() {
			var song Song
			if err := decodeItem(it.Item(), &song); err != nil {
				return err
			}
			songs = append(songs, song)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing songs: %w", err)
	}

	sort.Slice(songs, func(i, j int) bool {
		if songs[i].Title != songs[j].Title {
			return songs[i].Title < songs[j].Title
		}
		return songs[i].Artist < songs[j].Artist
	})
	return songs, nil
}

func (b *BadgerStore) DeleteSongByID(songID string) error {
	if b == nil || b.db == nil {
		return ErrNilClient
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	var (
		song *Song
		fp   *fingerprint.Fingerprint
	)
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		if song, err = getSong(txn, songID); err != nil {
			return err
		}
		fp, err = getFingerprint(txn, songID)
		return err
	})
	if err != nil {
		return err
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	for _, sum := range fp.KeySums() {
		if err := wb.Delete(postingKey(sum, songID)); err != nil {
			return err
		}
	}
	for _, k := range [][]byte{fpKey(songID), titleKey(song.Title, song.Artist), songKey(songID)} {
		if err := wb.Delete(k); err != nil {
			return err
		}
	}
	return wb.Flush()
}
