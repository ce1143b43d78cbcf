// Package fingerprint turns a mono waveform into a time-shift-invariant set of
// landmark hashes and scores how well two such sets line up in time.
//
// The pipeline is BuildSpectrogram -> ExtractPeaks -> GenerateHashes, wrapped
// by Generate. Match compares two fingerprints. Every function here is pure:
// no I/O, no logging, no shared state.
package fingerprint

import (
	"encoding/binary"
	"math"

	"github.com/OneOfOne/xxhash"
)

// Key quantization steps. Records whose fields round to the same buckets are
// treated as equal by the matcher.
const (
	TimeQuantum = 1e-6 // seconds
	FreqQuantum = 1e-6 // Hz
)

// Signal is a mono waveform sampled at SampleRate Hz.
type Signal struct {
	SampleRate int
	Samples    []float64
}

// Duration returns the signal length in seconds.
func (s Signal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// Landmark addresses one cell of a Spectrogram.
type Landmark struct {
	TimeIndex int `json:"time_index"`
	FreqIndex int `json:"freq_index"`
}

// HashRecord pairs an anchor landmark with a target landmark that follows it
// within the configured time and frequency windows.
type HashRecord struct {
	AnchorTime float64 `json:"anchor_time"`
	DeltaTime  float64 `json:"delta_time"`
	AnchorFreq float64 `json:"anchor_freq"`
	TargetFreq float64 `json:"target_freq"`
}

// Key is the quantized identity of a HashRecord. AnchorTime is deliberately
// not part of it.
type Key struct {
	Delta  int64
	Anchor int64
	Target int64
}

// Key returns the record's matching identity.
func (r HashRecord) Key() Key {
	return Key{
		Delta:  quantize(r.DeltaTime, TimeQuantum),
		Anchor: quantize(r.AnchorFreq, FreqQuantum),
		Target: quantize(r.TargetFreq, FreqQuantum),
	}
}

// Sum64 hashes the key to 64 bits for use as a storage index.
func (k Key) Sum64() uint64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(k.Delta))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(k.Anchor))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(k.Target))
	return xxhash.Checksum64(buf[:])
}

func quantize(v, step float64) int64 {
	return int64(math.Round(v / step))
}

// Fingerprint is the full set of hash records for one clip.
type Fingerprint struct {
	SampleRate int          `json:"sample_rate"`
	Duration   float64      `json:"duration"`
	Records    []HashRecord `json:"records"`
}

// Empty reports whether the fingerprint has no records. An empty fingerprint
// never matches anything.
func (f *Fingerprint) Empty() bool {
	return f == nil || len(f.Records) == 0
}

// KeySums returns the distinct Sum64 values of the records, in first-seen order.
func (f *Fingerprint) KeySums() []uint64 {
	if f.Empty() {
		return nil
	}
	seen := make(map[uint64]struct{}, len(f.Records))
	out := make([]uint64, 0, len(f.Records))
	for _, r := range f.Records {
		h := r.Key().Sum64()
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// MatchedPair holds the anchor times of a query record and the reference record
// it was matched to.
type MatchedPair struct {
	ReferenceTime float64 `json:"reference_time"`
	QueryTime     float64 `json:"query_time"`
}

// Histogram is the density-normalized offset histogram used for scoring.
// Edges has one more element than Density.
type Histogram struct {
	Edges   []float64 `json:"edges"`
	Density []float64 `json:"density"`
}

// MatchResult describes how two fingerprints line up.
type MatchResult struct {
	Pairs     []MatchedPair `json:"pairs"`
	Offsets   []float64     `json:"offsets"`
	Histogram *Histogram    `json:"histogram,omitempty"`
	// Offset is the center of the densest histogram bin.
	Offset float64 `json:"offset"`
	Score  float64 `json:"score"`
}

// NoMatch reports whether no query record found a partner in the reference.
func (m MatchResult) NoMatch() bool {
	return len(m.Pairs) == 0
}

// IsMatch applies the peak-over-mean decision rule: the densest offset bin
// must be at least threshold times the mean nonzero bin.
func (m MatchResult) IsMatch(threshold float64) bool {
	return !m.NoMatch() && m.Score >= threshold
}
