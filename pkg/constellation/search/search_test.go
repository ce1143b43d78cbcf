package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
)

const numKeys = 10

func record(key int, anchorTime float64) fingerprint.HashRecord {
	return fingerprint.HashRecord{
		AnchorTime: anchorTime,
		DeltaTime:  0.1,
		AnchorFreq: 100 * float64(key+1),
		TargetFreq: 100 * float64(key+2),
	}
}

func queryFingerprint() *fingerprint.Fingerprint {
	fp := &fingerprint.Fingerprint{SampleRate: 8000}
	for k := 0; k < numKeys; k++ {
		fp.Records = append(fp.Records, record(k, float64(k)))
	}
	return fp
}

// reference builds a fingerprint whose record for key k sits offsets[k]
// seconds before the query's, so Match reports exactly those offsets.
func reference(offsets map[int]float64) *fingerprint.Fingerprint {
	fp := &fingerprint.Fingerprint{SampleRate: 8000}
	for k := 0; k < numKeys; k++ {
		if off, ok := offsets[k]; ok {
			fp.Records = append(fp.Records, record(k, float64(k)-off))
		}
	}
	return fp
}

func strongReference() *fingerprint.Fingerprint {
	offsets := map[int]float64{0: -3, 9: 7}
	for k := 1; k <= 8; k++ {
		offsets[k] = 2
	}
	return reference(offsets)
}

func weakReference() *fingerprint.Fingerprint {
	return reference(map[int]float64{0: 1, 1: 1, 2: 1, 3: 1, 4: -4, 5: 0, 6: 5})
}

func unrelatedReference() *fingerprint.Fingerprint {
	return &fingerprint.Fingerprint{Records: []fingerprint.HashRecord{
		{AnchorTime: 1, DeltaTime: 0.3, AnchorFreq: 5000, TargetFreq: 5100},
	}}
}

func TestSearchRanksByScore(t *testing.T) {
	entries := []Entry{
		{ID: "weak", Fingerprint: weakReference()},
		{ID: "unrelated", Fingerprint: unrelatedReference()},
		{ID: "strong", Fingerprint: strongReference()},
	}

	out, err := Search(context.Background(), queryFingerprint(), Entries(entries), Options{Workers: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, out.Scanned)
	assert.False(t, out.Stopped)
	require.Len(t, out.Ranked, 2, "the unrelated reference shares no keys")

	best, ok := out.Best()
	require.True(t, ok)
	assert.Equal(t, "strong", best.ID)
	assert.InDelta(t, 2.4, best.Result.Score, 1e-9)
	assert.InDelta(t, 2.0, best.Result.Offset, 0.1)

	assert.Equal(t, "weak", out.Ranked[1].ID)
	assert.InDelta(t, 16.0/7.0, out.Ranked[1].Result.Score, 1e-9)
}

func TestSearchTieBreaksByID(t *testing.T) {
	entries := []Entry{
		{ID: "c", Fingerprint: weakReference()},
		{ID: "a", Fingerprint: weakReference()},
		{ID: "b", Fingerprint: weakReference()},
	}

	for i := 0; i < 5; i++ {
		out, err := Search(context.Background(), queryFingerprint(), Entries(entries), Options{Workers: 3})
		require.NoError(t, err)
		require.Len(t, out.Ranked, 3)
		assert.Equal(t, "a", out.Ranked[0].ID)
		assert.Equal(t, "b", out.Ranked[1].ID)
		assert.Equal(t, "c", out.Ranked[2].ID)
	}
}

func TestSearchStopScore(t *testing.T) {
	entries := []Entry{{ID: "strong", Fingerprint: strongReference()}}
	for i := 0; i < 20; i++ {
		entries = append(entries, Entry{ID: fmt.Sprintf("weak-%02d", i), Fingerprint: weakReference()})
	}

	out, err := Search(context.Background(), queryFingerprint(), Entries(entries), Options{Workers: 1, StopScore: 2.4 - 1e-9})
	require.NoError(t, err)

	assert.True(t, out.Stopped)
	assert.Equal(t, 1, out.Scanned)
	best, ok := out.Best()
	require.True(t, ok)
	assert.Equal(t, "strong", best.ID)
}

func TestSearchStopScoreNeverReached(t *testing.T) {
	entries := []Entry{
		{ID: "weak", Fingerprint: weakReference()},
		{ID: "strong", Fingerprint: strongReference()},
	}

	out, err := Search(context.Background(), queryFingerprint(), Entries(entries), Options{StopScore: 100})
	require.NoError(t, err)
	assert.False(t, out.Stopped)
	assert.Equal(t, 2, out.Scanned)
}

func TestSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries := []Entry{{ID: "strong", Fingerprint: strongReference()}}
	_, err := Search(ctx, queryFingerprint(), Entries(entries), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearchEmpty(t *testing.T) {
	out, err := Search(context.Background(), queryFingerprint(), Entries(nil), Options{})
	require.NoError(t, err)
	_, ok := out.Best()
	assert.False(t, ok)
	assert.Zero(t, out.Scanned)

	out, err = Search(context.Background(), &fingerprint.Fingerprint{}, Entries([]Entry{{ID: "strong", Fingerprint: strongReference()}}), Options{})
	require.NoError(t, err)
	assert.Empty(t, out.Ranked)
	assert.Equal(t, 1, out.Scanned)
}
