package fingerprint

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matrixSpec(power [][]float64) *Spectrogram {
	nF, nT := len(power), len(power[0])
	spec := &Spectrogram{
		SampleRate:    testRate,
		SegmentLength: 2 * (nF - 1),
		Freqs:         make([]float64, nF),
		Times:         make([]float64, nT),
		Power:         power,
	}
	for k := range spec.Freqs {
		spec.Freqs[k] = float64(k) * 100
	}
	for j := range spec.Times {
		spec.Times[j] = float64(j) * 0.01
	}
	return spec
}

func TestExtractPeaksStrictMaximum(t *testing.T) {
	power := [][]float64{
		{0, 0, 0, 0, 0, 0},
		{0, 5, 0, 0, 0, 0},
		{0, 0, 0, 0, 3, 0},
		{0, 0, 0, 0, 0, 0},
	}

	landmarks, err := ExtractPeaks(matrixSpec(power), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []Landmark{{TimeIndex: 1, FreqIndex: 1}, {TimeIndex: 4, FreqIndex: 2}}, landmarks)

	// With a wider neighborhood the 3 sits within reach of the 5.
	landmarks, err = ExtractPeaks(matrixSpec(power), 3, 0)
	require.NoError(t, err)
	assert.Equal(t, []Landmark{{TimeIndex: 1, FreqIndex: 1}}, landmarks)
}

func TestExtractPeaksTiesAreNotPeaks(t *testing.T) {
	power := [][]float64{
		{1, 0, 0, 0},
		{0, 4, 4, 0},
		{0, 0, 0, 2},
	}

	landmarks, err := ExtractPeaks(matrixSpec(power), 1, 0)
	require.NoError(t, err)
	// Neither 4 is strictly greater than the other; the 2 and the 1 each sit next to a 4.
	assert.Empty(t, landmarks)
}

func TestExtractPeaksBordersIncluded(t *testing.T) {
	power := [][]float64{
		{9, 0, 0, 0, 0},
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 7},
	}

	landmarks, err := ExtractPeaks(matrixSpec(power), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []Landmark{{TimeIndex: 0, FreqIndex: 0}, {TimeIndex: 4, FreqIndex: 2}}, landmarks)
}

func TestExtractPeaksRelativeThreshold(t *testing.T) {
	power := [][]float64{
		{64, 0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0, 16},
	}

	landmarks, err := ExtractPeaks(matrixSpec(power), 1, 0.25)
	require.NoError(t, err)
	assert.Len(t, landmarks, 2, "value equal to rel*max qualifies")

	landmarks, err = ExtractPeaks(matrixSpec(power), 1, 0.26)
	require.NoError(t, err)
	assert.Equal(t, []Landmark{{TimeIndex: 0, FreqIndex: 0}}, landmarks)
}

func TestExtractPeaksSilenceAndEmpty(t *testing.T) {
	silent := [][]float64{{0, 0, 0}, {0, 0, 0}}
	landmarks, err := ExtractPeaks(matrixSpec(silent), 1, 0.01)
	require.NoError(t, err)
	assert.Empty(t, landmarks)

	empty, err := BuildSpectrogram(testRate, make([]float64, 10), 128, 32, WindowTukey)
	require.NoError(t, err)
	landmarks, err = ExtractPeaks(empty, 1, 0.01)
	require.NoError(t, err)
	assert.Empty(t, landmarks)
}

func TestExtractPeaksInvalidParams(t *testing.T) {
	spec := matrixSpec([][]float64{{1}})

	_, err := ExtractPeaks(spec, 0, 0.01)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = ExtractPeaks(spec, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = ExtractPeaks(spec, 1, -0.1)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// bruteForcePeaks is the direct definition: scan the full truncated square
// around every cell.
func bruteForcePeaks(power [][]float64, d int, rel float64) []Landmark {
	m := 0.0
	for _, row := range power {
		for _, v := range row {
			m = max(m, v)
		}
	}
	if m <= 0 {
		return nil
	}
	var out []Landmark
	for t := range power[0] {
		for f := range power {
			v := power[f][t]
			if v < rel*m || v <= 0 {
				continue
			}
			if strictMax(power, f, t, d) {
				out = append(out, Landmark{TimeIndex: t, FreqIndex: f})
			}
		}
	}
	return out
}

func TestExtractPeaksMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 50; trial++ {
		nF := 1 + rng.Intn(20)
		nT := 1 + rng.Intn(40)
		power := make([][]float64, nF)
		for f := range power {
			power[f] = make([]float64, nT)
			for j := range power[f] {
				// Coarse values so ties and plateaus actually occur.
				power[f][j] = float64(rng.Intn(6))
			}
		}
		d := 1 + rng.Intn(4)
		rel := rng.Float64() * 0.9

		got, err := ExtractPeaks(matrixSpec(power), d, rel)
		require.NoError(t, err)
		assert.Equal(t, bruteForcePeaks(power, d, rel), got, "trial %d (%dx%d, d=%d)", trial, nF, nT, d)
	}
}

func TestExtractPeaksDeterministicOrder(t *testing.T) {
	spec, err := BuildSpectrogram(testRate, synthSong(1, 2), 128, 32, WindowTukey)
	require.NoError(t, err)

	first, err := ExtractPeaks(spec, 5, 0.01)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	for i := 1; i < len(first); i++ {
		prev, cur := first[i-1], first[i]
		ordered := prev.TimeIndex < cur.TimeIndex ||
			(prev.TimeIndex == cur.TimeIndex && prev.FreqIndex < cur.FreqIndex)
		assert.True(t, ordered, "landmarks %d and %d out of order", i-1, i)
	}

	second, err := ExtractPeaks(spec, 5, 0.01)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSlidingMax(t *testing.T) {
	src := []float64{1, 3, 2, 5, 4, 0, 0, 1}
	dst := make([]float64, len(src))

	slidingMax(dst, src, 1)
	assert.Equal(t, []float64{3, 3, 5, 5, 5, 4, 1, 1}, dst)

	slidingMax(dst, src, 10)
	for _, v := range dst {
		assert.Equal(t, 5.0, v)
	}
}
