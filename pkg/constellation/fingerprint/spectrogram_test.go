package fingerprint

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSpectrogramAxes(t *testing.T) {
	samples := tone(440, 1)

	spec, err := BuildSpectrogram(testRate, samples, 128, 32, WindowTukey)
	require.NoError(t, err)

	// (8000-128)/96 + 1
	assert.Equal(t, 83, spec.NumFrames())
	assert.Equal(t, 65, spec.NumFreqs())
	assert.Len(t, spec.Power, 65)
	for _, row := range spec.Power {
		assert.Len(t, row, 83)
	}

	assert.Equal(t, 0.0, spec.Freqs[0])
	assert.InDelta(t, 62.5, spec.Freqs[1], 1e-12)
	assert.InDelta(t, 4000.0, spec.Freqs[64], 1e-9)

	assert.InDelta(t, 0.008, spec.Times[0], 1e-12)
	for j := 1; j < spec.NumFrames(); j++ {
		assert.InDelta(t, 0.012, spec.Times[j]-spec.Times[j-1], 1e-12)
	}
}

func TestBuildSpectrogramToneEnergy(t *testing.T) {
	spec, err := BuildSpectrogram(testRate, tone(440, 1), 128, 32, WindowTukey)
	require.NoError(t, err)

	for j := 0; j < spec.NumFrames(); j++ {
		best := 0
		for k := range spec.Power {
			assert.GreaterOrEqual(t, spec.Power[k][j], 0.0)
			if spec.Power[k][j] > spec.Power[best][j] {
				best = k
			}
		}
		assert.Equal(t, 7, best, "frame %d peaks at %v Hz", j, spec.Freqs[best])
	}
}

func TestBuildSpectrogramDensityScaling(t *testing.T) {
	// A unit-amplitude sinusoid centred on a bin with a rectangular window puts
	// |X|^2 = (N/2)^2 in that bin; density scaling then gives N/(2 fs).
	const n = 64
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Cos(2 * math.Pi * 8 * float64(i) / n)
	}

	spec, err := BuildSpectrogram(testRate, samples, n, 0, WindowRectangular)
	require.NoError(t, err)
	require.Equal(t, 1, spec.NumFrames())

	assert.InDelta(t, float64(n)/(2*testRate), spec.Power[8][0], 1e-12)
	assert.InDelta(t, 0.0, spec.Power[0][0], 1e-12)
}

func TestBuildSpectrogramShortSignal(t *testing.T) {
	spec, err := BuildSpectrogram(testRate, make([]float64, 100), 128, 32, WindowTukey)
	require.NoError(t, err)

	assert.True(t, spec.Empty())
	assert.Equal(t, 0, spec.NumFrames())
	assert.Equal(t, 65, spec.NumFreqs())
}

func TestBuildSpectrogramDropsPartialSegment(t *testing.T) {
	// 128 + 96 + 50 samples: two full segments, the tail is ignored.
	spec, err := BuildSpectrogram(testRate, tone(1000, 0.05)[:274], 128, 32, "")
	require.NoError(t, err)
	assert.Equal(t, 2, spec.NumFrames())
}

func TestBuildSpectrogramSilence(t *testing.T) {
	spec, err := BuildSpectrogram(testRate, make([]float64, 4000), 128, 32, WindowTukey)
	require.NoError(t, err)
	assert.Equal(t, 0.0, spec.Max())
}

func TestBuildSpectrogramInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		rate    int
		segment int
		overlap int
		window  string
		field   string
	}{
		{"overlap equals segment", testRate, 128, 128, WindowTukey, "overlap"},
		{"overlap exceeds segment", testRate, 64, 100, WindowTukey, "overlap"},
		{"negative overlap", testRate, 64, -1, WindowTukey, "overlap"},
		{"zero segment", testRate, 0, 0, WindowTukey, "segment_length"},
		{"zero sample rate", 0, 128, 32, WindowTukey, "sample_rate"},
		{"unknown window", testRate, 128, 32, "kaiser", "window"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildSpectrogram(tt.rate, tone(440, 0.1), tt.segment, tt.overlap, tt.window)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestTukeyWindow(t *testing.T) {
	w := Tukey(128)
	require.Len(t, w, 128)

	assert.Equal(t, 0.0, w[0])
	assert.Equal(t, 1.0, w[64])
	// Periodic: the taper is symmetric around n/2, not (n-1)/2.
	for i := 1; i < 64; i++ {
		assert.InDelta(t, w[i], w[128-i], 1e-12, "index %d", i)
	}

	assert.Equal(t, []float64{1}, Tukey(1))
}

func TestWindowNames(t *testing.T) {
	assert.Equal(t, []string{"blackman", "hamming", "hann", "rectangular", "tukey"}, WindowNames())
}
