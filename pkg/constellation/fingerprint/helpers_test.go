package fingerprint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

const testRate = 8000

// lcg is a tiny deterministic generator so synthetic songs are reproducible
// independent of math/rand's algorithm.
type lcg uint64

func (g *lcg) next() float64 {
	*g = (*g*1103515245 + 12345) % (1 << 31)
	return float64(*g) / float64(1<<31)
}

// synthSong renders a sequence of 100 ms notes, each the sum of two sinusoids
// with pseudo-random frequencies in [200, 3800) Hz.
func synthSong(seed uint64, seconds float64) []float64 {
	g := lcg(seed)
	n := int(seconds * testRate)
	const note = testRate / 10
	out := make([]float64, n)
	for start := 0; start < n; start += note {
		f1 := 200 + 3600*g.next()
		f2 := 200 + 3600*g.next()
		a1 := 0.3 + 0.7*g.next()
		a2 := 0.3 + 0.7*g.next()
		for i := start; i < n && i < start+note; i++ {
			t := float64(i) / testRate
			out[i] = a1*math.Sin(2*math.Pi*f1*t) + a2*math.Sin(2*math.Pi*f2*t)
		}
	}
	return out
}

func tone(freq float64, seconds float64) []float64 {
	n := int(seconds * testRate)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / testRate)
	}
	return out
}

// testConfig uses a small neighborhood so short synthetic clips still
// produce a few dozen landmarks.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MinDistance = 5
	return cfg
}

func mustGenerate(t *testing.T, samples []float64, cfg Config) *Fingerprint {
	t.Helper()
	fp, err := Generate(Signal{SampleRate: testRate, Samples: samples}, cfg)
	require.NoError(t, err)
	return fp
}
