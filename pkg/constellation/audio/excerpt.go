package audio

import (
	"math"

	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
)

// Excerpt returns the part of sig starting at startSec and lasting
// durationSec, clamped to the bounds of the signal. The samples are shared
// with sig.
func Excerpt(sig fingerprint.Signal, startSec, durationSec float64) fingerprint.Signal {
	out := fingerprint.Signal{SampleRate: sig.SampleRate}
	if sig.SampleRate <= 0 || durationSec <= 0 {
		return out
	}

	n := len(sig.Samples)
	start := clampIndex(startSec*float64(sig.SampleRate), n)
	end := clampIndex((startSec+durationSec)*float64(sig.SampleRate), n)
	if end > start {
		out.Samples = sig.Samples[start:end]
	}
	return out
}

func clampIndex(pos float64, n int) int {
	i := math.Round(pos)
	switch {
	case i < 0:
		return 0
	case i > float64(n):
		return n
	}
	return int(i)
}
