// Package render draws spectrogram images with the fingerprint landmarks
// marked on top.
package render

import (
	"fmt"
	"image"
	"math"

	"github.com/eligwz/spectrogram"

	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
)

const (
	DefaultWidth  = 1024
	DefaultHeight = 257

	// Drawfft applies a Hamming window, whose coherent gain is 0.54.
	hammingGain = 0.54
)

var (
	background = spectrogram.ParseColor("000000")
	marker     = spectrogram.ParseColor("00FFFF")
)

type Options struct {
	Width  int
	Height int
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	return o
}

// Point is a landmark position in seconds and hertz.
type Point struct {
	Time float64
	Freq float64
}

// LandmarkPoints converts the landmarks of a to time/frequency points.
func LandmarkPoints(a *fingerprint.Analysis) []Point {
	if a == nil || a.Spectrogram == nil {
		return nil
	}
	pts := make([]Point, len(a.Landmarks))
	for i, l := range a.Landmarks {
		pts[i] = Point{Time: a.Spectrogram.Times[l.TimeIndex], Freq: a.Spectrogram.Freqs[l.FreqIndex]}
	}
	return pts
}

// canvas maps time and frequency onto the pixel grid Drawfft uses: column x
// is centered on sample (x-0.5)*n/width, and bin b is drawn on row bins-b.
type canvas struct {
	width, bins int
	rate, n     int
}

func (c canvas) pixel(p Point) (int, int, bool) {
	if c.n == 0 || p.Freq < 0 || p.Freq > float64(c.rate)/2 {
		return 0, 0, false
	}
	x := int(math.Round(p.Time*float64(c.rate)*float64(c.width)/float64(c.n) + 0.5))
	bin := int(math.Round(p.Freq * 2 * float64(c.bins) / float64(c.rate)))
	y := c.bins - bin
	if x < 0 || x >= c.width || y < 0 || y > c.bins {
		return 0, 0, false
	}
	return x, y, true
}

// SpectrogramPNG renders sig to a PNG file at path and marks every overlay
// point with a small cross.
func SpectrogramPNG(path string, sig fingerprint.Signal, overlay []Point, opts Options) error {
	if sig.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sig.SampleRate)
	}
	if len(sig.Samples) == 0 {
		return fmt.Errorf("no samples to render")
	}
	opts = opts.withDefaults()
	bins := opts.Height - 1
	if bins < 1 {
		return fmt.Errorf("image height %d too small", opts.Height)
	}

	img := spectrogram.NewImage128(image.Rect(0, 0, opts.Width, opts.Height))
	for y := 0; y < opts.Height; y++ {
		for x := 0; x < opts.Width; x++ {
			img.Set(x, y, background)
		}
	}

	spectrogram.Drawfft(
		img,
		scaled(sig.Samples, bins),
		uint32(sig.SampleRate),
		uint32(bins),
		false, // Hamming window
		false, // FFT
		true,  // power
		false, // linear scale
	)

	c := canvas{width: opts.Width, bins: bins, rate: sig.SampleRate, n: len(sig.Samples)}
	for _, p := range overlay {
		x, y, ok := c.pixel(p)
		if !ok {
			continue
		}
		for d := -1; d <= 1; d++ {
			img.Set(x+d, y, marker)
			img.Set(x, y+d, marker)
		}
	}

	if err := spectrogram.SavePng(img, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

// scaled normalizes samples so that a full-scale sinusoid reaches the top of
// the palette, which saturates at a power of one.
func scaled(samples []float64, bins int) []float64 {
	peak := 0.0
	for _, s := range samples {
		peak = math.Max(peak, math.Abs(s))
	}
	if peak == 0 {
		return samples
	}
	gain := 1 / (hammingGain * float64(bins) * peak)
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s * gain
	}
	return out
}
