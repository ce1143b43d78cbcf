package fingerprint

import (
	"math"
	"sort"

	"github.com/mjibson/go-dsp/window"
)

const (
	WindowTukey       = "tukey"
	WindowHann        = "hann"
	WindowHamming     = "hamming"
	WindowBlackman    = "blackman"
	WindowRectangular = "rectangular"
)

// tukeyAlpha is the taper fraction of the default analysis window.
const tukeyAlpha = 0.25

var windows = map[string]func(int) []float64{
	WindowTukey:       Tukey,
	WindowHann:        window.Hann,
	WindowHamming:     window.Hamming,
	WindowBlackman:    window.Blackman,
	WindowRectangular: window.Rectangular,
}

// WindowNames lists the accepted Config.Window values.
func WindowNames() []string {
	names := make([]string, 0, len(windows))
	for name := range windows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupWindow(name string) (func(int) []float64, error) {
	if name == "" {
		name = DefaultWindow
	}
	fn, ok := windows[name]
	if !ok {
		return nil, configErr("window", name, "unknown window function")
	}
	return fn, nil
}

// Tukey returns a periodic tapered-cosine window of length n with a 0.25 taper.
// It is the symmetric window of length n+1 with the last sample dropped.
func Tukey(n int) []float64 {
	if n <= 1 {
		return window.Rectangular(n)
	}
	return tukeySymmetric(n + 1)[:n]
}

func tukeySymmetric(m int) []float64 {
	w := make([]float64, m)
	span := float64(m - 1)
	width := int(math.Floor(tukeyAlpha * span / 2))
	for i := range w {
		x := float64(i)
		switch {
		case i <= width:
			w[i] = 0.5 * (1 + math.Cos(math.Pi*(-1+2*x/tukeyAlpha/span)))
		case i >= m-width-1:
			w[i] = 0.5 * (1 + math.Cos(math.Pi*(-2/tukeyAlpha+1+2*x/tukeyAlpha/span)))
		default:
			w[i] = 1
		}
	}
	return w
}
