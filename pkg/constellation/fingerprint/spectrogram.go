package fingerprint

import (
	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Spectrogram is a one-sided power spectral density matrix. Power is indexed
// [freq][time] and is never negative.
type Spectrogram struct {
	SampleRate    int         `json:"sample_rate"`
	SegmentLength int         `json:"segment_length"`
	Freqs         []float64   `json:"freqs"`
	Times         []float64   `json:"times"`
	Power         [][]float64 `json:"power"`
}

func (s *Spectrogram) NumFreqs() int  { return len(s.Freqs) }
func (s *Spectrogram) NumFrames() int { return len(s.Times) }

// Empty reports whether the signal was too short for a single segment.
func (s *Spectrogram) Empty() bool {
	return s == nil || len(s.Times) == 0
}

// Max returns the largest power value, or 0 for an empty spectrogram.
func (s *Spectrogram) Max() float64 {
	m := 0.0
	for _, row := range s.Power {
		for _, v := range row {
			if v > m {
				m = v
			}
		}
	}
	return m
}

// BuildSpectrogram slices samples into segments of segmentLength advancing by
// segmentLength-overlap, removes each segment's mean, applies the named window
// and returns the density-scaled one-sided power spectrum of every segment.
//
// Fewer samples than segmentLength gives a spectrogram with a populated
// frequency axis and no time columns. A trailing partial segment is dropped.
func BuildSpectrogram(sampleRate int, samples []float64, segmentLength, overlap int, windowName string) (*Spectrogram, error) {
	if sampleRate <= 0 {
		return nil, configErr("sample_rate", sampleRate, "must be positive")
	}
	if err := validateSegmentation(segmentLength, overlap); err != nil {
		return nil, err
	}
	winFn, err := lookupWindow(windowName)
	if err != nil {
		return nil, err
	}

	fs := float64(sampleRate)
	stride := segmentLength - overlap
	nFreqs := segmentLength/2 + 1

	nFrames := 0
	if len(samples) >= segmentLength {
		nFrames = (len(samples)-segmentLength)/stride + 1
	}

	spec := &Spectrogram{
		SampleRate:    sampleRate,
		SegmentLength: segmentLength,
		Freqs:         make([]float64, nFreqs),
		Times:         make([]float64, nFrames),
		Power:         make([][]float64, nFreqs),
	}
	for k := range spec.Freqs {
		spec.Freqs[k] = float64(k) * fs / float64(segmentLength)
	}
	for k := range spec.Power {
		spec.Power[k] = make([]float64, nFrames)
	}
	if nFrames == 0 {
		return spec, nil
	}

	win := winFn(segmentLength)
	if segmentLength == 1 {
		// go-dsp windows divide by L-1.
		win = []float64{1}
	}
	winSq := 0.0
	for _, w := range win {
		winSq += w * w
	}
	scale := 0.0
	if winSq > 0 {
		scale = 1 / (fs * winSq)
	}
	fixed := func(int) []float64 { return win }

	frame := make([]float64, segmentLength)
	for j := 0; j < nFrames; j++ {
		start := j * stride
		spec.Times[j] = (float64(start) + float64(segmentLength)/2) / fs

		copy(frame, samples[start:start+segmentLength])
		detrend(frame)
		window.Apply(frame, fixed)

		coeffs := fft.FFTReal(frame)
		for k := 0; k < nFreqs; k++ {
			c := coeffs[k]
			p := (real(c)*real(c) + imag(c)*imag(c)) * scale
			if k > 0 && !(segmentLength%2 == 0 && k == nFreqs-1) {
				p *= 2
			}
			spec.Power[k][j] = p
		}
	}
	return spec, nil
}

// detrend subtracts the mean in place.
func detrend(frame []float64) {
	mean := 0.0
	for _, v := range frame {
		mean += v
	}
	mean /= float64(len(frame))
	for i := range frame {
		frame[i] -= mean
	}
}

// FrameStep returns the time between spectrogram columns in seconds.
func FrameStep(sampleRate, segmentLength, overlap int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(segmentLength-overlap) / float64(sampleRate)
}
