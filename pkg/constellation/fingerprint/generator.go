package fingerprint

import "fmt"

// Analysis keeps the intermediate products of one Generate run, for plotting
// and debugging.
type Analysis struct {
	Spectrogram *Spectrogram `json:"spectrogram"`
	Landmarks   []Landmark   `json:"landmarks"`
	Fingerprint *Fingerprint `json:"fingerprint"`
}

// Generate runs the full pipeline on sig. A signal shorter than one segment,
// or one without landmarks, produces an empty fingerprint rather than an error.
func Generate(sig Signal, cfg Config) (*Fingerprint, error) {
	a, err := Analyze(sig, cfg)
	if err != nil {
		return nil, err
	}
	return a.Fingerprint, nil
}

// Analyze is Generate but also returns the spectrogram and landmarks.
func Analyze(sig Signal, cfg Config) (*Analysis, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	spec, err := BuildSpectrogram(sig.SampleRate, sig.Samples, cfg.SegmentLength, cfg.Overlap, cfg.Window)
	if err != nil {
		return nil, err
	}

	landmarks, err := ExtractPeaks(spec, cfg.MinDistance, cfg.RelativeThreshold)
	if err != nil {
		return nil, err
	}

	records, err := GenerateHashes(landmarks, spec.Times, spec.Freqs, cfg.TimeWindow, cfg.FreqWindow)
	if err != nil {
		return nil, fmt.Errorf("generate hashes: %w", err)
	}

	return &Analysis{
		Spectrogram: spec,
		Landmarks:   landmarks,
		Fingerprint: &Fingerprint{
			SampleRate: sig.SampleRate,
			Duration:   sig.Duration(),
			Records:    records,
		},
	}, nil
}
