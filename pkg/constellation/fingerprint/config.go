package fingerprint

import "math"

const (
	DefaultSegmentLength     = 128
	DefaultOverlap           = 32
	DefaultMinDistance       = 50
	DefaultRelativeThreshold = 0.01
	DefaultTimeWindow        = 1.0    // seconds
	DefaultFreqWindow        = 1500.0 // Hz
	DefaultWindow            = WindowTukey
)

// Config holds every knob of the fingerprint pipeline. A zero Config is not
// valid; start from DefaultConfig.
type Config struct {
	SegmentLength     int     `toml:"segment_length" json:"segment_length"`
	Overlap           int     `toml:"overlap" json:"overlap"`
	Window            string  `toml:"window" json:"window"`
	MinDistance       int     `toml:"min_distance" json:"min_distance"`
	RelativeThreshold float64 `toml:"relative_threshold" json:"relative_threshold"`
	TimeWindow        float64 `toml:"time_window" json:"time_window"`
	FreqWindow        float64 `toml:"freq_window" json:"freq_window"`
}

func DefaultConfig() Config {
	return Config{
		SegmentLength:     DefaultSegmentLength,
		Overlap:           DefaultOverlap,
		Window:            DefaultWindow,
		MinDistance:       DefaultMinDistance,
		RelativeThreshold: DefaultRelativeThreshold,
		TimeWindow:        DefaultTimeWindow,
		FreqWindow:        DefaultFreqWindow,
	}
}

// Stride is the number of samples between consecutive segment starts.
func (c Config) Stride() int {
	return c.SegmentLength - c.Overlap
}

// Validate returns a *ConfigError for the first unusable field.
func (c Config) Validate() error {
	if err := validateSegmentation(c.SegmentLength, c.Overlap); err != nil {
		return err
	}
	if _, err := lookupWindow(c.Window); err != nil {
		return err
	}
	if err := validatePeakParams(c.MinDistance, c.RelativeThreshold); err != nil {
		return err
	}
	return validateWindows(c.TimeWindow, c.FreqWindow)
}

func validateSegmentation(segmentLength, overlap int) error {
	if segmentLength < 1 {
		return configErr("segment_length", segmentLength, "must be at least 1")
	}
	if overlap < 0 {
		return configErr("overlap", overlap, "must not be negative")
	}
	if overlap >= segmentLength {
		return configErr("overlap", overlap, "must be smaller than segment_length")
	}
	return nil
}

func validatePeakParams(minDistance int, relativeThreshold float64) error {
	if minDistance < 1 {
		return configErr("min_distance", minDistance, "must be at least 1")
	}
	if math.IsNaN(relativeThreshold) || relativeThreshold < 0 || relativeThreshold >= 1 {
		return configErr("relative_threshold", relativeThreshold, "must be in [0, 1)")
	}
	return nil
}

func validateWindows(timeWindow, freqWindow float64) error {
	if math.IsNaN(timeWindow) || timeWindow < 0 {
		return configErr("time_window", timeWindow, "must not be negative")
	}
	if math.IsNaN(freqWindow) || freqWindow < 0 {
		return configErr("freq_window", freqWindow, "must not be negative")
	}
	return nil
}
