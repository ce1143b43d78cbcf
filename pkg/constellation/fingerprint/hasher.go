package fingerprint

import (
	"fmt"
	"math"
	"sort"
)

// GenerateHashes pairs every landmark (the anchor) with every landmark whose
// time is in [anchor, anchor+timeWindow] and whose frequency is within
// freqWindow of the anchor's. The anchor pairs with itself, so each landmark
// contributes at least one record with DeltaTime 0.
//
// times and freqs are the axes of the spectrogram the landmarks index into.
func GenerateHashes(landmarks []Landmark, times, freqs []float64, timeWindow, freqWindow float64) ([]HashRecord, error) {
	if err := validateWindows(timeWindow, freqWindow); err != nil {
		return nil, err
	}

	type point struct{ t, f float64 }
	points := make([]point, len(landmarks))
	for i, l := range landmarks {
		if l.TimeIndex < 0 || l.TimeIndex >= len(times) || l.FreqIndex < 0 || l.FreqIndex >= len(freqs) {
			return nil, fmt.Errorf("landmark %d (t=%d, f=%d) outside %dx%d spectrogram",
				i, l.TimeIndex, l.FreqIndex, len(freqs), len(times))
		}
		points[i] = point{t: times[l.TimeIndex], f: freqs[l.FreqIndex]}
	}
	// Stable so that records come out in landmark order within a time column.
	sort.SliceStable(points, func(i, j int) bool { return points[i].t < points[j].t })

	var records []HashRecord
	for _, anchor := range points {
		// Landmarks sharing the anchor's time sort before it too, so start
		// from the first point at that time rather than at the anchor itself.
		first := sort.Search(len(points), func(k int) bool { return points[k].t >= anchor.t })
		for _, target := range points[first:] {
			dt := target.t - anchor.t
			if dt > timeWindow {
				break
			}
			if math.Abs(target.f-anchor.f) > freqWindow {
				continue
			}
			records = append(records, HashRecord{
				AnchorTime: anchor.t,
				DeltaTime:  dt,
				AnchorFreq: anchor.f,
				TargetFreq: target.f,
			})
		}
	}
	return records, nil
}
