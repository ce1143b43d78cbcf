package fingerprint

import "sort"

// ExtractPeaks returns the landmarks of spec: cells that are strictly greater
// than every other cell within minDistance rows and columns (the square is
// truncated at the borders) and at least relativeThreshold times the global
// maximum. The result is ordered by time, then frequency.
//
// An empty or all-zero spectrogram yields no landmarks.
func ExtractPeaks(spec *Spectrogram, minDistance int, relativeThreshold float64) ([]Landmark, error) {
	if err := validatePeakParams(minDistance, relativeThreshold); err != nil {
		return nil, err
	}
	if spec.Empty() || spec.NumFreqs() == 0 {
		return nil, nil
	}

	peak := spec.Max()
	if peak <= 0 {
		return nil, nil
	}
	threshold := relativeThreshold * peak

	nF, nT := spec.NumFreqs(), spec.NumFrames()
	neighborhood := neighborhoodMax(spec.Power, minDistance)

	var landmarks []Landmark
	for t := 0; t < nT; t++ {
		for f := 0; f < nF; f++ {
			v := spec.Power[f][t]
			// A zero cell cannot beat its neighbors, so only positive cells qualify.
			if v <= 0 || v < threshold || v != neighborhood[f][t] {
				continue
			}
			if !strictMax(spec.Power, f, t, minDistance) {
				continue
			}
			landmarks = append(landmarks, Landmark{TimeIndex: t, FreqIndex: f})
		}
	}

	sortLandmarks(landmarks)
	return landmarks, nil
}

func sortLandmarks(ls []Landmark) {
	sort.Slice(ls, func(i, j int) bool {
		if ls[i].TimeIndex == ls[j].TimeIndex {
			return ls[i].FreqIndex < ls[j].FreqIndex
		}
		return ls[i].TimeIndex < ls[j].TimeIndex
	})
}

// neighborhoodMax computes the maximum over the (2d+1)x(2d+1) truncated
// square around every cell, as two separable sliding-window passes.
func neighborhoodMax(power [][]float64, d int) [][]float64 {
	nF := len(power)
	nT := len(power[0])

	rows := make([][]float64, nF)
	for f := range power {
		rows[f] = make([]float64, nT)
		slidingMax(rows[f], power[f], d)
	}

	out := make([][]float64, nF)
	for f := range out {
		out[f] = make([]float64, nT)
	}
	col := make([]float64, nF)
	colMax := make([]float64, nF)
	for t := 0; t < nT; t++ {
		for f := 0; f < nF; f++ {
			col[f] = rows[f][t]
		}
		slidingMax(colMax, col, d)
		for f := 0; f < nF; f++ {
			out[f][t] = colMax[f]
		}
	}
	return out
}

// slidingMax writes max(src[i-d .. i+d]) into dst[i] using a monotonic deque
// of indices.
func slidingMax(dst, src []float64, d int) {
	n := len(src)
	deque := make([]int, 0, 2*d+1)
	next := 0
	for i := 0; i < n; i++ {
		for ; next < n && next <= i+d; next++ {
			for len(deque) > 0 && src[deque[len(deque)-1]] <= src[next] {
				deque = deque[:len(deque)-1]
			}
			deque = append(deque, next)
		}
		for deque[0] < i-d {
			deque = deque[1:]
		}
		dst[i] = src[deque[0]]
	}
}

// strictMax reports whether no other cell in the neighborhood of (f, t)
// reaches its value.
func strictMax(power [][]float64, f, t, d int) bool {
	v := power[f][t]
	f0, f1 := max(0, f-d), min(len(power)-1, f+d)
	t0, t1 := max(0, t-d), min(len(power[0])-1, t+d)
	for i := f0; i <= f1; i++ {
		row := power[i]
		for j := t0; j <= t1; j++ {
			if (i != f || j != t) && row[j] >= v {
				return false
			}
		}
	}
	return true
}
