package fingerprint

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// HistogramBins is the number of offset histogram bins used for scoring.
const HistogramBins = 100

// Match looks up every query record in reference by Key, pairing it with the
// earliest reference record carrying the same key, and scores how strongly the
// resulting query-minus-reference time offsets agree.
//
// Score is the densest histogram bin divided by the mean of the nonzero bins.
// When nothing matches, the result has no pairs and Score 0.
func Match(reference, query *Fingerprint) MatchResult {
	if reference.Empty() || query.Empty() {
		return MatchResult{}
	}

	index := make(map[Key][]float64, len(reference.Records))
	for _, r := range reference.Records {
		k := r.Key()
		index[k] = append(index[k], r.AnchorTime)
	}

	var pairs []MatchedPair
	for _, q := range query.Records {
		refTimes, ok := index[q.Key()]
		if !ok {
			continue
		}
		pairs = append(pairs, MatchedPair{ReferenceTime: refTimes[0], QueryTime: q.AnchorTime})
	}
	if len(pairs) == 0 {
		return MatchResult{}
	}

	offsets := make([]float64, len(pairs))
	for i, p := range pairs {
		offsets[i] = p.QueryTime - p.ReferenceTime
	}

	hist := offsetHistogram(offsets, HistogramBins)
	score, peakBin := peakOverMean(hist.Density)

	return MatchResult{
		Pairs:     pairs,
		Offsets:   offsets,
		Histogram: hist,
		Offset:    (hist.Edges[peakBin] + hist.Edges[peakBin+1]) / 2,
		Score:     score,
	}
}

// offsetHistogram bins offsets into equal-width bins over [min, max], widening
// a zero-width range by half a unit on each side. The last bin is closed.
// Density is normalized so that it integrates to one.
func offsetHistogram(offsets []float64, bins int) *Histogram {
	sorted := slices.Clone(offsets)
	slices.Sort(sorted)

	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	edges := floats.Span(make([]float64, bins+1), lo, hi)
	edges[bins] = hi

	// stat.Histogram treats the last divider as exclusive; nudge it so the
	// maximum offset lands in the final bin.
	dividers := slices.Clone(edges)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, sorted, nil)

	width := (hi - lo) / float64(bins)
	norm := float64(len(sorted)) * width
	density := make([]float64, bins)
	for i, c := range counts {
		density[i] = c / norm
	}
	return &Histogram{Edges: edges, Density: density}
}

// peakOverMean returns max/mean over the nonzero densities and the index of the
// first maximal bin.
func peakOverMean(density []float64) (float64, int) {
	nonzero := make([]float64, 0, len(density))
	for _, d := range density {
		if d > 0 {
			nonzero = append(nonzero, d)
		}
	}
	if len(nonzero) == 0 {
		return 0, 0
	}
	peak := floats.Max(nonzero)
	return peak / stat.Mean(nonzero, nil), floats.MaxIdx(density)
}
