package sigma

import (
	"math"
	"sort"

	"github.com/grailbio/edusigma/bintable"
)

// NoiseBounds is the background noise range estimated from the adjusted
// counts.
type NoiseBounds struct {
	Low, High float64
}

// NoiseSampleValues returns the sorted adjusted_1 values that make up the
// noise sample.
func NoiseSampleValues(recs []bintable.Record, sample NoiseSample) []float64 {
	var vals []float64
	for i := range recs {
		r := &recs[i]
		switch sample {
		case SampleDepth:
			if !r.HasDepth() {
				continue
			}
		case SampleSignal:
			if !(r.Adjusted1 > 0) {
				continue
			}
		}
		vals = append(vals, r.Adjusted1)
	}
	sort.Float64s(vals)
	return vals
}

// indexQuantile returns sorted[floor(n*p/100)], clamped to the last element
// when p = 100.
func indexQuantile(sorted []float64, p float64) float64 {
	idx := int(float64(len(sorted)) * (p / 100))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// interpQuantile returns the p-th percentile of sorted, linearly
// interpolated between the two closest ranks.
func interpQuantile(sorted []float64, p float64) float64 {
	rank := p / 100 * float64(len(sorted)-1)
	lo := math.Floor(rank)
	i := int(lo)
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - lo
	return sorted[i] + (sorted[i+1]-sorted[i])*frac
}

// EstimateNoise computes the background bounds from a sorted noise sample at
// percentiles pLow and pHigh.
func EstimateNoise(sorted []float64, mode NoiseMode, pLow, pHigh float64) (NoiseBounds, error) {
	if len(sorted) == 0 {
		return NoiseBounds{}, &InsufficientDataError{Stage: "background noise", Have: 0, Need: 1}
	}
	q := indexQuantile
	if mode == NoisePercentile {
		q = interpQuantile
	}
	return NoiseBounds{Low: q(sorted, pLow), High: q(sorted, pHigh)}, nil
}

// NormalizeBackground maps adjusted_1 of every bin onto the noise range:
//
//   sigma_mb = (adjusted_1 - low) / (high - low)
func NormalizeBackground(recs []bintable.Record, nb NoiseBounds) ([]float64, error) {
	width := nb.High - nb.Low
	if width == 0 {
		return nil, &DegenerateRangeError{Low: nb.Low, High: nb.High}
	}
	mb := make([]float64, len(recs))
	for i := range recs {
		mb[i] = (recs[i].Adjusted1 - nb.Low) / width
	}
	return mb, nil
}
