package sigma

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// finiteValues returns the finite elements of values.
func finiteValues(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if finite(v) {
			out = append(out, v)
		}
	}
	return out
}

// BaselineMean returns the arithmetic mean of the finite values, or NaN if
// there are none.
func BaselineMean(values []float64) float64 {
	vals := finiteValues(values)
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}

// Log2Transform computes log2(max(v, minValue) + baseline) for every value.
// A missing input stays missing; the result may be non-finite when baseline
// is negative enough, and callers report such positions.
func Log2Transform(values []float64, baseline, minValue float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Log2(math.Max(v, minValue) + baseline)
	}
	return out
}
