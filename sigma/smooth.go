package sigma

import "math"

// Smooth returns the centered moving average of values.  The window of
// position i is [i-window/2, i-window/2+window-1].  Positions whose window
// runs off either end of the sequence, or holds a missing (NaN) value, are
// NaN.
func Smooth(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	left := window / 2
	for i := range values {
		lo, hi := i-left, i-left+window-1
		if lo < 0 || hi >= len(values) {
			out[i] = math.NaN()
			continue
		}
		sum := 0.0
		for _, v := range values[lo : hi+1] {
			sum += v
		}
		out[i] = sum / float64(window)
	}
	return out
}

// Trim caps spikes: out[i] = values[i-1]*factor when values[i] exceeds it,
// else values[i].  Position 0 is kept.
//
// The scan compares against the original values[i-1], never the already
// trimmed out[i-1].  A missing value never triggers a cap and is kept as is.
func Trim(values []float64, factor float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v
		if i == 0 {
			continue
		}
		if limit := values[i-1] * factor; v > limit {
			out[i] = limit
		}
	}
	return out
}
