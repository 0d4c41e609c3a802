package sigma

import (
	"math"
	"testing"

	"github.com/grailbio/edusigma/bintable"
	"github.com/grailbio/testutil/expect"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitBiasCurveRoundTrip(t *testing.T) {
	want := BiasCurve{Slope: 0.7, Intercept: 1.3}
	depths := []float64{3, 10, 25, 60, 140, 500}
	recs := make([]bintable.Record, 0, len(depths)+1)
	sigma := make([]float64, 0, len(depths)+1)
	for i, d := range depths {
		recs = append(recs, rec(int64(i), 1, 1, d))
		sigma = append(sigma, want.At(d))
	}
	// Bins without depth are ignored, whatever their sigma.
	recs = append(recs, rec(int64(len(depths)), 1, 1, 0))
	sigma = append(sigma, 0)

	got, n, err := FitBiasCurve(recs, sigma)
	require.NoError(t, err)
	expect.EQ(t, n, len(depths))
	assert.InDelta(t, want.Slope, got.Slope, 1e-6)
	assert.InDelta(t, want.Intercept, got.Intercept, 1e-6)
	for i, d := range depths {
		assert.InDelta(t, sigma[i], got.At(d), 1e-6*sigma[i])
	}
}

func TestFitBiasCurveErrors(t *testing.T) {
	recs := []bintable.Record{rec(0, 1, 1, 10), rec(1, 1, 1, 20), rec(2, 1, 1, 30)}

	_, _, err := FitBiasCurve(recs, []float64{1, 0, 2})
	var nonPositive *NonPositiveValueError
	require.True(t, errors.As(err, &nonPositive), "got %v", err)
	expect.EQ(t, nonPositive.Key, bintable.Key{Chrom: "chr1", Bin: 1})
	expect.EQ(t, nonPositive.Field, "sigma")

	_, n, err := FitBiasCurve(recs[:1], []float64{1})
	var insufficient *InsufficientDataError
	require.True(t, errors.As(err, &insufficient), "got %v", err)
	expect.EQ(t, n, 1)
	expect.EQ(t, insufficient.Need, 2)

	flat := []bintable.Record{rec(0, 1, 1, 10), rec(1, 1, 1, 10)}
	_, _, err = FitBiasCurve(flat, []float64{1, 2})
	var degenerate *DegenerateInputError
	require.True(t, errors.As(err, &degenerate), "got %v", err)
}

func TestBiasCurveApply(t *testing.T) {
	c := BiasCurve{Slope: 1, Intercept: math.Log(2)}
	recs := []bintable.Record{rec(0, 1, 1, 10), rec(1, 1, 1, 0), rec(2, 1, 1, 3)}

	fitted := c.Apply(recs, ZeroDepthZero)
	require.Len(t, fitted, 3)
	assert.InDelta(t, 20, fitted[0], 1e-9)
	expect.EQ(t, fitted[1], 0.0)
	assert.InDelta(t, 6, fitted[2], 1e-9)

	fitted = c.Apply(recs, ZeroDepthMissing)
	assert.True(t, math.IsNaN(fitted[1]))
	assert.InDelta(t, 20, fitted[0], 1e-9)
}
