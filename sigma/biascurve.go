package sigma

import (
	"math"

	"github.com/grailbio/edusigma/bintable"
	"gonum.org/v1/gonum/stat"
)

// BiasCurve is the power law sigma = exp(Intercept) * depth^Slope, fitted as
// the line log(sigma) = Intercept + Slope*log(depth).
type BiasCurve struct {
	Slope, Intercept float64
}

// At evaluates the curve at a positive depth.
func (c BiasCurve) At(depth float64) float64 {
	return math.Exp(c.Intercept) * math.Pow(depth, c.Slope)
}

// FitBiasCurve regresses log(sigma) on log(sheared_counts) by ordinary least
// squares over the bins with control depth.  It returns the curve and the
// number of bins fitted.  sigma must be parallel to recs.
func FitBiasCurve(recs []bintable.Record, sigma []float64) (BiasCurve, int, error) {
	var logDepth, logSigma []float64
	for i := range recs {
		r := &recs[i]
		if !r.HasDepth() {
			continue
		}
		if !(sigma[i] > 0) {
			return BiasCurve{}, 0, &NonPositiveValueError{Key: r.Key, Field: "sigma", Value: sigma[i]}
		}
		logDepth = append(logDepth, math.Log(r.Sheared))
		logSigma = append(logSigma, math.Log(sigma[i]))
	}
	n := len(logDepth)
	if n < 2 {
		return BiasCurve{}, n, &InsufficientDataError{Stage: "bias curve fit", Have: n, Need: 2}
	}
	if stat.Variance(logDepth, nil) == 0 {
		return BiasCurve{}, n, &DegenerateInputError{Reason: "control depth is constant over the fitted bins, the bias curve slope is undefined"}
	}
	intercept, slope := stat.LinearRegression(logDepth, logSigma, nil, false)
	return BiasCurve{Slope: slope, Intercept: intercept}, n, nil
}

// Apply evaluates the curve for every bin.  Bins without control depth get 0
// or NaN according to policy.
func (c BiasCurve) Apply(recs []bintable.Record, policy ZeroDepthPolicy) []float64 {
	fitted := make([]float64, len(recs))
	for i := range recs {
		r := &recs[i]
		switch {
		case r.HasDepth():
			fitted[i] = c.At(r.Sheared)
		case policy == ZeroDepthMissing:
			fitted[i] = math.NaN()
		}
	}
	return fitted
}
