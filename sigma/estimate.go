package sigma

import (
	"github.com/grailbio/edusigma/bintable"
)

// Totals holds read sums over the full merged table.
type Totals struct {
	// Sample is the sum of bin_count_1.
	Sample float64
	// Control is the sum of sheared_counts.
	Control float64
}

// SumReads totals sample and control reads over recs.
func SumReads(recs []bintable.Record) Totals {
	var t Totals
	for i := range recs {
		t.Sample += recs[i].BinCount1
		t.Control += recs[i].Sheared
	}
	return t
}

// CorrectionFactor returns the factor applied to every sigma: the manual
// opts.CorrectionFactor when set, total sample / total control reads when
// opts.ApplyGlobalCorrection is set, and 1 otherwise.
func CorrectionFactor(t Totals, opts *Opts) (float64, error) {
	if opts.CorrectionFactor > 0 {
		return opts.CorrectionFactor, nil
	}
	if !opts.ApplyGlobalCorrection {
		return 1, nil
	}
	if t.Control == 0 {
		return 0, &DegenerateInputError{Reason: "total control reads is zero, cannot compute the correction factor"}
	}
	return t.Sample / t.Control, nil
}

// Estimate computes the raw sigma of every bin:
//
//   sigma = bin_count_1 / sheared_counts * scale * correction
//
// Bins without control depth get sigma = 0.
func Estimate(recs []bintable.Record, scale, correction float64) []float64 {
	sigma := make([]float64, len(recs))
	for i := range recs {
		r := &recs[i]
		if !r.HasDepth() {
			continue
		}
		sigma[i] = r.BinCount1 / r.Sheared * scale * correction
	}
	return sigma
}
