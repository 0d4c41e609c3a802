// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package sigma

import (
	"fmt"
	"math"

	"github.com/grailbio/edusigma/bintable"
	"github.com/pkg/errors"
)

// Logger receives progress and warning messages from Run.  log.Info and
// log.Debug of github.com/grailbio/base/log satisfy it.
type Logger interface {
	Printf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...interface{}) {}

// NopLogger discards everything.
var NopLogger Logger = nopLogger{}

// Bin is one merged bin together with the values derived from it.  A derived
// value that could not be computed is NaN.
type Bin struct {
	bintable.Record
	Sigma float64
	// SigmaMB is the background-normalized adjusted count.
	SigmaMB float64
	// FittedSigma is the bias-curve value; NaN when the curve is not fitted.
	FittedSigma float64
	Smoothed    float64
	Trimmed     float64
	Log2        float64
}

// Result is the outcome of one run.
type Result struct {
	Opts Opts
	Bins []Bin

	Totals           Totals
	CorrectionFactor float64
	NoiseSampleSize  int
	Noise            NoiseBounds
	// Curve is nil when the bias curve is not fitted.
	Curve        *BiasCurve
	FittedBins   int
	BaselineMean float64

	Warnings []Warning
}

// maxListedWarnings bounds the number of warnings logged one per line.
const maxListedWarnings = 10

// logWarnings logs a summary line followed by the first maxListedWarnings
// warnings of ws.
func logWarnings(logger Logger, summary string, ws []Warning) {
	if len(ws) == 0 {
		return
	}
	logger.Printf("warning: %d bin(s) %s", len(ws), summary)
	for i, w := range ws {
		if i == maxListedWarnings {
			logger.Printf("warning:   ... and %d more", len(ws)-maxListedWarnings)
			break
		}
		logger.Printf("warning:   %s", w)
	}
}

// Run normalizes merged bins in one forward pass: raw sigma, background
// normalization, the optional bias-curve fit, smoothing and trimming, and the
// log2 transform.  Any fatal condition aborts the run with one of the error
// types of this package; non-fatal conditions are returned as
// Result.Warnings and logged.  recs is not modified.
func Run(recs []bintable.Record, opts Opts, logger Logger) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = NopLogger
	}
	res := &Result{Opts: opts}

	res.Totals = SumReads(recs)
	cf, err := CorrectionFactor(res.Totals, &opts)
	if err != nil {
		return nil, err
	}
	res.CorrectionFactor = cf
	logger.Printf("%d bins, sample reads %v, control reads %v, correction factor %v",
		len(recs), res.Totals.Sample, res.Totals.Control, cf)
	sigma := Estimate(recs, opts.ScaleFactor, cf)

	sample := NoiseSampleValues(recs, opts.NoiseSample)
	res.NoiseSampleSize = len(sample)
	if res.Noise, err = EstimateNoise(sample, opts.NoiseMode, opts.NoiseLowPercentile, opts.NoiseHighPercentile); err != nil {
		return nil, err
	}
	logger.Printf("background noise (%v, %v sample of %d): low %v, high %v",
		opts.NoiseMode, opts.NoiseSample, len(sample), res.Noise.Low, res.Noise.High)
	mb, err := NormalizeBackground(recs, res.Noise)
	if err != nil {
		return nil, err
	}

	series := mb
	fitted := make([]float64, len(recs))
	if opts.ApplyBiasCurveFit {
		curve, n, err := FitBiasCurve(recs, sigma)
		if err != nil {
			return nil, errors.Wrap(err, "bias curve")
		}
		res.Curve = &curve
		res.FittedBins = n
		logger.Printf("bias curve over %d bins: slope %v, intercept %v", n, curve.Slope, curve.Intercept)
		fitted = curve.Apply(recs, opts.ZeroDepth)
		series = fitted
	} else {
		for i := range fitted {
			fitted[i] = math.NaN()
		}
	}

	smoothed := Smooth(series, opts.Window)
	trimInput := series
	if opts.TrimSmoothed {
		trimInput = smoothed
	}
	trimmed := Trim(trimInput, opts.TrimFactor)
	res.BaselineMean = BaselineMean(trimmed)
	log2 := Log2Transform(trimmed, res.BaselineMean, opts.MinValue)

	res.Bins = make([]Bin, len(recs))
	var edgeWarnings, log2Warnings []Warning
	for i := range recs {
		b := &res.Bins[i]
		b.Record = recs[i]
		b.Sigma = sigma[i]
		b.SigmaMB = mb[i]
		b.FittedSigma = fitted[i]
		b.Smoothed = smoothed[i]
		b.Trimmed = trimmed[i]
		b.Log2 = log2[i]
		if math.IsNaN(b.Smoothed) {
			edgeWarnings = append(edgeWarnings, Warning{b.Key, "smoothed_sigma", "window incomplete or holds a missing value"})
		}
		if !finite(b.Log2) {
			log2Warnings = append(log2Warnings, Warning{b.Key, "sigma_log2",
				fmt.Sprintf("trimmed value %v with baseline mean %v has no finite log2", b.Trimmed, res.BaselineMean)})
			b.Log2 = math.NaN()
		}
	}
	logWarnings(logger, "without a smoothed value", edgeWarnings)
	logWarnings(logger, "with an invalid log2 value", log2Warnings)
	res.Warnings = append(edgeWarnings, log2Warnings...)
	logger.Printf("baseline mean %v, %d warning(s)", res.BaselineMean, len(res.Warnings))
	return res, nil
}
