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
	"context"
	"io/ioutil"
	"math"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/grailbio/base/file"
	"github.com/pkg/errors"
)

// NoiseMode selects how the background noise bounds are read off the sorted
// noise sample.
type NoiseMode int

const (
	// NoiseIndex takes sorted[floor(n*p/100)].
	NoiseIndex NoiseMode = iota
	// NoisePercentile linearly interpolates between the two closest ranks,
	// rank = p/100*(n-1).
	NoisePercentile
)

var noiseModeNames = []string{"index", "percentile"}

// String implements fmt.Stringer.
func (m NoiseMode) String() string {
	if int(m) < 0 || int(m) >= len(noiseModeNames) {
		return "unknown"
	}
	return noiseModeNames[m]
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *NoiseMode) UnmarshalText(text []byte) error {
	v, err := parseEnum("noise mode", noiseModeNames, string(text))
	*m = NoiseMode(v)
	return err
}

// NoiseSample selects which bins contribute adjusted_1 values to the noise
// sample.
type NoiseSample int

const (
	// SampleDepth uses every bin with nonzero control depth.
	SampleDepth NoiseSample = iota
	// SampleSignal uses every bin with adjusted_1 > 0.
	SampleSignal
)

var noiseSampleNames = []string{"depth", "signal"}

// String implements fmt.Stringer.
func (s NoiseSample) String() string {
	if int(s) < 0 || int(s) >= len(noiseSampleNames) {
		return "unknown"
	}
	return noiseSampleNames[s]
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *NoiseSample) UnmarshalText(text []byte) error {
	v, err := parseEnum("noise sample", noiseSampleNames, string(text))
	*s = NoiseSample(v)
	return err
}

// ZeroDepthPolicy decides the fitted sigma of bins without control depth,
// where the power curve evaluates 0^slope.
type ZeroDepthPolicy int

const (
	// ZeroDepthZero forces fitted sigma to 0.
	ZeroDepthZero ZeroDepthPolicy = iota
	// ZeroDepthMissing marks fitted sigma as missing.
	ZeroDepthMissing
)

var zeroDepthNames = []string{"zero", "missing"}

// String implements fmt.Stringer.
func (p ZeroDepthPolicy) String() string {
	if int(p) < 0 || int(p) >= len(zeroDepthNames) {
		return "unknown"
	}
	return zeroDepthNames[p]
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *ZeroDepthPolicy) UnmarshalText(text []byte) error {
	v, err := parseEnum("zero-depth policy", zeroDepthNames, string(text))
	*p = ZeroDepthPolicy(v)
	return err
}

func parseEnum(what string, names []string, s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range names {
		if s == name {
			return i, nil
		}
	}
	return 0, errors.Errorf("unknown %s %q, want one of %s", what, s, strings.Join(names, ", "))
}

// Opts configures one normalization run.  Each historical pipeline variant
// is a preset of Opts; see Presets.
type Opts struct {
	// ScaleFactor multiplies every raw sigma (1 or 1000 in the presets).
	ScaleFactor float64 `toml:"scale_factor"`
	// ApplyGlobalCorrection multiplies sigma by total sample reads / total
	// control reads.
	ApplyGlobalCorrection bool `toml:"apply_global_correction"`
	// CorrectionFactor, if positive, is used as the correction factor instead
	// of the computed one, whether or not ApplyGlobalCorrection is set.
	CorrectionFactor float64 `toml:"correction_factor"`

	// NoiseMode and NoiseSample select the background estimator.
	NoiseMode   NoiseMode   `toml:"noise_mode"`
	NoiseSample NoiseSample `toml:"noise_sample"`
	// NoiseLowPercentile and NoiseHighPercentile are in [0, 100].
	NoiseLowPercentile  float64 `toml:"noise_low_percentile"`
	NoiseHighPercentile float64 `toml:"noise_high_percentile"`

	// ApplyBiasCurveFit fits the depth/sigma power curve and smooths the
	// fitted sigma.  Otherwise the background-normalized sigma is smoothed.
	ApplyBiasCurveFit bool            `toml:"apply_bias_curve_fit"`
	ZeroDepth         ZeroDepthPolicy `toml:"zero_depth"`

	// Window is the centered moving-average width.
	Window int `toml:"window"`
	// TrimFactor bounds the growth between consecutive bins.
	TrimFactor float64 `toml:"trim_factor"`
	// TrimSmoothed trims the smoothed series instead of the unsmoothed one.
	TrimSmoothed bool `toml:"trim_smoothed"`

	// MinValue floors trimmed sigma before the log2 transform.
	MinValue float64 `toml:"min_value"`

	// BinSize is the bin width in bases.  It is reported in the QC file and
	// used to place bins on the genome when excluding regions.
	BinSize int `toml:"bin_size"`
}

// DefaultPreset names the preset used when none is given.
const DefaultPreset = "eduseq"

// DefaultOpts is the DefaultPreset configuration.
var DefaultOpts = Opts{
	ScaleFactor:           1000,
	ApplyGlobalCorrection: true,
	NoiseMode:             NoiseIndex,
	NoiseSample:           SampleDepth,
	NoiseLowPercentile:    9,
	NoiseHighPercentile:   99,
	ApplyBiasCurveFit:     false,
	ZeroDepth:             ZeroDepthZero,
	Window:                3,
	TrimFactor:            1.2,
	MinValue:              1e-9,
	BinSize:               10000,
}

// Presets maps preset names to configurations, one per historical pipeline
// variant.
var Presets = map[string]Opts{
	// Sigma with global correction, background normalization, no curve fit.
	"eduseq": DefaultOpts,
	// Two-stage unscaled sigma followed by normalization with the curve fit.
	"sigma-norm": withOpts(func(o *Opts) {
		o.ScaleFactor = 1
		o.ApplyGlobalCorrection = false
		o.ApplyBiasCurveFit = true
	}),
	"post-processing": withOpts(func(o *Opts) {
		o.ApplyGlobalCorrection = false
		o.ApplyBiasCurveFit = true
	}),
	"post-processing-percentile": withOpts(func(o *Opts) {
		o.ApplyGlobalCorrection = false
		o.ApplyBiasCurveFit = true
		o.NoiseMode = NoisePercentile
		o.NoiseSample = SampleSignal
	}),
}

func withOpts(fn func(*Opts)) Opts {
	opts := DefaultOpts
	fn(&opts)
	return opts
}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns a copy of the named preset.
func Preset(name string) (Opts, error) {
	opts, ok := Presets[name]
	if !ok {
		return Opts{}, errors.Errorf("unknown preset %q, want one of %s", name, strings.Join(PresetNames(), ", "))
	}
	return opts, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks that opts describe a runnable configuration.
func (o *Opts) Validate() error {
	switch {
	case !finite(o.ScaleFactor) || o.ScaleFactor <= 0:
		return errors.Errorf("scale factor must be positive, got %v", o.ScaleFactor)
	case !finite(o.CorrectionFactor) || o.CorrectionFactor < 0:
		return errors.Errorf("correction factor must be positive or 0 (computed), got %v", o.CorrectionFactor)
	case o.NoiseMode != NoiseIndex && o.NoiseMode != NoisePercentile:
		return errors.Errorf("invalid noise mode %d", o.NoiseMode)
	case o.NoiseSample != SampleDepth && o.NoiseSample != SampleSignal:
		return errors.Errorf("invalid noise sample %d", o.NoiseSample)
	case !(o.NoiseLowPercentile >= 0 && o.NoiseLowPercentile <= o.NoiseHighPercentile && o.NoiseHighPercentile <= 100):
		return errors.Errorf("noise percentiles must satisfy 0 <= low <= high <= 100, got %v, %v",
			o.NoiseLowPercentile, o.NoiseHighPercentile)
	case o.ZeroDepth != ZeroDepthZero && o.ZeroDepth != ZeroDepthMissing:
		return errors.Errorf("invalid zero-depth policy %d", o.ZeroDepth)
	case o.Window < 1:
		return errors.Errorf("smoothing window must be at least 1, got %d", o.Window)
	case !finite(o.TrimFactor) || o.TrimFactor <= 0:
		return errors.Errorf("trim factor must be positive, got %v", o.TrimFactor)
	case !finite(o.MinValue) || o.MinValue <= 0:
		return errors.Errorf("log2 floor must be positive, got %v", o.MinValue)
	case o.BinSize <= 0:
		return errors.Errorf("bin size must be positive, got %d", o.BinSize)
	}
	return nil
}

// LoadOptsFile overlays the settings of a TOML file onto opts.  Keys absent
// from the file keep their current values; unknown keys are an error.
//
//   scale_factor = 1000
//   noise_mode = "percentile"
//   apply_bias_curve_fit = true
func LoadOptsFile(ctx context.Context, path string, opts *Opts) (err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	data, err := ioutil.ReadAll(in.Reader(ctx))
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	return decodeOpts(string(data), path, opts)
}

func decodeOpts(data, path string, opts *Opts) error {
	md, err := toml.Decode(data, opts)
	if err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.Errorf("%s: unknown settings: %s", path, strings.Join(keys, ", "))
	}
	return nil
}
