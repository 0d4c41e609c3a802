package sigma

import (
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresets(t *testing.T) {
	expect.EQ(t, PresetNames(), []string{"eduseq", "post-processing", "post-processing-percentile", "sigma-norm"})
	for _, name := range PresetNames() {
		opts, err := Preset(name)
		require.NoError(t, err)
		assert.NoError(t, opts.Validate(), name)
	}

	opts, err := Preset(DefaultPreset)
	require.NoError(t, err)
	expect.EQ(t, opts, DefaultOpts)

	opts, err = Preset("sigma-norm")
	require.NoError(t, err)
	expect.EQ(t, opts.ScaleFactor, 1.0)
	expect.False(t, opts.ApplyGlobalCorrection)
	expect.True(t, opts.ApplyBiasCurveFit)

	opts, err = Preset("post-processing-percentile")
	require.NoError(t, err)
	expect.EQ(t, opts.ScaleFactor, 1000.0)
	expect.EQ(t, opts.NoiseMode, NoisePercentile)
	expect.EQ(t, opts.NoiseSample, SampleSignal)

	_, err = Preset("nosuch")
	assert.Error(t, err)
}

func TestPresetIsACopy(t *testing.T) {
	opts, err := Preset(DefaultPreset)
	require.NoError(t, err)
	opts.Window = 11
	expect.EQ(t, Presets[DefaultPreset].Window, 3)
}

func TestValidate(t *testing.T) {
	for _, test := range []struct {
		name   string
		modify func(*Opts)
	}{
		{"scale", func(o *Opts) { o.ScaleFactor = 0 }},
		{"correction", func(o *Opts) { o.CorrectionFactor = -1 }},
		{"low above high", func(o *Opts) { o.NoiseLowPercentile, o.NoiseHighPercentile = 50, 40 }},
		{"high above 100", func(o *Opts) { o.NoiseHighPercentile = 101 }},
		{"negative low", func(o *Opts) { o.NoiseLowPercentile = -1 }},
		{"mode", func(o *Opts) { o.NoiseMode = 7 }},
		{"sample", func(o *Opts) { o.NoiseSample = -1 }},
		{"zero depth", func(o *Opts) { o.ZeroDepth = 3 }},
		{"window", func(o *Opts) { o.Window = 0 }},
		{"trim", func(o *Opts) { o.TrimFactor = 0 }},
		{"min value", func(o *Opts) { o.MinValue = 0 }},
		{"bin size", func(o *Opts) { o.BinSize = -10 }},
	} {
		opts := DefaultOpts
		test.modify(&opts)
		assert.Error(t, opts.Validate(), test.name)
	}
}

func TestUnmarshalText(t *testing.T) {
	var m NoiseMode
	require.NoError(t, m.UnmarshalText([]byte("Percentile")))
	expect.EQ(t, m, NoisePercentile)
	expect.EQ(t, m.String(), "percentile")
	assert.Error(t, m.UnmarshalText([]byte("median")))

	var s NoiseSample
	require.NoError(t, s.UnmarshalText([]byte("signal")))
	expect.EQ(t, s, SampleSignal)

	var p ZeroDepthPolicy
	require.NoError(t, p.UnmarshalText([]byte(" missing ")))
	expect.EQ(t, p, ZeroDepthMissing)

	var f Format
	require.NoError(t, f.UnmarshalText([]byte("tsv")))
	expect.EQ(t, f, FormatTSV)
	expect.EQ(t, f.Ext(true), ".tsv.gz")
	expect.EQ(t, FormatCSV.Ext(false), ".csv")
}

func TestDecodeOpts(t *testing.T) {
	opts := DefaultOpts
	err := decodeOpts(`
scale_factor = 1
noise_mode = "percentile"
noise_sample = "signal"
apply_bias_curve_fit = true
zero_depth = "missing"
window = 5
`, "test.toml", &opts)
	require.NoError(t, err)
	expect.EQ(t, opts.ScaleFactor, 1.0)
	expect.EQ(t, opts.NoiseMode, NoisePercentile)
	expect.EQ(t, opts.NoiseSample, SampleSignal)
	expect.True(t, opts.ApplyBiasCurveFit)
	expect.EQ(t, opts.ZeroDepth, ZeroDepthMissing)
	expect.EQ(t, opts.Window, 5)
	// Untouched keys keep their values.
	expect.EQ(t, opts.TrimFactor, DefaultOpts.TrimFactor)
	expect.True(t, opts.ApplyGlobalCorrection)

	opts = DefaultOpts
	err = decodeOpts("windw = 5\n", "test.toml", &opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "windw")

	err = decodeOpts(`noise_mode = "median"`, "test.toml", &opts)
	assert.Error(t, err)

	err = decodeOpts("window = [", "test.toml", &opts)
	assert.Error(t, err)
}
