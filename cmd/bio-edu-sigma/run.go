package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/edusigma/bintable"
	"github.com/grailbio/edusigma/interval"
	"github.com/grailbio/edusigma/sigma"
	"v.io/x/lib/cmdline"
)

// runFlags holds the values of the run command's flags.  Normalization
// settings only take effect when set explicitly; see applyFlags.
type runFlags struct {
	preset     string
	configPath string
	outDir     string
	prefix     string

	scaleFactor      float64
	globalCorrection bool
	correctionFactor float64
	noiseMode        string
	noiseSample      string
	noiseLow         float64
	noiseHigh        float64
	biasFit          bool
	zeroDepth        string
	window           int
	trimFactor       float64
	trimSmoothed     bool
	minValue         float64
	binSize          int

	yMax         float64
	localMaxBins int
	excludeBED   string
	format       string
	gzip         bool
	missing      string
	plot         bool
}

// inputPaths names the three tables of one sample.
type inputPaths struct {
	adjusted, binCounts, sheared string
}

func newCmdRun() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "run",
		Short:    "Normalize one sample",
		ArgsName: "adjusted_counts bin_counts total_sheared",
		Long: `
Run merges the three tables of one sample on (chromosome, bin) and writes

  <out-dir>/<prefix>_sigma_select_EU_0b.csv     every bin with all derived columns
  <out-dir>/<prefix>_sigma_all_EU_0b.csv        smoothed_sigma and trimmed_sigma
  <out-dir>/<prefix>_sigma_qual_counts_EU_0b.txt quality-control report
  <out-dir>/<prefix>_sigma_plot.html            bar chart of smoothed vs trimmed sigma

adjusted_counts and bin_counts are whitespace-separated tables of chromosome,
bin and two sample values.  total_sheared is a comma-separated table of
chromosome, bin and control depth.  None of them has a header.

Settings are taken from -preset, then from the -config TOML file, then from
the flags given on the command line.  Run "bio-edu-sigma presets" to list the
presets.`,
	}
	f := runFlags{}
	registerRunFlags(&cmd.Flags, &f)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 3 {
			return fmt.Errorf("run takes adjusted_counts bin_counts total_sheared, but got %v", argv)
		}
		ctx := vcontext.Background()
		opts, err := resolveOpts(ctx, &cmd.Flags, &f)
		if err != nil {
			return err
		}
		_, err = runSample(ctx, inputPaths{argv[0], argv[1], argv[2]}, opts, f)
		return err
	})
	return cmd
}

// registerRunFlags defines the run command's flags on fs, storing their values
// in f.
func registerRunFlags(fs *flag.FlagSet, f *runFlags) {
	d := sigma.DefaultOpts
	fs.StringVar(&f.preset, "preset", sigma.DefaultPreset, "Normalization preset")
	fs.StringVar(&f.configPath, "config", "", "TOML file overriding preset settings")
	fs.StringVar(&f.outDir, "out-dir", ".", "Output directory")
	fs.StringVar(&f.prefix, "prefix", "", "Output file name prefix. By default derived from the adjusted_counts file name")

	fs.Float64Var(&f.scaleFactor, "scale-factor", d.ScaleFactor, "Multiplier of every raw sigma")
	fs.BoolVar(&f.globalCorrection, "global-correction", d.ApplyGlobalCorrection, "Multiply sigma by total sample reads / total control reads")
	fs.Float64Var(&f.correctionFactor, "correction-factor", d.CorrectionFactor, "Manual correction factor; 0 computes it from the read totals")
	fs.StringVar(&f.noiseMode, "noise-mode", d.NoiseMode.String(), "Background noise estimator: index or percentile")
	fs.StringVar(&f.noiseSample, "noise-sample", d.NoiseSample.String(), "Background noise sample: depth (bins with control depth) or signal (adjusted_1 > 0)")
	fs.Float64Var(&f.noiseLow, "noise-low", d.NoiseLowPercentile, "Percentile of the low background bound")
	fs.Float64Var(&f.noiseHigh, "noise-high", d.NoiseHighPercentile, "Percentile of the high background bound")
	fs.BoolVar(&f.biasFit, "bias-fit", d.ApplyBiasCurveFit, "Fit the depth/sigma power curve and smooth the fitted sigma")
	fs.StringVar(&f.zeroDepth, "zero-depth", d.ZeroDepth.String(), "Fitted sigma of bins without control depth: zero or missing")
	fs.IntVar(&f.window, "window", d.Window, "Moving-average window")
	fs.Float64Var(&f.trimFactor, "trim-factor", d.TrimFactor, "Maximum growth between consecutive bins")
	fs.BoolVar(&f.trimSmoothed, "trim-smoothed", d.TrimSmoothed, "Trim the smoothed series instead of the unsmoothed one")
	fs.Float64Var(&f.minValue, "min-value", d.MinValue, "Floor of trimmed sigma before the log2 transform")
	fs.IntVar(&f.binSize, "bin-size", d.BinSize, "Bin width in bases")

	fs.Float64Var(&f.yMax, "ymax", sigma.DefaultPlotOpts.YMax, "Y-axis cap of the chart; 0 uses the maximum smoothed sigma")
	fs.IntVar(&f.localMaxBins, "local-max-bins", sigma.DefaultPlotOpts.LocalMaxBins, "Number of leading bins the chart's local maximum is taken over")
	fs.StringVar(&f.excludeBED, "exclude-bed", "", "BED file of regions whose bins are removed before normalization")
	fs.StringVar(&f.format, "format", "csv", "Output table format: csv or tsv")
	fs.BoolVar(&f.gzip, "gzip", false, "Gzip the output tables")
	fs.StringVar(&f.missing, "missing", "", "Marker written for missing values")
	fs.BoolVar(&f.plot, "plot", true, "Write the HTML bar chart")
}

// resolveOpts builds the normalization settings: the preset, overlaid with
// the config file, overlaid with the flags set on the command line.
func resolveOpts(ctx context.Context, fs *flag.FlagSet, f *runFlags) (sigma.Opts, error) {
	opts, err := sigma.Preset(f.preset)
	if err != nil {
		return opts, err
	}
	if f.configPath != "" {
		if err := sigma.LoadOptsFile(ctx, f.configPath, &opts); err != nil {
			return opts, err
		}
	}
	if err := applyFlags(fs, f, &opts); err != nil {
		return opts, err
	}
	return opts, opts.Validate()
}

// applyFlags copies the explicitly set normalization flags into opts.
func applyFlags(fs *flag.FlagSet, f *runFlags, opts *sigma.Opts) error {
	var err error
	fs.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}
		switch fl.Name {
		case "scale-factor":
			opts.ScaleFactor = f.scaleFactor
		case "global-correction":
			opts.ApplyGlobalCorrection = f.globalCorrection
		case "correction-factor":
			opts.CorrectionFactor = f.correctionFactor
		case "noise-mode":
			err = opts.NoiseMode.UnmarshalText([]byte(f.noiseMode))
		case "noise-sample":
			err = opts.NoiseSample.UnmarshalText([]byte(f.noiseSample))
		case "noise-low":
			opts.NoiseLowPercentile = f.noiseLow
		case "noise-high":
			opts.NoiseHighPercentile = f.noiseHigh
		case "bias-fit":
			opts.ApplyBiasCurveFit = f.biasFit
		case "zero-depth":
			err = opts.ZeroDepth.UnmarshalText([]byte(f.zeroDepth))
		case "window":
			opts.Window = f.window
		case "trim-factor":
			opts.TrimFactor = f.trimFactor
		case "trim-smoothed":
			opts.TrimSmoothed = f.trimSmoothed
		case "min-value":
			opts.MinValue = f.minValue
		case "bin-size":
			opts.BinSize = f.binSize
		}
		if err != nil {
			err = fmt.Errorf("-%s: %v", fl.Name, err)
		}
	})
	return err
}

// runSample normalizes one sample and writes its outputs.  Nothing is
// written unless the whole computation succeeds, and outputs already written
// are removed when a later one fails.  It returns the paths written.
func runSample(ctx context.Context, in inputPaths, opts sigma.Opts, f runFlags) ([]string, error) {
	wo := sigma.DefaultWriteOpts
	if err := wo.Format.UnmarshalText([]byte(f.format)); err != nil {
		return nil, err
	}
	wo.Gzip = f.gzip
	wo.Missing = f.missing

	src, err := bintable.LoadSources(ctx, in.adjusted, in.binCounts, in.sheared)
	if err != nil {
		return nil, err
	}
	log.Printf("loaded %d adjusted, %d bin-count and %d sheared rows",
		len(src.Adjusted), len(src.BinCounts), len(src.Sheared))
	recs, stats := bintable.Merge(src)
	log.Printf("merged %d bins (adjusted %d, bin counts %d, sheared %d rows); %d adjusted row(s) without a match",
		stats.Merged, stats.Adjusted, stats.BinCounts, stats.Sheared, stats.Dropped())

	excluded := 0
	if f.excludeBED != "" {
		regions, err := interval.LoadBED(ctx, f.excludeBED)
		if err != nil {
			return nil, err
		}
		log.Printf("BED %s loaded, %d region(s), %d base(s) covered", f.excludeBED, regions.Len(), regions.Bases())
		recs, excluded = bintable.Exclude(recs, regions, int64(opts.BinSize))
		log.Printf("excluded %d bin(s) overlapping %s", excluded, f.excludeBED)
	}

	res, err := sigma.Run(recs, opts, log.Info)
	if err != nil {
		return nil, err
	}

	out := newOutputPaths(f.outDir, f.prefix, in.adjusted, wo)
	po := sigma.DefaultPlotOpts
	po.YMax = f.yMax
	po.LocalMaxBins = f.localMaxBins
	po.Title = out.prefix
	ps := res.PlotScale(po)

	var written []string
	qc := res.QC(file.Base(out.table))
	qc = append(qc,
		sigma.QCEntry{Key: "Preset", Value: f.preset},
		sigma.QCEntry{Key: "Bins excluded", Value: fmt.Sprint(excluded)},
		sigma.QCEntry{Key: "Plot y max", Value: fmt.Sprint(ps.YMax)},
		sigma.QCEntry{Key: "Plot local max", Value: fmt.Sprint(ps.LocalMax)})

	outputs := []struct {
		path  string
		write func() error
	}{
		{out.table, func() error { return sigma.WriteTable(ctx, out.table, res, wo) }},
		{out.smoothed, func() error { return sigma.WriteSmoothed(ctx, out.smoothed, res, wo) }},
		{out.qc, func() error { return sigma.WriteQC(ctx, out.qc, qc) }},
	}
	if f.plot {
		outputs = append(outputs, struct {
			path  string
			write func() error
		}{out.plot, func() error { return sigma.WritePlot(ctx, out.plot, res, po) }})
	}
	for _, o := range outputs {
		// file.Create only renames a local file into place on a successful
		// close, so a failed write leaves nothing at o.path.
		if err := o.write(); err != nil {
			removeOutputs(ctx, written)
			return nil, errors.E(err, "writing", o.path)
		}
		written = append(written, o.path)
	}
	log.Printf("wrote %d bins to %s", len(res.Bins), out.table)
	return written, nil
}

// removeOutputs deletes the outputs of a run that failed part way.
func removeOutputs(ctx context.Context, paths []string) {
	for _, path := range paths {
		if err := file.Remove(ctx, path); err != nil {
			log.Error.Printf("remove %s: %v", path, err)
		}
	}
}
