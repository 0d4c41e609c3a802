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
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Format is the delimiter style of output tables.
type Format int

const (
	// FormatCSV writes comma-separated tables.
	FormatCSV Format = iota
	// FormatTSV writes tab-separated tables.
	FormatTSV
)

var formatNames = []string{"csv", "tsv"}

// String implements fmt.Stringer.
func (f Format) String() string {
	if int(f) < 0 || int(f) >= len(formatNames) {
		return "unknown"
	}
	return formatNames[f]
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(text []byte) error {
	v, err := parseEnum("output format", formatNames, string(text))
	*f = Format(v)
	return err
}

// Ext returns the file extension of the format, including the gzip suffix
// when compress is set.
func (f Format) Ext(compress bool) string {
	ext := "." + f.String()
	if compress {
		ext += ".gz"
	}
	return ext
}

// WriteOpts controls how output tables are written.
type WriteOpts struct {
	Format Format
	// Gzip compresses the output.
	Gzip bool
	// Missing is written in place of a missing value.
	Missing string
}

// DefaultWriteOpts writes plain CSV with empty cells for missing values.
var DefaultWriteOpts = WriteOpts{Format: FormatCSV}

// rowWriter abstracts over the CSV and TSV writers.
type rowWriter interface {
	Write(fields []string) error
	Flush() error
}

type csvRowWriter struct {
	w *csv.Writer
}

func (c csvRowWriter) Write(fields []string) error {
	return c.w.Write(fields)
}

func (c csvRowWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

type tsvRowWriter struct {
	w *tsv.Writer
}

func (t tsvRowWriter) Write(fields []string) error {
	for _, f := range fields {
		t.w.WriteString(f)
	}
	return t.w.EndLine()
}

func (t tsvRowWriter) Flush() error {
	return t.w.Flush()
}

func newRowWriter(w io.Writer, f Format) rowWriter {
	if f == FormatTSV {
		return tsvRowWriter{tsv.NewWriter(w)}
	}
	return csvRowWriter{csv.NewWriter(w)}
}

// formatFloat renders v in the shortest form that round-trips, or missing if
// v is NaN.
func formatFloat(v float64, missing string) string {
	if math.IsNaN(v) {
		return missing
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// create opens path for writing and stacks a gzip writer on top of it when
// requested.  The returned function must be called to finish the file.
func create(ctx context.Context, path string, compress bool) (io.Writer, func() error, error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "create %s", path)
	}
	var w io.Writer = out.Writer(ctx)
	if !compress {
		return w, func() error { return out.Close(ctx) }, nil
	}
	gz := gzip.NewWriter(w)
	return gz, func() error {
		err := gz.Close()
		if e := out.Close(ctx); e != nil && err == nil {
			err = e
		}
		return err
	}, nil
}

func writeRows(ctx context.Context, path string, wo WriteOpts, header []string, n int, row func(i int, dst []string)) (err error) {
	w, finish, err := create(ctx, path, wo.Gzip)
	if err != nil {
		return err
	}
	defer func() {
		if e := finish(); e != nil && err == nil {
			err = errors.Wrapf(e, "close %s", path)
		}
	}()
	rw := newRowWriter(w, wo.Format)
	if err = rw.Write(header); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	fields := make([]string, len(header))
	for i := 0; i < n; i++ {
		row(i, fields)
		if err = rw.Write(fields); err != nil {
			return errors.Wrapf(err, "write %s", path)
		}
	}
	if err = rw.Flush(); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// TableColumns returns the header of the full output table.  fitted_sigma is
// present only when the bias curve was fitted.
func (r *Result) TableColumns() []string {
	cols := []string{
		"chromosome", "bin",
		"adjusted_1", "adjusted_2",
		"bin_count_1", "bin_count_2",
		"sheared_counts",
		"sigma", "sigma_mb",
	}
	if r.Curve != nil {
		cols = append(cols, "fitted_sigma")
	}
	return append(cols, "smoothed_sigma", "trimmed_sigma", "sigma_log2")
}

// WriteTable writes every bin with all derived columns.
func WriteTable(ctx context.Context, path string, r *Result, wo WriteOpts) error {
	f := func(v float64) string { return formatFloat(v, wo.Missing) }
	return writeRows(ctx, path, wo, r.TableColumns(), len(r.Bins), func(i int, dst []string) {
		b := &r.Bins[i]
		dst[0] = b.Chrom
		dst[1] = strconv.FormatInt(b.Bin, 10)
		dst[2], dst[3] = f(b.Adjusted1), f(b.Adjusted2)
		dst[4], dst[5] = f(b.BinCount1), f(b.BinCount2)
		dst[6] = f(b.Sheared)
		dst[7], dst[8] = f(b.Sigma), f(b.SigmaMB)
		j := 9
		if r.Curve != nil {
			dst[j] = f(b.FittedSigma)
			j++
		}
		dst[j], dst[j+1], dst[j+2] = f(b.Smoothed), f(b.Trimmed), f(b.Log2)
	})
}

// WriteSmoothed writes the smoothed_sigma and trimmed_sigma columns only, in
// bin order.
func WriteSmoothed(ctx context.Context, path string, r *Result, wo WriteOpts) error {
	return writeRows(ctx, path, wo, []string{"smoothed_sigma", "trimmed_sigma"}, len(r.Bins), func(i int, dst []string) {
		dst[0] = formatFloat(r.Bins[i].Smoothed, wo.Missing)
		dst[1] = formatFloat(r.Bins[i].Trimmed, wo.Missing)
	})
}

// QCEntry is one "Key: Value" line of the quality-control report.
type QCEntry struct {
	Key, Value string
}

func qcFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// QC returns the quality-control report of the run.  name identifies the
// table the report describes.
func (r *Result) QC(name string) []QCEntry {
	entries := []QCEntry{
		{"File Name", name},
		{"Bin size", strconv.Itoa(r.Opts.BinSize)},
		{"Bins merged", strconv.Itoa(len(r.Bins))},
		{"Noise estimation", fmt.Sprintf("%v (%v sample, n=%d, p%v-p%v)", r.Opts.NoiseMode, r.Opts.NoiseSample,
			r.NoiseSampleSize, r.Opts.NoiseLowPercentile, r.Opts.NoiseHighPercentile)},
		{"Background Noise (Low)", qcFloat(r.Noise.Low)},
		{"Background Noise (High)", qcFloat(r.Noise.High)},
	}
	if r.Curve != nil {
		entries = append(entries,
			QCEntry{"Slope of Power Curve", qcFloat(r.Curve.Slope)},
			QCEntry{"Intercept of Power Curve", qcFloat(r.Curve.Intercept)},
			QCEntry{"Bins fitted", strconv.Itoa(r.FittedBins)})
	}
	return append(entries,
		QCEntry{"Baseline Mean (log2 adjusted)", qcFloat(r.BaselineMean)},
		QCEntry{"Total sample hits", qcFloat(r.Totals.Sample)},
		QCEntry{"Total adjusted hits", qcFloat(r.Totals.Control)},
		QCEntry{"Correction factor", qcFloat(r.CorrectionFactor)},
		QCEntry{"Scale factor", qcFloat(r.Opts.ScaleFactor)},
		QCEntry{"Warnings", strconv.Itoa(len(r.Warnings))})
}

// WriteQC writes entries as "Key: Value" lines.
func WriteQC(ctx context.Context, path string, entries []QCEntry) (err error) {
	w, finish, err := create(ctx, path, false)
	if err != nil {
		return err
	}
	defer func() {
		if e := finish(); e != nil && err == nil {
			err = errors.Wrapf(e, "close %s", path)
		}
	}()
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err = fmt.Fprintf(bw, "%s: %s\n", e.Key, e.Value); err != nil {
			return errors.Wrapf(err, "write %s", path)
		}
	}
	if err = bw.Flush(); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
