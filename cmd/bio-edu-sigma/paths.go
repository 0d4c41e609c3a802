package main

import (
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/edusigma/sigma"
)

const (
	sampleSuffix   = "_adjusted_sample_counts"
	tableSuffix    = "_sigma_select_EU_0b"
	smoothedSuffix = "_sigma_all_EU_0b"
	qcSuffix       = "_sigma_qual_counts_EU_0b.txt"
	plotSuffix     = "_sigma_plot.html"
)

// samplePrefix derives the output prefix from the adjusted-counts path: the
// file name up to "_adjusted_sample_counts", or the file name without its
// extensions.
func samplePrefix(path string) string {
	base := file.Base(path)
	if i := strings.Index(base, sampleSuffix); i > 0 {
		return base[:i]
	}
	if i := strings.Index(base, "."); i > 0 {
		return base[:i]
	}
	return base
}

type outputPaths struct {
	prefix   string
	table    string
	smoothed string
	qc       string
	plot     string
}

func newOutputPaths(dir, prefix, adjustedPath string, wo sigma.WriteOpts) outputPaths {
	if prefix == "" {
		prefix = samplePrefix(adjustedPath)
	}
	ext := wo.Format.Ext(wo.Gzip)
	return outputPaths{
		prefix:   prefix,
		table:    file.Join(dir, prefix+tableSuffix+ext),
		smoothed: file.Join(dir, prefix+smoothedSuffix+ext),
		qc:       file.Join(dir, prefix+qcSuffix),
		plot:     file.Join(dir, prefix+plotSuffix),
	}
}
