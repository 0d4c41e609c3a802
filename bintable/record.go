package bintable

import "fmt"

// Key identifies one genomic bin.  It is the join key of the three input
// tables.
type Key struct {
	Chrom string
	Bin   int64
}

// String returns "chrom:bin".
func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Chrom, k.Bin)
}

// PairRow is one row of a four-column table (adjusted sample counts or sample
// bin counts): chromosome, bin and two sample values.
type PairRow struct {
	Key
	V1, V2 float64
}

// ShearedRow is one row of the total-sheared (control) table.
type ShearedRow struct {
	Key
	Count float64
}

// Record is one bin of the merged table.
type Record struct {
	Key
	// Adjusted1 and Adjusted2 are the adjusted sample counts.  Only Adjusted1
	// is used by the normalization.
	Adjusted1, Adjusted2 float64
	// BinCount1 and BinCount2 are the raw sample counts.  Only BinCount1 is
	// used by the normalization.
	BinCount1, BinCount2 float64
	// Sheared is the control depth at this bin.
	Sheared float64
}

// HasDepth reports whether the bin has nonzero control depth.  Bins without
// depth are kept in the output but excluded from every fitted statistic.
func (r *Record) HasDepth() bool {
	return r.Sheared > 0
}

// Sources holds the three raw tables of one sample.
type Sources struct {
	Adjusted  []PairRow
	BinCounts []PairRow
	Sheared   []ShearedRow
}
