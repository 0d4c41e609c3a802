package bintable

// MergeStats records row counts before and after Merge, so that callers can
// check completeness themselves; Merge drops unmatched keys silently.
type MergeStats struct {
	Adjusted, BinCounts, Sheared int
	Merged                       int
}

// Dropped returns the number of adjusted-table rows without a match in both
// other tables.
func (s MergeStats) Dropped() int {
	return s.Adjusted - s.Merged
}

// Merge inner-joins (adjusted ⋈ bin counts) ⋈ sheared on (chromosome, bin).
// The result keeps the row order of the adjusted table.  Keys are expected to
// be unique within each table, which the loaders guarantee; for a repeated key
// in the bin-count or sheared table, the first row wins.
func Merge(src Sources) ([]Record, MergeStats) {
	counts := make(map[Key]PairRow, len(src.BinCounts))
	for _, row := range src.BinCounts {
		if _, ok := counts[row.Key]; !ok {
			counts[row.Key] = row
		}
	}
	sheared := make(map[Key]float64, len(src.Sheared))
	for _, row := range src.Sheared {
		if _, ok := sheared[row.Key]; !ok {
			sheared[row.Key] = row.Count
		}
	}
	n := len(src.Adjusted)
	if len(counts) < n {
		n = len(counts)
	}
	if len(sheared) < n {
		n = len(sheared)
	}
	recs := make([]Record, 0, n)
	for _, adj := range src.Adjusted {
		c, ok := counts[adj.Key]
		if !ok {
			continue
		}
		depth, ok := sheared[adj.Key]
		if !ok {
			continue
		}
		recs = append(recs, Record{
			Key:       adj.Key,
			Adjusted1: adj.V1,
			Adjusted2: adj.V2,
			BinCount1: c.V1,
			BinCount2: c.V2,
			Sheared:   depth,
		})
	}
	return recs, MergeStats{
		Adjusted:  len(src.Adjusted),
		BinCounts: len(src.BinCounts),
		Sheared:   len(src.Sheared),
		Merged:    len(recs),
	}
}

// RegionFilter reports whether the half-open span [start, end) on chrom
// overlaps a region that should be excluded.
type RegionFilter interface {
	Overlaps(chrom string, start, end int64) bool
}

// Exclude removes the records whose genomic span overlaps a region of f.  The
// bin column is interpreted as a 0-based bin index, so bin b spans
// [b*binSize, (b+1)*binSize).  It returns the kept records and the number
// removed.
func Exclude(recs []Record, f RegionFilter, binSize int64) ([]Record, int) {
	kept := make([]Record, 0, len(recs))
	for _, r := range recs {
		start := r.Bin * binSize
		if f.Overlaps(r.Chrom, start, start+binSize) {
			continue
		}
		kept = append(kept, r)
	}
	return kept, len(recs) - len(kept)
}
