package interval

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	itree "github.com/biogo/store/interval"
	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/pkg/errors"
)

// span is a half-open [start, end) genomic interval stored in an IntTree.
type span struct {
	start, end int
	id         uintptr
}

// Overlap implements itree.IntOverlapper.
func (s span) Overlap(b itree.IntRange) bool {
	return s.start < b.End && b.Start < s.end
}

// ID implements itree.IntInterface.
func (s span) ID() uintptr {
	return s.id
}

// Range implements itree.IntInterface.
func (s span) Range() itree.IntRange {
	return itree.IntRange{Start: s.start, End: s.end}
}

// RegionSet is a set of genomic regions, usually loaded from a BED file of
// regions to exclude (a blacklist).  Overlapping regions are kept as separate
// tree entries; queries only ask whether any region overlaps.
type RegionSet struct {
	trees map[string]*itree.IntTree
	// nextID is the ID assigned to the next inserted span.
	nextID uintptr
	// bases is the total length of the inserted regions, overlaps counted
	// twice.
	bases int64
}

// NewRegionSet returns an empty set.
func NewRegionSet() *RegionSet {
	return &RegionSet{trees: map[string]*itree.IntTree{}}
}

// Add inserts the half-open region [start, end) on chrom.  Empty regions are
// ignored.
func (s *RegionSet) Add(chrom string, start, end int64) error {
	if start < 0 || end < start {
		return fmt.Errorf("interval: invalid region %s:%d-%d", chrom, start, end)
	}
	if end == start {
		return nil
	}
	t := s.trees[chrom]
	if t == nil {
		t = &itree.IntTree{}
		s.trees[chrom] = t
	}
	s.nextID++
	if err := t.Insert(span{start: int(start), end: int(end), id: s.nextID}, false); err != nil {
		return errors.Wrapf(err, "interval: insert %s:%d-%d", chrom, start, end)
	}
	s.bases += end - start
	return nil
}

// Overlaps reports whether [start, end) on chrom overlaps any region of the
// set.
func (s *RegionSet) Overlaps(chrom string, start, end int64) bool {
	t := s.trees[chrom]
	if t == nil || end <= start {
		return false
	}
	return len(t.Get(span{start: int(start), end: int(end)})) > 0
}

// Len returns the number of regions in the set.
func (s *RegionSet) Len() int {
	n := 0
	for _, t := range s.trees {
		n += t.Len()
	}
	return n
}

// Bases returns the summed length of all regions.
func (s *RegionSet) Bases() int64 {
	return s.bases
}

// ScanBED reads BED intervals from r.  Only the first three columns are used;
// blank lines and "#", "track" and "browser" header lines are skipped.  BED
// coordinates are 0-based half-open.
func ScanBED(r io.Reader) (*RegionSet, error) {
	set := NewRegionSet()
	scanner := bufio.NewScanner(r)
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		fields := bytes.Fields(scanner.Bytes())
		if len(fields) == 0 || fields[0][0] == '#' ||
			bytes.Equal(fields[0], []byte("track")) || bytes.Equal(fields[0], []byte("browser")) {
			continue
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("interval.ScanBED: line %d has fewer tokens than expected", lineIdx)
		}
		start, err := strconv.ParseInt(string(fields[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("interval.ScanBED: bad start coordinate %q on line %d", fields[1], lineIdx)
		}
		end, err := strconv.ParseInt(string(fields[2]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("interval.ScanBED: bad end coordinate %q on line %d", fields[2], lineIdx)
		}
		if err := set.Add(string(fields[0]), start, end); err != nil {
			return nil, errors.Wrapf(err, "line %d", lineIdx)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return set, nil
}

// LoadBED reads a (possibly compressed) BED file from path.
func LoadBED(ctx context.Context, path string) (set *RegionSet, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, in.Name()); u != nil {
		r = u
	}
	if set, err = ScanBED(r); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return set, nil
}
