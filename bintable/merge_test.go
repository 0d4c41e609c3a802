package bintable

import (
	"context"
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keysOf(recs []Record) []Key {
	keys := make([]Key, len(recs))
	for i, r := range recs {
		keys[i] = r.Key
	}
	return keys
}

func TestMergeIntersection(t *testing.T) {
	src := Sources{
		Adjusted: []PairRow{
			{Key{"chr1", 3}, 3, 30},
			{Key{"chr1", 1}, 1, 10},
			{Key{"chr2", 1}, 9, 90},
			{Key{"chr1", 2}, 2, 20},
		},
		BinCounts: []PairRow{
			{Key{"chr1", 1}, 11, 110},
			{Key{"chr1", 2}, 12, 120},
			{Key{"chr1", 3}, 13, 130},
			{Key{"chrX", 5}, 1, 1},
		},
		Sheared: []ShearedRow{
			{Key{"chr1", 2}, 22},
			{Key{"chr1", 3}, 23},
			{Key{"chr2", 1}, 21},
		},
	}
	recs, stats := Merge(src)
	// Only chr1:3 and chr1:2 are in all three tables; order follows the
	// adjusted table.
	expect.EQ(t, keysOf(recs), []Key{{"chr1", 3}, {"chr1", 2}})
	expect.EQ(t, recs[0], Record{
		Key:       Key{"chr1", 3},
		Adjusted1: 3, Adjusted2: 30,
		BinCount1: 13, BinCount2: 130,
		Sheared: 23,
	})
	expect.EQ(t, stats, MergeStats{Adjusted: 4, BinCounts: 4, Sheared: 3, Merged: 2})
	assert.Equal(t, 2, stats.Dropped())
}

func TestMergeRowCountBound(t *testing.T) {
	src := Sources{
		Adjusted:  []PairRow{{Key{"a", 1}, 1, 1}, {Key{"a", 2}, 1, 1}},
		BinCounts: []PairRow{{Key{"a", 1}, 1, 1}, {Key{"a", 2}, 1, 1}, {Key{"a", 3}, 1, 1}},
		Sheared:   []ShearedRow{{Key{"a", 2}, 1}},
	}
	recs, _ := Merge(src)
	assert.True(t, len(recs) <= 1)
	expect.EQ(t, keysOf(recs), []Key{{"a", 2}})

	recs, stats := Merge(Sources{Adjusted: src.Adjusted})
	assert.Empty(t, recs)
	assert.Equal(t, 0, stats.Merged)
}

func TestMergeFixtures(t *testing.T) {
	src, err := LoadSources(context.Background(),
		"testdata/adjusted_sample_counts.txt",
		"testdata/sample_bin_counts.txt",
		"testdata/total_sheared.csv")
	require.NoError(t, err)
	recs, stats := Merge(src)
	expect.EQ(t, keysOf(recs), []Key{{"chr1", 0}, {"chr1", 1}, {"chr1", 2}, {"chr1", 3}, {"chr1", 4}})
	assert.Equal(t, 5, stats.Merged)
	assert.Equal(t, 1, stats.Dropped())
	assert.False(t, recs[2].HasDepth())
	assert.True(t, recs[3].HasDepth())
}

type fakeRegions map[string][2]int64

func (f fakeRegions) Overlaps(chrom string, start, end int64) bool {
	r, ok := f[chrom]
	return ok && start < r[1] && r[0] < end
}

func TestExclude(t *testing.T) {
	recs := []Record{
		{Key: Key{"chr1", 0}},
		{Key: Key{"chr1", 1}},
		{Key: Key{"chr1", 2}},
		{Key: Key{"chr2", 1}},
	}
	// [15, 20) touches only bin 1 when bins are 10 wide.
	kept, n := Exclude(recs, fakeRegions{"chr1": {15, 20}}, 10)
	assert.Equal(t, 1, n)
	expect.EQ(t, keysOf(kept), []Key{{"chr1", 0}, {"chr1", 2}, {"chr2", 1}})
	assert.Len(t, recs, 4)
}
