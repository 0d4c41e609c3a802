package bintable

import (
	"context"
	"strings"
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTokens(t *testing.T) {
	var tokens [5][]byte
	n := getTokens(tokens[:], []byte("  chr1\t12   3.5 4\r"))
	require.Equal(t, 4, n)
	assert.Equal(t, "chr1", string(tokens[0]))
	assert.Equal(t, "12", string(tokens[1]))
	assert.Equal(t, "3.5", string(tokens[2]))
	assert.Equal(t, "4", string(tokens[3]))
	assert.Equal(t, 0, getTokens(tokens[:], []byte(" \t ")))
	assert.Equal(t, 5, getTokens(tokens[:], []byte("a b c d e f")))
}

func TestLoadPairs(t *testing.T) {
	rows, err := LoadPairs(context.Background(), "testdata/adjusted_sample_counts.txt")
	require.NoError(t, err)
	require.Len(t, rows, 6)
	expect.EQ(t, rows[0], PairRow{Key{"chr1", 0}, 10, 11})
	expect.EQ(t, rows[1], PairRow{Key{"chr1", 1}, 20, 21})
	expect.EQ(t, rows[5], PairRow{Key{"chr2", 0}, 5, 5})
}

func TestLoadSheared(t *testing.T) {
	for _, path := range []string{"testdata/total_sheared.csv", "testdata/total_sheared.csv.gz"} {
		rows, err := LoadSheared(context.Background(), path)
		require.NoError(t, err, path)
		require.Len(t, rows, 6, path)
		expect.EQ(t, rows[2], ShearedRow{Key{"chr1", 2}, 0})
		expect.EQ(t, rows[5], ShearedRow{Key{"chr3", 7}, 4})
	}
}

func TestLoadSources(t *testing.T) {
	src, err := LoadSources(context.Background(),
		"testdata/adjusted_sample_counts.txt",
		"testdata/sample_bin_counts.txt",
		"testdata/total_sheared.csv")
	require.NoError(t, err)
	assert.Len(t, src.Adjusted, 6)
	assert.Len(t, src.BinCounts, 7)
	assert.Len(t, src.Sheared, 6)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadPairs(context.Background(), "testdata/does_not_exist.txt")
	assert.Error(t, err)
}

func TestScanPairsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		line   int
		reason string
	}{
		{"too few columns", "chr1 0 1 2\nchr1 1 2\n", 2, "expected 4 columns, found 3"},
		{"too many columns", "chr1 0 1 2 9\n", 1, "expected 4 columns, found 5"},
		{"bad bin", "chr1 x 1 2\n", 1, "not an integer"},
		{"fractional bin", "chr1 1.5 1 2\n", 1, "not an integer"},
		{"bad value", "chr1 0 1 2\n\nchr1 1 abc 2\n", 3, "not a number"},
		{"nan value", "chr1 0 NaN 2\n", 1, "not finite"},
		{"duplicate key", "chr1 0 1 2\nchr1 0 3 4\n", 2, "duplicate bin chr1:0"},
	}
	for _, test := range tests {
		_, err := ScanPairs(strings.NewReader(test.input), "in.txt")
		require.Error(t, err, test.name)
		var merr *MalformedRowError
		require.True(t, errors.As(err, &merr), test.name)
		assert.Equal(t, "in.txt", merr.Path, test.name)
		assert.Equal(t, test.line, merr.Line, test.name)
		assert.Contains(t, merr.Reason, test.reason, test.name)
		assert.Contains(t, err.Error(), "in.txt:", test.name)
	}
}

func TestScanShearedMalformed(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		line   int
		reason string
	}{
		{"bad count", "chr1,0,5\nchr1,1,x\n", 2, "not a number"},
		{"bad bin", "chr1,b,5\n", 1, "not an integer"},
		{"duplicate key", "chr1,0,5\nchr1,0,6\n", 2, "duplicate bin"},
		{"after blank lines", "chr1,0,5\n\n\nchr1,1,x\n", 4, "not a number"},
		{"duplicate after blank line", "chr1,0,5\n\nchr1,0,6\n", 3, "duplicate bin"},
	}
	for _, test := range tests {
		_, err := ScanSheared(strings.NewReader(test.input), "in.csv")
		require.Error(t, err, test.name)
		var merr *MalformedRowError
		require.True(t, errors.As(err, &merr), test.name)
		assert.Equal(t, test.line, merr.Line, test.name)
		assert.Contains(t, merr.Reason, test.reason, test.name)
	}

	_, err := ScanSheared(strings.NewReader("chr1,0,5\nchr1,1\n"), "in.csv")
	var merr *MalformedRowError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, 2, merr.Line)

	_, err = ScanSheared(strings.NewReader("chr1,0,5\n\nchr1,1\n"), "in.csv")
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, 3, merr.Line)
}

func TestScanPaddedFields(t *testing.T) {
	rows, err := ScanSheared(strings.NewReader("chr1, 0, 5\nchr1 ,1 , 2.5 \n"), "in.csv")
	require.NoError(t, err)
	expect.EQ(t, rows, []ShearedRow{{Key{"chr1", 0}, 5}, {Key{"chr1", 1}, 2.5}})

	_, err = ScanSheared(strings.NewReader("chr1, ,5\n"), "in.csv")
	var merr *MalformedRowError
	require.True(t, errors.As(err, &merr))
	assert.Contains(t, merr.Reason, "not an integer")
}
