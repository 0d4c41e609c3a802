package bintable

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
)

// MalformedRowError is returned when a row of an input table cannot be
// parsed.  Line is 1-based.
type MalformedRowError struct {
	Path   string
	Line   int
	Reason string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("%s:%d: malformed row: %s", e.Path, e.Line, e.Reason)
}

const maxLineLen = 1 << 20

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens found.  Any (group of) characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

func parseBin(s string) (int64, error) {
	s = strings.TrimSpace(s)
	bin, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bin %q is not an integer", s)
	}
	return bin, nil
}

func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q is not a number", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value %q is not finite", s)
	}
	return v, nil
}

// openTable opens path for reading, decompressing it when the file name
// carries a known compression suffix.  The returned function closes the file.
func openTable(ctx context.Context, path string) (io.Reader, func() error, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %s", path)
	}
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, in.Name()); u != nil {
		r = u
	}
	return r, func() error { return in.Close(ctx) }, nil
}

// ScanPairs parses a header-less, whitespace-delimited table with the columns
// chromosome, bin, value_1, value_2.  Blank lines are skipped.  path is only
// used in error messages.
func ScanPairs(r io.Reader, path string) ([]PairRow, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64<<10), maxLineLen)
	// One spare slot detects trailing columns.
	var tokens [5][]byte
	seen := map[Key]struct{}{}
	var rows []PairRow
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		nToken := getTokens(tokens[:], scanner.Bytes())
		if nToken == 0 {
			continue
		}
		if nToken != 4 {
			return nil, &MalformedRowError{path, lineIdx, fmt.Sprintf("expected 4 columns, found %d", nToken)}
		}
		var (
			row PairRow
			err error
		)
		row.Chrom = string(tokens[0])
		if row.Bin, err = parseBin(string(tokens[1])); err != nil {
			return nil, &MalformedRowError{path, lineIdx, err.Error()}
		}
		if row.V1, err = parseValue(string(tokens[2])); err != nil {
			return nil, &MalformedRowError{path, lineIdx, err.Error()}
		}
		if row.V2, err = parseValue(string(tokens[3])); err != nil {
			return nil, &MalformedRowError{path, lineIdx, err.Error()}
		}
		if _, dup := seen[row.Key]; dup {
			return nil, &MalformedRowError{path, lineIdx, "duplicate bin " + row.Key.String()}
		}
		seen[row.Key] = struct{}{}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return rows, nil
}

// shearedTSVRow is the positional layout of a total-sheared row.
type shearedTSVRow struct {
	Chrom string
	Bin   string
	Count string
}

// ScanSheared parses a header-less, comma-delimited table with the columns
// chromosome, bin, sheared_counts.  Blank lines are skipped; error line
// numbers count them.
func ScanSheared(r io.Reader, path string) ([]ShearedRow, error) {
	reader := tsv.NewReader(r)
	reader.Comma = ','
	reader.FieldsPerRecord = 3
	seen := map[Key]struct{}{}
	var rows []ShearedRow
	lineIdx := 0
	for {
		var raw shearedTSVRow
		if err := reader.Read(&raw); err != nil {
			if err == io.EOF {
				break
			}
			line := lineIdx + 1
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				line = perr.Line
			}
			return nil, &MalformedRowError{path, line, err.Error()}
		}
		lineIdx, _ = reader.Reader.FieldPos(0)
		var (
			row ShearedRow
			err error
		)
		row.Chrom = strings.TrimSpace(raw.Chrom)
		if row.Bin, err = parseBin(raw.Bin); err != nil {
			return nil, &MalformedRowError{path, lineIdx, err.Error()}
		}
		if row.Count, err = parseValue(raw.Count); err != nil {
			return nil, &MalformedRowError{path, lineIdx, err.Error()}
		}
		if _, dup := seen[row.Key]; dup {
			return nil, &MalformedRowError{path, lineIdx, "duplicate bin " + row.Key.String()}
		}
		seen[row.Key] = struct{}{}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadPairs reads a four-column whitespace-delimited table from path.
func LoadPairs(ctx context.Context, path string) (rows []PairRow, err error) {
	r, closeFn, err := openTable(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if e := closeFn(); e != nil && err == nil {
			err = e
		}
	}()
	return ScanPairs(r, path)
}

// LoadSheared reads the comma-delimited total-sheared table from path.
func LoadSheared(ctx context.Context, path string) (rows []ShearedRow, err error) {
	r, closeFn, err := openTable(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if e := closeFn(); e != nil && err == nil {
			err = e
		}
	}()
	return ScanSheared(r, path)
}

// LoadSources reads the adjusted-counts, bin-counts and total-sheared tables
// of one sample.  The three files are read concurrently.
func LoadSources(ctx context.Context, adjustedPath, binCountsPath, shearedPath string) (Sources, error) {
	var src Sources
	err := traverse.Each(3, func(i int) error {
		var err error
		switch i {
		case 0:
			src.Adjusted, err = LoadPairs(ctx, adjustedPath)
		case 1:
			src.BinCounts, err = LoadPairs(ctx, binCountsPath)
		default:
			src.Sheared, err = LoadSheared(ctx, shearedPath)
		}
		return err
	})
	if err != nil {
		return Sources{}, err
	}
	return src, nil
}
