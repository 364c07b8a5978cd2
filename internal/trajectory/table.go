// Package trajectory loads the precomputed MSD time series of a simulated 2D
// diffusing particle.
//
// The input is a CSV table with a header row naming at least the columns
// time, msd_x, msd_y, meanx and meany. Columns are resolved by name; their
// position and any extra columns are irrelevant. Rows are chronological.
package trajectory

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/diffusion.report/internal/fsutil"
)

// DefaultPath is the table the analysis reads, relative to the working
// directory.
const DefaultPath = "msd_data_D_1.0_dt_0.001_N_100000.csv"

// Column names in the input header.
const (
	ColTime  = "time"
	ColMSDX  = "msd_x"
	ColMSDY  = "msd_y"
	ColMeanX = "meanx"
	ColMeanY = "meany"
)

// Columns lists the required columns in the order they are reported.
var Columns = []string{ColTime, ColMSDX, ColMSDY, ColMeanX, ColMeanY}

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// Table is the sample table. All slices have the same length and share
// indices. A Table is never mutated after loading.
type Table struct {
	Time  []float64
	MSDX  []float64
	MSDY  []float64
	MeanX []float64
	MeanY []float64
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Time)
}

// MSDTotal returns msd_x + msd_y elementwise.
func (t *Table) MSDTotal() []float64 {
	out := make([]float64, len(t.MSDX))
	for i := range t.MSDX {
		out[i] = t.MSDX[i] + t.MSDY[i]
	}
	return out
}

// Load opens path on fsys and parses it.
func Load(fsys fsutil.FileSystem, path string) (*Table, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse reads a table from r. Any unparsable cell or ragged row is an error.
func Parse(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty table: %w", ErrMissingColumn)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	t := &Table{}
	dst := []*[]float64{&t.Time, &t.MSDX, &t.MSDY, &t.MeanX, &t.MeanY}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		for k, col := range idx {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, Columns[k], err)
			}
			*dst[k] = append(*dst[k], v)
		}
	}

	return t, nil
}

// resolveColumns maps each entry of Columns to its position in header.
func resolveColumns(header []string) ([]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.Trim(strings.TrimPrefix(h, "\ufeff"), "\""))
		// first occurrence wins on duplicate names
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}

	idx := make([]int, len(Columns))
	for k, name := range Columns {
		i, ok := pos[name]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, name)
		}
		idx[k] = i
	}
	return idx, nil
}
