// Package analytics computes read-only descriptive statistics and
// visualization-ready aggregates over a dataset.Table: per-column summaries,
// histograms, scatter pairs, and Pearson correlation matrices. Nothing in
// this package mutates the table or appends to the pipeline step log.
package analytics

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/gidavehub/mlstudio-sub000/internal/dataset"
)

// ErrNotNumeric indicates an aggregate that needs numeric values was asked
// of a column with none.
var ErrNotNumeric = errors.New("column has no numeric values")

// defaultHistogramBins is the bin count used when the caller passes zero.
const defaultHistogramBins = 10

// NumericSummary holds the numeric aggregates of a column. Std is the
// population standard deviation.
type NumericSummary struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// ColumnSummary describes one column: non-missing count, missing count,
// distinct non-missing values, and numeric aggregates when the column holds
// any numbers.
type ColumnSummary struct {
	Column  string             `json:"column"`
	Type    dataset.ColumnType `json:"type"`
	Count   int                `json:"count"`
	Missing int                `json:"missing"`
	Unique  int                `json:"unique"`
	Numeric *NumericSummary    `json:"numeric,omitempty"`
}

// Summarize computes a ColumnSummary for every column in schema order.
func Summarize(t *dataset.Table) []ColumnSummary {
	summaries := make([]ColumnSummary, t.NumColumns())
	for j, name := range t.Columns() {
		s := ColumnSummary{Column: name, Type: t.Types()[j]}

		distinct := make(map[dataset.Cell]struct{})
		for _, row := range t.Rows() {
			cell := row[j]
			if cell.IsMissing() {
				s.Missing++
				continue
			}
			s.Count++
			distinct[cell] = struct{}{}
		}
		s.Unique = len(distinct)

		if vals := t.NumericColumn(j); len(vals) > 0 {
			mean := stat.Mean(vals, nil)
			s.Numeric = &NumericSummary{
				Min:  floats.Min(vals),
				Max:  floats.Max(vals),
				Mean: mean,
				Std:  populationStd(vals, mean),
			}
		}
		summaries[j] = s
	}
	return summaries
}

// Histogram is an equal-width binning of a numeric column over [Min, Max].
type Histogram struct {
	Column  string  `json:"column"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	BinSize float64 `json:"bin_size"`
	Counts  []int   `json:"counts"`
}

// ComputeHistogram bins the numeric values of the named column into bins
// equal-width buckets spanning [min, max]. Membership is
// floor((v-min)/binSize), clamped to the last bin so the maximum lands in
// bin bins-1. A non-positive bin count falls back to 10.
func ComputeHistogram(t *dataset.Table, column string, bins int) (*Histogram, error) {
	if bins <= 0 {
		bins = defaultHistogramBins
	}
	idx, ok := t.ColumnIndex(column)
	if !ok {
		return nil, fmt.Errorf("%w: %q", dataset.ErrColumnNotFound, column)
	}
	vals := t.NumericColumn(idx)
	if len(vals) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotNumeric, column)
	}

	lo, hi := floats.Min(vals), floats.Max(vals)
	binSize := (hi - lo) / float64(bins)
	if binSize == 0 {
		binSize = 1
	}

	counts := make([]int, bins)
	for _, v := range vals {
		bin := int((v - lo) / binSize)
		if bin >= bins {
			bin = bins - 1
		}
		counts[bin]++
	}
	return &Histogram{Column: column, Min: lo, Max: hi, BinSize: binSize, Counts: counts}, nil
}

// ScatterSeries is the paired numeric values of two columns, restricted to
// rows where both cells are numeric.
type ScatterSeries struct {
	ColumnX string    `json:"column_x"`
	ColumnY string    `json:"column_y"`
	X       []float64 `json:"x"`
	Y       []float64 `json:"y"`
}

// ComputeScatter pairs the values of two columns for rows where both cells
// are numeric.
func ComputeScatter(t *dataset.Table, columnX, columnY string) (*ScatterSeries, error) {
	xi, ok := t.ColumnIndex(columnX)
	if !ok {
		return nil, fmt.Errorf("%w: %q", dataset.ErrColumnNotFound, columnX)
	}
	yi, ok := t.ColumnIndex(columnY)
	if !ok {
		return nil, fmt.Errorf("%w: %q", dataset.ErrColumnNotFound, columnY)
	}

	series := &ScatterSeries{ColumnX: columnX, ColumnY: columnY}
	for _, row := range t.Rows() {
		x, okX := row[xi].Number()
		y, okY := row[yi].Number()
		if okX && okY {
			series.X = append(series.X, x)
			series.Y = append(series.Y, y)
		}
	}
	return series, nil
}
