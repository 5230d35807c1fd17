package analytics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/gidavehub/mlstudio-sub000/internal/dataset"
)

// CorrelationMatrix is the symmetric Pearson correlation matrix of a set of
// numeric columns. Values[i][j] is the correlation between Columns[i] and
// Columns[j]; the diagonal is 1 and a pair with zero variance on either
// side is defined as 0.
type CorrelationMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// ComputeCorrelation builds the Pearson correlation matrix over the named
// columns, or over every numeric column when the list is empty. Each pair
// is computed from the rows where both cells are numeric.
func ComputeCorrelation(t *dataset.Table, columns []string) (*CorrelationMatrix, error) {
	var idxs []int
	if len(columns) == 0 {
		for j := range t.Columns() {
			if t.Types()[j] == dataset.TypeNumeric {
				idxs = append(idxs, j)
				columns = append(columns, t.Columns()[j])
			}
		}
	} else {
		for _, name := range columns {
			idx, ok := t.ColumnIndex(name)
			if !ok {
				return nil, fmt.Errorf("%w: %q", dataset.ErrColumnNotFound, name)
			}
			idxs = append(idxs, idx)
		}
	}

	n := len(idxs)
	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
		values[i][i] = 1
	}

	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			r := pairwiseCorrelation(t, idxs[a], idxs[b])
			values[a][b] = r
			values[b][a] = r
		}
	}

	return &CorrelationMatrix{Columns: columns, Values: values}, nil
}

// pairwiseCorrelation computes Pearson correlation over rows where both
// cells are numeric, guarding the zero-variance case that gonum reports as
// NaN.
func pairwiseCorrelation(t *dataset.Table, xi, yi int) float64 {
	var xs, ys []float64
	for _, row := range t.Rows() {
		x, okX := row[xi].Number()
		y, okY := row[yi].Number()
		if okX && okY {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	if len(xs) < 2 {
		return 0
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

// populationStd is the population (divisor n) standard deviation about a
// precomputed mean.
func populationStd(xs []float64, mean float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return math.Sqrt(stat.MomentAbout(2, xs, mean, nil))
}
