package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gidavehub/mlstudio-sub000/internal/dataset"
)

func parseCSV(t *testing.T, raw string) *dataset.Table {
	t.Helper()
	tbl, err := dataset.ParseCSV(raw)
	require.NoError(t, err)
	return tbl
}

func TestSummarize(t *testing.T) {
	tbl := parseCSV(t, "age,color\n10,red\n20,blue\n,red\n30,\n")

	summaries := Summarize(tbl)
	require.Len(t, summaries, 2)

	age := summaries[0]
	assert.Equal(t, "age", age.Column)
	assert.Equal(t, dataset.TypeNumeric, age.Type)
	assert.Equal(t, 3, age.Count)
	assert.Equal(t, 1, age.Missing)
	assert.Equal(t, 3, age.Unique)
	require.NotNil(t, age.Numeric)
	assert.Equal(t, 10.0, age.Numeric.Min)
	assert.Equal(t, 30.0, age.Numeric.Max)
	assert.Equal(t, 20.0, age.Numeric.Mean)
	// Population std: sqrt(((10-20)^2 + 0 + (30-20)^2)/3).
	assert.InDelta(t, 8.16496580927726, age.Numeric.Std, 1e-12)

	color := summaries[1]
	assert.Equal(t, dataset.TypeCategorical, color.Type)
	assert.Equal(t, 3, color.Count)
	assert.Equal(t, 1, color.Missing)
	assert.Equal(t, 2, color.Unique)
	assert.Nil(t, color.Numeric)
}

func TestComputeHistogram(t *testing.T) {
	tbl := parseCSV(t, "x,k\n0,a\n1,a\n2,a\n3,a\n4,a\n5,a\n6,a\n7,a\n8,a\n10,a\n")

	h, err := ComputeHistogram(tbl, "x", 5)
	require.NoError(t, err)

	assert.Equal(t, 0.0, h.Min)
	assert.Equal(t, 10.0, h.Max)
	assert.Equal(t, 2.0, h.BinSize)
	// Bins [0,2) [2,4) [4,6) [6,8) [8,10]; max value lands in the last bin.
	assert.Equal(t, []int{2, 2, 2, 2, 2}, h.Counts)
}

func TestComputeHistogramDefaults(t *testing.T) {
	tbl := parseCSV(t, "x,k\n1,a\n2,a\n")

	h, err := ComputeHistogram(tbl, "x", 0)
	require.NoError(t, err)
	assert.Len(t, h.Counts, 10)
}

// TestComputeHistogramConstantColumn: a zero value range uses bin size 1 and
// puts everything in the first bin.
func TestComputeHistogramConstantColumn(t *testing.T) {
	tbl := parseCSV(t, "x,k\n5,a\n5,a\n5,a\n")

	h, err := ComputeHistogram(tbl, "x", 4)
	require.NoError(t, err)

	assert.Equal(t, 1.0, h.BinSize)
	assert.Equal(t, []int{3, 0, 0, 0}, h.Counts)
}

func TestComputeHistogramErrors(t *testing.T) {
	tbl := parseCSV(t, "x,color\n1,red\n2,blue\n")

	_, err := ComputeHistogram(tbl, "nope", 5)
	assert.ErrorIs(t, err, dataset.ErrColumnNotFound)

	_, err = ComputeHistogram(tbl, "color", 5)
	assert.ErrorIs(t, err, ErrNotNumeric)
}

// TestComputeScatter keeps only rows where both cells are numeric.
func TestComputeScatter(t *testing.T) {
	tbl := parseCSV(t, "x,y\n1,10\n2,\n3,30\ntext,40\n")

	s, err := ComputeScatter(tbl, "x", "y")
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 3}, s.X)
	assert.Equal(t, []float64{10, 30}, s.Y)

	_, err = ComputeScatter(tbl, "x", "nope")
	assert.ErrorIs(t, err, dataset.ErrColumnNotFound)
}
