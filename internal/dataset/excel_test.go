package dataset

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, val := range row {
			col, err := excelize.ColumnNumberToName(j + 1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, col+strconv.Itoa(i+1), val))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestParseExcel(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		{"age", "color"},
		{20, "red"},
		{30, "blue"},
	})

	tbl, err := ParseExcel(buf)
	require.NoError(t, err)

	assert.Equal(t, []string{"age", "color"}, tbl.Columns())
	assert.Equal(t, 2, tbl.NumRows())

	v, ok := tbl.Rows()[0][0].Number()
	require.True(t, ok)
	assert.Equal(t, 20.0, v)
}

// TestParseExcelRaggedRows verifies that rows missing trailing cells are
// padded with missing values instead of failing.
func TestParseExcelRaggedRows(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		{"a", "b", "c"},
		{1, "x", 2},
		{3, "y"},
	})

	tbl, err := ParseExcel(buf)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.NumRows())
	assert.True(t, tbl.Rows()[1][2].IsMissing())
}

func TestParseExcelErrors(t *testing.T) {
	t.Run("not a workbook", func(t *testing.T) {
		_, err := ParseExcel(bytes.NewReader([]byte("plain text")))
		assert.ErrorIs(t, err, ErrMalformedInput)
	})

	t.Run("header only", func(t *testing.T) {
		buf := buildWorkbook(t, [][]any{{"a", "b"}})
		_, err := ParseExcel(buf)
		assert.ErrorIs(t, err, ErrMalformedInput)
	})
}
