package dataset

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseExcel reads the first sheet of an XLSX workbook into a Table. The
// first row is the header row and cells go through the same coercion rules
// as CSV. Spreadsheet rows are frequently ragged (trailing empty cells are
// absent), so short rows are padded with missing cells rather than rejected.
func ParseExcel(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformedInput)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: need a header row and at least one data row", ErrMalformedInput)
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	return buildTable(headers, rows[1:], true)
}
