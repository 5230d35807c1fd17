package dataset

import (
	"encoding/csv"
	"fmt"
	"strings"
)

// ParseCSV parses raw CSV text into a Table. The first record is the header
// row. Parsing fails with ErrMalformedInput when the input is empty, has no
// data rows, has fewer than two header columns, has an empty header, or when
// a data row's cell count differs from the header count (reported with its
// 1-based line number counting the header line). Rows whose cells are all
// missing after coercion are dropped; if nothing remains the result is
// ErrEmptyDataset.
func ParseCSV(raw string) (*Table, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedInput)
	}

	reader := csv.NewReader(strings.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: need a header line and at least one data row", ErrMalformedInput)
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}
	return buildTable(headers, records[1:], false)
}

// buildTable validates headers, coerces raw string records into cells, and
// drops all-missing rows. When padRagged is set, short records are padded
// with empty cells instead of failing, for spreadsheet sources where
// trailing empty cells are simply absent.
func buildTable(headers []string, records [][]string, padRagged bool) (*Table, error) {
	if len(headers) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 columns, got %d", ErrMalformedInput, len(headers))
	}
	for i, h := range headers {
		if h == "" {
			return nil, fmt.Errorf("%w: empty header at column %d", ErrMalformedInput, i+1)
		}
	}

	rows := make([][]Cell, 0, len(records))
	for i, record := range records {
		if len(record) != len(headers) {
			if !padRagged || len(record) > len(headers) {
				// Line numbers are 1-based and count the header line.
				return nil, fmt.Errorf("%w: line %d has %d cells, expected %d",
					ErrMalformedInput, i+2, len(record), len(headers))
			}
			padded := make([]string, len(headers))
			copy(padded, record)
			record = padded
		}

		row := make([]Cell, len(headers))
		allMissing := true
		for j, raw := range record {
			row[j] = Coerce(raw)
			if !row[j].IsMissing() {
				allMissing = false
			}
		}
		if allMissing {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no usable rows after coercion", ErrEmptyDataset)
	}

	return New(headers, rows)
}

// ExportCSV serializes the table back to CSV text, the inverse of ParseCSV.
// Text cells containing commas (or quotes, or newlines) are quoted by the
// writer.
func (t *Table) ExportCSV() (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(t.columns); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(t.columns))
	for i, row := range t.rows {
		for j, cell := range row {
			record[j] = cell.String()
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
