package dataset

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// ColumnType classifies the non-missing values observed in a column.
type ColumnType string

const (
	// TypeNumeric means every non-missing value in the column is a number.
	TypeNumeric ColumnType = "numeric"
	// TypeCategorical means every non-missing value is text.
	TypeCategorical ColumnType = "categorical"
	// TypeMixed means the column holds both numbers and text.
	TypeMixed ColumnType = "mixed"
)

// Table is the canonical working dataset: ordered column names, per-column
// types, and positionally aligned rows. Every row holds exactly one cell per
// column at all times.
//
// A Table has a single owner and is mutated in place by pipeline transforms;
// it must never be shared across concurrent pipelines.
type Table struct {
	columns []string
	types   []ColumnType
	rows    [][]Cell
}

// New builds a Table from column names and rows, validating row widths and
// inferring column types.
func New(columns []string, rows [][]Cell) (*Table, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no columns", ErrMalformedInput)
	}
	seen := make(map[string]struct{}, len(columns))
	for _, name := range columns {
		if name == "" {
			return nil, fmt.Errorf("%w: empty column name", ErrMalformedInput)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrMalformedInput, name)
		}
		seen[name] = struct{}{}
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d cells, expected %d",
				ErrMalformedInput, i+1, len(row), len(columns))
		}
	}
	t := &Table{columns: columns, rows: rows}
	t.InferTypes()
	return t, nil
}

// Columns returns the ordered column names.
func (t *Table) Columns() []string { return t.columns }

// Types returns the column types, parallel to Columns.
func (t *Table) Types() []ColumnType { return t.types }

// Rows returns the row slice. Callers mutate cells through this slice only
// under the single-owner contract.
func (t *Table) Rows() [][]Cell { return t.rows }

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.rows) }

// NumColumns returns the column count.
func (t *Table) NumColumns() int { return len(t.columns) }

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, c := range t.columns {
		if c == name {
			return i, true
		}
	}
	return 0, false
}

// ColumnType returns the inferred type of the named column.
func (t *Table) ColumnType(name string) (ColumnType, error) {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return t.types[idx], nil
}

// Column returns a copy of the cells in the column at idx.
func (t *Table) Column(idx int) []Cell {
	col := make([]Cell, len(t.rows))
	for i, row := range t.rows {
		col[i] = row[idx]
	}
	return col
}

// NumericColumn extracts the numeric values of the column at idx, skipping
// missing and textual cells.
func (t *Table) NumericColumn(idx int) []float64 {
	vals := make([]float64, 0, len(t.rows))
	for _, row := range t.rows {
		if v, ok := row[idx].Number(); ok {
			vals = append(vals, v)
		}
	}
	return vals
}

// SetRows replaces the row set, keeping the current schema. Row widths must
// already match the column count.
func (t *Table) SetRows(rows [][]Cell) {
	t.rows = rows
}

// ReplaceSchema swaps in a new column set, types, and rows in one step. It is
// used by schema-mutating transforms (column drops, one-hot expansion) which
// must rewrite schema and rows from the same snapshot.
func (t *Table) ReplaceSchema(columns []string, rows [][]Cell) {
	t.columns = columns
	t.rows = rows
	t.InferTypes()
}

// InferTypes recomputes the per-column types from the non-missing values
// currently present. It must be called after any transform that changes cell
// variants or the column set.
func (t *Table) InferTypes() {
	types := make([]ColumnType, len(t.columns))
	for j := range t.columns {
		types[j] = t.inferColumn(j)
	}
	t.types = types
}

func (t *Table) inferColumn(idx int) ColumnType {
	var numbers, texts int
	for _, row := range t.rows {
		switch row[idx].Kind() {
		case KindNumber:
			numbers++
		case KindText:
			texts++
		}
	}
	switch {
	case texts == 0:
		return TypeNumeric
	case numbers == 0:
		return TypeCategorical
	default:
		return TypeMixed
	}
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	columns := make([]string, len(t.columns))
	copy(columns, t.columns)
	types := make([]ColumnType, len(t.types))
	copy(types, t.types)
	rows := make([][]Cell, len(t.rows))
	for i, row := range t.rows {
		rows[i] = make([]Cell, len(row))
		copy(rows[i], row)
	}
	return &Table{columns: columns, types: types, rows: rows}
}

// Fingerprint computes a stable xxhash64 digest of the schema and every cell.
// Load steps record it so a replayed pipeline can report whether it ran
// against the same dataset.
func (t *Table) Fingerprint() uint64 {
	d := xxhash.New()
	for _, c := range t.columns {
		d.WriteString(c)
		d.WriteString("\x1f")
	}
	d.WriteString("\x1e")
	for _, row := range t.rows {
		for _, cell := range row {
			switch cell.Kind() {
			case KindMissing:
				d.WriteString("\x00")
			case KindNumber:
				d.WriteString("n")
			case KindText:
				d.WriteString("t")
			}
			d.WriteString(cell.String())
			d.WriteString("\x1f")
		}
		d.WriteString("\x1e")
	}
	return d.Sum64()
}
