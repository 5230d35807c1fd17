package dataset

import (
	"math"
	"strconv"
	"strings"
)

// CellKind discriminates the variants a Cell can hold.
type CellKind uint8

const (
	// KindMissing marks a cell with no value.
	KindMissing CellKind = iota
	// KindNumber marks a cell holding a finite float64.
	KindNumber
	// KindText marks a cell holding a non-numeric string.
	KindText
)

// Cell is a single scalar value in a Table: a finite number, a text string,
// or missing. The zero value is a missing cell.
type Cell struct {
	kind CellKind
	num  float64
	text string
}

// Missing returns a missing cell.
func Missing() Cell {
	return Cell{}
}

// Number returns a numeric cell. NaN and infinities are not representable as
// numbers and degrade to missing.
func Number(v float64) Cell {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Cell{}
	}
	return Cell{kind: KindNumber, num: v}
}

// Text returns a text cell.
func Text(s string) Cell {
	return Cell{kind: KindText, text: s}
}

// Coerce converts a raw string value into a Cell. The value is trimmed;
// empty strings and the literals "null" and "undefined" become missing; a
// string that parses entirely as a finite number becomes a number; anything
// else is kept as trimmed text.
func Coerce(raw string) Cell {
	s := strings.TrimSpace(raw)
	switch s {
	case "", "null", "undefined":
		return Cell{}
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return Cell{kind: KindNumber, num: v}
	}
	return Cell{kind: KindText, text: s}
}

// Kind reports which variant the cell holds.
func (c Cell) Kind() CellKind { return c.kind }

// IsMissing reports whether the cell has no value.
func (c Cell) IsMissing() bool { return c.kind == KindMissing }

// Number returns the numeric value and whether the cell is numeric.
func (c Cell) Number() (float64, bool) {
	return c.num, c.kind == KindNumber
}

// Text returns the text value and whether the cell is textual.
func (c Cell) Text() (string, bool) {
	return c.text, c.kind == KindText
}

// Equal reports whether two cells hold the same variant and value.
func (c Cell) Equal(other Cell) bool {
	return c == other
}

// String renders the cell for serialization: numbers in their shortest
// round-trippable form, text verbatim, missing as the empty string.
func (c Cell) String() string {
	switch c.kind {
	case KindNumber:
		return strconv.FormatFloat(c.num, 'g', -1, 64)
	case KindText:
		return c.text
	default:
		return ""
	}
}

// Value returns the cell as an interface value for JSON encoding: float64,
// string, or nil for missing.
func (c Cell) Value() any {
	switch c.kind {
	case KindNumber:
		return c.num
	case KindText:
		return c.text
	default:
		return nil
	}
}
