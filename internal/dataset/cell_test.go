package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCoerce covers the raw-string coercion rules shared by the CSV and JSON
// ingestion paths.
func TestCoerce(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Cell
	}{
		{name: "empty string is missing", raw: "", want: Missing()},
		{name: "whitespace only is missing", raw: "   ", want: Missing()},
		{name: "null literal is missing", raw: "null", want: Missing()},
		{name: "undefined literal is missing", raw: "undefined", want: Missing()},
		{name: "integer becomes number", raw: "42", want: Number(42)},
		{name: "float becomes number", raw: "3.14", want: Number(3.14)},
		{name: "negative number", raw: "-7.5", want: Number(-7.5)},
		{name: "scientific notation", raw: "1e3", want: Number(1000)},
		{name: "padded number is trimmed first", raw: "  25 ", want: Number(25)},
		{name: "plain text stays text", raw: "hello", want: Text("hello")},
		{name: "partial number stays text", raw: "12abc", want: Text("12abc")},
		{name: "padded text is trimmed", raw: "  red ", want: Text("red")},
		{name: "nan literal stays text", raw: "NaN", want: Text("NaN")},
		{name: "infinity literal stays text", raw: "Inf", want: Text("Inf")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, Coerce(tt.raw).Equal(tt.want))
		})
	}
}

// TestNumberRejectsNonFinite ensures NaN and infinities cannot enter a table
// as numeric cells.
func TestNumberRejectsNonFinite(t *testing.T) {
	assert.True(t, Number(math.NaN()).IsMissing())
	assert.True(t, Number(math.Inf(1)).IsMissing())
	assert.True(t, Number(math.Inf(-1)).IsMissing())
}

func TestCellString(t *testing.T) {
	tests := []struct {
		name string
		cell Cell
		want string
	}{
		{name: "missing renders empty", cell: Missing(), want: ""},
		{name: "integer has no decimal point", cell: Number(30), want: "30"},
		{name: "float keeps shortest form", cell: Number(0.5), want: "0.5"},
		{name: "text verbatim", cell: Text("blue"), want: "blue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cell.String())
		})
	}
}

func TestCellValue(t *testing.T) {
	assert.Nil(t, Missing().Value())
	assert.Equal(t, 2.5, Number(2.5).Value())
	assert.Equal(t, "red", Text("red").Value())
}

func TestCellAccessors(t *testing.T) {
	v, ok := Number(9).Number()
	assert.True(t, ok)
	assert.Equal(t, 9.0, v)

	_, ok = Text("x").Number()
	assert.False(t, ok)

	s, ok := Text("x").Text()
	assert.True(t, ok)
	assert.Equal(t, "x", s)

	_, ok = Number(9).Text()
	assert.False(t, ok)
}
