package dataset

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	raw := []byte(`[
		{"zeta": 1, "alpha": "red", "mid": 0.5},
		{"zeta": 2, "alpha": null, "mid": 0.75},
		{"zeta": null, "alpha": "blue"}
	]`)

	tbl, err := ParseJSON(raw)
	require.NoError(t, err)

	// Column order follows the first object's document order, not sort order.
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, tbl.Columns())
	assert.Equal(t, 3, tbl.NumRows())

	assert.True(t, tbl.Rows()[1][1].IsMissing())
	// The key absent from the third object is missing too.
	assert.True(t, tbl.Rows()[2][2].IsMissing())

	v, ok := tbl.Rows()[0][2].Number()
	require.True(t, ok)
	assert.Equal(t, 0.5, v)
}

func TestParseJSONNotTabular(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "object root", raw: `{"a": 1}`},
		{name: "scalar root", raw: `42`},
		{name: "string root", raw: `"hello"`},
		{name: "array of scalars", raw: `[1, 2, 3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.raw))
			assert.ErrorIs(t, err, ErrNotTabular)
		})
	}
}

func TestParseJSONEmptyArray(t *testing.T) {
	_, err := ParseJSON([]byte(`[]`))
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestParseJSONMalformed(t *testing.T) {
	_, err := ParseJSON([]byte(`[{"a": 1},`))
	assert.ErrorIs(t, err, ErrMalformedInput)
}

// TestParseJSONValueCoercion checks per-value typing: numbers stay numeric,
// numeric strings coerce, booleans become text.
func TestParseJSONValueCoercion(t *testing.T) {
	raw := []byte(`[{"n": 7, "s": "12", "b": true, "t": "word"}]`)
	tbl, err := ParseJSON(raw)
	require.NoError(t, err)

	row := tbl.Rows()[0]
	v, ok := row[0].Number()
	require.True(t, ok)
	assert.Equal(t, 7.0, v)

	v, ok = row[1].Number()
	require.True(t, ok)
	assert.Equal(t, 12.0, v)

	s, ok := row[2].Text()
	require.True(t, ok)
	assert.Equal(t, "true", s)

	s, ok = row[3].Text()
	require.True(t, ok)
	assert.Equal(t, "word", s)
}

// TestExportJSON checks the array-of-objects shape with null for missing and
// column-order keys.
func TestExportJSON(t *testing.T) {
	tbl, err := New(
		[]string{"b", "a"},
		[][]Cell{
			{Number(1), Text("x")},
			{Missing(), Text("y")},
		},
	)
	require.NoError(t, err)

	out, err := tbl.ExportJSON()
	require.NoError(t, err)

	assert.JSONEq(t, `[{"b":1,"a":"x"},{"b":null,"a":"y"}]`, string(out))

	// The emitted bytes must preserve column order, which JSONEq ignores.
	assert.Equal(t, `[{"b":1,"a":"x"},{"b":null,"a":"y"}]`, string(out))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Len(t, decoded, 2)
}

// TestJSONRoundTrip exports and re-parses a table, expecting identical
// columns and cells.
func TestJSONRoundTrip(t *testing.T) {
	raw := []byte(`[{"x": 1, "y": "red"}, {"x": null, "y": "blue"}]`)
	tbl, err := ParseJSON(raw)
	require.NoError(t, err)

	out, err := tbl.ExportJSON()
	require.NoError(t, err)

	again, err := ParseJSON(out)
	require.NoError(t, err)
	assert.Equal(t, tbl.Fingerprint(), again.Fingerprint())
}
