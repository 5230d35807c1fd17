package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ParseJSON parses a JSON array of homogeneous objects into a Table. Column
// order follows the key order of the first element as written in the
// document. Payloads that are not an array of objects are opaque blobs and
// fail with ErrNotTabular.
func ParseJSON(data []byte) (*Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, ErrNotTabular
	}

	var elements []json.RawMessage
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		elements = append(elements, raw)
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: empty array", ErrEmptyDataset)
	}

	columns, err := objectKeys(elements[0])
	if err != nil {
		return nil, err
	}

	rows := make([][]Cell, 0, len(elements))
	for i, raw := range elements {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("%w: element %d is not an object", ErrNotTabular, i)
		}
		row := make([]Cell, len(columns))
		allMissing := true
		for j, col := range columns {
			row[j] = cellFromJSON(obj[col])
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

	return New(columns, rows)
}

// objectKeys extracts the top-level keys of a JSON object in document order.
// encoding/json maps are unordered, so the key order must come from a token
// scan of the raw bytes.
func objectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrNotTabular
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: non-string object key", ErrMalformedInput)
		}
		keys = append(keys, key)

		// Consume the value, whatever shape it has.
		var discard json.RawMessage
		if err := dec.Decode(&discard); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
	}
	return keys, nil
}

// cellFromJSON coerces a raw JSON value into a Cell. Absent keys and nulls
// are missing; numbers stay numeric; strings go through the same coercion as
// CSV cells; anything else keeps its JSON text form.
func cellFromJSON(raw json.RawMessage) Cell {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Missing()
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return Missing()
	}
	switch val := v.(type) {
	case json.Number:
		if f, err := strconv.ParseFloat(val.String(), 64); err == nil {
			return Number(f)
		}
		return Text(val.String())
	case string:
		return Coerce(val)
	case bool:
		return Text(strconv.FormatBool(val))
	default:
		return Text(string(raw))
	}
}

// ExportJSON serializes the table as an array of objects in column order,
// with missing cells encoded as null.
func (t *Table) ExportJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range t.rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, col := range t.columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(col)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(row[j].Value())
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i+1, col, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
