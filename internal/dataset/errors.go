package dataset

import "errors"

// Ingestion and lookup errors. Callers wrap these with context via fmt.Errorf
// and the transport layer maps them to API error codes.
var (
	// ErrMalformedInput indicates structurally invalid raw input: empty
	// payload, missing headers, or a row whose cell count does not match the
	// header count.
	ErrMalformedInput = errors.New("malformed input")

	// ErrEmptyDataset indicates that no usable rows remain after ingestion
	// or after a row-dropping transform.
	ErrEmptyDataset = errors.New("empty dataset")

	// ErrNotTabular indicates a JSON payload that is not an array of
	// objects. Such payloads are opaque blobs and never enter the pipeline.
	ErrNotTabular = errors.New("payload is not tabular")

	// ErrColumnNotFound indicates a reference to a column name that does
	// not exist in the table schema.
	ErrColumnNotFound = errors.New("column not found")
)
