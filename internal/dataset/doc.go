// Package dataset provides the in-memory tabular representation used by the
// preprocessing pipeline: an ordered set of named columns, positionally aligned
// rows of scalar cells, and per-column type classification.
//
// A Table is created by one of the ingestion functions (ParseCSV, ParseJSON,
// ParseExcel) and then mutated in place by pipeline transforms. The package
// guarantees that every row always has exactly one cell per column; any
// operation that changes the column set rewrites every row in the same pass.
//
// Cells are a tagged variant of number, text, or missing. A cell is missing
// when the source value was null, undefined, or empty after trimming. NaN is
// never a missing marker; it is a malformed numeric and is excluded from
// numeric extraction.
package dataset
