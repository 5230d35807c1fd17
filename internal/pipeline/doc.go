// Package pipeline implements the tabular preprocessing pipeline: a
// Preprocessor owns one dataset.Table and applies an ordered sequence of
// transforms to it (missing-value handling, normalization, categorical
// encoding, outlier clipping, train/validation/test splitting, and tensor
// materialization).
//
// Every transform mutates the table in place and appends exactly one Step to
// the append-only step log. The log, not the table, is the durable record of
// how the current table was derived; Replay applies a recorded log to a
// fresh table and reproduces the same result deterministically, including
// the split, whose shuffle seed is recorded in its step parameters.
package pipeline
