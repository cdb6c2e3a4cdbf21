// Package dataset holds the untyped tabular value that flows between pipeline
// stages: a header plus string cells, read from and written to comma-separated
// files with a header row.
//
// A Frame with zero rows is the "empty dataset" every stage falls back to.
package dataset
