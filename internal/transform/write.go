package transform

import "github.com/kjannette/market-etl/internal/dataset"

// WriteCSV persists a normalized dataset, header included even when empty.
func WriteCSV[T dataset.Recorder](path string, rows []T) error {
	return dataset.FromRecords(rows).WriteCSV(path)
}
