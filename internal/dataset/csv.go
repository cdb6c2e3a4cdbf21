package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const utf8BOM = "\ufeff"

// ReadCSV loads a comma-separated file whose first record is the header.
func ReadCSV(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

func Decode(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return &Frame{Columns: header, Rows: rows}, nil
}

// WriteCSV writes the frame to path, creating parent directories as needed.
func (f *Frame) WriteCSV(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := f.Encode(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (f *Frame) Encode(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(f.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// Recorder is implemented by the typed rows of each destination table.
type Recorder interface {
	Header() []string
	Record() []string
}

// FromRecords builds a frame from typed rows. An empty slice yields the
// header of the zero value.
func FromRecords[T Recorder](rows []T) *Frame {
	var zero T
	out := &Frame{Columns: zero.Header(), Rows: make([][]string, len(rows))}
	for i, r := range rows {
		out.Rows[i] = r.Record()
	}
	return out
}
