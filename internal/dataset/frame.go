package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMissingColumn = errors.New("missing column")

type Frame struct {
	Columns []string
	Rows    [][]string
}

// Empty returns a zero-row frame.
func Empty() *Frame {
	return &Frame{}
}

func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Index returns the position of the named column, or -1.
func (f *Frame) Index(name string) int {
	if f == nil {
		return -1
	}
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (f *Frame) Has(name string) bool {
	return f.Index(name) >= 0
}

// Require reports every named column that is absent.
func (f *Frame) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if !f.Has(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// Rename returns a copy with columns renamed per mapping. Columns not in the
// mapping keep their name; mapping keys not present are ignored.
func (f *Frame) Rename(mapping map[string]string) *Frame {
	out := &Frame{Columns: make([]string, len(f.Columns)), Rows: f.Rows}
	for i, c := range f.Columns {
		if to, ok := mapping[c]; ok {
			out.Columns[i] = to
		} else {
			out.Columns[i] = c
		}
	}
	return out
}

// Select returns a new frame holding only the named columns, in that order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	if err := f.Require(names...); err != nil {
		return nil, err
	}
	idx := make([]int, len(names))
	for i, n := range names {
		idx[i] = f.Index(n)
	}
	out := &Frame{Columns: append([]string(nil), names...), Rows: make([][]string, len(f.Rows))}
	for r, row := range f.Rows {
		cells := make([]string, len(idx))
		for i, j := range idx {
			cells[i] = cell(row, j)
		}
		out.Rows[r] = cells
	}
	return out, nil
}

// SelectPrefix keeps the shared columns plus every column starting with prefix,
// with the prefix stripped from the latter.
func (f *Frame) SelectPrefix(prefix string, shared ...string) (*Frame, error) {
	names := append([]string(nil), shared...)
	for _, c := range f.Columns {
		if strings.HasPrefix(c, prefix) {
			names = append(names, c)
		}
	}
	if len(names) == len(shared) {
		return nil, fmt.Errorf("%w: no column with prefix %q", ErrMissingColumn, prefix)
	}
	out, err := f.Select(names...)
	if err != nil {
		return nil, err
	}
	for i := len(shared); i < len(out.Columns); i++ {
		out.Columns[i] = strings.TrimPrefix(out.Columns[i], prefix)
	}
	return out, nil
}

// WithConstant returns a copy with an extra column holding value on every row.
func (f *Frame) WithConstant(name, value string) *Frame {
	out := &Frame{
		Columns: append(append([]string(nil), f.Columns...), name),
		Rows:    make([][]string, len(f.Rows)),
	}
	for i, row := range f.Rows {
		cells := make([]string, len(f.Columns)+1)
		copy(cells, row)
		cells[len(f.Columns)] = value
		out.Rows[i] = cells
	}
	return out
}

// Row is a read-only view of one frame row addressed by column name.
type Row struct {
	Num   int
	cells []string
	index map[string]int
}

// Get returns the trimmed cell under name, or "" when the column is absent.
func (r Row) Get(name string) string {
	i, ok := r.index[name]
	if !ok {
		return ""
	}
	return strings.TrimSpace(cell(r.cells, i))
}

// Each calls fn for every row in order, stopping at the first error.
func (f *Frame) Each(fn func(Row) error) error {
	if f.Len() == 0 {
		return nil
	}
	index := make(map[string]int, len(f.Columns))
	for i, c := range f.Columns {
		if _, dup := index[c]; !dup {
			index[c] = i
		}
	}
	for n, cells := range f.Rows {
		if err := fn(Row{Num: n, cells: cells, index: index}); err != nil {
			return fmt.Errorf("row %d: %w", n+1, err)
		}
	}
	return nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
