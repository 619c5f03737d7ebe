package core

import (
	"fmt"
	"strings"
)

// Batch is a materialized, column-major table with named columns.
//
// A Batch is immutable: every operation that changes rows or columns
// returns a new Batch. Slices handed out by Column and Row must not be
// modified by callers.
type Batch struct {
	names   []string
	index   map[string]int
	columns [][]Value
	rows    int
}

// NewBatch builds a batch from column names and column-major data.
// All columns must have the same length and names must be unique.
func NewBatch(names []string, columns [][]Value) (*Batch, error) {
	if len(names) != len(columns) {
		return nil, fmt.Errorf("batch has %d column names but %d columns", len(names), len(columns))
	}

	b := &Batch{
		names:   append([]string(nil), names...),
		index:   make(map[string]int, len(names)),
		columns: make([][]Value, len(columns)),
	}

	for i, name := range names {
		if _, dup := b.index[name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", name)
		}
		b.index[name] = i
		if i == 0 {
			b.rows = len(columns[i])
		} else if len(columns[i]) != b.rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", name, len(columns[i]), b.rows)
		}
		b.columns[i] = columns[i]
	}

	return b, nil
}

// BatchFromRows builds a batch from row-major data.
func BatchFromRows(names []string, rows [][]Value) (*Batch, error) {
	columns := make([][]Value, len(names))
	for c := range columns {
		columns[c] = make([]Value, len(rows))
	}
	for r, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", r, len(row), len(names))
		}
		for c, v := range row {
			columns[c][r] = v
		}
	}
	return NewBatch(names, columns)
}

// MustBatchFromRows is BatchFromRows that panics on error. Intended for tests
// and static fixtures.
func MustBatchFromRows(names []string, rows [][]Value) *Batch {
	b, err := BatchFromRows(names, rows)
	if err != nil {
		panic(err)
	}
	return b
}

// NumRows returns the number of rows.
func (b *Batch) NumRows() int { return b.rows }

// NumColumns returns the number of columns.
func (b *Batch) NumColumns() int { return len(b.names) }

// Columns returns the column names in order.
func (b *Batch) Columns() []string {
	return append([]string(nil), b.names...)
}

// HasColumn reports whether the batch has a column with the given name.
func (b *Batch) HasColumn(name string) bool {
	_, ok := b.index[name]
	return ok
}

// Column returns the values of the named column.
func (b *Batch) Column(name string) ([]Value, bool) {
	i, ok := b.index[name]
	if !ok {
		return nil, false
	}
	return b.columns[i], true
}

// Row returns a copy of row i in column order.
func (b *Batch) Row(i int) []Value {
	row := make([]Value, len(b.columns))
	for c := range b.columns {
		row[c] = b.columns[c][i]
	}
	return row
}

// Rows returns all rows in row-major order.
func (b *Batch) Rows() [][]Value {
	out := make([][]Value, b.rows)
	for r := range out {
		out[r] = b.Row(r)
	}
	return out
}

// WithColumn returns a copy of b with the named column's values replaced.
func (b *Batch) WithColumn(name string, values []Value) (*Batch, error) {
	i, ok := b.index[name]
	if !ok {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	if len(values) != b.rows {
		return nil, fmt.Errorf("column %q has %d rows, expected %d", name, len(values), b.rows)
	}
	columns := append([][]Value(nil), b.columns...)
	columns[i] = values
	return &Batch{names: b.names, index: b.index, columns: columns, rows: b.rows}, nil
}

// Take returns a batch holding only the given rows, in the given order.
func (b *Batch) Take(rows []int) *Batch {
	columns := make([][]Value, len(b.columns))
	for c, col := range b.columns {
		out := make([]Value, len(rows))
		for i, r := range rows {
			out[i] = col[r]
		}
		columns[c] = out
	}
	return &Batch{names: b.names, index: b.index, columns: columns, rows: len(rows)}
}

// DropRows returns a batch without the given row indices. Indices outside
// the batch are ignored and surviving rows keep their relative order.
func (b *Batch) DropRows(drop []int) *Batch {
	if len(drop) == 0 {
		return b
	}
	skip := make(map[int]struct{}, len(drop))
	for _, r := range drop {
		skip[r] = struct{}{}
	}
	keep := make([]int, 0, b.rows)
	for r := 0; r < b.rows; r++ {
		if _, ok := skip[r]; !ok {
			keep = append(keep, r)
		}
	}
	return b.Take(keep)
}

// RowKey returns a canonical key for row r covering every column.
func (b *Batch) RowKey(r int) string {
	var sb strings.Builder
	for c := range b.columns {
		if c > 0 {
			sb.WriteByte('\x1f')
		}
		sb.WriteString(Key(b.columns[c][r]))
	}
	return sb.String()
}

// DuplicateRows returns the indices of rows that exactly repeat an earlier
// row. The first occurrence is never included.
func (b *Batch) DuplicateRows() []int {
	seen := make(map[string]struct{}, b.rows)
	var dups []int
	for r := 0; r < b.rows; r++ {
		key := b.RowKey(r)
		if _, ok := seen[key]; ok {
			dups = append(dups, r)
			continue
		}
		seen[key] = struct{}{}
	}
	return dups
}

// EmptyRows returns the indices of rows in which every value is null.
func (b *Batch) EmptyRows() []int {
	if len(b.columns) == 0 {
		return nil
	}
	var empty []int
	for r := 0; r < b.rows; r++ {
		allNull := true
		for c := range b.columns {
			if !IsNull(b.columns[c][r]) {
				allNull = false
				break
			}
		}
		if allNull {
			empty = append(empty, r)
		}
	}
	return empty
}
