package table

import (
	"errors"
	"fmt"
)

type (
	// Row holds one value per table column, in column order.
	Row []Value

	Table struct {
		columns []string
		index   map[string]int
		rows    []Row
	}
)

var (
	ErrColumnNotFound  = errors.New("column not found")
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrRowWidth        = errors.New("row width does not match columns")
	ErrNoColumns       = errors.New("table has no columns")
)

func New(columns []string) (*Table, error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	t := &Table{
		columns: make([]string, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, col := range columns {
		if _, exists := t.index[col]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, col)
		}
		t.columns[i] = col
		t.index[col] = i
	}
	return t, nil
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

func (t *Table) NumColumns() int {
	return len(t.columns)
}

func (t *Table) NumRows() int {
	return len(t.rows)
}

func (t *Table) ColumnIndex(name string) (int, error) {
	i, ok := t.index[name]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return i, nil
}

// AppendRow adds a row. The row must carry exactly one value per column.
func (t *Table) AppendRow(row Row) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("%w: got %d values for %d columns", ErrRowWidth, len(row), len(t.columns))
	}
	r := make(Row, len(row))
	copy(r, row)
	t.rows = append(t.rows, r)
	return nil
}

// Row returns the i-th row. The returned slice must not be modified.
func (t *Table) Row(i int) Row {
	return t.rows[i]
}

func (t *Table) Rows() []Row {
	return t.rows
}

// Value returns the value of column name in row i.
func (t *Table) Value(i int, name string) (Value, error) {
	c, err := t.ColumnIndex(name)
	if err != nil {
		return Value{}, err
	}
	return t.rows[i][c], nil
}

// RowMap returns row i keyed by column name.
func (t *Table) RowMap(i int) map[string]Value {
	m := make(map[string]Value, len(t.columns))
	for c, col := range t.columns {
		m[col] = t.rows[i][c]
	}
	return m
}

// Column returns every value of a column in row order.
func (t *Table) Column(name string) ([]Value, error) {
	c, err := t.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	vals := make([]Value, len(t.rows))
	for i, row := range t.rows {
		vals[i] = row[c]
	}
	return vals, nil
}

// Select returns a new table with the rows at the given indexes, in that order, and every column.
func (t *Table) Select(rowIndexes []int) *Table {
	out := t.emptyCopy()
	out.rows = make([]Row, 0, len(rowIndexes))
	for _, i := range rowIndexes {
		out.rows = append(out.rows, t.rows[i])
	}
	return out
}

// Head returns a table with at most the first n rows.
func (t *Table) Head(n int) *Table {
	if n > len(t.rows) {
		n = len(t.rows)
	}
	out := t.emptyCopy()
	out.rows = append([]Row(nil), t.rows[:n]...)
	return out
}

// Project returns a new table with only the named columns, in the given order.
func (t *Table) Project(columns []string) (*Table, error) {
	idx := make([]int, len(columns))
	for i, col := range columns {
		c, err := t.ColumnIndex(col)
		if err != nil {
			return nil, err
		}
		idx[i] = c
	}
	out, err := New(columns)
	if err != nil {
		return nil, err
	}
	out.rows = make([]Row, len(t.rows))
	for r, row := range t.rows {
		nr := make(Row, len(idx))
		for i, c := range idx {
			nr[i] = row[c]
		}
		out.rows[r] = nr
	}
	return out, nil
}

// SetColumn fills a column with one value in every row. An existing column keeps its
// position and has its values replaced, otherwise the column is appended.
// Rows are copied before they change since Select and Head share rows with their source.
func (t *Table) SetColumn(name string, v Value) {
	c, exists := t.index[name]
	if !exists {
		c = len(t.columns)
		t.index[name] = c
		t.columns = append(t.columns, name)
	}
	for i, row := range t.rows {
		r := make(Row, len(t.columns))
		copy(r, row)
		r[c] = v
		t.rows[i] = r
	}
}

// Clone deep copies the table so edits on the copy never reach t.
func (t *Table) Clone() *Table {
	out := t.emptyCopy()
	out.rows = make([]Row, len(t.rows))
	for i, row := range t.rows {
		r := make(Row, len(row))
		copy(r, row)
		out.rows[i] = r
	}
	return out
}

func (t *Table) emptyCopy() *Table {
	out := &Table{
		columns: t.Columns(),
		index:   make(map[string]int, len(t.columns)),
	}
	for k, v := range t.index {
		out.index[k] = v
	}
	return out
}
