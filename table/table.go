package table

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrArity is returned when a row does not have one value per column.
	ErrArity = errors.New("table: row arity does not match column count")

	// ErrRowOutOfRange is returned when a row index is outside the table.
	ErrRowOutOfRange = errors.New("table: row index out of range")
)

// ErrColumnNotFound indicates a column name that is not part of the schema.
type ErrColumnNotFound struct {
	Column string
}

func (e *ErrColumnNotFound) Error() string {
	return fmt.Sprintf("table: column not found: %q", e.Column)
}

// Row is one record of a table, one Value per column.
type Row []Value

// Table is an ordered sequence of rows sharing an ordered column schema.
//
// A Table never hands out its internal slices: accessors return copies, and
// every derived table (Select, Take, Head, Clone) owns its own storage. This
// keeps caller-supplied inputs immutable across a matching run.
type Table struct {
	columns []string
	index   map[string]int
	rows    []Row
}

// New creates an empty table with the given column schema.
// If a name repeats, lookups by name resolve to its first position.
func New(columns ...string) *Table {
	cols := slices.Clone(columns)
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, ok := index[c]; !ok {
			index[c] = i
		}
	}
	return &Table{columns: cols, index: index}
}

// FromRows creates a table from a schema and rows.
// Rows are copied.
func FromRows(columns []string, rows ...Row) (*Table, error) {
	t := New(columns...)
	t.rows = make([]Row, 0, len(rows))
	for i, r := range rows {
		if err := t.Append(r...); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return t, nil
}

// MustFromRows is like FromRows but panics on error.
// It is intended for tests and static fixtures.
func MustFromRows(columns []string, rows ...Row) *Table {
	t, err := FromRows(columns, rows...)
	if err != nil {
		panic(err)
	}
	return t
}

// Append adds a row. The values are copied.
func (t *Table) Append(values ...Value) error {
	if len(values) != len(t.columns) {
		return fmt.Errorf("%w: got %d values for %d columns", ErrArity, len(values), len(t.columns))
	}
	t.rows = append(t.rows, slices.Clone(Row(values)))
	return nil
}

// Columns returns a copy of the ordered column names.
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	return len(t.columns)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Row returns a copy of row i.
func (t *Table) Row(i int) (Row, error) {
	if i < 0 || i >= len(t.rows) {
		return nil, fmt.Errorf("%w: %d (len %d)", ErrRowOutOfRange, i, len(t.rows))
	}
	return slices.Clone(t.rows[i]), nil
}

// At returns the value at row i, column j.
// It panics if either index is out of range, like slice indexing.
func (t *Table) At(i, j int) Value {
	return t.rows[i][j]
}

// SameSchema reports whether both tables have identical column names in
// identical order.
func (t *Table) SameSchema(o *Table) bool {
	return slices.Equal(t.columns, o.columns)
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := New(t.columns...)
	c.rows = make([]Row, len(t.rows))
	for i, r := range t.rows {
		c.rows[i] = slices.Clone(r)
	}
	return c
}

// Select returns a copy of the table restricted to the given columns, in the
// given order.
func (t *Table) Select(columns []string) (*Table, error) {
	pos := make([]int, len(columns))
	for i, name := range columns {
		j, ok := t.index[name]
		if !ok {
			return nil, &ErrColumnNotFound{Column: name}
		}
		pos[i] = j
	}

	s := New(columns...)
	s.rows = make([]Row, len(t.rows))
	for i, r := range t.rows {
		row := make(Row, len(pos))
		for k, j := range pos {
			row[k] = r[j]
		}
		s.rows[i] = row
	}
	return s, nil
}

// Take returns a copy of the rows at the given indices, in the given order.
// An index may appear more than once.
func (t *Table) Take(indices []int) (*Table, error) {
	s := New(t.columns...)
	s.rows = make([]Row, len(indices))
	for k, i := range indices {
		if i < 0 || i >= len(t.rows) {
			return nil, fmt.Errorf("%w: %d (len %d)", ErrRowOutOfRange, i, len(t.rows))
		}
		s.rows[k] = slices.Clone(t.rows[i])
	}
	return s, nil
}

// Head returns a copy of the first n rows. n larger than Len returns all rows;
// n <= 0 returns an empty table with the same schema.
func (t *Table) Head(n int) *Table {
	n = max(0, min(n, len(t.rows)))
	s := New(t.columns...)
	s.rows = make([]Row, n)
	for i := range n {
		s.rows[i] = slices.Clone(t.rows[i])
	}
	return s
}

// Equal reports whether both tables have the same schema and identical rows.
func (t *Table) Equal(o *Table) bool {
	if !t.SameSchema(o) || len(t.rows) != len(o.rows) {
		return false
	}
	for i := range t.rows {
		if !slices.EqualFunc(t.rows[i], o.rows[i], Value.Equal) {
			return false
		}
	}
	return true
}

// Records returns the rows as column-name keyed maps of plain Go values.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.rows))
	for i, r := range t.rows {
		rec := make(map[string]any, len(t.columns))
		for j, c := range t.columns {
			rec[c] = r[j].Interface()
		}
		out[i] = rec
	}
	return out
}

// All iterates over the rows with their index. The yielded rows are copies.
func (t *Table) All() func(yield func(int, Row) bool) {
	return func(yield func(int, Row) bool) {
		for i, r := range t.rows {
			if !yield(i, slices.Clone(r)) {
				return
			}
		}
	}
}
