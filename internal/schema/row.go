package schema

import (
	"fmt"
)

// ColumnUpdate is one cell of a row. A nil Value means the cell is absent and
// is written as the typed NULL of the column's type.
type ColumnUpdate struct {
	Column ColumnDefinition
	Value  any
}

// Absent reports whether the cell carries no value.
func (u ColumnUpdate) Absent() bool { return u.Value == nil }

// RowUpdate is one row in flight. Columns are always in the ordinal order of
// the table they were produced from.
type RowUpdate struct {
	Table   string
	Columns []ColumnUpdate
}

// NewRowUpdate pairs values with the columns of td, position by position.
func NewRowUpdate(td TableDefinition, values []any) (RowUpdate, error) {
	if len(values) != td.Len() {
		return RowUpdate{}, fmt.Errorf("schema: table %q: got %d values for %d columns", td.Name(), len(values), td.Len())
	}
	cols := make([]ColumnUpdate, len(values))
	for i, v := range values {
		cols[i] = ColumnUpdate{Column: td.columns[i], Value: v}
	}
	return RowUpdate{Table: td.name, Columns: cols}, nil
}

// Values returns the raw cell values in column order.
func (r RowUpdate) Values() []any {
	out := make([]any, len(r.Columns))
	for i, c := range r.Columns {
		out[i] = c.Value
	}
	return out
}

// Value returns the value of the named column.
func (r RowUpdate) Value(name string) (any, bool) {
	for _, c := range r.Columns {
		if c.Column.Name == name {
			return c.Value, true
		}
	}
	return nil, false
}

// WithValues returns a new row whose cells are fn applied to each cell of r.
// Column definitions and order are kept; r is not modified.
func (r RowUpdate) WithValues(fn func(ColumnUpdate) any) RowUpdate {
	cols := make([]ColumnUpdate, len(r.Columns))
	for i, c := range r.Columns {
		cols[i] = ColumnUpdate{Column: c.Column, Value: fn(c)}
	}
	return RowUpdate{Table: r.Table, Columns: cols}
}

// Args encodes every cell for binding, in column order. Absent cells become
// the typed NULL of their column.
func (r RowUpdate) Args() ([]any, error) {
	args := make([]any, len(r.Columns))
	for i, c := range r.Columns {
		v, err := c.Column.Type.Encode(c.Value)
		if err != nil {
			return nil, fmt.Errorf("schema: table %q column %q: %w", r.Table, c.Column.Name, err)
		}
		args[i] = v
	}
	return args, nil
}
