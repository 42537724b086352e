package stream

import (
	"iter"
	"strings"

	"dbstream/internal/schema"
)

// ValueFunc returns the new value for one cell. Returning nil makes the cell
// absent.
type ValueFunc func(schema.ColumnUpdate) any

// Identity keeps every value.
func Identity(u schema.ColumnUpdate) any { return u.Value }

// ForColumn applies fn to cells of the named column (case-insensitive) and
// keeps other cells.
func ForColumn(column string, fn ValueFunc) ValueFunc {
	return func(u schema.ColumnUpdate) any {
		if strings.EqualFold(u.Column.Name, column) {
			return fn(u)
		}
		return u.Value
	}
}

// Redact replaces present values of column with placeholder. Absent values
// stay absent.
func Redact(column string, placeholder any) ValueFunc {
	return ForColumn(column, func(u schema.ColumnUpdate) any {
		if u.Absent() {
			return nil
		}
		return placeholder
	})
}

// Nullify makes every value of column absent.
func Nullify(column string) ValueFunc {
	return ForColumn(column, func(schema.ColumnUpdate) any { return nil })
}

// Chain applies fns in order; each sees the value produced by the previous.
func Chain(fns ...ValueFunc) ValueFunc {
	switch len(fns) {
	case 0:
		return Identity
	case 1:
		return fns[0]
	}
	return func(u schema.ColumnUpdate) any {
		for _, fn := range fns {
			u.Value = fn(u)
		}
		return u.Value
	}
}

// Transform applies Fn to the rows of tables accepted by Match.
type Transform struct {
	Match func(table string) bool
	Fn    ValueFunc
}

// Transforms is an ordered set of table-scoped transforms.
type Transforms []Transform

// For returns the composition of every transform matching table, or Identity
// when none does.
func (ts Transforms) For(table string) ValueFunc {
	var fns []ValueFunc
	for _, t := range ts {
		if t.Fn != nil && (t.Match == nil || t.Match(table)) {
			fns = append(fns, t.Fn)
		}
	}
	return Chain(fns...)
}

// ApplyTransform maps every row of seq through fn. Column count, order and
// definitions are preserved; errors pass through unchanged.
func ApplyTransform(seq iter.Seq2[schema.RowUpdate, error], fn ValueFunc) iter.Seq2[schema.RowUpdate, error] {
	if fn == nil {
		return seq
	}
	return func(yield func(schema.RowUpdate, error) bool) {
		for row, err := range seq {
			if err != nil {
				yield(row, err)
				return
			}
			if !yield(row.WithValues(fn), nil) {
				return
			}
		}
	}
}
