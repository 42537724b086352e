// Package schema describes what gets copied: the compiled column layout of a
// table and the row unit that flows from reader to writer.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"dbstream/internal/datatype"
)

// ColumnDefinition is one column of a table. Ordinals start at 1.
type ColumnDefinition struct {
	Table   string
	Ordinal int
	Name    string
	Type    datatype.DataType
}

// WithType returns a copy of c with its type replaced.
func (c ColumnDefinition) WithType(dt datatype.DataType) ColumnDefinition {
	c.Type = dt
	return c
}

// WithName returns a copy of c with its name replaced.
func (c ColumnDefinition) WithName(name string) ColumnDefinition {
	c.Name = name
	return c
}

func (c ColumnDefinition) String() string {
	return fmt.Sprintf("%s.%s#%d %s", c.Table, c.Name, c.Ordinal, c.Type)
}

// TableDefinition is a table name plus its columns in ordinal order. Build one
// with NewTableDefinition; the zero value has no columns.
type TableDefinition struct {
	name    string
	columns []ColumnDefinition
}

// NewTableDefinition sorts cols by ordinal and checks that they belong to name,
// that ordinals are positive and unique, and that column names are unique.
func NewTableDefinition(name string, cols []ColumnDefinition) (TableDefinition, error) {
	if strings.TrimSpace(name) == "" {
		return TableDefinition{}, fmt.Errorf("schema: table name must not be empty")
	}
	if len(cols) == 0 {
		return TableDefinition{}, fmt.Errorf("schema: table %q has no columns", name)
	}

	sorted := make([]ColumnDefinition, len(cols))
	copy(sorted, cols)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Ordinal < sorted[j].Ordinal })

	seenName := make(map[string]struct{}, len(sorted))
	for i, c := range sorted {
		if c.Table != name {
			return TableDefinition{}, fmt.Errorf("schema: column %q belongs to table %q, not %q", c.Name, c.Table, name)
		}
		if c.Ordinal < 1 {
			return TableDefinition{}, fmt.Errorf("schema: table %q column %q: ordinal %d < 1", name, c.Name, c.Ordinal)
		}
		if i > 0 && sorted[i-1].Ordinal == c.Ordinal {
			return TableDefinition{}, fmt.Errorf("schema: table %q: duplicate ordinal %d", name, c.Ordinal)
		}
		if strings.TrimSpace(c.Name) == "" {
			return TableDefinition{}, fmt.Errorf("schema: table %q: empty column name at ordinal %d", name, c.Ordinal)
		}
		if _, dup := seenName[c.Name]; dup {
			return TableDefinition{}, fmt.Errorf("schema: table %q: duplicate column %q", name, c.Name)
		}
		if c.Type.IsZero() {
			return TableDefinition{}, fmt.Errorf("schema: table %q column %q: missing type", name, c.Name)
		}
		seenName[c.Name] = struct{}{}
	}
	return TableDefinition{name: name, columns: sorted}, nil
}

// Name returns the table name.
func (t TableDefinition) Name() string { return t.name }

// Len returns the number of columns.
func (t TableDefinition) Len() int { return len(t.columns) }

// Column returns the i-th column (0-based, ordinal order).
func (t TableDefinition) Column(i int) ColumnDefinition { return t.columns[i] }

// Columns returns a copy of the columns in ordinal order.
func (t TableDefinition) Columns() []ColumnDefinition {
	out := make([]ColumnDefinition, len(t.columns))
	copy(out, t.columns)
	return out
}

// ColumnNames returns the column names in ordinal order.
func (t TableDefinition) ColumnNames() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Name
	}
	return out
}

func (t TableDefinition) String() string {
	parts := make([]string, len(t.columns))
	for i, c := range t.columns {
		parts[i] = c.Name + " " + c.Type.Name()
	}
	return t.name + "(" + strings.Join(parts, ", ") + ")"
}
