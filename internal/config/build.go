package config

import (
	"fmt"
	"path"
	"strings"

	"github.com/samber/lo"

	"dbstream/internal/datatype"
	"dbstream/internal/introspect"
	"dbstream/internal/schema"
	"dbstream/internal/stream"
)

// match builds a table predicate for one pattern honouring CaseInsensitive.
func (t Tables) match(pattern string) introspect.Predicate {
	if t.CaseInsensitive {
		return introspect.MatchFold(pattern)
	}
	return introspect.Match(pattern)
}

// Include returns the include predicate; no patterns selects every table.
func (r Run) Include() introspect.Predicate {
	if len(r.Tables.Include) == 0 {
		return introspect.All()
	}
	return introspect.Or(lo.Map(r.Tables.Include, func(p string, _ int) introspect.Predicate { return r.Tables.match(p) })...)
}

// Exclude returns the exclude predicate; no patterns excludes nothing.
func (r Run) Exclude() introspect.Predicate {
	if len(r.Tables.Exclude) == 0 {
		return introspect.None()
	}
	return introspect.Or(lo.Map(r.Tables.Exclude, func(p string, _ int) introspect.Predicate { return r.Tables.match(p) })...)
}

// resolveType accepts a kind name first, then any registered SQL type name.
func resolveType(reg *datatype.Registry, name string) (datatype.DataType, error) {
	if dt, err := datatype.Lookup(name); err == nil {
		return dt, nil
	}
	return reg.Resolve(name)
}

// ColumnRewrite compiles the column overrides. It returns nil when there are
// none.
func (r Run) ColumnRewrite(reg *datatype.Registry) (introspect.ColumnRewrite, error) {
	if len(r.Columns) == 0 {
		return nil, nil
	}
	if reg == nil {
		reg = datatype.Default
	}
	type override struct {
		table introspect.Predicate
		col   string
		dt    datatype.DataType
	}
	ovs := make([]override, 0, len(r.Columns))
	for i, c := range r.Columns {
		dt, err := resolveType(reg, c.Type)
		if err != nil {
			return nil, fmt.Errorf("config: columns[%d]: %w", i, err)
		}
		ovs = append(ovs, override{table: r.Tables.match(c.Table), col: c.Column, dt: dt})
	}
	return func(cd schema.ColumnDefinition) schema.ColumnDefinition {
		for _, o := range ovs {
			if o.table(cd.Table) && strings.EqualFold(o.col, cd.Name) {
				cd = cd.WithType(o.dt)
			}
		}
		return cd
	}, nil
}

// ValueTransforms compiles the value transforms in file order.
func (r Run) ValueTransforms() (stream.Transforms, error) {
	out := make(stream.Transforms, 0, len(r.Transforms))
	for i, t := range r.Transforms {
		var fn stream.ValueFunc
		switch strings.ToLower(strings.TrimSpace(t.Kind)) {
		case "redact":
			fn = stream.Redact(t.Column, t.Value)
		case "nullify":
			fn = stream.Nullify(t.Column)
		default:
			return nil, fmt.Errorf("config: transforms[%d]: unknown kind %q", i, t.Kind)
		}
		tr := stream.Transform{Fn: fn}
		if t.Table != "" {
			tr.Match = r.Tables.match(t.Table)
		}
		out = append(out, tr)
	}
	return out, nil
}

// validPattern reports whether p is a well-formed path.Match pattern.
func validPattern(p string) bool {
	_, err := path.Match(p, "")
	return err == nil
}
