package datatype

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

// ErrUnsupportedType is returned when no registered alias matches a SQL
// type name.
var ErrUnsupportedType = errors.New("unsupported sql type")

// builtin alias sets, keyed by kind. Names cover information_schema.data_type
// for Postgres, MySQL and SQL Server, SQLite declared types, and HSQLDB.
var builtin = map[Kind][]string{
	KindText: {
		"character varying", "varchar", "character", "char", "text", "nvarchar", "nchar",
		"ntext", "tinytext", "mediumtext", "longtext", "clob", "string", "citext",
		"uuid", "uniqueidentifier", "json", "jsonb", "enum", "set", "xml", "name",
		"national character varying", "national character", "varchar2", "nvarchar2",
	},
	KindInt32: {
		"integer", "int", "int4", "smallint", "int2", "mediumint", "tinyint", "serial", "smallserial",
	},
	KindInt64: {
		"bigint", "int8", "bigserial",
	},
	KindDecimal: {
		"numeric", "decimal", "number", "money", "smallmoney", "dec",
	},
	KindBlob: {
		"binary large object", "blob", "bytea", "binary", "varbinary", "image", "longblob",
		"mediumblob", "tinyblob", "binary varying", "raw",
	},
	KindDate: {
		"date",
	},
	KindFloat64: {
		"double precision", "double", "float", "float8", "float4", "real",
	},
	KindTimestamp: {
		"timestamp", "timestamp without time zone", "timestamp with time zone", "timestamptz",
		"datetime", "datetime2", "smalldatetime", "datetimeoffset",
	},
	KindBool: {
		"boolean", "bool", "bit",
	},
}

// Registry resolves SQL type names to DataTypes. It is safe for concurrent
// use.
type Registry struct {
	mu      sync.RWMutex
	byAlias map[string]DataType
}

// NewRegistry returns a registry preloaded with the built-in aliases.
func NewRegistry() *Registry {
	r := &Registry{byAlias: make(map[string]DataType)}
	for k, aliases := range builtin {
		for _, a := range aliases {
			r.byAlias[normalize(a)] = Named(k, a)
		}
	}
	return r
}

// Register maps every alias to dt. A later registration for the same alias
// replaces the earlier one.
func (r *Registry) Register(dt DataType, aliases ...string) error {
	if !dt.Kind().Valid() {
		return fmt.Errorf("datatype: register %v: invalid kind", dt)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range aliases {
		n := normalize(a)
		if n == "" {
			return fmt.Errorf("datatype: register %v: empty alias", dt)
		}
		r.byAlias[n] = Named(dt.Kind(), a)
	}
	return nil
}

// Resolve returns the DataType registered for sqlType. Matching ignores case,
// surrounding space and any parenthesized length or precision.
func (r *Registry) Resolve(sqlType string) (DataType, error) {
	n := normalize(sqlType)
	r.mu.RLock()
	dt, ok := r.byAlias[n]
	r.mu.RUnlock()
	if !ok {
		return DataType{}, fmt.Errorf("%w: %q", ErrUnsupportedType, sqlType)
	}
	return dt, nil
}

// ResolveAliased resolves sqlType after renaming it through aliases, whose
// keys are lower-case type names without modifiers. A renamed type keeps
// sqlType as its name. Backends use this where the engine stores a type
// wider than the name suggests, such as SQLite INTEGER.
func (r *Registry) ResolveAliased(aliases map[string]string, sqlType string) (DataType, error) {
	n := normalize(sqlType)
	as, ok := aliases[n]
	if !ok {
		return r.Resolve(sqlType)
	}
	dt, err := r.Resolve(as)
	if err != nil {
		return DataType{}, fmt.Errorf("%w: %q as %q", ErrUnsupportedType, sqlType, as)
	}
	return Named(dt.Kind(), n), nil
}

// Aliases returns the registered aliases for k, sorted.
func (r *Registry) Aliases(k Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for a, dt := range r.byAlias {
		if dt.Kind() == k {
			out = append(out, a)
		}
	}
	sort.Strings(out)
	return out
}

// Default is the process-wide registry used when callers do not supply one.
var Default = NewRegistry()

// Resolve looks sqlType up in the Default registry.
func Resolve(sqlType string) (DataType, error) { return Default.Resolve(sqlType) }

// Register adds aliases to the Default registry.
func Register(dt DataType, aliases ...string) error { return Default.Register(dt, aliases...) }

// normalize folds case, drops parenthesized modifiers such as "(255)" or
// "(10,2)" and collapses inner whitespace: "TIMESTAMP(6) WITHOUT TIME ZONE"
// becomes "timestamp without time zone".
func normalize(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	// A Caser is stateful; one per call keeps Resolve goroutine-safe.
	folded := cases.Fold().String(b.String())
	return strings.Join(strings.Fields(folded), " ")
}
