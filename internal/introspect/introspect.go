// Package introspect reads the target catalog to decide which tables and
// columns are copied, and compiles each table into a schema.TableDefinition
// using the type registry.
package introspect

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"dbstream/internal/datatype"
	"dbstream/internal/schema"
	"dbstream/internal/storage"
)

// ColumnRewrite adjusts a column definition after its type was resolved, for
// example to force a different codec for one column.
type ColumnRewrite func(schema.ColumnDefinition) schema.ColumnDefinition

// Introspector reads table and column metadata from the target database.
type Introspector struct {
	db      storage.Database
	reg     *datatype.Registry
	include Predicate
	exclude Predicate
	rewrite ColumnRewrite
	log     *zap.Logger
}

// Option configures an Introspector.
type Option func(*Introspector)

// WithRegistry resolves types against r instead of datatype.Default.
func WithRegistry(r *datatype.Registry) Option {
	return func(i *Introspector) {
		if r != nil {
			i.reg = r
		}
	}
}

// WithInclude keeps only tables matching p.
func WithInclude(p Predicate) Option {
	return func(i *Introspector) {
		if p != nil {
			i.include = p
		}
	}
}

// WithExclude drops tables matching p. Exclusion wins over inclusion.
func WithExclude(p Predicate) Option {
	return func(i *Introspector) {
		if p != nil {
			i.exclude = p
		}
	}
}

// WithColumnRewrite applies fn to every column once, after type resolution.
func WithColumnRewrite(fn ColumnRewrite) Option {
	return func(i *Introspector) { i.rewrite = fn }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(i *Introspector) {
		if l != nil {
			i.log = l
		}
	}
}

// New returns an Introspector over db. By default every table is included
// and none excluded.
func New(db storage.Database, opts ...Option) *Introspector {
	i := &Introspector{
		db:      db,
		reg:     datatype.Default,
		include: All(),
		exclude: None(),
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// ListTables returns the base tables of the default schema, ordered by name.
func (i *Introspector) ListTables(ctx context.Context) ([]string, error) {
	conn, err := storage.Acquire(ctx, i.db, storage.RoleTarget)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, i.db.Dialect().TablesQuery)
	if err != nil {
		return nil, fmt.Errorf("introspect: list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("introspect: list tables: scan: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("introspect: list tables: %w", err)
	}
	return tables, nil
}

// Select applies the exclude and include predicates to tables, keeping order.
func (i *Introspector) Select(tables []string) []string {
	return lo.Filter(tables, func(t string, _ int) bool {
		return !i.exclude(t) && i.include(t)
	})
}

// Describe compiles table into a TableDefinition. Type names pass through the
// dialect's TypeAliases first. A column whose type is not registered fails
// with *schema.SchemaError.
func (i *Introspector) Describe(ctx context.Context, table string) (schema.TableDefinition, error) {
	conn, err := storage.Acquire(ctx, i.db, storage.RoleTarget)
	if err != nil {
		return schema.TableDefinition{}, err
	}
	defer conn.Close()

	d := i.db.Dialect()
	rows, err := conn.QueryContext(ctx, d.ColumnsQuery, table)
	if err != nil {
		return schema.TableDefinition{}, fmt.Errorf("introspect: describe %s: %w", table, err)
	}
	defer rows.Close()

	var cols []schema.ColumnDefinition
	for rows.Next() {
		var (
			name, sqlType string
			ordinal       int
		)
		if err := rows.Scan(&name, &ordinal, &sqlType); err != nil {
			return schema.TableDefinition{}, fmt.Errorf("introspect: describe %s: scan: %w", table, err)
		}
		dt, err := i.reg.ResolveAliased(d.TypeAliases, sqlType)
		if err != nil {
			return schema.TableDefinition{}, &schema.SchemaError{Table: table, Column: name, Type: sqlType, Err: err}
		}
		col := schema.ColumnDefinition{Table: table, Ordinal: ordinal, Name: name, Type: dt}
		if i.rewrite != nil {
			col = i.rewrite(col)
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return schema.TableDefinition{}, fmt.Errorf("introspect: describe %s: %w", table, err)
	}

	td, err := schema.NewTableDefinition(table, cols)
	if err != nil {
		return schema.TableDefinition{}, fmt.Errorf("introspect: describe %s: %w", table, err)
	}
	i.log.Debug("introspect: table described", zap.String("table", table), zap.Int("columns", td.Len()))
	return td, nil
}

// Discover lists, filters and describes every selected table, in listing
// order. The first failure aborts discovery.
func (i *Introspector) Discover(ctx context.Context) ([]schema.TableDefinition, error) {
	all, err := i.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	selected := i.Select(all)
	i.log.Info("introspect: tables selected", zap.Int("listed", len(all)), zap.Int("selected", len(selected)))

	defs := make([]schema.TableDefinition, 0, len(selected))
	for _, t := range selected {
		td, err := i.Describe(ctx, t)
		if err != nil {
			return nil, err
		}
		defs = append(defs, td)
	}
	return defs, nil
}
