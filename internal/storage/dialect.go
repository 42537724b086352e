package storage

import (
	"strconv"
	"strings"
)

// Dialect holds everything that differs between SQL engines as far as a
// table copy is concerned.
type Dialect struct {
	Name string

	// QuoteIdent quotes one identifier part. Nil means ANSI double quotes.
	QuoteIdent func(string) string
	// BindVar renders the n-th (1-based) bind parameter. Nil means "?".
	BindVar func(n int) string

	// TablesQuery lists base tables of the default schema, one name per row,
	// ordered by name.
	TablesQuery string
	// ColumnsQuery takes one parameter (the table name) and returns
	// (name, ordinal, type) rows.
	ColumnsQuery string
	// TypeAliases renames catalog type names before they are resolved, for
	// types the engine stores wider than the common meaning of the name.
	// Keys are lower case without length or precision.
	TypeAliases map[string]string

	// DisableChecks and EnableChecks switch foreign-key enforcement for the
	// whole database.
	DisableChecks []string
	EnableChecks  []string

	// SessionInit runs on every writer connection before the first insert.
	// Engines whose foreign-key switch is session scoped put it here.
	SessionInit []string
	// SessionReset undoes SessionInit before the connection returns to the
	// pool.
	SessionReset []string
}

// Quote quotes a possibly schema-qualified identifier, part by part.
func (d Dialect) Quote(name string) string {
	q := d.QuoteIdent
	if q == nil {
		q = QuoteANSI
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = q(p)
	}
	return strings.Join(parts, ".")
}

// Placeholder renders the n-th bind parameter.
func (d Dialect) Placeholder(n int) string {
	if d.BindVar == nil {
		return "?"
	}
	return d.BindVar(n)
}

// SelectSQL builds an explicit projection of columns from table.
func (d Dialect) SelectSQL(table string, columns []string) string {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = d.Quote(c)
	}
	return "select " + strings.Join(cols, ", ") + " from " + d.Quote(table)
}

// InsertSQL builds a single-row insert for columns into table.
func (d Dialect) InsertSQL(table string, columns []string) string {
	cols := make([]string, len(columns))
	ph := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = d.Quote(c)
		ph[i] = d.Placeholder(i + 1)
	}
	return "insert into " + d.Quote(table) + " (" + strings.Join(cols, ", ") + ") values (" + strings.Join(ph, ", ") + ")"
}

// CountSQL counts the rows of table.
func (d Dialect) CountSQL(table string) string {
	return "select count(*) from " + d.Quote(table)
}

// QuoteANSI wraps s in double quotes, doubling embedded quotes.
func QuoteANSI(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// QuoteBacktick wraps s in backticks (MySQL).
func QuoteBacktick(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// QuoteBracket wraps s in square brackets (SQL Server).
func QuoteBracket(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}

// DollarN renders Postgres-style $n parameters.
func DollarN(n int) string { return "$" + strconv.Itoa(n) }

// AtPN renders SQL Server-style @pN parameters.
func AtPN(n int) string { return "@p" + strconv.Itoa(n) }
