// Package mssql implements the SQL Server backend on go-mssqldb.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"dbstream/internal/storage"
)

// Dialect returns the SQL Server dialect. Constraint checking is switched
// per table for the whole database with sp_MSforeachtable.
func Dialect() storage.Dialect {
	return storage.Dialect{
		Name:       "mssql",
		QuoteIdent: storage.QuoteBracket,
		BindVar:    storage.AtPN,
		TablesQuery: `select table_name from information_schema.tables
where table_schema = schema_name() and table_type = 'BASE TABLE'
order by table_name`,
		ColumnsQuery: `select column_name, ordinal_position, data_type from information_schema.columns
where table_schema = schema_name() and table_name = @p1
order by ordinal_position`,
		DisableChecks: []string{"EXEC sp_MSforeachtable 'ALTER TABLE ? NOCHECK CONSTRAINT ALL'"},
		EnableChecks:  []string{"EXEC sp_MSforeachtable 'ALTER TABLE ? WITH CHECK CHECK CONSTRAINT ALL'"},
	}
}

// NewDatabase opens a SQL Server pool for cfg.DSN and wraps it as a
// *storage.DB.
func NewDatabase(ctx context.Context, cfg storage.Config) (*storage.DB, error) {
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, fmt.Errorf("mssql dsn: %w", err)
	}
	connector, err := mssql.NewConnector(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mssql connector: %w", err)
	}
	db := sql.OpenDB(connector)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return storage.NewDB(db, Dialect(), cfg, nil), nil
}
