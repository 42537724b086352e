// Package mysql implements the MySQL backend on go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"dbstream/internal/storage"
)

// Dialect returns the MySQL dialect. FOREIGN_KEY_CHECKS is a session
// variable, so it is switched on every writer connection.
func Dialect() storage.Dialect {
	return storage.Dialect{
		Name:       "mysql",
		QuoteIdent: storage.QuoteBacktick,
		TablesQuery: `select table_name from information_schema.tables
where table_schema = database() and table_type = 'BASE TABLE'
order by table_name`,
		ColumnsQuery: `select column_name, ordinal_position, data_type from information_schema.columns
where table_schema = database() and table_name = ?
order by ordinal_position`,
		// data_type does not carry UNSIGNED, and INT UNSIGNED exceeds int32.
		TypeAliases:  map[string]string{"int": "bigint", "integer": "bigint"},
		SessionInit:  []string{"SET FOREIGN_KEY_CHECKS=0"},
		SessionReset: []string{"SET FOREIGN_KEY_CHECKS=1"},
	}
}

// parseDSN validates dsn and forces the options the copy relies on.
func parseDSN(dsn string) (*mysql.Config, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql dsn: %w", err)
	}
	// DATE and DATETIME must scan into time.Time.
	mc.ParseTime = true
	return mc, nil
}

// NewDatabase opens a MySQL pool for cfg.DSN and wraps it as a *storage.DB.
func NewDatabase(ctx context.Context, cfg storage.Config) (*storage.DB, error) {
	mc, err := parseDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}
	return storage.NewDB(db, Dialect(), cfg, nil), nil
}
