// Package sqlite implements the SQLite backend on modernc.org/sqlite (pure Go,
// no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"dbstream/internal/storage"
)

// Dialect returns the SQLite dialect. PRAGMA foreign_keys is per connection
// and cannot change inside a transaction, so it is set on every writer
// connection before the first batch.
func Dialect() storage.Dialect {
	return storage.Dialect{
		Name: "sqlite",
		TablesQuery: `select name from sqlite_master
where type = 'table' and name not like 'sqlite_%'
order by name`,
		ColumnsQuery: `select name, cid + 1, type from pragma_table_info(?) order by cid`,
		// Every INT affinity column holds 64-bit values.
		TypeAliases: map[string]string{
			"integer":   "bigint",
			"int":       "bigint",
			"int2":      "bigint",
			"int4":      "bigint",
			"smallint":  "bigint",
			"mediumint": "bigint",
			"tinyint":   "bigint",
		},
		SessionInit: []string{"PRAGMA foreign_keys = OFF"},
	}
}

// NewDatabase opens a SQLite database.
//
// DSN is passed directly to database/sql; for example:
//
//	"file:app.db?_pragma=busy_timeout(5000)"
//	"app.db"
func NewDatabase(ctx context.Context, cfg storage.Config) (*storage.DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// Apply a basic ping with context to fail fast on invalid DSNs.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return storage.NewDB(db, Dialect(), cfg, nil), nil
}
