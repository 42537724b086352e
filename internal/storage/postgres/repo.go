// Package postgres implements the Postgres backend on pgx v5. The pgx pool is
// exposed through database/sql via pgx's stdlib bridge so the copy pipeline
// can stay driver-agnostic.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"dbstream/internal/storage"
)

// Dialect returns the Postgres dialect. The foreign-key switch is session
// scoped: writer connections run as replication replicas, which skips
// FK triggers.
func Dialect() storage.Dialect {
	return storage.Dialect{
		Name:    "postgres",
		BindVar: storage.DollarN,
		TablesQuery: `select table_name from information_schema.tables
where table_schema = current_schema() and table_type = 'BASE TABLE'
order by table_name`,
		ColumnsQuery: `select column_name, ordinal_position, data_type from information_schema.columns
where table_schema = current_schema() and table_name = $1
order by ordinal_position`,
		SessionInit:  []string{"SET session_replication_role = replica"},
		SessionReset: []string{"SET session_replication_role = DEFAULT"},
	}
}

// NewDatabase opens a pgx pool for cfg.DSN and wraps it as a *storage.DB.
func NewDatabase(ctx context.Context, cfg storage.Config) (*storage.DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	sqlDB := stdlib.OpenDBFromPool(pool)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return storage.NewDB(sqlDB, Dialect(), cfg, pool.Close), nil
}
