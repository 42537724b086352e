package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// DB is a *sql.DB paired with its Dialect. It implements Database and
// IntegrityToggler.
type DB struct {
	db      *sql.DB
	dialect Dialect
	release func()
}

var (
	_ Database         = (*DB)(nil)
	_ IntegrityToggler = (*DB)(nil)
)

// NewDB wraps db, applies the pool knobs and integrity overrides from cfg and
// returns the result. release, when non-nil, runs after db is closed.
func NewDB(db *sql.DB, dialect Dialect, cfg Config, release func()) *DB {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if len(cfg.DisableChecks) > 0 {
		dialect.DisableChecks = append([]string(nil), cfg.DisableChecks...)
	}
	if len(cfg.EnableChecks) > 0 {
		dialect.EnableChecks = append([]string(nil), cfg.EnableChecks...)
	}
	return &DB{db: db, dialect: dialect, release: release}
}

// Conn implements Database.
func (d *DB) Conn(ctx context.Context) (*sql.Conn, error) { return d.db.Conn(ctx) }

// Dialect implements Database.
func (d *DB) Dialect() Dialect { return d.dialect }

// SQL exposes the underlying pool.
func (d *DB) SQL() *sql.DB { return d.db }

// Ping verifies connectivity.
func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

// Close closes the pool and runs the backend's release hook.
func (d *DB) Close() error {
	err := d.db.Close()
	if d.release != nil {
		d.release()
	}
	return err
}

// DisableChecks runs the dialect's disable statements on one connection.
func (d *DB) DisableChecks(ctx context.Context) error {
	return d.execAll(ctx, "disable checks", d.dialect.DisableChecks)
}

// EnableChecks runs the dialect's enable statements on one connection.
func (d *DB) EnableChecks(ctx context.Context) error {
	return d.execAll(ctx, "enable checks", d.dialect.EnableChecks)
}

func (d *DB) execAll(ctx context.Context, op string, stmts []string) error {
	if len(stmts) == 0 {
		return nil
	}
	conn, err := Acquire(ctx, d, RoleControl)
	if err != nil {
		return err
	}
	defer conn.Close()
	return ExecSession(ctx, conn, stmts, op)
}

// ExecSession runs stmts in order on conn, skipping blank ones.
func ExecSession(ctx context.Context, conn *sql.Conn, stmts []string, op string) error {
	for _, s := range stmts {
		if strings.TrimSpace(s) == "" {
			continue
		}
		if _, err := conn.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("storage: %s: %q: %w", op, s, err)
		}
	}
	return nil
}
