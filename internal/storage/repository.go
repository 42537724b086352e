// Package storage contains the backend-agnostic database contract: a pool of
// connections plus the SQL dialect needed to talk to it. Concrete backends
// live in sub-packages and register themselves from init; callers obtain a
// *DB via New without importing the backend directly.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Database is what the copy pipeline needs from either side of a run.
type Database interface {
	// Conn takes one dedicated connection from the pool. The caller closes it.
	Conn(ctx context.Context) (*sql.Conn, error)
	Dialect() Dialect
	Close() error
}

// IntegrityToggler switches referential-integrity enforcement for a whole
// database.
type IntegrityToggler interface {
	DisableChecks(ctx context.Context) error
	EnableChecks(ctx context.Context) error
}

// Config selects and configures a backend.
type Config struct {
	Kind string
	DSN  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// DisableChecks and EnableChecks replace the dialect's integrity
	// statements when non-empty.
	DisableChecks []string
	EnableChecks  []string
}

// Factory opens a backend for cfg.
type Factory func(ctx context.Context, cfg Config) (*DB, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = f
}

// New opens the backend registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (*DB, error) {
	regMu.RLock()
	f, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
