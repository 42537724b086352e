package postgres

import (
	"context"

	"dbstream/internal/storage"
)

// newDatabase is a test hook that points to NewDatabase by default.
// Tests may replace this variable to avoid real DB connections.
var newDatabase = NewDatabase

// init registers the "postgres" backend with the storage factory.
//
// Typical usage:
//
//	db, err := storage.New(ctx, storage.Config{Kind: "postgres", DSN: dsn})
//	defer db.Close()
func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (*storage.DB, error) {
		return newDatabase(ctx, cfg)
	})
}
