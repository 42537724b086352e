package mssql

import (
	"context"

	"dbstream/internal/storage"
)

// newDatabase is a test hook that points to NewDatabase by default.
// Tests may replace this variable to avoid real DB connections.
var newDatabase = NewDatabase

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (*storage.DB, error) {
		return newDatabase(ctx, cfg)
	})
}
