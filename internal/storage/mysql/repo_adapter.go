package mysql

import (
	"context"

	"dbstream/internal/storage"
)

// newDatabase is a test hook that points to NewDatabase by default.
// Tests may replace this variable to avoid real DB connections.
var newDatabase = NewDatabase

// init registers the "mysql" backend with the factory.
func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (*storage.DB, error) {
		return newDatabase(ctx, cfg)
	})
}
