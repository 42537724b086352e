package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Connection roles used in ConnectionError.
const (
	RoleSource  = "source"
	RoleTarget  = "target"
	RoleControl = "control"
)

// ConnectionError reports a connection that could not be obtained.
type ConnectionError struct {
	Role string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("storage: acquire %s connection: %v", e.Role, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Acquire takes one connection from db, wrapping failures in
// *ConnectionError tagged with role.
func Acquire(ctx context.Context, db Database, role string) (*sql.Conn, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, &ConnectionError{Role: role, Err: err}
	}
	return conn, nil
}
