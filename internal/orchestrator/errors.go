package orchestrator

import "fmt"

// ConcurrencyError marks a table that was never started because the run was
// stopped before a worker picked it up.
type ConcurrencyError struct {
	Table string
	Err   error
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("orchestrator: table %s not started: %v", e.Table, e.Err)
}

func (e *ConcurrencyError) Unwrap() error { return e.Err }
