package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrProducerUsed is returned when a single-use Producer is run again.
	ErrProducerUsed = errors.New("stream: producer already run")
	// ErrAdapterConsumed is yielded when an Adapter's sequence is iterated
	// more than once.
	ErrAdapterConsumed = errors.New("stream: sequence already consumed")
)

// RowReadError reports a failure while reading a table. Rows is the number of
// rows emitted before the failure.
type RowReadError struct {
	Table string
	Rows  int64
	Err   error
}

func (e *RowReadError) Error() string {
	return fmt.Sprintf("stream: read %s: failed after %d rows: %v", e.Table, e.Rows, e.Err)
}

func (e *RowReadError) Unwrap() error { return e.Err }

// RowWriteError reports a failed batch. Batches before Batch stay committed;
// Committed counts their rows.
type RowWriteError struct {
	Table     string
	Batch     int
	Committed int64
	Err       error
}

func (e *RowWriteError) Error() string {
	return fmt.Sprintf("stream: write %s: batch #%d failed after %d committed rows: %v", e.Table, e.Batch, e.Committed, e.Err)
}

func (e *RowWriteError) Unwrap() error { return e.Err }
