package orchestrator

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// TableResult is the outcome of one table pipeline.
type TableResult struct {
	Table       string
	RowsRead    int64
	RowsWritten int64
	Batches     int
	Duration    time.Duration
	Err         error
}

// OK reports whether the table copied without error.
func (r TableResult) OK() bool { return r.Err == nil }

// Report summarizes a run. Tables keeps discovery order.
type Report struct {
	Job      string
	RunID    uuid.UUID
	Started  time.Time
	Duration time.Duration
	Tables   []TableResult
}

// Failed returns the tables that ended with an error.
func (r *Report) Failed() []TableResult {
	return lo.Filter(r.Tables, func(t TableResult, _ int) bool { return !t.OK() })
}

// Err joins every table error, or returns nil when all tables copied.
func (r *Report) Err() error {
	return errors.Join(lo.Map(r.Failed(), func(t TableResult, _ int) error { return t.Err })...)
}

// RowsWritten is the total of committed rows across tables.
func (r *Report) RowsWritten() int64 {
	return lo.SumBy(r.Tables, func(t TableResult) int64 { return t.RowsWritten })
}
