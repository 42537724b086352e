// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from a copy run.
//
// The package is intentionally minimal:
//
//   - It exposes a narrow interface (Backend) focused on counters and timing
//     data (histograms).
//   - It provides a global, pluggable backend that defaults to a no-op
//     implementation, so metrics are always safe to call even when no real
//     backend is configured.
//   - Concrete metric systems live in subpackages (prompush, datadog), so the
//     copy engine depends only on this package.
package metrics

import (
	"sync"
	"time"
)

// Metric names emitted by the Record helpers.
const (
	TableTotal     = "dbstream_table_total"
	TableDuration  = "dbstream_table_duration_seconds"
	RowsTotal      = "dbstream_rows_total"
	BatchesTotal   = "dbstream_batches_total"
	StatusSuccess  = "success"
	StatusFailure  = "failure"
	RowKindRead    = "read"
	RowKindWritten = "written"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordTable counts one finished table and its duration, split by outcome.
func RecordTable(job, table string, err error, d time.Duration) {
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}
	lbls := Labels{
		"job":    job,
		"table":  table,
		"status": status,
	}
	b := current()
	b.IncCounter(TableTotal, 1, lbls)
	b.ObserveHistogram(TableDuration, d.Seconds(), lbls)
}

// RecordRows adds delta rows of kind (RowKindRead, RowKindWritten) for table.
func RecordRows(job, table, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{
		"job":   job,
		"table": table,
		"kind":  kind,
	})
}

// RecordBatches adds delta committed batches for table.
func RecordBatches(job, table string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(BatchesTotal, float64(delta), Labels{
		"job":   job,
		"table": table,
	})
}
