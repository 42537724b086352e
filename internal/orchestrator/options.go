package orchestrator

import (
	"go.uber.org/zap"

	"dbstream/internal/datatype"
	"dbstream/internal/introspect"
	"dbstream/internal/stream"
)

const (
	// DefaultWorkers is the number of tables copied at once.
	DefaultWorkers = 6
	// DefaultJob names runs that were not given a job.
	DefaultJob = "dbstream"
)

// TableObserver is called once per finished or abandoned table, from the
// worker goroutine that handled it.
type TableObserver func(TableResult)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkers bounds how many tables are copied at once. Values below 1 are
// ignored.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithBatchSize sets the rows per write transaction.
func WithBatchSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithBufferSize sets the capacity of each table's read buffer.
func WithBufferSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// WithInclude keeps only target tables matching p.
func WithInclude(p introspect.Predicate) Option {
	return func(o *Orchestrator) { o.introspect = append(o.introspect, introspect.WithInclude(p)) }
}

// WithExclude drops tables matching p, even if they are included.
func WithExclude(p introspect.Predicate) Option {
	return func(o *Orchestrator) { o.introspect = append(o.introspect, introspect.WithExclude(p)) }
}

// WithColumnRewrite applies fn to every planned column once.
func WithColumnRewrite(fn introspect.ColumnRewrite) Option {
	return func(o *Orchestrator) { o.introspect = append(o.introspect, introspect.WithColumnRewrite(fn)) }
}

// WithRegistry resolves column types against r.
func WithRegistry(r *datatype.Registry) Option {
	return func(o *Orchestrator) { o.introspect = append(o.introspect, introspect.WithRegistry(r)) }
}

// WithTransforms sets the per-table value transforms.
func WithTransforms(ts stream.Transforms) Option {
	return func(o *Orchestrator) { o.transforms = ts }
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithJob names the run in logs, metrics and the report.
func WithJob(job string) Option {
	return func(o *Orchestrator) {
		if job != "" {
			o.job = job
		}
	}
}

// WithTableObserver calls fn with every TableResult as it is recorded.
func WithTableObserver(fn TableObserver) Option {
	return func(o *Orchestrator) { o.observer = fn }
}
