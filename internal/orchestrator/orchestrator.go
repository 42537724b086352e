// Package orchestrator copies every selected target table from a source
// database, one Reader → Adapter → Transform → Writer pipeline per table, with
// bounded concurrency and the target's referential checks suspended for the
// duration of the run. The target schema decides which tables and columns are
// copied; source tables or columns it lacks are ignored.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dbstream/internal/introspect"
	"dbstream/internal/metrics"
	"dbstream/internal/schema"
	"dbstream/internal/storage"
	"dbstream/internal/stream"
)

// Target is a database that can receive rows and toggle its integrity checks.
type Target interface {
	storage.Database
	storage.IntegrityToggler
}

// Orchestrator runs table copies from source to target.
type Orchestrator struct {
	source storage.Database
	target Target

	workers    int
	batchSize  int
	bufferSize int
	job        string
	transforms stream.Transforms
	introspect []introspect.Option
	observer   TableObserver
	log        *zap.Logger
}

// New returns an Orchestrator with 6 workers, batches of 10000 rows and a
// 5000-row read buffer unless overridden by opts.
func New(source storage.Database, target Target, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source:     source,
		target:     target,
		workers:    DefaultWorkers,
		batchSize:  stream.DefaultBatchSize,
		bufferSize: stream.DefaultBufferSize,
		job:        DefaultJob,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Plan reads the target catalog and compiles the tables a Run would copy. It
// does not write to either database.
func (o *Orchestrator) Plan(ctx context.Context) ([]schema.TableDefinition, error) {
	opts := append([]introspect.Option{introspect.WithLogger(o.log)}, o.introspect...)
	return introspect.New(o.target, opts...).Discover(ctx)
}

// Run copies every planned table.
//
// Discovery failures abort before any data or toggle reaches the target. Otherwise integrity
// checks are disabled once, the tables are copied by at most workers
// goroutines in discovery order, and checks are enabled once after every
// pipeline has finished, even if disabling failed.
//
// A failing table does not stop the others; its error is kept in the Report.
// Run itself returns an error only for discovery or toggle failures.
// Cancelling ctx stops new tables from starting; those record a
// *ConcurrencyError while running ones finish.
func (o *Orchestrator) Run(ctx context.Context) (rep *Report, err error) {
	rep = &Report{Job: o.job, RunID: uuid.New(), Started: time.Now()}
	log := o.log.With(zap.String("job", o.job), zap.Stringer("run_id", rep.RunID))
	defer func() { rep.Duration = time.Since(rep.Started) }()

	tables, err := o.Plan(ctx)
	if err != nil {
		return rep, fmt.Errorf("orchestrator: discover: %w", err)
	}
	if len(tables) == 0 {
		log.Info("orchestrator: no tables selected")
		return rep, nil
	}
	log.Info("orchestrator: run started",
		zap.Int("tables", len(tables)),
		zap.Int("workers", o.workers),
		zap.Int("batch_size", o.batchSize),
		zap.Int("buffer_size", o.bufferSize),
	)

	defer func() {
		if eerr := o.target.EnableChecks(context.WithoutCancel(ctx)); eerr != nil {
			err = errors.Join(err, fmt.Errorf("orchestrator: enable checks: %w", eerr))
		}
	}()
	if err := o.target.DisableChecks(ctx); err != nil {
		return rep, fmt.Errorf("orchestrator: disable checks: %w", err)
	}

	rep.Tables = make([]TableResult, len(tables))
	reader := stream.NewReader(o.source, stream.WithReaderLogger(log))
	writer := stream.NewWriter(o.target, stream.WithWriterLogger(log))

	g := new(errgroup.Group)
	g.SetLimit(o.workers)
	for i, td := range tables {
		g.Go(func() error {
			res := o.copyTable(ctx, reader, writer, td, log)
			rep.Tables[i] = res
			o.record(res)
			return nil
		})
	}
	_ = g.Wait()

	failed := len(rep.Failed())
	log.Info("orchestrator: run finished",
		zap.Int("tables", len(tables)),
		zap.Int("failed", failed),
		zap.Int64("rows_written", rep.RowsWritten()),
		zap.Duration("elapsed", time.Since(rep.Started)),
	)
	return rep, nil
}

// copyTable runs one table pipeline. It checks ctx only before starting; the
// pipeline itself is detached from cancellation so a started table finishes.
func (o *Orchestrator) copyTable(ctx context.Context, r *stream.Reader, w *stream.Writer, td schema.TableDefinition, log *zap.Logger) TableResult {
	res := TableResult{Table: td.Name()}
	if err := ctx.Err(); err != nil {
		res.Err = &ConcurrencyError{Table: td.Name(), Err: context.Cause(ctx)}
		log.Warn("orchestrator: table skipped", zap.String("table", td.Name()), zap.Error(err))
		return res
	}

	start := time.Now()
	pctx := context.WithoutCancel(ctx)
	ad := stream.NewAdapter(pctx, r.Produce(td), o.bufferSize)
	defer ad.Close()

	rows := stream.ApplyTransform(countRows(ad.All(), &res.RowsRead), o.transforms.For(td.Name()))
	wr, err := w.Consume(pctx, td, o.batchSize, rows)
	res.RowsWritten = wr.Rows
	res.Batches = wr.Batches
	res.Duration = time.Since(start)
	res.Err = err

	if err != nil {
		log.Error("orchestrator: table failed",
			zap.String("table", td.Name()),
			zap.Int64("rows_read", res.RowsRead),
			zap.Int64("rows_written", res.RowsWritten),
			zap.Error(err),
		)
		return res
	}
	log.Info("orchestrator: table copied",
		zap.String("table", td.Name()),
		zap.Int64("rows", res.RowsWritten),
		zap.Int("batches", res.Batches),
		zap.Duration("elapsed", res.Duration),
	)
	return res
}

func (o *Orchestrator) record(res TableResult) {
	metrics.RecordRows(o.job, res.Table, metrics.RowKindRead, res.RowsRead)
	metrics.RecordRows(o.job, res.Table, metrics.RowKindWritten, res.RowsWritten)
	metrics.RecordBatches(o.job, res.Table, int64(res.Batches))
	metrics.RecordTable(o.job, res.Table, res.Err, res.Duration)
	if o.observer != nil {
		o.observer(res)
	}
}

// countRows passes seq through, counting rows without an error.
func countRows(seq iter.Seq2[schema.RowUpdate, error], n *int64) iter.Seq2[schema.RowUpdate, error] {
	return func(yield func(schema.RowUpdate, error) bool) {
		for row, err := range seq {
			if err == nil {
				*n++
			}
			if !yield(row, err) {
				return
			}
		}
	}
}
