package stream

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"dbstream/internal/schema"
	"dbstream/internal/storage"
)

// DefaultBatchSize is the number of rows per insert transaction.
const DefaultBatchSize = 10000

// WriteResult summarizes what a Writer committed for one table.
type WriteResult struct {
	Table      string
	Rows       int64
	Batches    int
	BatchSizes []int
	Affected   int64
}

// Writer inserts rows into a target database in batches.
type Writer struct {
	db  storage.Database
	log *zap.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithWriterLogger sets the writer's logger.
func WithWriterLogger(l *zap.Logger) WriterOption {
	return func(w *Writer) {
		if l != nil {
			w.log = l
		}
	}
}

// NewWriter returns a Writer over db.
func NewWriter(db storage.Database, opts ...WriterOption) *Writer {
	w := &Writer{db: db, log: zap.NewNop()}
	for _, o := range opts {
		o(w)
	}
	return w
}

// encodeError marks a row that could not be bound.
type encodeError struct{ err error }

func (e *encodeError) Error() string { return e.err.Error() }

// Consume drains rows into td on one target connection. Every batchSize rows
// are committed in their own transaction; a remainder is flushed when rows
// completes.
//
// If rows yields an error, pending rows are dropped and that error is
// returned unchanged. A failed batch is rolled back and reported as
// *RowWriteError; earlier batches stay committed.
func (w *Writer) Consume(ctx context.Context, td schema.TableDefinition, batchSize int, rows iter.Seq2[schema.RowUpdate, error]) (WriteResult, error) {
	table := td.Name()
	res := WriteResult{Table: table}
	log := w.log.With(zap.String("table", table))
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	conn, err := storage.Acquire(ctx, w.db, storage.RoleTarget)
	if err != nil {
		return res, err
	}
	defer conn.Close()

	d := w.db.Dialect()
	if err := storage.ExecSession(ctx, conn, d.SessionInit, "session init"); err != nil {
		return res, fmt.Errorf("writer: %s: %w", table, err)
	}
	if len(d.SessionReset) > 0 {
		defer func() {
			if err := storage.ExecSession(context.WithoutCancel(ctx), conn, d.SessionReset, "session reset"); err != nil {
				log.Warn("writer: session reset failed", zap.Error(err))
			}
		}()
	}

	stmt, err := conn.PrepareContext(ctx, d.InsertSQL(table, td.ColumnNames()))
	if err != nil {
		return res, fmt.Errorf("writer: prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	args := func(yield func([]any, error) bool) {
		for row, err := range rows {
			if err != nil {
				yield(nil, err)
				return
			}
			a, err := row.Args()
			if err != nil {
				yield(nil, &encodeError{err: err})
				return
			}
			if !yield(a, nil) {
				return
			}
		}
	}

	exec := func(ctx context.Context, batch [][]any) ([]int64, error) {
		return storage.ExecBatch(ctx, conn, stmt, batch)
	}

	stats, err := storage.LoadBatches(ctx, args, batchSize, exec, log)
	res.Rows = stats.Rows
	res.Batches = stats.Batches
	res.BatchSizes = stats.BatchSizes
	res.Affected = stats.Affected
	if err != nil {
		var be *storage.BatchError
		if errors.As(err, &be) {
			return res, &RowWriteError{Table: table, Batch: be.Batch, Committed: be.Committed, Err: be.Err}
		}
		var ee *encodeError
		if errors.As(err, &ee) {
			return res, &RowWriteError{Table: table, Batch: stats.Batches + 1, Committed: stats.Rows, Err: ee.err}
		}
		return res, err
	}
	log.Info("writer: table written", zap.Int64("rows", res.Rows), zap.Int("batches", res.Batches))
	return res, nil
}
