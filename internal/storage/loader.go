// This file implements the generic batch loop used by the writer: it drains
// encoded rows from a pull sequence, groups them into batches and hands each
// batch to a BatchFn. ExecBatch is the database/sql BatchFn: one transaction
// per batch, one exec of a prepared statement per row.
//
// Logging: on every successful flush, a concise progress line is emitted with
// running totals and instantaneous rows/sec since the previous flush.

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"math"
	"time"

	"go.uber.org/zap"
)

// BatchFn executes one batch and returns the per-row affected counts.
// Implementations must either apply the whole batch or none of it.
type BatchFn func(ctx context.Context, rows [][]any) ([]int64, error)

// LoadStats summarizes a LoadBatches call. Only committed batches count.
type LoadStats struct {
	Rows       int64
	Batches    int
	BatchSizes []int
	Affected   int64
}

// BatchError reports a failed batch. Batches before it stay committed.
type BatchError struct {
	Batch     int   // 1-based number of the failed batch
	Committed int64 // rows committed by earlier batches
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch #%d failed after %d committed rows: %v", e.Batch, e.Committed, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// LoadBatches drains rows, calling fn for every batchSize rows and once more
// for a non-empty remainder when the sequence completes.
//
// An error yielded by rows ends the loop without flushing the pending rows and
// is returned unchanged. A failed batch is returned as *BatchError.
// Cancellation returns ctx.Err() without flushing.
func LoadBatches(
	ctx context.Context,
	rows iter.Seq2[[]any, error],
	batchSize int,
	fn BatchFn,
	log *zap.Logger,
) (LoadStats, error) {
	var stats LoadStats
	if batchSize <= 0 {
		return stats, fmt.Errorf("batchSize must be > 0")
	}
	if fn == nil {
		return stats, fmt.Errorf("batch func must not be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}

	var (
		batch       = make([][]any, 0, batchSize)
		start       = time.Now()
		lastFlushTS = start
		lastTotal   int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		affected, err := fn(ctx, batch)
		n := len(batch)
		batch = batch[:0]
		if err != nil {
			log.Warn("loader: batch failed",
				zap.Int("batch", stats.Batches+1),
				zap.Int("rows", n),
				zap.Int64("committed", stats.Rows),
				zap.Error(err))
			return &BatchError{Batch: stats.Batches + 1, Committed: stats.Rows, Err: err}
		}

		allOK := len(affected) == n
		for _, a := range affected {
			stats.Affected += a
			if a != 1 {
				allOK = false
			}
		}
		stats.Batches++
		stats.Rows += int64(n)
		stats.BatchSizes = append(stats.BatchSizes, n)

		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(stats.Rows-lastTotal) / sinceLast.Seconds()
		}
		log.Info("loader: batch flushed",
			zap.Int("batch", stats.Batches),
			zap.Int("rows", n),
			zap.Bool("all_ok", allOK),
			zap.Float64("rps", math.Round(rps)),
			zap.Int64("total", stats.Rows),
			zap.Duration("elapsed", now.Sub(start).Truncate(time.Millisecond)),
			zap.Duration("since_last", sinceLast.Truncate(time.Millisecond)))
		lastFlushTS = now
		lastTotal = stats.Rows
		return nil
	}

	for row, err := range rows {
		if err != nil {
			log.Debug("loader: upstream failed, dropping pending rows", zap.Int("pending", len(batch)))
			return stats, err
		}
		if cerr := ctx.Err(); cerr != nil {
			return stats, cerr
		}
		batch = append(batch, row)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	pending := len(batch)
	if err := flush(); err != nil {
		return stats, err
	}
	log.Debug("loader: input closed", zap.Int("final_flush", pending), zap.Int64("total", stats.Rows))
	return stats, nil
}

// ExecBatch runs rows through stmt inside one transaction on conn. Any
// failure rolls the whole batch back.
func ExecBatch(ctx context.Context, conn *sql.Conn, stmt *sql.Stmt, rows [][]any) ([]int64, error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	txStmt := tx.StmtContext(ctx, stmt)
	defer txStmt.Close()

	affected := make([]int64, 0, len(rows))
	for i, row := range rows {
		res, err := txStmt.ExecContext(ctx, row...)
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("row %d of %d: %w", i+1, len(rows), err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			n = -1
		}
		affected = append(affected, n)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return affected, nil
}
