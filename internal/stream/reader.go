// Package stream moves rows of one table from a source to a target database:
// a push-style Reader, a bounded Adapter that turns pushes into a pull
// sequence, a Transform stage and a batching Writer.
package stream

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"dbstream/internal/schema"
	"dbstream/internal/storage"
)

// Producer pushes the rows of one table to emit, in source order. Run
// returns nil on completion, the error returned by emit verbatim, or the
// failure that stopped production.
type Producer interface {
	Run(ctx context.Context, emit func(schema.RowUpdate) error) error
}

// ProducerFunc adapts a function to Producer.
type ProducerFunc func(ctx context.Context, emit func(schema.RowUpdate) error) error

func (f ProducerFunc) Run(ctx context.Context, emit func(schema.RowUpdate) error) error {
	return f(ctx, emit)
}

// Reader produces table rows from a source database.
type Reader struct {
	db  storage.Database
	log *zap.Logger
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithReaderLogger sets the reader's logger.
func WithReaderLogger(l *zap.Logger) ReaderOption {
	return func(r *Reader) {
		if l != nil {
			r.log = l
		}
	}
}

// NewReader returns a Reader over db.
func NewReader(db storage.Database, opts ...ReaderOption) *Reader {
	r := &Reader{db: db, log: zap.NewNop()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Produce returns a cold producer for td. Nothing happens until Run, and Run
// may be called once.
func (r *Reader) Produce(td schema.TableDefinition) Producer {
	return &tableProducer{db: r.db, td: td, log: r.log.With(zap.String("table", td.Name()))}
}

type tableProducer struct {
	db   storage.Database
	td   schema.TableDefinition
	log  *zap.Logger
	used atomic.Bool
}

func (p *tableProducer) Run(ctx context.Context, emit func(schema.RowUpdate) error) error {
	if !p.used.CompareAndSwap(false, true) {
		return ErrProducerUsed
	}
	table := p.td.Name()

	conn, err := storage.Acquire(ctx, p.db, storage.RoleSource)
	if err != nil {
		return err
	}
	defer conn.Close()

	q := p.db.Dialect().SelectSQL(table, p.td.ColumnNames())
	rows, err := conn.QueryContext(ctx, q)
	if err != nil {
		return &RowReadError{Table: table, Err: err}
	}
	defer rows.Close()

	cols := p.td.Columns()
	holders := make([]any, len(cols))
	for i, c := range cols {
		holders[i] = c.Type.NewHolder()
	}

	var n int64
	for rows.Next() {
		if err := rows.Scan(holders...); err != nil {
			return &RowReadError{Table: table, Rows: n, Err: err}
		}
		values := make([]any, len(cols))
		for i, c := range cols {
			values[i] = c.Type.Decode(holders[i])
		}
		row, err := schema.NewRowUpdate(p.td, values)
		if err != nil {
			return &RowReadError{Table: table, Rows: n, Err: err}
		}
		if err := emit(row); err != nil {
			return err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return &RowReadError{Table: table, Rows: n, Err: err}
	}
	p.log.Debug("reader: table drained", zap.Int64("rows", n))
	return nil
}
