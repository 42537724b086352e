package stream

import (
	"context"
	"iter"
	"sync/atomic"

	"dbstream/internal/schema"
)

// DefaultBufferSize is the default number of signals an Adapter buffers.
const DefaultBufferSize = 5000

// signal is one message from producer to consumer: a row, a terminal error,
// or completion.
type signal struct {
	row  schema.RowUpdate
	err  error
	done bool
}

// Adapter runs a Producer on its own goroutine and exposes its rows as a
// single-use pull sequence. The producer blocks once capacity signals are
// buffered and resumes as the consumer drains them.
type Adapter struct {
	ch       chan signal
	cancel   context.CancelFunc
	finished chan struct{}
	runErr   error
	consumed atomic.Bool
}

// NewAdapter starts p immediately. A capacity <= 0 means DefaultBufferSize.
// Cancelling ctx, breaking out of All or calling Close stops the producer.
func NewAdapter(ctx context.Context, p Producer, capacity int) *Adapter {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	ctx, cancel := context.WithCancel(ctx)
	a := &Adapter{
		ch:       make(chan signal, capacity),
		cancel:   cancel,
		finished: make(chan struct{}),
	}
	go a.run(ctx, p)
	return a
}

func (a *Adapter) run(ctx context.Context, p Producer) {
	defer func() {
		close(a.ch)
		close(a.finished)
	}()

	send := func(s signal) error {
		select {
		case a.ch <- s:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	err := p.Run(ctx, func(row schema.RowUpdate) error {
		return send(signal{row: row})
	})
	a.runErr = err
	if err != nil {
		_ = send(signal{err: err})
		return
	}
	_ = send(signal{done: true})
}

// All returns the rows in production order. An error ends the sequence and is
// yielded once with a zero row. The sequence can be iterated once; later
// iterations yield ErrAdapterConsumed.
func (a *Adapter) All() iter.Seq2[schema.RowUpdate, error] {
	return func(yield func(schema.RowUpdate, error) bool) {
		if !a.consumed.CompareAndSwap(false, true) {
			yield(schema.RowUpdate{}, ErrAdapterConsumed)
			return
		}
		defer a.cancel()

		for {
			s, ok := <-a.ch
			if !ok {
				// Producer stopped without delivering a terminal signal.
				err := a.runErr
				if err == nil {
					err = context.Canceled
				}
				yield(schema.RowUpdate{}, err)
				return
			}
			switch {
			case s.done:
				return
			case s.err != nil:
				yield(schema.RowUpdate{}, s.err)
				return
			}
			if !yield(s.row, nil) {
				return
			}
		}
	}
}

// Close stops the producer and waits for its goroutine to exit.
func (a *Adapter) Close() {
	a.cancel()
	<-a.finished
}
