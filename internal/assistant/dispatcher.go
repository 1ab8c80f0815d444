package assistant

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultWorkers bounds the number of events processed at once.
const DefaultWorkers = 8

// Handler produces the replies for one event.
type Handler interface {
	Handle(ctx context.Context, ev Event) []string
}

// Dispatcher receives events on a single loop and runs each event's
// blocking work on a bounded pool. The chunks of one event are delivered
// sequentially in order; events from different senders may interleave.
type Dispatcher struct {
	handler    Handler
	replier    Replier
	sem        *semaphore.Weighted
	chunkLimit int
	logger     *slog.Logger
}

// NewDispatcher creates a dispatcher. Non-positive workers and chunkLimit
// select the defaults.
func NewDispatcher(handler Handler, replier Replier, workers, chunkLimit int) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Dispatcher{
		handler:    handler,
		replier:    replier,
		sem:        semaphore.NewWeighted(int64(workers)),
		chunkLimit: chunkLimit,
		logger:     slog.Default().With("component", "dispatcher"),
	}
}

// Run processes events until the channel closes or ctx is done, then waits
// for in-flight events to finish. It returns nil when the channel closes.
func (d *Dispatcher) Run(ctx context.Context, events <-chan Event) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := d.sem.Acquire(ctx, 1); err != nil {
				return err
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer d.sem.Release(1)
				d.process(ctx, ev)
			}()
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked", "sender", ev.Sender, "panic", r)
		}
	}()

	chunks := Chunks(d.handler.Handle(ctx, ev), d.chunkLimit)
	for i, chunk := range chunks {
		if err := d.replier.Reply(ctx, ev.Sender, chunk); err != nil {
			level := slog.LevelError
			if errors.Is(err, context.Canceled) {
				level = slog.LevelDebug
			}
			d.logger.Log(ctx, level, "reply delivery failed",
				"sender", ev.Sender, "chunk", i+1, "chunks", len(chunks), "error", err)
			return
		}
	}
}
