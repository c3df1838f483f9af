package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultAsyncBufferSize   = 1024
	defaultAsyncFlushTimeout = 5 * time.Second
)

// AsyncOptions configures the remote shipping queue.
type AsyncOptions struct {
	BufferSize   int           // queued records before new ones are dropped (default 1024)
	FlushTimeout time.Duration // Shutdown wait when ctx has no deadline (default 5s)
}

type queuedRecord struct {
	ctx     context.Context
	record  slog.Record
	handler slog.Handler
}

// shipQueue is shared by an AsyncHandler and every handler derived from it.
// The records channel is never closed; stop tells the worker to drain what
// is buffered and exit.
type shipQueue struct {
	records      chan queuedRecord
	stop         chan struct{}
	done         chan struct{}
	stopOnce     sync.Once
	stopped      atomic.Bool
	dropped      atomic.Uint64
	flushTimeout time.Duration
}

func newShipQueue(opts AsyncOptions) *shipQueue {
	size := opts.BufferSize
	if size <= 0 {
		size = defaultAsyncBufferSize
	}
	timeout := opts.FlushTimeout
	if timeout <= 0 {
		timeout = defaultAsyncFlushTimeout
	}
	q := &shipQueue{
		records:      make(chan queuedRecord, size),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
		flushTimeout: timeout,
	}
	go q.run()
	return q
}

func (q *shipQueue) run() {
	defer close(q.done)
	for {
		select {
		case rec := <-q.records:
			_ = rec.handler.Handle(rec.ctx, rec.record)
		case <-q.stop:
			q.drain()
			return
		}
	}
}

func (q *shipQueue) drain() {
	for {
		select {
		case rec := <-q.records:
			_ = rec.handler.Handle(rec.ctx, rec.record)
		default:
			return
		}
	}
}

func (q *shipQueue) push(rec queuedRecord) {
	if q.stopped.Load() {
		return
	}
	select {
	case q.records <- rec:
	default:
		q.dropped.Add(1)
	}
}

func (q *shipQueue) close(ctx context.Context) error {
	q.stopOnce.Do(func() {
		q.stopped.Store(true)
		close(q.stop)
	})
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.flushTimeout)
		defer cancel()
	}
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AsyncHandler ships records to a slow handler (Better Stack) from a
// background goroutine. Records are dropped, and counted, when the queue
// is full.
type AsyncHandler struct {
	queue   *shipQueue
	handler slog.Handler
}

// NewAsyncHandler starts the shipping goroutine for handler.
func NewAsyncHandler(handler slog.Handler, opts AsyncOptions) *AsyncHandler {
	return &AsyncHandler{queue: newShipQueue(opts), handler: handler}
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle queues a clone of r; it never blocks.
func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.handler.Enabled(ctx, r.Level) {
		h.queue.push(queuedRecord{ctx: ctx, record: r.Clone(), handler: h.handler})
	}
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{queue: h.queue, handler: h.handler.WithAttrs(attrs)}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{queue: h.queue, handler: h.handler.WithGroup(name)}
}

// Dropped returns how many records were discarded because the queue was full.
func (h *AsyncHandler) Dropped() uint64 {
	if h == nil || h.queue == nil {
		return 0
	}
	return h.queue.dropped.Load()
}

// Shutdown stops accepting records and flushes the queue. Without a
// deadline on ctx it waits at most FlushTimeout. Safe to call twice.
func (h *AsyncHandler) Shutdown(ctx context.Context) error {
	if h == nil || h.queue == nil {
		return nil
	}
	return h.queue.close(ctx)
}
