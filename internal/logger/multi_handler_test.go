package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func TestNewMultiHandler_NilFiltering(t *testing.T) {
	t.Parallel()
	mh := NewMultiHandler(nil, slog.NewJSONHandler(&bytes.Buffer{}, nil), nil)
	if len(mh.handlers) != 1 {
		t.Errorf("Expected 1 handler after filtering nils, got %d", len(mh.handlers))
	}
}

func TestMultiHandler_LevelFiltering(t *testing.T) {
	t.Parallel()
	var debugBuf, errorBuf bytes.Buffer
	mh := NewMultiHandler(
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&errorBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	)

	if !mh.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Enabled(debug) should be true when any handler accepts it")
	}

	slog.New(mh).Info("info message")
	if debugBuf.Len() == 0 {
		t.Error("debug handler should have received info message")
	}
	if errorBuf.Len() != 0 {
		t.Error("error handler should not have received info message")
	}
}

func TestMultiHandler_WithGroupAndAttrs(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	h := NewMultiHandler(slog.NewJSONHandler(&buf, nil)).
		WithGroup("request").
		WithAttrs([]slog.Attr{slog.String("id", "123")})

	slog.New(h).Info("test message")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}
	request, ok := entry["request"].(map[string]any)
	if !ok || request["id"] != "123" {
		t.Errorf("Expected request.id='123', got %v", entry)
	}
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("handler error") }

func TestMultiHandler_ErrorCollection(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	mh := NewMultiHandler(slog.NewJSONHandler(&buf, nil), failingHandler{})

	err := mh.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "test", 0))
	if buf.Len() == 0 {
		t.Error("healthy handler should still write")
	}
	if err == nil || err.Error() != "handler error" {
		t.Errorf("Expected 'handler error', got %v", err)
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) count(s string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Count(b.buf.Bytes(), []byte(s))
}

func TestMultiHandler_Concurrent(t *testing.T) {
	t.Parallel()
	var a, b lockedBuffer
	logger := slog.New(NewMultiHandler(slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil)))

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Go(func() {
			logger.Info("concurrent log", "iteration", i)
		})
	}
	wg.Wait()

	if got := a.count("concurrent log"); got != 100 {
		t.Errorf("first handler got %d logs, want 100", got)
	}
	if got := b.count("concurrent log"); got != 100 {
		t.Errorf("second handler got %d logs, want 100", got)
	}
}

func TestAsyncHandler_FlushOnShutdown(t *testing.T) {
	t.Parallel()
	var buf lockedBuffer
	async := NewAsyncHandler(slog.NewJSONHandler(&buf, nil), AsyncOptions{BufferSize: 16})
	logger := slog.New(async)

	for range 10 {
		logger.Info("queued")
	}
	if err := async.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if got := buf.count("queued"); got != 10 {
		t.Errorf("flushed %d records, want 10", got)
	}

	logger.Info("after shutdown")
	if got := buf.count("after shutdown"); got != 0 {
		t.Errorf("records after shutdown should be ignored, got %d", got)
	}
	if err := async.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error = %v, want nil", err)
	}
}

type blockingHandler struct {
	slog.Handler
	release chan struct{}
}

func (h blockingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h blockingHandler) Handle(context.Context, slog.Record) error {
	<-h.release
	return nil
}

func TestAsyncHandler_DropsWhenFull(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	async := NewAsyncHandler(blockingHandler{release: release}, AsyncOptions{BufferSize: 1})
	logger := slog.New(async)

	for range 5 {
		logger.Info("burst")
	}
	if async.Dropped() == 0 {
		t.Error("expected some records to be dropped with a full queue")
	}

	close(release)
	if err := async.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestAsyncHandler_LogDuringShutdown(t *testing.T) {
	t.Parallel()
	var buf lockedBuffer
	async := NewAsyncHandler(slog.NewJSONHandler(&buf, nil), AsyncOptions{BufferSize: 4})
	logger := slog.New(async).With("component", "remote")

	var wg sync.WaitGroup
	for range 4 {
		wg.Go(func() {
			for range 50 {
				logger.Info("racing")
			}
		})
	}
	if err := async.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	wg.Wait()

	if got := buf.count("racing") + int(async.Dropped()); got > 200 {
		t.Errorf("handled plus dropped = %d, want at most 200", got)
	}
}
