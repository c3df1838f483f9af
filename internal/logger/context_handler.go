package logger

import (
	"context"
	"log/slog"

	"github.com/garyellow/picfinder-linebot-go/internal/ctxutil"
)

// contextFields lists the tracing values copied from the context onto
// every record, in output order.
var contextFields = []struct {
	key string
	get func(context.Context) string
}{
	{"session_id", ctxutil.GetSessionID},
	{"chat_id", ctxutil.GetChatID},
	{"request_id", func(ctx context.Context) string {
		id, _ := ctxutil.GetRequestID(ctx)
		return id
	}},
	{"event_id", ctxutil.GetEventID},
}

// ContextHandler decorates a slog.Handler with the tracing values carried
// by the context, so call sites only need the *Context logging methods.
type ContextHandler struct {
	next slog.Handler
}

// NewContextHandler wraps next.
func NewContextHandler(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle never observes ctx cancellation; ctx is only read for values.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		for _, f := range contextFields {
			if v := f.get(ctx); v != "" {
				r.AddAttrs(slog.String(f.key, v))
			}
		}
	}
	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewContextHandler(h.next.WithAttrs(attrs))
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return NewContextHandler(h.next.WithGroup(name))
}
