package webhook

import (
	"time"

	"github.com/garyellow/picfinder-linebot-go/internal/ratelimit"
)

// HandlerOption is a functional option for configuring Handler.
type HandlerOption func(*Handler)

// WithRateLimiter throttles outgoing replies.
func WithRateLimiter(l *ratelimit.Limiter) HandlerOption {
	return func(h *Handler) {
		h.limiter = l
	}
}

// WithMaxEventsPerWebhook caps how many events of one delivery are processed.
func WithMaxEventsPerWebhook(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxEventsPerWebhook = n
		}
	}
}

// WithMinReplyTokenLength rejects reply tokens shorter than n.
func WithMinReplyTokenLength(n int) HandlerOption {
	return func(h *Handler) {
		h.minReplyTokenLength = n
	}
}

// WithLoadingAnimation sets how long the loading indicator is shown.
// Zero disables it.
func WithLoadingAnimation(d time.Duration) HandlerOption {
	return func(h *Handler) {
		h.loadingSeconds = loadingSeconds(d)
	}
}

// loadingSeconds rounds d to the 5-60s grid LINE accepts.
func loadingSeconds(d time.Duration) int32 {
	if d <= 0 {
		return 0
	}
	secs := int32(d / time.Second)
	secs = (secs + 4) / 5 * 5
	return min(max(secs, 5), 60)
}
