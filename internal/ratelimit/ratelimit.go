// Package ratelimit throttles outbound LINE API calls with a single
// process-wide token bucket.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/garyellow/picfinder-linebot-go/internal/metrics"
)

// Limiter wraps a token bucket and reports how long callers waited.
// It is safe for concurrent use.
type Limiter struct {
	name    string
	limiter *rate.Limiter
	metrics *metrics.Metrics
}

// New creates a limiter allowing rps events per second with a burst of
// max(1, ceil(rps)). A non-positive rps disables limiting.
func New(name string, rps float64, m *metrics.Metrics) *Limiter {
	if rps <= 0 {
		return &Limiter{name: name, limiter: rate.NewLimiter(rate.Inf, 0), metrics: m}
	}
	burst := max(int(math.Ceil(rps)), 1)
	return &Limiter{
		name:    name,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		metrics: m,
	}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()
	err := l.limiter.Wait(ctx)
	if l.metrics != nil {
		l.metrics.RecordRateLimiterWait(l.name, time.Since(start).Seconds())
	}
	if err != nil {
		return fmt.Errorf("ratelimit %s: %w", l.name, err)
	}
	return nil
}

// Allow reports whether a token is available now, consuming it if so.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Limit returns the configured rate in events per second.
func (l *Limiter) Limit() float64 {
	return float64(l.limiter.Limit())
}

// Burst returns the bucket size.
func (l *Limiter) Burst() int {
	return l.limiter.Burst()
}
