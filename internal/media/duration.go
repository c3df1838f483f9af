// Package media resolves playback durations of remote audio assets.
package media

import (
	"context"
	"sync"
	"time"

	domerrors "github.com/garyellow/picfinder-linebot-go/internal/errors"
	"github.com/garyellow/picfinder-linebot-go/internal/logger"
	"github.com/garyellow/picfinder-linebot-go/internal/metrics"
)

// FallbackDurationMs is returned and cached when an asset cannot be fetched or decoded.
const FallbackDurationMs int64 = 3000

const defaultProbeTimeout = 15 * time.Second

// Fetcher downloads a whole asset. *fetcher.Client satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// DurationCache memoizes audio durations by URL. Entries never expire and
// fallback values are cached like real ones.
type DurationCache struct {
	fetcher Fetcher
	timeout time.Duration

	mu      sync.RWMutex
	entries map[string]int64

	metrics *metrics.Metrics
	log     *logger.Logger
}

// Option configures a DurationCache.
type Option func(*DurationCache)

// WithProbeTimeout bounds the fetch of a single asset.
func WithProbeTimeout(d time.Duration) Option {
	return func(c *DurationCache) { c.timeout = d }
}

// WithMetrics records hits, misses and fallbacks.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *DurationCache) { c.metrics = m }
}

// WithLogger logs fallbacks at warn level.
func WithLogger(l *logger.Logger) Option {
	return func(c *DurationCache) { c.log = l }
}

// NewDurationCache creates an empty duration cache.
func NewDurationCache(f Fetcher, opts ...Option) *DurationCache {
	c := &DurationCache{
		fetcher: f,
		timeout: defaultProbeTimeout,
		entries: make(map[string]int64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DurationMs returns the playback length of url in milliseconds. It never fails:
// fetch or decode problems yield FallbackDurationMs.
func (c *DurationCache) DurationMs(ctx context.Context, url string) int64 {
	c.mu.RLock()
	ms, ok := c.entries[url]
	c.mu.RUnlock()
	if ok {
		if c.metrics != nil {
			c.metrics.RecordCacheHit(metrics.CacheDuration)
		}
		return ms
	}
	if c.metrics != nil {
		c.metrics.RecordCacheMiss(metrics.CacheDuration)
	}

	ms, err := c.probe(ctx, url)
	if err != nil {
		ms = FallbackDurationMs
		c.recordFallback(ctx, url, err)
	}

	c.mu.Lock()
	c.entries[url] = ms
	c.mu.Unlock()
	return ms
}

// Len returns the number of cached entries.
func (c *DurationCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *DurationCache) probe(ctx context.Context, url string) (int64, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.fetcher.Get(fetchCtx, url)
	if err != nil {
		if !domerrors.IsFetchError(err) {
			err = domerrors.NewFetchError(url, 0, err)
		}
		return 0, err
	}

	d, err := ProbeDuration(data)
	if err != nil {
		return 0, domerrors.NewDecodeError(url, err)
	}
	ms := d.Milliseconds()
	if ms <= 0 {
		return 0, domerrors.NewDecodeError(url, errZeroDuration)
	}
	return ms, nil
}

func (c *DurationCache) recordFallback(ctx context.Context, url string, err error) {
	reason := "fetch"
	if domerrors.IsDecodeError(err) {
		reason = "decode"
	}
	if c.metrics != nil {
		c.metrics.RecordDurationFallback(reason)
	}
	if c.log != nil {
		c.log.WithModule("media").WithError(err).WithFields(map[string]any{
			"url":    url,
			"reason": reason,
		}).WarnContext(ctx, "Audio duration unavailable, using fallback")
	}
}
