package dataset

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	domerrors "github.com/garyellow/picfinder-linebot-go/internal/errors"
	"github.com/garyellow/picfinder-linebot-go/internal/logger"
	"github.com/garyellow/picfinder-linebot-go/internal/metrics"
)

// DefaultTTL is how long a snapshot is served before the next read refetches.
const DefaultTTL = 5 * time.Minute

const (
	refreshKey          = "dataset"
	defaultFetchTimeout = 10 * time.Second
)

// Cache serves the dataset snapshot, refetching synchronously once it is older than the TTL.
// A failed refresh returns the error and leaves the previous snapshot in place.
type Cache struct {
	source       Source
	cols         Columns
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	snap  atomic.Pointer[Snapshot]
	group singleflight.Group

	metrics *metrics.Metrics
	log     *logger.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithFetchTimeout bounds a single refresh.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) { c.fetchTimeout = d }
}

// WithMetrics records cache hits, misses and deduplicated refreshes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithLogger sets the logger used for refresh events.
func WithLogger(l *logger.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// NewCache creates a dataset cache. A non-positive ttl uses DefaultTTL.
func NewCache(source Source, cols Columns, ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		source:       source,
		cols:         cols,
		ttl:          ttl,
		fetchTimeout: defaultFetchTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the cached snapshot while it is fresh, otherwise refreshes it.
func (c *Cache) Snapshot(ctx context.Context) (*Snapshot, error) {
	if snap := c.snap.Load(); snap != nil && c.fresh(snap) {
		c.recordHit()
		return snap, nil
	}
	c.recordMiss()
	return c.refresh(ctx, false)
}

// Refresh fetches a new snapshot regardless of age.
func (c *Cache) Refresh(ctx context.Context) (*Snapshot, error) {
	return c.refresh(ctx, true)
}

// Current returns the last successful snapshot without refreshing; nil if none.
func (c *Cache) Current() *Snapshot {
	return c.snap.Load()
}

// Loaded reports whether at least one fetch has succeeded.
func (c *Cache) Loaded() bool {
	return c.snap.Load() != nil
}

// Age returns the time since the current snapshot was fetched, or 0 if none.
func (c *Cache) Age() time.Duration {
	snap := c.snap.Load()
	if snap == nil {
		return 0
	}
	return c.now().Sub(snap.FetchedAt)
}

// Len returns the number of records in the current snapshot.
func (c *Cache) Len() int {
	return c.snap.Load().Len()
}

func (c *Cache) fresh(snap *Snapshot) bool {
	return c.now().Sub(snap.FetchedAt) < c.ttl
}

func (c *Cache) refresh(ctx context.Context, force bool) (*Snapshot, error) {
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		// Another flight may have finished while this caller waited.
		if snap := c.snap.Load(); !force && snap != nil && c.fresh(snap) {
			return snap, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		return c.load(fetchCtx)
	})

	select {
	case res := <-ch:
		if res.Shared && c.metrics != nil {
			c.metrics.RecordSingleflightDedup(refreshKey)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	case <-ctx.Done():
		return nil, domerrors.NewFetchError(c.source.Name(), 0, ctx.Err())
	}
}

func (c *Cache) load(ctx context.Context) (*Snapshot, error) {
	start := c.now()

	data, err := c.source.Fetch(ctx)
	if err != nil {
		var fe *domerrors.FetchError
		if !errors.As(err, &fe) {
			err = domerrors.NewFetchError(c.source.Name(), 0, err)
		}
		c.logRefreshError(err)
		return nil, err
	}

	records, err := Parse(data, c.cols)
	if err != nil {
		c.logRefreshError(err)
		return nil, fmt.Errorf("dataset %s: %w", c.source.Name(), err)
	}

	snap := &Snapshot{
		Records:   records,
		FetchedAt: c.now(),
		Source:    c.source.Name(),
	}
	c.snap.Store(snap)

	if c.log != nil {
		c.log.WithModule("dataset").WithFields(map[string]any{
			"rows":        len(records),
			"source":      snap.Source,
			"duration_ms": snap.FetchedAt.Sub(start).Milliseconds(),
		}).InfoContext(ctx, "Dataset refreshed")
	}
	return snap, nil
}

func (c *Cache) logRefreshError(err error) {
	if c.log == nil {
		return
	}
	entry := c.log.WithModule("dataset").WithError(err)
	if c.snap.Load() != nil {
		entry.Warn("Dataset refresh failed, keeping previous snapshot")
		return
	}
	entry.Error("Dataset refresh failed")
}

func (c *Cache) recordHit() {
	if c.metrics != nil {
		c.metrics.RecordCacheHit(metrics.CacheDataset)
	}
}

func (c *Cache) recordMiss() {
	if c.metrics != nil {
		c.metrics.RecordCacheMiss(metrics.CacheDataset)
	}
}
