package app

import (
	"context"
	"time"

	"github.com/garyellow/picfinder-linebot-go/internal/config"
	"github.com/garyellow/picfinder-linebot-go/internal/metrics"
)

// warmup loads the first dataset snapshot so the first user does not pay
// for the download. It gives up after WarmupWait; later requests retry.
func (a *Application) warmup(ctx context.Context) {
	a.logger.Debug("Warmup job started")
	defer a.logger.Debug("Warmup job stopped")
	defer a.warmedUp.Store(true)

	start := time.Now()
	warmupCtx, cancel := context.WithTimeout(ctx, a.cfg.WarmupWait)
	defer cancel()

	snap, err := a.datasets.Refresh(warmupCtx)
	duration := time.Since(start)
	if a.metrics != nil {
		a.metrics.RecordWarmupDuration(duration.Seconds())
	}
	if err != nil {
		a.logger.WithError(err).
			WithField("duration_ms", duration.Milliseconds()).
			Warn("Dataset warmup failed; will retry on first request")
		if a.metrics != nil {
			a.metrics.RecordWarmupTask("dataset", "error")
		}
		return
	}

	a.logger.WithField("records", snap.Len()).
		WithField("duration_ms", duration.Milliseconds()).
		Info("Dataset warmup completed")
	if a.metrics != nil {
		a.metrics.RecordWarmupTask("dataset", "success")
	}
}

// updateCacheMetrics periodically records cache sizes to Prometheus.
func (a *Application) updateCacheMetrics(ctx context.Context) {
	a.logger.Debug("Cache metrics job started")
	defer a.logger.Debug("Cache metrics job stopped")

	interval := a.cfg.MetricsUpdateInterval
	if interval <= 0 {
		interval = config.MetricsUpdateInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.recordCacheMetrics()
		}
	}
}

func (a *Application) recordCacheMetrics() {
	if a.metrics == nil {
		return
	}
	a.metrics.SetCacheSize(metrics.CacheDataset, a.datasets.Len())
	a.metrics.SetCacheSize(metrics.CacheDuration, a.durations.Len())
	a.metrics.SetCacheSize(metrics.CacheSession, a.sessions.Len())
	a.metrics.SetDatasetAge(a.datasets.Age().Seconds())
	a.metrics.SetLogRecordsDropped(a.logger.Dropped())
}
