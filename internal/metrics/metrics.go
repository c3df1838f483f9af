package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache names used as the "cache" label.
const (
	CacheDataset  = "dataset"
	CacheDuration = "duration"
	CacheSession  = "session"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Fetch metrics (dataset and audio downloads)
	FetchRequestsTotal   *prometheus.CounterVec
	FetchDurationSeconds *prometheus.HistogramVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
	CacheSize        *prometheus.GaugeVec
	DatasetAge       prometheus.Gauge

	// Session store metrics
	SessionEvictionsTotal prometheus.Counter

	// Search metrics
	SearchTotal *prometheus.CounterVec

	// Duration probe metrics
	DurationFallbackTotal *prometheus.CounterVec

	// Webhook metrics
	WebhookDurationSeconds *prometheus.HistogramVec
	WebhookRequestsTotal   *prometheus.CounterVec

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterWaitDuration *prometheus.HistogramVec

	// Singleflight metrics
	SingleflightDedupTotal *prometheus.CounterVec

	// Logging metrics
	LogRecordsDropped prometheus.Gauge

	// Warmup metrics
	WarmupTasksTotal *prometheus.CounterVec
	WarmupDuration   prometheus.Histogram
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	m := &Metrics{
		FetchRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "picfinder_fetch_requests_total",
				Help: "Total number of remote fetches by source and status",
			},
			[]string{"source", "status"}, // source: http, r2, audio; status: success, error, timeout
		),

		FetchDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "picfinder_fetch_duration_seconds",
				Help:    "Remote fetch duration in seconds by source",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			},
			[]string{"source"},
		),

		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "picfinder_cache_hits_total",
				Help: "Total number of cache hits by cache",
			},
			[]string{"cache"},
		),

		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "picfinder_cache_misses_total",
				Help: "Total number of cache misses by cache",
			},
			[]string{"cache"},
		),

		CacheSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "picfinder_cache_entries",
				Help: "Number of entries held by each cache",
			},
			[]string{"cache"},
		),

		DatasetAge: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "picfinder_dataset_age_seconds",
				Help: "Seconds since the dataset snapshot was fetched",
			},
		),

		SessionEvictionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "picfinder_session_evictions_total",
				Help: "Total number of sessions evicted from the result store",
			},
		),

		SearchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "picfinder_search_total",
				Help: "Total number of searches by mode and outcome",
			},
			[]string{"mode", "outcome"}, // mode: keyword, alternate, random; outcome: none, single, list
		),

		DurationFallbackTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "picfinder_duration_fallback_total",
				Help: "Total number of audio duration probes that fell back to the default",
			},
			[]string{"reason"}, // reason: fetch, decode
		),

		WebhookDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "picfinder_webhook_duration_seconds",
				Help:    "Webhook event processing duration in seconds by event type",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"event_type"}, // event_type: message, follow
		),

		WebhookRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "picfinder_webhook_requests_total",
				Help: "Total number of webhook events by event type and status",
			},
			[]string{"event_type", "status"}, // status: success, error
		),

		HTTPErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "picfinder_http_errors_total",
				Help: "Total HTTP errors by type and module",
			},
			[]string{"error_type", "module"}, // error_type: invalid_signature, reply_failed, panic
		),

		RateLimiterWaitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "picfinder_rate_limiter_wait_duration_seconds",
				Help:    "Time spent waiting for rate limiter token by limiter type",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"limiter_type"}, // limiter_type: reply
		),

		SingleflightDedupTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "picfinder_singleflight_dedup_total",
				Help: "Total number of deduplicated requests (requests that waited instead of executing)",
			},
			[]string{"module"},
		),

		LogRecordsDropped: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "picfinder_log_records_dropped",
				Help: "Log records discarded by the remote shipping queue since start",
			},
		),

		WarmupTasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "picfinder_warmup_tasks_total",
				Help: "Total number of warmup tasks by module and status",
			},
			[]string{"module", "status"},
		),

		WarmupDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "picfinder_warmup_duration_seconds",
				Help:    "Total duration of warmup process",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
		),
	}

	return m
}

// RecordFetch records a remote fetch with status
func (m *Metrics) RecordFetch(source, status string, duration float64) {
	m.FetchRequestsTotal.WithLabelValues(source, status).Inc()
	m.FetchDurationSeconds.WithLabelValues(source).Observe(duration)
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit(cache string) {
	m.CacheHitsTotal.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss(cache string) {
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

// SetCacheSize sets the entry count of a cache
func (m *Metrics) SetCacheSize(cache string, size int) {
	m.CacheSize.WithLabelValues(cache).Set(float64(size))
}

// SetDatasetAge sets the age of the current dataset snapshot
func (m *Metrics) SetDatasetAge(seconds float64) {
	m.DatasetAge.Set(seconds)
}

// RecordSessionEviction records one evicted session
func (m *Metrics) RecordSessionEviction() {
	m.SessionEvictionsTotal.Inc()
}

// RecordSearch records a search outcome for a mode
func (m *Metrics) RecordSearch(mode, outcome string) {
	m.SearchTotal.WithLabelValues(mode, outcome).Inc()
}

// RecordDurationFallback records a duration probe that returned the fallback
func (m *Metrics) RecordDurationFallback(reason string) {
	m.DurationFallbackTotal.WithLabelValues(reason).Inc()
}

// RecordWebhook records a webhook event
func (m *Metrics) RecordWebhook(eventType, status string, duration float64) {
	m.WebhookRequestsTotal.WithLabelValues(eventType, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(duration)
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType, module string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType, module).Inc()
}

// RecordRateLimiterWait records time spent waiting for rate limiter
func (m *Metrics) RecordRateLimiterWait(limiterType string, duration float64) {
	m.RateLimiterWaitDuration.WithLabelValues(limiterType).Observe(duration)
}

// RecordSingleflightDedup records a deduplicated request
func (m *Metrics) RecordSingleflightDedup(module string) {
	m.SingleflightDedupTotal.WithLabelValues(module).Inc()
}

// SetLogRecordsDropped sets the number of dropped log records
func (m *Metrics) SetLogRecordsDropped(n uint64) {
	m.LogRecordsDropped.Set(float64(n))
}

// RecordWarmupTask records a warmup task completion
func (m *Metrics) RecordWarmupTask(module, status string) {
	m.WarmupTasksTotal.WithLabelValues(module, status).Inc()
}

// RecordWarmupDuration records total warmup duration
func (m *Metrics) RecordWarmupDuration(duration float64) {
	m.WarmupDuration.Observe(duration)
}
