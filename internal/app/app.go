// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyellow/picfinder-linebot-go/internal/bot"
	"github.com/garyellow/picfinder-linebot-go/internal/buildinfo"
	"github.com/garyellow/picfinder-linebot-go/internal/config"
	"github.com/garyellow/picfinder-linebot-go/internal/dataset"
	"github.com/garyellow/picfinder-linebot-go/internal/fetcher"
	"github.com/garyellow/picfinder-linebot-go/internal/logger"
	"github.com/garyellow/picfinder-linebot-go/internal/media"
	"github.com/garyellow/picfinder-linebot-go/internal/metrics"
	"github.com/garyellow/picfinder-linebot-go/internal/r2client"
	"github.com/garyellow/picfinder-linebot-go/internal/ratelimit"
	"github.com/garyellow/picfinder-linebot-go/internal/reply"
	"github.com/garyellow/picfinder-linebot-go/internal/search"
	"github.com/garyellow/picfinder-linebot-go/internal/sentry"
	"github.com/garyellow/picfinder-linebot-go/internal/session"
	"github.com/garyellow/picfinder-linebot-go/internal/webhook"
)

const serviceName = "picfinder-linebot-go"

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg            *config.Config
	logger         *logger.Logger
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	datasets       *dataset.Cache
	durations      *media.DurationCache
	sessions       *session.Store
	webhookHandler *webhook.Handler
	server         *http.Server

	warmedUp atomic.Bool    // initial dataset load finished or gave up
	wg       sync.WaitGroup // background jobs
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterstackToken: cfg.BetterstackToken,
	})
	log = log.WithField("service", serviceName)
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// ContextHandler also serves package-level slog.*Context calls.
	slog.SetDefault(log.Logger)

	log.WithField("release", buildinfo.Release()).Info("Initializing application...")
	if cfg.BetterstackToken != "" {
		log.Info("Better Stack logging enabled")
	}

	if err := sentry.Initialize(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     buildinfo.Release(),
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed; error reporting disabled")
	} else if sentry.IsEnabled() {
		log.WithField("environment", cfg.SentryEnvironment).Info("Sentry error reporting enabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	source, err := newDatasetSource(ctx, cfg, m, log)
	if err != nil {
		return nil, fmt.Errorf("dataset source: %w", err)
	}
	datasets := dataset.NewCache(source, datasetColumns(cfg.Dataset), cfg.Dataset.TTL,
		dataset.WithFetchTimeout(config.DatasetFetch),
		dataset.WithMetrics(m),
		dataset.WithLogger(log),
	)

	audioClient := fetcher.NewClient(config.AudioProbe, 0,
		fetcher.WithAccept("audio/*, */*"),
		fetcher.WithMetrics(m, "audio"),
	)
	durations := media.NewDurationCache(audioClient,
		media.WithProbeTimeout(config.AudioProbe),
		media.WithMetrics(m),
		media.WithLogger(log),
	)

	engineOpts := []search.Option{search.WithMetrics(m)}
	if cfg.RandomRangeEnabled() {
		engineOpts = append(engineOpts, search.WithIDRange(cfg.RandomIDMin, cfg.RandomIDMax))
		log.WithField("min", cfg.RandomIDMin).WithField("max", cfg.RandomIDMax).Info("Random pick restricted to ID range")
	}
	engine := search.NewEngine(engineOpts...)

	sessions, err := session.NewStore(cfg.MaxSessions, m)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}

	processor := bot.NewProcessor(bot.ProcessorConfig{
		Datasets:       datasets,
		Engine:         engine,
		Sessions:       sessions,
		Composer:       reply.NewComposer(durations),
		Logger:         log,
		Metrics:        m,
		WebhookTimeout: cfg.WebhookTimeout,
	})

	replier, err := webhook.NewAPIReplier(cfg.LineChannelToken)
	if err != nil {
		return nil, fmt.Errorf("webhook: %w", err)
	}
	webhookHandler := webhook.NewHandler(webhook.HandlerConfig{
		ChannelSecret: cfg.LineChannelSecret,
		Replier:       replier,
		Processor:     processor,
		Metrics:       m,
		Logger:        log,
	},
		webhook.WithRateLimiter(ratelimit.New("reply", cfg.ReplyRateRPS, m)),
		webhook.WithLoadingAnimation(config.LoadingAnimation),
	)

	app := &Application{
		cfg:            cfg,
		logger:         log,
		metrics:        m,
		registry:       registry,
		datasets:       datasets,
		durations:      durations,
		sessions:       sessions,
		webhookHandler: webhookHandler,
	}

	gin.SetMode(gin.ReleaseMode)
	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.newRouter(),
		ReadHeaderTimeout: config.WebhookHTTPRead,
		ReadTimeout:       config.WebhookHTTPRead,
		WriteTimeout:      config.WebhookHTTPWrite,
		IdleTimeout:       config.WebhookHTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

// newDatasetSource picks R2 when enabled, otherwise the HTTP(S) export URL.
func newDatasetSource(ctx context.Context, cfg *config.Config, m *metrics.Metrics, log *logger.Logger) (dataset.Source, error) {
	if cfg.R2.Enabled {
		client, err := r2client.New(ctx, r2client.Config{
			Endpoint:    r2client.EndpointForAccount(cfg.R2.AccountID),
			AccessKeyID: cfg.R2.AccessKeyID,
			SecretKey:   cfg.R2.SecretAccessKey,
			BucketName:  cfg.R2.BucketName,
		})
		if err != nil {
			return nil, err
		}
		source := dataset.NewR2Source(client, cfg.R2.BucketName, cfg.R2.DatasetKey)

		probeCtx, cancel := context.WithTimeout(ctx, config.DatasetFetch)
		defer cancel()
		if err := source.Probe(probeCtx); err != nil {
			log.WithError(err).WithField("source", source.Name()).Warn("Dataset object not reachable yet")
		}
		log.WithField("source", source.Name()).Info("Dataset source: R2")
		return source, nil
	}

	client := fetcher.NewClient(config.DatasetFetch, cfg.Dataset.MaxRetries,
		fetcher.WithRetryDelay(config.FetchRetryInitial),
		fetcher.WithAccept("text/csv, */*"),
		fetcher.WithMetrics(m, "dataset"),
	)
	source := dataset.NewHTTPSource(client, cfg.Dataset.URL)
	log.WithField("source", source.Name()).Info("Dataset source: HTTP")
	return source, nil
}

func datasetColumns(d config.DatasetConfig) dataset.Columns {
	return dataset.Columns{
		ID:         d.ColumnID,
		Keyword:    d.ColumnKeyword,
		AltKeyword: d.ColumnAltKeyword,
		ImageURL:   d.ColumnImageURL,
		Episode:    d.ColumnEpisode,
		AudioURL:   d.ColumnAudioURL,
	}
}

// newRouter registers all HTTP routes.
func (a *Application) newRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if sentry.IsEnabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(a.logger))

	router.GET("/", a.redirectToGitHub)
	router.GET("/ping", a.ping)
	router.GET("/livez", a.livenessCheck)
	router.HEAD("/livez", a.livenessCheck)
	router.GET("/readyz", a.readinessCheck)
	router.HEAD("/readyz", a.readinessCheck)
	router.POST("/callback", a.webhookHandler.Handle)
	router.GET("/metrics",
		metricsAuthMiddleware(a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
	return router
}

func (a *Application) redirectToGitHub(c *gin.Context) {
	c.Redirect(http.StatusTemporaryRedirect, "https://github.com/garyellow/picfinder-linebot-go")
}

// ping is the container health probe.
func (a *Application) ping(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

// readinessCheck reports 503 until the first dataset snapshot is loaded.
// Once warmup has given up the service reports ready with a degraded dataset
// so that the webhook keeps answering.
func (a *Application) readinessCheck(c *gin.Context) {
	loaded := a.datasets.Loaded()
	if !loaded && !a.warmedUp.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "dataset warmup in progress",
		})
		return
	}

	datasetStatus := gin.H{"loaded": loaded}
	if loaded {
		datasetStatus["records"] = a.datasets.Len()
		datasetStatus["age_seconds"] = int64(a.datasets.Age().Seconds())
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"dataset": datasetStatus,
		"cache": gin.H{
			"sessions":  a.sessions.Len(),
			"durations": a.durations.Len(),
		},
	})
}

// Run starts the HTTP server and background jobs and blocks until SIGINT/SIGTERM.
//
// Shutdown order: cancel background jobs and wait for them, stop the HTTP
// server, drain webhook events, then flush Sentry and the logger.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	a.startHTTPServer()

	sig := a.waitForShutdownSignal()
	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

// startBackgroundJobs starts all background goroutines tracked by WaitGroup.
func (a *Application) startBackgroundJobs(ctx context.Context) {
	a.wg.Go(func() {
		a.warmup(ctx)
	})
	a.wg.Go(func() {
		a.updateCacheMetrics(ctx)
	})
}

// startHTTPServer starts the HTTP server in a goroutine.
func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

// waitForShutdownSignal blocks until SIGINT/SIGTERM is received.
func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown performs graceful shutdown of HTTP server and resources.
// Call it after background jobs have stopped.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.Info("Waiting for webhook events to complete...")
	if err := a.webhookHandler.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Webhook handler shutdown timeout")
	}

	if sentry.IsEnabled() && !sentry.Flush(5*time.Second) {
		a.logger.Warn("Sentry flush timed out")
	}

	a.logger.Info("Shutdown complete")
	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "logger shutdown: %v\n", err)
	}
	return nil
}
