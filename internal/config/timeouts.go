// Package config provides centralized timeout constants for the application.
//
// # LINE API Constraints
//
// LINE webhook has specific timing requirements:
//   - Reply token: valid for a short window, reply as soon as possible
//   - Webhook response: LINE expects a quick 200 OK acknowledgment
//   - Loading animation: shows for up to 60 seconds
package config

import "time"

// Webhook timeouts
const (
	// WebhookProcessing bounds handling of a single webhook event, including
	// a possible dataset refresh and an audio duration probe.
	WebhookProcessing = 30 * time.Second

	// WebhookHTTPRead is the HTTP server read timeout for webhook requests.
	WebhookHTTPRead = 10 * time.Second

	// WebhookHTTPWrite is the HTTP server write timeout.
	WebhookHTTPWrite = 15 * time.Second

	// WebhookHTTPIdle is the HTTP server idle timeout for keep-alive connections.
	WebhookHTTPIdle = 120 * time.Second

	// LoadingAnimation is how long the LINE loading indicator is shown (5-60s, multiple of 5).
	LoadingAnimation = 20 * time.Second
)

// Fetch timeouts
const (
	// DatasetFetch bounds a single dataset download.
	DatasetFetch = 10 * time.Second

	// AudioProbe bounds a single audio download for duration detection.
	AudioProbe = 15 * time.Second

	// FetchRetryInitial is the first backoff delay for dataset fetch retries.
	// Uses exponential backoff: 1s -> 2s -> 4s
	FetchRetryInitial = 1 * time.Second
)

// Background job intervals
const (
	// MetricsUpdateInterval is how often cache size metrics are updated.
	MetricsUpdateInterval = 1 * time.Minute

	// WarmupWait bounds the startup dataset load before the server reports ready anyway.
	WarmupWait = 30 * time.Second
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	GracefulShutdown = 30 * time.Second
)
