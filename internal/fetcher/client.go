// Package fetcher downloads remote documents and media over HTTP with
// retries, gzip handling and a randomized User-Agent.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/corpix/uarand"
	"github.com/klauspost/compress/gzip"

	domerrors "github.com/garyellow/picfinder-linebot-go/internal/errors"
	"github.com/garyellow/picfinder-linebot-go/internal/metrics"
)

// DefaultMaxBytes caps a single response body.
const DefaultMaxBytes = 32 << 20

// Client is an HTTP client for fetching whole documents with retries.
type Client struct {
	httpClient   *http.Client
	maxRetries   int
	initialDelay time.Duration
	maxBytes     int64
	accept       string
	userAgent    func() string

	metrics *metrics.Metrics
	source  string
}

// Option configures a Client.
type Option func(*Client)

// WithRetryDelay sets the first backoff delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.initialDelay = d }
}

// WithMaxBytes caps the accepted body size.
func WithMaxBytes(n int64) Option {
	return func(c *Client) { c.maxBytes = n }
}

// WithAccept sets the Accept header sent with each request.
func WithAccept(accept string) Option {
	return func(c *Client) { c.accept = accept }
}

// WithMetrics records each fetch under the given source label.
func WithMetrics(m *metrics.Metrics, source string) Option {
	return func(c *Client) {
		c.metrics = m
		c.source = source
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a fetch client. timeout bounds each attempt;
// maxRetries counts extra attempts after the first.
func NewClient(timeout time.Duration, maxRetries int, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		maxRetries:   maxRetries,
		initialDelay: time.Second,
		maxBytes:     DefaultMaxBytes,
		accept:       "*/*",
		userAgent:    uarand.GetRandom,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get downloads url and returns the full (decompressed) body.
// Failures are returned as *errors.FetchError.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()
	var body []byte

	err := RetryWithBackoff(ctx, c.maxRetries, c.initialDelay, func() error {
		b, err := c.getOnce(ctx, url)
		if err != nil {
			return err
		}
		body = b
		return nil
	})

	c.record(err, time.Since(start))
	if err != nil {
		var fe *domerrors.FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		return nil, domerrors.NewFetchError(url, 0, err)
	}
	return body, nil
}

func (c *Client) getOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &permanentError{err: domerrors.NewFetchError(url, 0, fmt.Errorf("failed to create request: %w", err))}
	}

	req.Header.Set("User-Agent", c.userAgent())
	req.Header.Set("Accept", c.accept)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domerrors.NewFetchError(url, 0, fmt.Errorf("request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := domerrors.NewFetchError(url, resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
		switch resp.StatusCode {
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return nil, statusErr
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, &permanentError{err: statusErr}
		}
		return nil, statusErr
	}

	var reader io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &permanentError{err: domerrors.NewFetchError(url, resp.StatusCode, fmt.Errorf("failed to decompress gzip: %w", err))}
		}
		defer func() { _ = gz.Close() }()
		reader = gz
	}

	data, err := io.ReadAll(io.LimitReader(reader, c.maxBytes+1))
	if err != nil {
		return nil, domerrors.NewFetchError(url, resp.StatusCode, fmt.Errorf("failed to read body: %w", err))
	}
	if int64(len(data)) > c.maxBytes {
		return nil, &permanentError{err: domerrors.NewFetchError(url, resp.StatusCode, fmt.Errorf("body exceeds %d bytes", c.maxBytes))}
	}
	if len(data) == 0 {
		return nil, &permanentError{err: domerrors.NewFetchError(url, resp.StatusCode, domerrors.ErrEmptyBody)}
	}
	return data, nil
}

func (c *Client) record(err error, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}
	status := "success"
	switch {
	case err == nil:
	case isTimeout(err):
		status = "timeout"
	default:
		status = "error"
	}
	c.metrics.RecordFetch(c.source, status, elapsed.Seconds())
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
