package fetcher

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domerrors "github.com/garyellow/picfinder-linebot-go/internal/errors"
	"github.com/garyellow/picfinder-linebot-go/internal/metrics"
)

func TestClientGet_Success(t *testing.T) {
	t.Parallel()
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("編號,關鍵字\n1,貓\n"))
	}))
	defer srv.Close()

	c := NewClient(time.Second, 0)
	body, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "編號,關鍵字\n1,貓\n", string(body))
	assert.NotEmpty(t, gotUA, "expected a User-Agent header")
}

func TestClientGet_Gzip(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gzip", r.Header.Get("Accept-Encoding"))
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, _ = gz.Write([]byte("compressed payload"))
		_ = gz.Close()
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	body, err := NewClient(time.Second, 0).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "compressed payload", string(body))
}

func TestClientGet_RetriesServerErrors(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClient(time.Second, 3, WithRetryDelay(time.Millisecond))
	body, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientGet_ClientErrorIsPermanent(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(time.Second, 5, WithRetryDelay(time.Millisecond))
	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)

	var fe *domerrors.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	assert.Equal(t, srv.URL, fe.URL)
	assert.Equal(t, int32(1), calls.Load(), "4xx should not be retried")
}

func TestClientGet_EmptyBody(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := NewClient(time.Second, 2, WithRetryDelay(time.Millisecond)).Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domerrors.ErrEmptyBody))
	assert.True(t, domerrors.IsFetchError(err))
}

func TestClientGet_MaxBytes(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("a"), 64))
	}))
	defer srv.Close()

	_, err := NewClient(time.Second, 0, WithMaxBytes(16)).Get(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestClientGet_ConnectionRefused(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(time.Second, 0).Get(context.Background(), url)
	require.Error(t, err)
	assert.True(t, domerrors.IsFetchError(err))
}

func TestClientGet_Timeout(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	m := metrics.New(prometheus.NewRegistry())
	c := NewClient(50*time.Millisecond, 0, WithMetrics(m, "http"))
	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchRequestsTotal.WithLabelValues("http", "timeout")))
}

func TestClientGet_RecordsSuccessMetric(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	m := metrics.New(prometheus.NewRegistry())
	_, err := NewClient(time.Second, 0, WithMetrics(m, "audio")).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchRequestsTotal.WithLabelValues("audio", "success")))
}
