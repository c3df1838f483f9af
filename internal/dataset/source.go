package dataset

import (
	"context"
	"errors"
	"fmt"

	domerrors "github.com/garyellow/picfinder-linebot-go/internal/errors"
	"github.com/garyellow/picfinder-linebot-go/internal/fetcher"
	"github.com/garyellow/picfinder-linebot-go/internal/r2client"
)

// Source fetches the raw dataset document.
type Source interface {
	// Fetch returns the document bytes or a *errors.FetchError.
	Fetch(ctx context.Context) ([]byte, error)
	// Name identifies the source in logs and snapshots.
	Name() string
}

// HTTPSource reads the dataset from an HTTP(S) CSV export.
type HTTPSource struct {
	client *fetcher.Client
	url    string
}

// NewHTTPSource creates a source backed by the given fetch client.
func NewHTTPSource(client *fetcher.Client, url string) *HTTPSource {
	return &HTTPSource{client: client, url: url}
}

// Fetch downloads the CSV export.
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	return s.client.Get(ctx, s.url)
}

// Name returns the export URL.
func (s *HTTPSource) Name() string {
	return s.url
}

// objectReader is the subset of *r2client.Client used by R2Source.
type objectReader interface {
	ReadObject(ctx context.Context, key string, maxBytes int64) ([]byte, string, error)
	HeadObject(ctx context.Context, key string) (string, error)
}

// R2Source reads the dataset from an object in Cloudflare R2.
// Keys ending in ".zst" are decompressed.
type R2Source struct {
	client objectReader
	bucket string
	key    string
}

// NewR2Source creates a source reading bucket/key through client.
func NewR2Source(client *r2client.Client, bucket, key string) *R2Source {
	return &R2Source{client: client, bucket: bucket, key: key}
}

// Fetch downloads and, if needed, decompresses the object.
func (s *R2Source) Fetch(ctx context.Context) ([]byte, error) {
	data, _, err := s.client.ReadObject(ctx, s.key, fetcher.DefaultMaxBytes)
	if err != nil {
		return nil, domerrors.NewFetchError(s.Name(), 0, err)
	}
	if len(data) == 0 {
		return nil, domerrors.NewFetchError(s.Name(), 0, domerrors.ErrEmptyBody)
	}
	return data, nil
}

// Probe checks that the object exists without downloading it.
func (s *R2Source) Probe(ctx context.Context) error {
	if _, err := s.client.HeadObject(ctx, s.key); err != nil {
		if errors.Is(err, r2client.ErrNotFound) {
			return domerrors.NewFetchError(s.Name(), 404, err)
		}
		return domerrors.NewFetchError(s.Name(), 0, err)
	}
	return nil
}

// Name returns an r2:// locator for the object.
func (s *R2Source) Name() string {
	return fmt.Sprintf("r2://%s/%s", s.bucket, s.key)
}
