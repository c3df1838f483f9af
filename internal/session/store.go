// Package session keeps the most recent result list of each chat so a numeric
// reply can be resolved against it.
package session

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	domerrors "github.com/garyellow/picfinder-linebot-go/internal/errors"
	"github.com/garyellow/picfinder-linebot-go/internal/dataset"
	"github.com/garyellow/picfinder-linebot-go/internal/metrics"
)

// DefaultCapacity is the number of sessions kept before the least recently
// searched one is evicted.
const DefaultCapacity = 800

// Store maps session IDs to their last result list with bounded LRU capacity.
// Only RecordResults changes recency; Resolve is a read-only peek.
type Store struct {
	cache   *lru.Cache[string, []dataset.Record]
	metrics *metrics.Metrics
}

// NewStore creates a store holding at most capacity sessions.
// A non-positive capacity uses DefaultCapacity. m may be nil.
func NewStore(capacity int, m *metrics.Metrics) (*Store, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s := &Store{metrics: m}
	cache, err := lru.NewWithEvict(capacity, s.onEvict)
	if err != nil {
		return nil, fmt.Errorf("session: create lru: %w", err)
	}
	s.cache = cache
	return s, nil
}

// RecordResults replaces the session's list and marks it most recently used.
// An empty list is stored as well, so a later numeric reply resolves to nothing.
func (s *Store) RecordResults(sessionID string, records []dataset.Record) {
	s.cache.Add(sessionID, records)
	if s.metrics != nil {
		s.metrics.SetCacheSize(metrics.CacheSession, s.cache.Len())
	}
}

// Resolve returns the first record in the session's list whose ID equals token.
// IDs compare as strings: "07" does not resolve "7".
// Returns ErrNotFound when the session is unknown or nothing matches.
func (s *Store) Resolve(sessionID, token string) (dataset.Record, error) {
	records, ok := s.cache.Peek(sessionID)
	if !ok {
		return dataset.Record{}, fmt.Errorf("session %s: %w", sessionID, domerrors.ErrNotFound)
	}
	for _, r := range records {
		if r.ID == token {
			return r, nil
		}
	}
	return dataset.Record{}, fmt.Errorf("session %s id %q: %w", sessionID, token, domerrors.ErrNotFound)
}

// Len returns the number of sessions currently held.
func (s *Store) Len() int {
	return s.cache.Len()
}

func (s *Store) onEvict(_ string, _ []dataset.Record) {
	if s.metrics != nil {
		s.metrics.RecordSessionEviction()
	}
}
