// Package results implements result lookup and ingestion.
//
// Lookup is cache-aside: the cache is consulted first and populated lazily on
// a store fallback. Results are immutable once ingested, so the fixed TTL is
// the only staleness bound and no invalidation path exists.
package results

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/resultdesk/internal/kvcache"
	"github.com/unkn0wn-root/resultdesk/internal/storage"
)

// ErrInvalidResult reports an ingestion payload missing a required field.
var ErrInvalidResult = errors.New("results: id and subjects are required")

// Ingested reports both identifiers of a stored result: the id the producer
// assigned and the internal id the store generated.
type Ingested struct {
	ID      string
	StoreID string
}

type Service struct {
	store storage.ResultStore
	cache kvcache.Cache[storage.Result]
	ttl   time.Duration
	log   *zap.Logger
}

func New(store storage.ResultStore, cache kvcache.Cache[storage.Result], ttl time.Duration, log *zap.Logger) *Service {
	return &Service{store: store, cache: cache, ttl: ttl, log: log}
}

// Lookup returns the result for studentID, preferring the cache. On a miss
// it falls back to the store and populates the cache with the same TTL used
// at ingestion. A hit short-circuits the store entirely, including for
// records deleted out-of-band within the TTL window.
func (s *Service) Lookup(ctx context.Context, studentID string) (storage.Result, error) {
	cached, ok, err := s.cache.Get(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("cache read %q: %w", studentID, err)
	}
	if ok {
		s.log.Debug("result served from cache", zap.String("id", studentID))
		return cached, nil
	}

	doc, err := s.store.FindResult(ctx, studentID)
	if err != nil {
		// ErrNotFound passes through; nothing is cached for absent ids.
		return nil, err
	}
	if err := s.cache.Set(ctx, studentID, doc, s.ttl); err != nil {
		return nil, fmt.Errorf("cache write %q: %w", studentID, err)
	}
	s.log.Debug("result cached after store fallback", zap.String("id", studentID))
	return doc, nil
}

// Ingest validates and stores a new result, then writes it through to the
// cache under the same key lookups use. A cache write failure after a
// successful insert is logged and tolerated: the next lookup misses and
// repopulates from the store.
func (s *Service) Ingest(ctx context.Context, doc storage.Result) (Ingested, error) {
	if doc.ID() == "" || doc.Subjects() == nil {
		return Ingested{}, ErrInvalidResult
	}

	storeID, err := s.store.AddResult(ctx, doc)
	if err != nil {
		return Ingested{}, fmt.Errorf("store result %q: %w", doc.ID(), err)
	}

	if err := s.cache.Set(ctx, doc.ID(), doc, s.ttl); err != nil {
		s.log.Warn("result stored but cache write failed",
			zap.String("id", doc.ID()), zap.Error(err))
	}
	return Ingested{ID: doc.ID(), StoreID: storeID}, nil
}
