package results

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/resultdesk/internal/kvcache"
	c "github.com/unkn0wn-root/resultdesk/internal/kvcache/codec"
	"github.com/unkn0wn-root/resultdesk/internal/storage"
)

// countingStore is an in-memory ResultStore that records how often it is
// queried, so tests can assert that cache hits never reach the store.
type countingStore struct {
	docs      map[string]storage.Result
	findCalls int
	addCalls  int
	down      bool
}

var _ storage.ResultStore = (*countingStore)(nil)

var errStoreDown = errors.New("store unreachable")

func newCountingStore() *countingStore {
	return &countingStore{docs: make(map[string]storage.Result)}
}

func (s *countingStore) FindResult(_ context.Context, id string) (storage.Result, error) {
	s.findCalls++
	if s.down {
		return nil, errStoreDown
	}
	doc, ok := s.docs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return doc, nil
}

func (s *countingStore) AddResult(_ context.Context, r storage.Result) (string, error) {
	s.addCalls++
	if s.down {
		return "", errStoreDown
	}
	s.docs[r.ID()] = r
	return "oid-" + r.ID(), nil
}

type memEntry struct {
	v   []byte
	exp time.Time
}

type memProvider struct {
	m      map[string]memEntry
	sets   int
	setErr error // when set, Set fails
}

func newMemProvider() *memProvider { return &memProvider{m: make(map[string]memEntry)} }

func (p *memProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := p.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(p.m, key)
		return nil, false, nil
	}
	return e.v, true, nil
}

func (p *memProvider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	p.sets++
	if p.setErr != nil {
		return false, p.setErr
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	p.m[key] = memEntry{v: value, exp: exp}
	return true, nil
}

func (p *memProvider) Del(_ context.Context, key string) error { delete(p.m, key); return nil }
func (p *memProvider) Ping(_ context.Context) error            { return nil }
func (p *memProvider) Close(_ context.Context) error           { return nil }

func newTestService(t *testing.T, store *countingStore, mp *memProvider, ttl time.Duration) *Service {
	t.Helper()
	cache, err := kvcache.New(kvcache.Options[storage.Result]{
		Namespace: "result",
		Provider:  mp,
		Codec:     c.JSON[storage.Result]{},
	})
	if err != nil {
		t.Fatalf("kvcache.New: %v", err)
	}
	return New(store, cache, ttl, zap.NewNop())
}

func TestIngestThenLookupRoundTrips(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	svc := newTestService(t, store, newMemProvider(), time.Minute)

	doc := storage.Result{"id": "S1", "subjects": map[string]any{"math": float64(90)}}
	ins, err := svc.Ingest(ctx, doc)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if ins.ID != "S1" || ins.StoreID == "" {
		t.Fatalf("unexpected ids: %+v", ins)
	}

	got, err := svc.Lookup(ctx, "S1")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.ID() != "S1" {
		t.Fatalf("got %v", got)
	}
	subjects, _ := got["subjects"].(map[string]any)
	if subjects["math"] != float64(90) {
		t.Fatalf("subjects not preserved: %v", got)
	}
}

func TestLookupUnknownIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	svc := newTestService(t, store, newMemProvider(), time.Minute)

	if _, err := svc.Lookup(ctx, "UNKNOWN"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	// NotFound must not populate the cache: a second lookup hits the store
	// again.
	if _, err := svc.Lookup(ctx, "UNKNOWN"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if store.findCalls != 2 {
		t.Fatalf("findCalls = %d, want 2", store.findCalls)
	}
}

func TestColdLookupPopulatesCache(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	store.docs["S1"] = storage.Result{"id": "S1", "subjects": map[string]any{"math": float64(90)}}
	svc := newTestService(t, store, newMemProvider(), time.Minute)

	first, err := svc.Lookup(ctx, "S1")
	if err != nil {
		t.Fatalf("cold Lookup: %v", err)
	}
	if store.findCalls != 1 {
		t.Fatalf("findCalls after cold lookup = %d, want 1", store.findCalls)
	}

	second, err := svc.Lookup(ctx, "S1")
	if err != nil {
		t.Fatalf("warm Lookup: %v", err)
	}
	if store.findCalls != 1 {
		t.Fatalf("warm lookup reached the store: findCalls = %d", store.findCalls)
	}
	if first.ID() != second.ID() {
		t.Fatalf("warm value differs: %v vs %v", first, second)
	}
}

func TestTTLExpiryFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	store.docs["S1"] = storage.Result{"id": "S1", "subjects": map[string]any{"math": float64(90)}}
	svc := newTestService(t, store, newMemProvider(), 10*time.Millisecond)

	if _, err := svc.Lookup(ctx, "S1"); err != nil {
		t.Fatalf("cold Lookup: %v", err)
	}
	time.Sleep(25 * time.Millisecond)

	if _, err := svc.Lookup(ctx, "S1"); err != nil {
		t.Fatalf("post-expiry Lookup: %v", err)
	}
	if store.findCalls != 2 {
		t.Fatalf("findCalls = %d, want 2 (expired entry must not be served)", store.findCalls)
	}
}

func TestCacheHitSurvivesStoreOutage(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	svc := newTestService(t, store, newMemProvider(), time.Minute)

	doc := storage.Result{"id": "S1", "subjects": map[string]any{"math": float64(90)}}
	if _, err := svc.Ingest(ctx, doc); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	store.down = true
	got, err := svc.Lookup(ctx, "S1")
	if err != nil {
		t.Fatalf("Lookup during outage: %v", err)
	}
	if got.ID() != "S1" {
		t.Fatalf("got %v", got)
	}
	if store.findCalls != 0 {
		t.Fatalf("cache hit must not touch the store, findCalls = %d", store.findCalls)
	}
}

func TestIngestMissingIDRejectedWithoutSideEffects(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	mp := newMemProvider()
	svc := newTestService(t, store, mp, time.Minute)

	_, err := svc.Ingest(ctx, storage.Result{"subjects": map[string]any{"math": float64(90)}})
	if !errors.Is(err, ErrInvalidResult) {
		t.Fatalf("err = %v, want ErrInvalidResult", err)
	}
	if store.addCalls != 0 || mp.sets != 0 {
		t.Fatalf("validation failure must not write: addCalls=%d sets=%d", store.addCalls, mp.sets)
	}
}

func TestIngestMissingSubjectsRejectedWithoutSideEffects(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	mp := newMemProvider()
	svc := newTestService(t, store, mp, time.Minute)

	_, err := svc.Ingest(ctx, storage.Result{"id": "S1"})
	if !errors.Is(err, ErrInvalidResult) {
		t.Fatalf("err = %v, want ErrInvalidResult", err)
	}
	if store.addCalls != 0 || mp.sets != 0 {
		t.Fatalf("validation failure must not write: addCalls=%d sets=%d", store.addCalls, mp.sets)
	}
}

// TestIngestToleratesCacheWriteFailure pins the no-rollback semantics: once
// the insert succeeded, a failed cache write is logged and the ingestion
// still reports success. The next lookup misses and repopulates.
func TestIngestToleratesCacheWriteFailure(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	mp := newMemProvider()
	mp.setErr = errors.New("cache unreachable")
	svc := newTestService(t, store, mp, time.Minute)

	ins, err := svc.Ingest(ctx, storage.Result{"id": "S1", "subjects": map[string]any{"math": float64(90)}})
	if err != nil {
		t.Fatalf("Ingest must tolerate a cache write failure, got %v", err)
	}
	if ins.ID != "S1" || ins.StoreID == "" {
		t.Fatalf("unexpected ids: %+v", ins)
	}
	if store.addCalls != 1 {
		t.Fatalf("addCalls = %d, want 1", store.addCalls)
	}

	// Nothing cached, so the lookup falls back to the store.
	mp.setErr = nil
	if _, err := svc.Lookup(ctx, "S1"); err != nil {
		t.Fatalf("Lookup after failed cache write: %v", err)
	}
	if store.findCalls != 1 {
		t.Fatalf("findCalls = %d, want 1 (store fallback expected)", store.findCalls)
	}
}

func TestColdLookupStoreFailurePropagates(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	store.down = true
	svc := newTestService(t, store, newMemProvider(), time.Minute)

	if _, err := svc.Lookup(ctx, "S1"); !errors.Is(err, errStoreDown) {
		t.Fatalf("err = %v, want store error", err)
	}
}

func TestIngestStoreFailureAborts(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	store.down = true
	mp := newMemProvider()
	svc := newTestService(t, store, mp, time.Minute)

	_, err := svc.Ingest(ctx, storage.Result{"id": "S1", "subjects": map[string]any{"math": float64(90)}})
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("err = %v, want store error", err)
	}
	if mp.sets != 0 {
		t.Fatalf("failed insert must not reach the cache, sets = %d", mp.sets)
	}
}
