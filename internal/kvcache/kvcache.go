// Package kvcache implements a provider-agnostic, namespaced cache for typed
// values.
//
// Components:
//   - Provider: byte store with TTL (e.g. Redis, Ristretto, BigCache).
//   - Codec[V]: (de)serializes V <-> []byte.
//
// Keys are stored as <namespace>:<key>. Values are the raw codec output,
// byte-for-byte: external consumers of the backing store see exactly the
// serialized document, with no wrapping envelope.
package kvcache

import (
	"context"
	"fmt"
	"time"

	c "github.com/unkn0wn-root/resultdesk/internal/kvcache/codec"
	pr "github.com/unkn0wn-root/resultdesk/internal/kvcache/provider"
)

// Cache is the high-level, provider-agnostic cache API.
// V is the caller's value type. Serialization is handled by a pluggable
// Codec[V].
type Cache[V any] interface {
	// Get returns (value, true, nil) on hit and (zero, false, nil) on miss.
	// An undecodable entry is self-healed: deleted and reported as a miss.
	Get(ctx context.Context, key string) (v V, ok bool, err error)

	// Set stores value under key with the given TTL; ttl<=0 falls back to
	// the cache's default TTL.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error

	// Del removes the entry for key (best-effort).
	Del(ctx context.Context, key string) error

	// Ping probes the underlying provider.
	Ping(ctx context.Context) error

	Close(ctx context.Context) error
}

// Options tune the behavior of the cache.
// Only Namespace, Provider and Codec are required; others have defaults.
type Options[V any] struct {
	// Required
	Namespace string // logical namespace to avoid collisions, e.g. "result"
	Provider  pr.Provider
	Codec     c.Codec[V]

	Logger     Logger        // if nil, NopLogger is used
	DefaultTTL time.Duration // 0 => 10m
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}

type cache[V any] struct {
	ns         string
	provider   pr.Provider
	codec      c.Codec[V]
	log        Logger
	defaultTTL time.Duration
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("kvcache: provider is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("kvcache: codec is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("kvcache: namespace is required")
	}

	cc := &cache[V]{
		ns:       opts.Namespace,
		provider: opts.Provider,
		codec:    opts.Codec,
	}

	// defaults
	cc.log = coalesce[Logger](opts.Logger, NopLogger{})
	cc.defaultTTL = coalesce[time.Duration](opts.DefaultTTL, 10*time.Minute)

	return cc, nil
}

func (c *cache[V]) storageKey(key string) string {
	return c.ns + ":" + key
}

func (c *cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	k := c.storageKey(key)
	raw, ok, err := c.provider.Get(ctx, k)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := c.codec.Decode(raw)
	if err != nil {
		_ = c.provider.Del(ctx, k) // self-heal corrupt
		c.log.Warn("kvcache: dropped undecodable entry", Fields{"key": k, "err": err.Error()})
		return zero, false, nil
	}
	return v, true, nil
}

func (c *cache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	raw, err := c.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("kvcache: encode %q: %w", key, err)
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	k := c.storageKey(key)
	ok, err := c.provider.Set(ctx, k, raw, int64(len(raw)), ttl)
	if err != nil {
		return err
	}
	if !ok {
		// backpressure/eviction; next read falls through to the source
		c.log.Debug("kvcache: provider rejected set", Fields{"key": k})
	}
	return nil
}

func (c *cache[V]) Del(ctx context.Context, key string) error {
	return c.provider.Del(ctx, c.storageKey(key))
}

func (c *cache[V]) Ping(ctx context.Context) error {
	return c.provider.Ping(ctx)
}

func (c *cache[V]) Close(ctx context.Context) error {
	return c.provider.Close(ctx)
}

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
