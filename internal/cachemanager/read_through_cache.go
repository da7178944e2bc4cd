package cachemanager

import (
	"context"
	"time"
)

// ReadThroughCache serves values from a cache and falls back to fn on a
// miss. Errors are never cached, and values rejected by the keep
// predicate are returned but not stored.
type ReadThroughCache[K comparable, V any, I any] struct {
	cache           CacheManager[K, V]
	fn              func(ctx context.Context, input I) (V, error)
	keep            func(V) bool
	shouldSkipCache bool
}

// NewReadThroughCache wraps fn. When shouldSkipCache is true every call
// goes to fn.
func NewReadThroughCache[K comparable, V any, I any](
	cache CacheManager[K, V],
	fn func(ctx context.Context, input I) (V, error),
	shouldSkipCache bool,
) *ReadThroughCache[K, V, I] {
	return &ReadThroughCache[K, V, I]{
		cache:           cache,
		fn:              fn,
		shouldSkipCache: shouldSkipCache,
	}
}

// WithKeep sets the predicate deciding whether a computed value is stored.
func (r *ReadThroughCache[K, V, I]) WithKeep(keep func(V) bool) *ReadThroughCache[K, V, I] {
	r.keep = keep
	return r
}

// Get returns the cached value for key, or computes it from input. hit
// reports whether the cache answered.
func (r *ReadThroughCache[K, V, I]) Get(ctx context.Context, key K, input I, ttl time.Duration) (value V, hit bool, err error) {
	if r.shouldSkipCache {
		value, err = r.fn(ctx, input)
		return value, false, err
	}

	if value, ok := r.cache.Get(ctx, key); ok {
		return value, true, nil
	}
	return r.fill(ctx, key, input, ttl)
}

// GetWithRefresh is Get, but a hit also restarts the entry's TTL.
func (r *ReadThroughCache[K, V, I]) GetWithRefresh(ctx context.Context, key K, input I, ttl time.Duration) (value V, hit bool, err error) {
	if r.shouldSkipCache {
		value, err = r.fn(ctx, input)
		return value, false, err
	}

	if value, ok := r.cache.GetWithRefresh(ctx, key, ttl); ok {
		return value, true, nil
	}
	return r.fill(ctx, key, input, ttl)
}

func (r *ReadThroughCache[K, V, I]) fill(ctx context.Context, key K, input I, ttl time.Duration) (V, bool, error) {
	value, err := r.fn(ctx, input)
	if err != nil {
		return value, false, err
	}
	if r.keep == nil || r.keep(value) {
		r.cache.Set(ctx, key, value, ttl)
	}
	return value, false, nil
}
