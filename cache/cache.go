// Package cache provides a small concurrent TTL cache with per-key
// single-flight fetching. Entries expire passively; expired entries are
// overwritten on the next fetch.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Entry holds a cached value and its absolute expiry.
type Entry[V any] struct {
	Value     V
	ExpiresAt time.Time
}

// Expired reports whether the entry's TTL has elapsed.
func (e Entry[V]) Expired() bool {
	return time.Now().After(e.ExpiresAt)
}

// Cache is a concurrent key -> value cache with TTL expiry. The zero value
// is not usable; call New.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]
	flight  singleflight.Group
}

// New creates an empty cache.
func New[V any]() *Cache[V] {
	return &Cache[V]{entries: make(map[string]Entry[V])}
}

// Get returns the live value for key, if any.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || entry.Expired() {
		var zero V
		return zero, false
	}
	return entry.Value, true
}

// Put stores value under key for the given TTL, overwriting any previous
// entry.
func (c *Cache[V]) Put(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = Entry[V]{Value: value, ExpiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// GetOrFetch returns the cached value for key, or runs fetch and caches the
// result. At most one fetch per key is in flight at a time; concurrent
// callers for the same key block until the first completes and all observe
// its result. Failed fetches are not cached.
//
// The winning fetch runs on the winning caller's context, so a waiter may
// receive a result even after its own context ends. Cancellation here is
// cooperative, not mandatory-abort.
func (c *Cache[V]) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err, _ := c.flight.Do(key, func() (any, error) {
		// Another caller may have populated the entry between our miss
		// and acquiring the flight.
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.Put(key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Sweep removes expired entries. Purely an allocation optimization; the
// cache is correct without ever calling it.
func (c *Cache[V]) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if e.Expired() {
			delete(c.entries, k)
		}
	}
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
