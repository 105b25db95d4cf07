// Package cache provides a small in-process TTL cache. It exists to absorb
// repeated hits on slow upstreams (the legacy sheet endpoints in particular)
// within a short staleness window.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL caches loaded values per key for a fixed duration. Concurrent loads of
// the same key are serialized; the value cached is whichever load finished
// last.
type TTL[V any] struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]entry[V]

	now func() time.Time // stubbed in tests
}

func New[V any](ttl time.Duration) *TTL[V] {
	return &TTL[V]{
		ttl:     ttl,
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
}

// Get returns the cached value for key, or runs load and caches its result.
// Load errors are returned as-is and nothing is cached, so a failing upstream
// is retried on the next call.
func (c *TTL[V]) Get(key string, load func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.entries[key]; ok && c.now().Before(ent.expiresAt) {
		return ent.value, nil
	}
	return c.loadLocked(key, load)
}

// Refresh bypasses any cached value, reloading and re-caching key.
func (c *TTL[V]) Refresh(key string, load func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked(key, load)
}

func (c *TTL[V]) loadLocked(key string, load func() (V, error)) (V, error) {
	value, err := load()
	if err != nil {
		var zero V
		return zero, err
	}
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
	return value, nil
}

// Invalidate drops a single key.
func (c *TTL[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Flush drops every cached entry.
func (c *TTL[V]) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}
