// Package cache provides the in-process TTL stores backing the capability
// and decision caches. Expiry is checked lazily at access time; there is no
// background sweeper, so the package has no goroutines to manage.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a thread-safe key→value store where every entry carries the
// same time-to-live. A read at or after expiry is a miss, never a stale hit.
type TTLCache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	ttl     time.Duration

	now func() time.Time // overridable in tests
}

// New creates a TTLCache with the given entry lifetime.
func New[V any](ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the live value for key. Expired entries are removed on the
// way out and reported as a miss.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		// Only drop the entry we saw; a concurrent Set may have replaced it.
		if cur, ok := c.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, replacing any prior entry and restarting
// its lifetime.
func (c *TTLCache[V]) Set(key string, value V) {
	exp := c.now().Add(c.ttl)
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: exp}
	c.mu.Unlock()
}

// Delete removes key if present.
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len counts entries that are still live.
func (c *TTLCache[V]) Len() int {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}
