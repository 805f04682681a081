// Package cache provides the in-process TTL caches used by the search
// pipeline: embeddings, expanded queries, and result pages each get their
// own instance with independent key space, TTL, and size bound.
//
// Caching here is a latency/cost optimization only; every caller must
// behave correctly when entries are missing.
package cache

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Params is the raw key material for a cache entry. Nil and empty-string
// values are dropped so that optional parameters never change identity.
type Params map[string]any

// Key derives a stable string key: sort keys alphabetically, drop empty
// values, join as "key:value|key:value". Parameter order never matters.
func Key(params Params) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", k, params[k]))
	}
	return strings.Join(parts, "|")
}

type entry[T any] struct {
	data      T
	timestamp time.Time
}

// Cache is a size-bounded TTL cache with insertion-order eviction. When
// the cache is full the oldest-inserted entry goes first; this is not an
// LRU, reads do not refresh position. Safe for concurrent use; a
// concurrent Set on the same key is last-write-wins.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]entry[T]
	order   []string
	ttl     time.Duration
	maxSize int

	now func() time.Time // overridable in tests
}

// New creates a cache with the given TTL and maximum entry count.
func New[T any](ttl time.Duration, maxSize int) *Cache[T] {
	return &Cache[T]{
		entries: make(map[string]entry[T]),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get returns the cached value for params if present and unexpired.
// Expired entries are removed on access.
func (c *Cache[T]) Get(params Params) (T, bool) {
	return c.GetKey(Key(params))
}

// GetKey is Get for a pre-derived key.
func (c *Cache[T]) GetKey(key string) (T, bool) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.timestamp) > c.ttl {
		c.remove(key)
		return zero, false
	}
	return e.data, true
}

// Set stores a value, evicting the oldest-inserted entry when full.
func (c *Cache[T]) Set(params Params, data T) {
	c.SetKey(Key(params), data)
}

// SetKey is Set for a pre-derived key.
func (c *Cache[T]) SetKey(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		for len(c.entries) >= c.maxSize && len(c.order) > 0 {
			c.remove(c.order[0])
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = entry[T]{data: data, timestamp: c.now()}
}

// Prune removes all expired entries.
func (c *Cache[T]) Prune() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for _, key := range append([]string(nil), c.order...) {
		if e, ok := c.entries[key]; ok && now.Sub(e.timestamp) > c.ttl {
			c.remove(key)
		}
	}
}

// Len reports the current number of entries.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops all entries.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[T])
	c.order = nil
}

// remove deletes a key from both the map and the insertion-order list.
// Caller holds c.mu.
func (c *Cache[T]) remove(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
