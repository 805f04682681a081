// Package expcache caches AI query expansions in process memory so a
// popular query only hits the chat provider once per TTL window.
package expcache

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/WebRenew/unicon-search/internal/cache"
)

// Expander is the consumer interface for query expansion.
type Expander interface {
	Expand(ctx context.Context, query string) (string, error)
}

// CachedExpander caches expansion results keyed by the normalized query.
type CachedExpander struct {
	inner      Expander
	cache      *cache.Cache[string]
	cacheTotal *prometheus.CounterVec
}

// New creates a caching decorator around inner. cacheTotal is a counter
// vec with labels {cache, result}; nil disables cache metrics.
func New(inner Expander, ttl time.Duration, maxSize int, cacheTotal *prometheus.CounterVec) *CachedExpander {
	return &CachedExpander{
		inner:      inner,
		cache:      cache.New[string](ttl, maxSize),
		cacheTotal: cacheTotal,
	}
}

// Expand returns a cached expansion or calls the inner expander.
// Failures are not cached, so a transient provider error does not pin a
// query to the fallback path for the whole TTL.
func (c *CachedExpander) Expand(ctx context.Context, query string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(query))

	if expanded, ok := c.cache.GetKey(key); ok {
		c.incCache("hit")
		return expanded, nil
	}

	c.incCache("miss")

	expanded, err := c.inner.Expand(ctx, query)
	if err != nil {
		return "", err
	}

	c.cache.SetKey(key, expanded)
	return expanded, nil
}

func (c *CachedExpander) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues("expansion", result).Inc()
	}
}
