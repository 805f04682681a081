// Package embcache caches query embeddings in a key-value store so
// repeated searches do not pay the embedding provider twice.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/WebRenew/unicon-search/internal/cache"
	"github.com/WebRenew/unicon-search/internal/db"
	"github.com/WebRenew/unicon-search/internal/domain"
)

const cacheKeyPrefix = "unicon:emb:"

// store is the consumer interface for the embedding cache.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder caches embeddings in a key-value store. Vectors are
// keyed by a hash of the normalized text, so "Arrow " and "arrow" share
// an entry.
type CachedEmbedder struct {
	inner      domain.Embedder
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator around inner. cacheTotal is a counter
// vec with labels {cache, result}; nil disables cache metrics.
func New(
	inner domain.Embedder,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	return &CachedEmbedder{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Embed returns a cached embedding or calls the inner embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)

	if vec, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return vec, nil
	}

	c.incCache("miss")

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}

	c.putToCache(ctx, key, vec)
	return vec, nil
}

func (c *CachedEmbedder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues("embedding", result).Inc()
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	h := sha256.Sum256([]byte(normalized))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) getFromCache(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := domain.VectorFromBytes(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return vec, true
}

func (c *CachedEmbedder) putToCache(ctx context.Context, key string, vec []float32) {
	if err := c.store.SetWithTTL(ctx, key, domain.VectorToBytes(vec), c.ttl); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

// MemoryStore adapts an in-process cache to the key-value store
// interface, for deployments without Redis.
type MemoryStore struct {
	cache *cache.Cache[[]byte]
}

// NewMemoryStore creates an in-process embedding store.
func NewMemoryStore(ttl time.Duration, maxSize int) *MemoryStore {
	return &MemoryStore{cache: cache.New[[]byte](ttl, maxSize)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := m.cache.GetKey(key)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return data, nil
}

func (m *MemoryStore) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.cache.SetKey(key, value)
	return nil
}
