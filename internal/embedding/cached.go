package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/hyperjump/resumatch/internal/metrics"
	"go.uber.org/zap"
)

// Cached wraps a Provider with a CacheStore. Store failures are logged and the
// request falls through to the provider.
type Cached struct {
	inner     Provider
	store     CacheStore
	namespace string
	logger    *zap.Logger
}

// CachedOption configures a Cached provider.
type CachedOption func(*Cached)

// WithCacheLogger sets the logger used for cache failures.
func WithCacheLogger(l *zap.Logger) CachedOption {
	return func(c *Cached) { c.logger = l }
}

// WithNamespace prefixes cache keys, typically with the model name, so stores shared
// between models do not mix vectors.
func WithNamespace(ns string) CachedOption {
	return func(c *Cached) { c.namespace = ns }
}

// NewCached returns inner decorated with store.
func NewCached(inner Provider, store CacheStore, opts ...CachedOption) *Cached {
	c := &Cached{inner: inner, store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cached) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.namespace + ":" + hex.EncodeToString(sum[:])
}

// Embed returns the cached vector when available, otherwise encodes and stores it.
// Blank text bypasses the cache.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if IsBlank(text) {
		return c.inner.Embed(ctx, text)
	}
	key := c.key(text)
	vec, ok, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		metrics.EmbeddingCacheTotal.WithLabelValues(c.store.Name(), "error").Inc()
		c.logger.Warn("embedding cache get failed", zap.String("store", c.store.Name()), zap.Error(err))
	case ok && len(vec) == c.inner.Dimensions():
		metrics.EmbeddingCacheTotal.WithLabelValues(c.store.Name(), "hit").Inc()
		return vec, nil
	default:
		metrics.EmbeddingCacheTotal.WithLabelValues(c.store.Name(), "miss").Inc()
	}

	vec, err = c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, vec); err != nil {
		c.logger.Warn("embedding cache set failed", zap.String("store", c.store.Name()), zap.Error(err))
	}
	return vec, nil
}

// Dimensions returns the wrapped provider's dimension.
func (c *Cached) Dimensions() int {
	return c.inner.Dimensions()
}

// Close closes the wrapped provider. The store is owned by the caller.
func (c *Cached) Close() error {
	return c.inner.Close()
}
