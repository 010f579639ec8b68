package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hyperjump/resumatch/internal/config"
	"github.com/hyperjump/resumatch/internal/embedding"
	"github.com/hyperjump/resumatch/internal/extract"
	"github.com/hyperjump/resumatch/internal/indexer"
	"github.com/hyperjump/resumatch/internal/search"
	"github.com/hyperjump/resumatch/internal/storage"
	"github.com/hyperjump/resumatch/internal/vector"
	"go.uber.org/zap"
)

// Components holds initialized services.
type Components struct {
	Storage     storage.Storage
	Provider    embedding.Provider
	VectorIndex vector.Index
	Engine      *search.Engine
	Indexer     *indexer.Indexer

	closeCache func()
}

// Close releases every component in reverse order of construction.
func (c *Components) Close() {
	if c.Provider != nil {
		_ = c.Provider.Close()
	}
	if c.closeCache != nil {
		c.closeCache()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = store

	vectorIndex, err := vector.NewIndex(ctx, vector.Options{
		Type:       cfg.Storage.IndexType,
		Dir:        cfg.Storage.IndexDir,
		Dimensions: cfg.Embedding.Dimensions,
		Qdrant: vector.QdrantOptions{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			Collection: cfg.Qdrant.Collection,
		},
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	c.VectorIndex = vectorIndex
	logger.Info("vector index initialized",
		zap.String("type", vectorIndex.Type()),
		zap.String("dir", cfg.Storage.IndexDir),
	)

	provider, closeCache, err := newProvider(ctx, cfg, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	c.Provider = provider
	c.closeCache = closeCache

	c.Engine = search.NewEngine(store, provider, vectorIndex, search.WithLogger(logger))
	c.Indexer = indexer.NewIndexer(store, provider, vectorIndex, extract.NewExtractor(), indexer.WithLogger(logger))
	return c, nil
}

// newProvider builds the configured encoder behind a lazy loader and an embedding cache.
// The returned func closes the cache store.
func newProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (embedding.Provider, func(), error) {
	ec := cfg.Embedding
	var (
		factory   embedding.Factory
		namespace string
	)
	switch ec.Provider {
	case "onnx":
		namespace = "onnx:" + filepath.Base(ec.ModelPath)
		factory = func(context.Context) (embedding.Provider, error) {
			e, err := embedding.NewONNXEmbedder(embedding.ONNXOptions{
				ModelPath:      ec.ModelPath,
				TokenizerPath:  ec.TokenizerPath,
				Dimensions:     ec.Dimensions,
				MaxTokens:      ec.MaxTokens,
				IntraOpThreads: ec.IntraOpThreads,
			})
			if err != nil {
				return nil, err
			}
			return e, nil
		}
	case "openai":
		namespace = "openai:" + ec.OpenAI.Model
		factory = func(context.Context) (embedding.Provider, error) {
			e, err := embedding.NewOpenAIEmbedder(embedding.OpenAIOptions{
				APIKey:     ec.OpenAI.APIKey,
				BaseURL:    ec.OpenAI.BaseURL,
				Model:      ec.OpenAI.Model,
				Dimensions: ec.Dimensions,
			})
			if err != nil {
				return nil, err
			}
			return e, nil
		}
	case "mock":
		namespace = "mock"
		factory = func(context.Context) (embedding.Provider, error) {
			return embedding.NewMockEmbedder(ec.Dimensions), nil
		}
	default:
		return nil, nil, fmt.Errorf("unknown embedding provider %q (supported: onnx, openai, mock)", ec.Provider)
	}

	lazy, err := embedding.NewLazy(factory, ec.Dimensions, embedding.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}

	if len(cfg.Cache.RedisAddrs) > 0 {
		rc, err := embedding.NewRedisCache(embedding.RedisCacheConfig{
			Addrs:    cfg.Cache.RedisAddrs,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      cfg.Cache.TTL,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := rc.Ping(ctx); err != nil {
			logger.Warn("redis embedding cache unreachable", zap.Strings("addrs", cfg.Cache.RedisAddrs), zap.Error(err))
		}
		return embedding.NewCached(lazy, rc,
			embedding.WithNamespace(namespace),
			embedding.WithCacheLogger(logger),
		), rc.Close, nil
	}
	if ec.CacheSize > 0 {
		return embedding.NewCached(lazy, embedding.NewEmbeddingCache(ec.CacheSize),
			embedding.WithNamespace(namespace),
			embedding.WithCacheLogger(logger),
		), func() {}, nil
	}
	return lazy, func() {}, nil
}
