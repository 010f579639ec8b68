// Package search ranks stored resumes against a job description.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/resumatch/internal/embedding"
	"github.com/hyperjump/resumatch/internal/metrics"
	"github.com/hyperjump/resumatch/internal/models"
	"github.com/hyperjump/resumatch/internal/observability"
	"github.com/hyperjump/resumatch/internal/ranking"
	"github.com/hyperjump/resumatch/internal/storage"
	"github.com/hyperjump/resumatch/internal/vector"
	"go.uber.org/zap"
)

// Engine runs the query path: encode, nearest-neighbor query, score, rank.
type Engine struct {
	storage     storage.Storage
	provider    embedding.Provider
	vectorIndex vector.Index
	logger      *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a search engine. store is only used for document lookups and status;
// ranking never reads it.
func NewEngine(store storage.Storage, provider embedding.Provider, vectorIndex vector.Index, opts ...EngineOption) *Engine {
	e := &Engine{
		storage:     store,
		provider:    provider,
		vectorIndex: vectorIndex,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search returns at most topK matches for text, best first. An empty index or topK <= 0
// yields an empty list.
func (e *Engine) Search(ctx context.Context, text string, topK int) (matches []models.Match, err error) {
	ctx, span := observability.StartMatchSpan(ctx, topK)
	start := time.Now()
	defer func() {
		observability.RecordError(span, err)
		span.End()
		if err != nil {
			metrics.MatchTotal.WithLabelValues("error").Inc()
			return
		}
		metrics.MatchTotal.WithLabelValues("ok").Inc()
		metrics.MatchDuration.Observe(time.Since(start).Seconds())
	}()

	if topK <= 0 {
		return []models.Match{}, nil
	}
	count, err := e.vectorIndex.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count vectors: %w", err)
	}
	if count == 0 {
		return []models.Match{}, nil
	}
	vec, err := e.provider.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	neighbors, err := e.vectorIndex.Query(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}
	matches = ranking.Rank(neighbors, topK)
	e.logger.Debug("match completed",
		zap.Int("top_k", topK),
		zap.Int("matches", len(matches)),
		zap.Duration("took", time.Since(start)),
	)
	return matches, nil
}

// Stats returns the number of indexed vectors and their IDs in insertion order.
func (e *Engine) Stats(ctx context.Context) (models.Stats, error) {
	ids, err := e.vectorIndex.ListIDs(ctx)
	if err != nil {
		return models.Stats{}, fmt.Errorf("list ids: %w", err)
	}
	return models.Stats{Count: len(ids), IDs: ids}, nil
}

// Document returns the stored raw document for id.
func (e *Engine) Document(ctx context.Context, id string) (*models.Document, error) {
	return e.storage.GetDocument(ctx, id)
}

// Status reports document and vector counts, index type, encoder dimension and the disk
// usage of the given data paths.
func (e *Engine) Status(ctx context.Context, dataPaths ...string) (*models.Status, error) {
	docs, err := e.storage.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	vecs, err := e.vectorIndex.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count vectors: %w", err)
	}
	usage, err := storage.DiskUsageBytes(dataPaths...)
	if err != nil {
		e.logger.Warn("disk usage unavailable", zap.Error(err))
	}
	return &models.Status{
		Documents:      docs,
		Vectors:        vecs,
		IndexType:      e.vectorIndex.Type(),
		Dimensions:     e.provider.Dimensions(),
		DiskUsageBytes: usage,
	}, nil
}
