package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Factory constructs the underlying provider on first use.
type Factory func(ctx context.Context) (Provider, error)

// Lazy defers model construction until the first non-blank Embed. Construction runs at
// most once successfully; concurrent first callers wait for it and share the instance.
// A failed construction is reported and retried by the next call.
type Lazy struct {
	factory    Factory
	dimensions int
	logger     *zap.Logger

	done     atomic.Bool
	mu       sync.Mutex
	provider Provider
}

// LazyOption configures a Lazy provider.
type LazyOption func(*Lazy)

// WithLogger sets a logger for model load events.
func WithLogger(l *zap.Logger) LazyOption {
	return func(z *Lazy) { z.logger = l }
}

// NewLazy returns a provider that builds its model with factory on demand.
func NewLazy(factory Factory, dimensions int, opts ...LazyOption) (*Lazy, error) {
	if factory == nil {
		return nil, fmt.Errorf("lazy provider: nil factory")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("lazy provider: dimensions must be positive, got %d", dimensions)
	}
	l := &Lazy{factory: factory, dimensions: dimensions, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Lazy) get(ctx context.Context) (Provider, error) {
	if l.done.Load() {
		return l.provider, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done.Load() {
		return l.provider, nil
	}
	l.logger.Info("loading embedding model")
	p, err := l.factory(ctx)
	if err != nil {
		l.logger.Warn("embedding model load failed", zap.Error(err))
		return nil, &EncodingError{Err: fmt.Errorf("load model: %w", err)}
	}
	if p == nil {
		return nil, encodingErrorf("load model: factory returned nil provider")
	}
	l.provider = p
	l.done.Store(true)
	return p, nil
}

// Loaded reports whether the model has been constructed.
func (l *Lazy) Loaded() bool {
	return l.done.Load()
}

// Embed returns the zero vector for blank text; otherwise it encodes with the model,
// loading it first if needed.
func (l *Lazy) Embed(ctx context.Context, text string) ([]float32, error) {
	if IsBlank(text) {
		return make([]float32, l.dimensions), nil
	}
	p, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	vec, err := p.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, ErrEncoding) {
			return nil, err
		}
		return nil, &EncodingError{Err: err}
	}
	if len(vec) != l.dimensions {
		return nil, encodingErrorf("model returned %d dimensions, expected %d", len(vec), l.dimensions)
	}
	return vec, nil
}

// Dimensions returns the configured output dimension.
func (l *Lazy) Dimensions() int {
	return l.dimensions
}

// Close releases the model if it was loaded. A later Embed loads it again.
// Close must not run concurrently with Embed.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.done.Load() {
		return nil
	}
	p := l.provider
	l.done.Store(false)
	l.provider = nil
	return p.Close()
}
