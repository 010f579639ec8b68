package embedding

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

type countingProvider struct {
	Provider
	calls atomic.Int32
}

func (p *countingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.calls.Add(1)
	return p.Provider.Embed(ctx, text)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]float32, bool, error) {
	return nil, false, errors.New("connection refused")
}
func (brokenStore) Set(context.Context, string, []float32) error {
	return errors.New("connection refused")
}
func (brokenStore) Name() string { return "broken" }

func TestCached_HitSkipsProvider(t *testing.T) {
	inner := &countingProvider{Provider: NewMockEmbedder(6)}
	c := NewCached(inner, NewEmbeddingCache(10), WithNamespace("mock"))
	ctx := context.Background()

	first, err := c.Embed(ctx, "backend developer")
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Embed(ctx, "backend developer")
	if err != nil {
		t.Fatal(err)
	}
	if inner.calls.Load() != 1 {
		t.Errorf("provider called %d times, want 1", inner.calls.Load())
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatal("cached vector differs")
		}
	}
}

func TestCached_StoreErrorsFallThrough(t *testing.T) {
	inner := &countingProvider{Provider: NewMockEmbedder(4)}
	c := NewCached(inner, brokenStore{})
	vec, err := c.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 4 || inner.calls.Load() != 1 {
		t.Errorf("len=%d calls=%d", len(vec), inner.calls.Load())
	}
}

func TestCached_NamespaceSeparatesKeys(t *testing.T) {
	store := NewEmbeddingCache(10)
	a := NewCached(NewMockEmbedder(4), store, WithNamespace("a"))
	b := NewCached(NewMockEmbedder(4), store, WithNamespace("b"))
	if a.key("x") == b.key("x") {
		t.Error("namespaces should produce different keys")
	}
}
