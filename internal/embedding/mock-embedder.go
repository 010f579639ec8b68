package embedding

import (
	"context"
	"math"

	"github.com/hyperjump/resumatch/pkg/utils"
)

// MockEmbedder is a deterministic provider for tests and offline runs. The vector is
// derived from the text hash so the same text always gets the same unit vector.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns a mock provider of the given dimension (384 when <= 0).
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic unit vector, or the zero vector for blank text.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	emb := make([]float32, e.dimensions)
	if IsBlank(text) {
		return emb, nil
	}
	h := HashString(text)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
