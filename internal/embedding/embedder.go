// Package embedding turns text into fixed-dimension vectors: model-backed providers
// (ONNX, OpenAI-compatible), a lazily constructed wrapper, and embedding caches.
package embedding

import (
	"context"
	"strings"
)

// Provider produces embeddings of a fixed dimension.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Close() error
}

// IsBlank reports whether text has no content to encode.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
