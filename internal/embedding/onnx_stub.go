//go:build !cgo

package embedding

import (
	"context"
	"errors"
)

// ONNXOptions configures an ONNXEmbedder.
type ONNXOptions struct {
	ModelPath      string
	TokenizerPath  string
	Dimensions     int
	MaxTokens      int
	IntraOpThreads int
}

// ONNXEmbedder stub type when built without CGO (see onnx.go for real implementation).
type ONNXEmbedder struct{}

// NewONNXEmbedder returns an error when built without CGO (ONNX not available).
func NewONNXEmbedder(_ ONNXOptions) (*ONNXEmbedder, error) {
	return nil, errors.New("ONNX embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

func (e *ONNXEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, &EncodingError{Err: errors.New("ONNX embedder unavailable")}
}

func (e *ONNXEmbedder) Dimensions() int { return 0 }

func (e *ONNXEmbedder) Close() error { return nil }
