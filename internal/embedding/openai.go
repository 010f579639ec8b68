package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIOptions configures an OpenAIEmbedder.
type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// NewOpenAIEmbedder creates the client. No request is made until Embed.
func NewOpenAIEmbedder(opts OpenAIOptions) (*OpenAIEmbedder, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("openai embedder: model is required")
	}
	if opts.Dimensions <= 0 {
		return nil, fmt.Errorf("openai embedder: dimensions must be positive")
	}
	clientCfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		clientCfg.BaseURL = opts.BaseURL
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(opts.Model),
		dimensions: opts.Dimensions,
	}, nil
}

// Embed requests one embedding. API failures are returned as *EncodingError.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		Dimensions:     e.dimensions,
	}
	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		observe(providerOpenAI, start, "api_error")
		return nil, parseAPIError(err)
	}
	if len(resp.Data) == 0 {
		observe(providerOpenAI, start, "empty_response")
		return nil, encodingErrorf("empty embedding response")
	}
	vec := resp.Data[0].Embedding
	if len(vec) != e.dimensions {
		observe(providerOpenAI, start, "dimension")
		return nil, encodingErrorf("model returned %d dimensions, expected %d", len(vec), e.dimensions)
	}
	observe(providerOpenAI, start, "")
	return vec, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the HTTP client holds no resources.
func (e *OpenAIEmbedder) Close() error {
	return nil
}

func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return encodingErrorf("embedding API error %d: %s", reqErr.HTTPStatusCode, detail)
		}
		return encodingErrorf("embedding API error %d: %s", reqErr.HTTPStatusCode, string(reqErr.Body))
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return encodingErrorf("embedding API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	return &EncodingError{Err: fmt.Errorf("embedding request failed: %w", err)}
}

// extractDetail reads the "detail" field some compatible servers put in error bodies.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
