package embedding

import (
	"time"

	"github.com/hyperjump/resumatch/internal/metrics"
)

const (
	providerONNX   = "onnx"
	providerOpenAI = "openai"
)

func observe(provider string, start time.Time, errType string) {
	if errType != "" {
		metrics.EmbeddingRequestsTotal.WithLabelValues(provider, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(provider, errType).Inc()
		return
	}
	metrics.EmbeddingRequestsTotal.WithLabelValues(provider, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}
