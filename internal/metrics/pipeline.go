package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Ingest and match pipeline metrics.
var (
	IngestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_total",
			Help:      "Documents ingested, by outcome",
		},
		[]string{"status"}, // "ok" / "skipped" / "error"
	)

	IngestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Time to encode and store one document",
			Buckets:   prometheus.DefBuckets,
		},
	)

	MatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_total",
			Help:      "Match queries, by outcome",
		},
		[]string{"status"},
	)

	MatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_duration_seconds",
			Help:      "Time to encode, search and rank one query",
			Buckets:   prometheus.DefBuckets,
		},
	)

	IndexedDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indexed_documents",
			Help:      "Number of vectors in the index",
		},
	)
)

var registerPipelineOnce sync.Once

// RegisterPipelineMetrics registers the ingest and match collectors with the default registry.
func RegisterPipelineMetrics() {
	registerPipelineOnce.Do(func() {
		prometheus.MustRegister(IngestTotal, IngestDuration, MatchTotal, MatchDuration, IndexedDocuments)
	})
}
