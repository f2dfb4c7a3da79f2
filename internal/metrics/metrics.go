// Package metrics exposes Prometheus instrumentation for the ingestion
// pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_jobs_total",
		Help: "Ingestion jobs by final outcome.",
	}, []string{"status"})

	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingest_job_duration_seconds",
		Help:    "Wall time of one ingestion job.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	ChunksInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_chunks_inserted_total",
		Help: "Chunk rows persisted.",
	})

	ChunksEmbedded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_chunks_embedded_total",
		Help: "Chunks that received an embedding.",
	})

	EmbeddingFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_embedding_failures_total",
		Help: "Chunks left without an embedding after retries.",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ingest_queue_depth",
		Help: "Jobs waiting on the pending list.",
	})
)

// Handler serves the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
