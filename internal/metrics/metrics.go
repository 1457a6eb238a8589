// Package metrics holds the Prometheus collectors of the ingestion pipeline.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "lexrag"

var (
	documentsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "documents_ingested_total",
			Help:      "The total number of ingested documents by outcome.",
		},
		[]string{"status"},
	)
	fragmentsIndexed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "fragments_indexed_total",
			Help:      "The total number of fragments inserted into document indexes.",
		},
	)
	fragmentsRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "fragments_rejected_total",
			Help:      "The total number of fragments rejected for an invalid level.",
		},
	)
	validationIssues = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "validation_issues_total",
			Help:      "The total number of structural issues found by validation.",
		},
		[]string{"severity"},
	)
	chunksCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chunker",
			Name:      "chunks_created_total",
			Help:      "The total number of chunks created by policy.",
		},
		[]string{"policy"},
	)
	overlapChunks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chunker",
			Name:      "overlap_chunks_total",
			Help:      "The total number of overlap chunks created.",
		},
	)
	embeddingCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "cache_total",
			Help:      "Embedding cache lookups by result.",
		},
		[]string{"result"},
	)
	ingestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "ingest_duration_seconds",
			Help:      "Time taken to ingest one document.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)

func init() {
	prometheus.MustRegister(
		documentsIngested,
		fragmentsIndexed,
		fragmentsRejected,
		validationIssues,
		chunksCreated,
		overlapChunks,
		embeddingCache,
		ingestDuration,
	)
}

// RecordDocument counts a document ingestion with status "ok" or "error".
func RecordDocument(status string, seconds float64) {
	documentsIngested.WithLabelValues(status).Inc()
	ingestDuration.Observe(seconds)
}

// RecordFragments counts indexed and rejected fragments.
func RecordFragments(indexed, rejected int) {
	fragmentsIndexed.Add(float64(indexed))
	fragmentsRejected.Add(float64(rejected))
}

// RecordValidation counts validation errors and warnings.
func RecordValidation(errors, warnings int) {
	validationIssues.WithLabelValues("error").Add(float64(errors))
	validationIssues.WithLabelValues("warning").Add(float64(warnings))
}

// RecordChunks counts chunks produced by a policy and how many were overlaps.
func RecordChunks(policy string, total, overlaps int) {
	chunksCreated.WithLabelValues(policy).Add(float64(total))
	overlapChunks.Add(float64(overlaps))
}

// RecordCacheHit counts an embedding cache hit.
func RecordCacheHit() {
	embeddingCache.WithLabelValues("hit").Inc()
}

// RecordCacheMiss counts an embedding cache miss.
func RecordCacheMiss() {
	embeddingCache.WithLabelValues("miss").Inc()
}
