// Package metrics collects business metrics for the assistant service
// and exposes them through a Prometheus registry.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the service's Prometheus collectors plus a few plain
// counters surfaced by the stats endpoint.
type Metrics struct {
	registry *prometheus.Registry

	queriesTotal     *prometheus.CounterVec
	cacheEvents      *prometheus.CounterVec
	retrievalSeconds prometheus.Histogram
	retrievalErrors  prometheus.Counter
	retrievalHits    prometheus.Histogram

	generationSeconds  *prometheus.HistogramVec
	generationAttempts prometheus.Histogram
	generationFallback prometheus.Counter
	generationErrors   *prometheus.CounterVec
	generationTokens   *prometheus.CounterVec

	documentsIngested prometheus.Counter
	chunksIngested    prometheus.Counter
	ingestionErrors   prometheus.Counter

	// plain counters for /v1/stats
	queries   atomic.Uint64
	cacheHits atomic.Uint64
	fallbacks atomic.Uint64
	startTime time.Time
}

// New builds a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),

		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "askdocs_queries_total",
			Help: "Queries processed, by routed tool and outcome.",
		}, []string{"tool", "outcome"}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "askdocs_cache_events_total",
			Help: "Query cache hits and misses.",
		}, []string{"event"}),
		retrievalSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "askdocs_retrieval_duration_seconds",
			Help:    "Latency of vector retrieval.",
			Buckets: prometheus.DefBuckets,
		}),
		retrievalErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "askdocs_retrieval_errors_total",
			Help: "Retrieval failures (backend or embedding).",
		}),
		retrievalHits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "askdocs_retrieval_results",
			Help:    "Number of chunks returned per retrieval.",
			Buckets: []float64{0, 1, 2, 4, 8, 16},
		}),
		generationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "askdocs_generation_duration_seconds",
			Help:    "Latency of LLM generation, by provider.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider"}),
		generationAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "askdocs_generation_attempts",
			Help:    "Attempts consumed per successful generation.",
			Buckets: []float64{1, 2, 3, 4, 5, 6},
		}),
		generationFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "askdocs_generation_fallbacks_total",
			Help: "Generations served by a non-primary chain entry.",
		}),
		generationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "askdocs_generation_errors_total",
			Help: "Generation failures, by provider.",
		}, []string{"provider"}),
		generationTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "askdocs_generation_tokens_total",
			Help: "Tokens consumed, by direction.",
		}, []string{"direction"}),
		documentsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "askdocs_documents_ingested_total",
			Help: "Documents ingested.",
		}),
		chunksIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "askdocs_chunks_ingested_total",
			Help: "Chunks written to the store.",
		}),
		ingestionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "askdocs_ingestion_errors_total",
			Help: "Ingestion failures.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.queriesTotal,
		m.cacheEvents,
		m.retrievalSeconds,
		m.retrievalErrors,
		m.retrievalHits,
		m.generationSeconds,
		m.generationAttempts,
		m.generationFallback,
		m.generationErrors,
		m.generationTokens,
		m.documentsIngested,
		m.chunksIngested,
		m.ingestionErrors,
	)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordQuery records one processed query.
func (m *Metrics) RecordQuery(tool string, err error) {
	m.queries.Add(1)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.queriesTotal.WithLabelValues(tool, outcome).Inc()
}

// RecordCache records a cache lookup result.
func (m *Metrics) RecordCache(hit bool) {
	if hit {
		m.cacheHits.Add(1)
		m.cacheEvents.WithLabelValues("hit").Inc()
		return
	}
	m.cacheEvents.WithLabelValues("miss").Inc()
}

// RecordRetrieval records one retrieval round trip.
func (m *Metrics) RecordRetrieval(duration time.Duration, results int, err error) {
	if err != nil {
		m.retrievalErrors.Inc()
		return
	}
	m.retrievalSeconds.Observe(duration.Seconds())
	m.retrievalHits.Observe(float64(results))
}

// RecordGeneration records one completed generation call.
func (m *Metrics) RecordGeneration(provider string, duration time.Duration, attempts, promptTokens, completionTokens int, fellBack bool, err error) {
	if err != nil {
		m.generationErrors.WithLabelValues(provider).Inc()
		return
	}
	m.generationSeconds.WithLabelValues(provider).Observe(duration.Seconds())
	m.generationAttempts.Observe(float64(attempts))
	if fellBack {
		m.fallbacks.Add(1)
		m.generationFallback.Inc()
	}
	if promptTokens > 0 {
		m.generationTokens.WithLabelValues("prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.generationTokens.WithLabelValues("completion").Add(float64(completionTokens))
	}
}

// RecordIngestion records the outcome of one ingestion call.
func (m *Metrics) RecordIngestion(documents, chunks int, err error) {
	if err != nil {
		m.ingestionErrors.Inc()
		return
	}
	m.documentsIngested.Add(float64(documents))
	m.chunksIngested.Add(float64(chunks))
}

// Snapshot summarizes the plain counters for the stats endpoint.
func (m *Metrics) Snapshot() map[string]any {
	return map[string]any{
		"queries_total":        m.queries.Load(),
		"cache_hits":           m.cacheHits.Load(),
		"generation_fallbacks": m.fallbacks.Load(),
		"uptime_seconds":       int64(time.Since(m.startTime).Seconds()),
	}
}
