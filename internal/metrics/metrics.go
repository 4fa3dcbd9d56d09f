// Package metrics registers the Prometheus collectors for the ingestion and
// retrieval pipeline.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// UnsupportedContentType is the content_type label for every type without an
// extraction strategy, which keeps client input out of label values.
const UnsupportedContentType = "unsupported"

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the pipeline collectors.
type Metrics struct {
	ParseResultsTotal        *prometheus.CounterVec
	ExtractDuration          *prometheus.HistogramVec
	ChunksCreatedTotal       prometheus.Counter
	EmbedDuration            *prometheus.HistogramVec
	RetrievalDuration        *prometheus.HistogramVec
	StagingFilesRemovedTotal prometheus.Counter
}

// New returns the process-wide collectors, registering them on first use.
//
// Metrics:
//   - docrag_parse_results_total{status,content_type}
//   - docrag_extract_duration_seconds{content_type}
//   - docrag_chunks_created_total
//   - docrag_embed_duration_seconds{provider}
//   - docrag_retrieval_duration_seconds{kind,backend}
//   - docrag_staging_files_removed_total
func New() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = NewWithRegisterer(prometheus.DefaultRegisterer)
	})
	return globalMetrics
}

// NewWithRegisterer registers a fresh set of collectors on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ParseResultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docrag_parse_results_total",
				Help: "Parse results by status and content type (\"unsupported\" for unknown types)",
			},
			[]string{"status", "content_type"},
		),
		ExtractDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docrag_extract_duration_seconds",
				Help:    "Time spent extracting text from one file",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"content_type"},
		),
		ChunksCreatedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "docrag_chunks_created_total",
				Help: "Chunks persisted by ingestion",
			},
		),
		EmbedDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docrag_embed_duration_seconds",
				Help:    "Embedding call latency",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"provider"},
		),
		RetrievalDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docrag_retrieval_duration_seconds",
				Help:    "Vector query latency by query kind and backend",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind", "backend"},
		),
		StagingFilesRemovedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "docrag_staging_files_removed_total",
				Help: "Stale staging files removed by the janitor",
			},
		),
	}
}

// ObserveParse records one parse outcome.
func (m *Metrics) ObserveParse(status, contentType string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ParseResultsTotal.WithLabelValues(status, contentType).Inc()
	m.ExtractDuration.WithLabelValues(contentType).Observe(elapsed.Seconds())
}

// ObserveEmbed records one embedding call.
func (m *Metrics) ObserveEmbed(provider string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.EmbedDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObserveRetrieval records one vector query.
func (m *Metrics) ObserveRetrieval(kind, backend string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RetrievalDuration.WithLabelValues(kind, backend).Observe(elapsed.Seconds())
}

// AddChunks counts persisted chunks.
func (m *Metrics) AddChunks(n int) {
	if m == nil {
		return
	}
	m.ChunksCreatedTotal.Add(float64(n))
}

// AddStagingRemoved counts janitor removals.
func (m *Metrics) AddStagingRemoved(n int) {
	if m == nil {
		return
	}
	m.StagingFilesRemovedTotal.Add(float64(n))
}
