// Package metrics exposes pipeline counters and latencies in Prometheus format.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ragqa"

// Query outcomes.
const (
	OutcomeAnswered = "answered"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Recorder owns a private registry so tests and multiple pipelines never
// collide on the global one.
type Recorder struct {
	registry      *prom.Registry
	queries       *prom.CounterVec
	queryDuration prom.Histogram
	builds        *prom.CounterVec
	buildDuration prom.Histogram
	indexedChunks prom.Gauge
	embedFailures *prom.CounterVec
	genFailures   prom.Counter
	retrieved     prom.Histogram
}

func New() *Recorder {
	r := &Recorder{
		registry: prom.NewRegistry(),
		queries: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Queries handled, by outcome.",
		}, []string{"outcome"}),
		queryDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "End-to-end query latency.",
			Buckets:   prom.ExponentialBuckets(0.05, 2, 10),
		}),
		builds: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "index_builds_total",
			Help:      "Index build attempts, by outcome.",
		}, []string{"outcome"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "index_build_duration_seconds",
			Help:      "Time spent building the index.",
			Buckets:   prom.ExponentialBuckets(0.1, 2, 10),
		}),
		indexedChunks: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "indexed_chunks",
			Help:      "Chunks in the serving index.",
		}),
		embedFailures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_failures_total",
			Help:      "Embedding calls that failed, by stage.",
		}, []string{"stage"}),
		genFailures: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "Chat calls that failed and fell back.",
		}),
		retrieved: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieved_passages",
			Help:      "Passages returned per query.",
			Buckets:   prom.LinearBuckets(0, 1, 11),
		}),
	}
	r.registry.MustRegister(
		r.queries, r.queryDuration,
		r.builds, r.buildDuration, r.indexedChunks,
		r.embedFailures, r.genFailures, r.retrieved,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics disabled", http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) ObserveQuery(outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.queries.WithLabelValues(outcome).Inc()
	r.queryDuration.Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveBuild(err error, chunks int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.buildDuration.Observe(elapsed.Seconds())
	if err != nil {
		r.builds.WithLabelValues("failed").Inc()
		return
	}
	r.builds.WithLabelValues("ok").Inc()
	r.indexedChunks.Set(float64(chunks))
}

// EmbedFailed counts a failed embedding; stage is "index" or "query".
func (r *Recorder) EmbedFailed(stage string) {
	if r == nil {
		return
	}
	r.embedFailures.WithLabelValues(stage).Inc()
}

func (r *Recorder) GenerationFailed() {
	if r == nil {
		return
	}
	r.genFailures.Inc()
}

func (r *Recorder) Retrieved(n int) {
	if r == nil {
		return
	}
	r.retrieved.Observe(float64(n))
}
