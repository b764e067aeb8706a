package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "resume_query"

// LLM, store and pipeline Prometheus metrics.
var (
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of language model requests",
		},
		[]string{"provider", "model", "stage", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Language model request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"provider", "model", "stage"},
	)

	StoreQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_queries_total",
			Help:      "Total number of document store queries",
		},
		[]string{"driver", "status"},
	)

	StoreQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_query_duration_seconds",
			Help:      "Document store query duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"driver"},
	)

	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Total number of pipeline runs by terminal state",
		},
		[]string{"state"},
	)

	PipelineDegradationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_degradations_total",
			Help:      "Total number of recovered stage failures",
		},
		[]string{"kind"},
	)

	PipelineCandidates = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_candidates",
			Help:      "Number of candidates per pipeline stage",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100, 250},
		},
		[]string{"stage"}, // "retrieved" / "relevant"
	)
)

var registered bool

// Register registers the Prometheus metrics with the default registry. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(StoreQueriesTotal)
	prometheus.MustRegister(StoreQueryDuration)
	prometheus.MustRegister(PipelineRunsTotal)
	prometheus.MustRegister(PipelineDegradationsTotal)
	prometheus.MustRegister(PipelineCandidates)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(httpRequestsTotal)
	registered = true
}
