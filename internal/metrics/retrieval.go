package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics.
var (
	RetrievalQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cardseer",
			Name:      "retrieval_query_duration_seconds",
			Help:      "Similarity index query duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"corpus"}, // "cards" / "rules"
	)

	RetrievalResultsReturned = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cardseer",
			Name:      "retrieval_results_returned",
			Help:      "Number of results returned per query after cutoffs",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"corpus"},
	)

	MatcherSpansAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardseer",
			Name:      "matcher_spans_accepted_total",
			Help:      "Entity matcher spans accepted after denylist and overlap filtering",
		},
		[]string{"role"},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers Prometheus retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalQueryDuration)
	prometheus.MustRegister(RetrievalResultsReturned)
	prometheus.MustRegister(MatcherSpansAccepted)
	retrievalMetricsRegistered = true
}
