package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcome label values shared by fusion metrics.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
	OutcomeMissing = "missing"
)

// Fusion engine Prometheus metrics.
var (
	AspectSearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aspect_searches_total",
			Help:      "Per-aspect nearest-neighbour searches by outcome",
		},
		[]string{"aspect", "outcome"},
	)

	EnrichmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichments_total",
			Help:      "Metadata lookups for recommended titles by outcome",
		},
		[]string{"outcome"},
	)

	RecommendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommend_duration_seconds",
			Help:      "End-to-end recommendation latency",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"mode"}, // "default" / "mix"
	)

	CandidatePoolSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "candidate_pool_size",
			Help:      "Distinct candidates after merging all aspect searches",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	EmptyEnvelopesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "empty_envelopes_total",
			Help:      "Recommendation responses with no results by reason",
		},
		[]string{"reason"}, // "invalid_request" / "no_seed" / "store_error" / "no_weights" / "no_candidates"
	)
)

var recMetricsRegistered bool

// RegisterRecommendMetrics registers fusion metrics. Must be called once from main.
func RegisterRecommendMetrics() {
	if recMetricsRegistered {
		return
	}
	prometheus.MustRegister(AspectSearchesTotal)
	prometheus.MustRegister(EnrichmentsTotal)
	prometheus.MustRegister(RecommendDuration)
	prometheus.MustRegister(CandidatePoolSize)
	prometheus.MustRegister(EmptyEnvelopesTotal)
	recMetricsRegistered = true
}
