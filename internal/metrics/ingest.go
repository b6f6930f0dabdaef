package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion Prometheus metrics.
var (
	TitlesIndexedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "titles_indexed_total",
			Help:      "Titles processed by ingestion by outcome",
		},
		[]string{"outcome"}, // "ok" / "error"
	)

	IndexTitleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_title_duration_seconds",
			Help:      "Time to embed and upsert the profiles of one title",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

var ingestMetricsRegistered bool

// RegisterIngestMetrics registers ingestion metrics. Must be called once from main.
func RegisterIngestMetrics() {
	if ingestMetricsRegistered {
		return
	}
	prometheus.MustRegister(TitlesIndexedTotal)
	prometheus.MustRegister(IndexTitleDuration)
	ingestMetricsRegistered = true
}
