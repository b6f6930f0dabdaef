package metrics

import "github.com/prometheus/client_golang/prometheus"

// Circuit breaker Prometheus metrics.
var (
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_requests_total",
			Help:      "Requests through the circuit breaker by result",
		},
		[]string{"name", "result"}, // "success" / "failure" / "rejected"
	)
)

var breakerMetricsRegistered bool

// RegisterBreakerMetrics registers circuit breaker metrics. Must be called once from main.
func RegisterBreakerMetrics() {
	if breakerMetricsRegistered {
		return
	}
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerTransitions)
	prometheus.MustRegister(CircuitBreakerRequests)
	breakerMetricsRegistered = true
}
