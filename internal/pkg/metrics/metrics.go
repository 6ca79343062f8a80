package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geogenie_requests_total",
			Help: "Total number of natural-language requests by terminal outcome",
		},
		[]string{"outcome"},
	)

	StateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geogenie_state_transitions_total",
			Help: "Coordinator state transitions",
		},
		[]string{"state"},
	)

	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geogenie_validations_total",
			Help: "Parameter validations by operation and validity",
		},
		[]string{"operation", "valid"},
	)

	GatewayCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geogenie_gateway_calls_total",
			Help: "Language model calls by provider, call kind and result",
		},
		[]string{"provider", "call", "result"},
	)

	GatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geogenie_gateway_call_duration_seconds",
			Help:    "Duration of language model calls in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"provider", "call"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geogenie_runs_total",
			Help: "Backend runs by execution id and terminal kind",
		},
		[]string{"execution_id", "kind"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geogenie_run_duration_seconds",
			Help:    "Duration of backend runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"execution_id"},
	)

	RunsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "geogenie_runs_active",
			Help: "Number of backend runs currently in flight",
		},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve blocks serving /metrics on addr.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return http.ListenAndServe(addr, mux)
}
