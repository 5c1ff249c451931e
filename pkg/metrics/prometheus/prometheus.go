package prometheus

import (
	"strconv"
	"time"

	"opensacco-client/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements MetricsCollector for Prometheus.
type PrometheusCollector struct {
	namespace string

	// Requests
	requests        *prometheus.CounterVec
	requestErrors   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	// Circuit breaker
	circuitOpens *prometheus.CounterVec
	circuitState *prometheus.GaugeVec

	// Collections
	fetches       *prometheus.CounterVec
	fetchDegraded *prometheus.CounterVec
	fetchItems    *prometheus.GaugeVec

	// Auth
	authOps *prometheus.CounterVec
}

// NewPrometheusCollector creates a new Prometheus metrics collector.
func NewPrometheusCollector(namespace string) *PrometheusCollector {
	return &PrometheusCollector{
		namespace: namespace,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests per route, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		requestErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_request_errors_total",
				Help:      "Total number of failed API requests per route, method and error type",
			},
			[]string{"route", "method", "error_type"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request latency",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
			[]string{"route", "method"},
		),
		circuitOpens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_opens_total",
				Help:      "Total number of circuit breaker opens",
			},
			[]string{"breaker"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Current circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"breaker"},
		),
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "collection_fetches_total",
				Help:      "Total number of collection loads",
			},
			[]string{"collection"},
		),
		fetchDegraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "collection_degraded_total",
				Help:      "Collection loads replaced by an empty collection after an unexpected response",
			},
			[]string{"collection"},
		),
		fetchItems: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "collection_items",
				Help:      "Number of items in the last load of a collection",
			},
			[]string{"collection"},
		),
		authOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_operations_total",
				Help:      "Auth flow outcomes per operation",
			},
			[]string{"operation", "outcome"},
		),
	}
}

func (pc *PrometheusCollector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		pc.requests,
		pc.requestErrors,
		pc.requestDuration,
		pc.circuitOpens,
		pc.circuitState,
		pc.fetches,
		pc.fetchDegraded,
		pc.fetchItems,
		pc.authOps,
	}
}

// Register registers all metrics with the given Prometheus registerer.
func (pc *PrometheusCollector) Register(registerer prometheus.Registerer) error {
	for _, collector := range pc.collectors() {
		if err := registerer.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// RecordRequest records a completed API request.
func (pc *PrometheusCollector) RecordRequest(route, method string, status int, duration time.Duration) {
	pc.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	pc.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordRequestError records a failed API request.
func (pc *PrometheusCollector) RecordRequestError(route, method, errorType string) {
	pc.requestErrors.WithLabelValues(route, method, errorType).Inc()
}

// RecordCircuitState records the current circuit breaker state.
func (pc *PrometheusCollector) RecordCircuitState(name string, state metrics.CircuitState) {
	pc.circuitState.WithLabelValues(name).Set(float64(state))
	if state == metrics.CircuitOpen {
		pc.circuitOpens.WithLabelValues(name).Inc()
	}
}

// RecordFetch records a collection load.
func (pc *PrometheusCollector) RecordFetch(collection string, items int, degraded bool) {
	pc.fetches.WithLabelValues(collection).Inc()
	pc.fetchItems.WithLabelValues(collection).Set(float64(items))
	if degraded {
		pc.fetchDegraded.WithLabelValues(collection).Inc()
	}
}

// RecordAuth records an auth flow outcome.
func (pc *PrometheusCollector) RecordAuth(operation string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	pc.authOps.WithLabelValues(operation, outcome).Inc()
}
