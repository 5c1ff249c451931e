package metrics

import (
	"time"
)

// MetricsCollector defines the interface for collecting client metrics.
// Implementations export to Prometheus or keep counters in memory for tests.
type MetricsCollector interface {
	// API requests. route is the route template, never a path carrying tokens.
	RecordRequest(route, method string, status int, duration time.Duration)
	RecordRequestError(route, method, errorType string)

	// Circuit breaker
	RecordCircuitState(name string, state CircuitState)

	// Collection loads. degraded marks a response replaced by an empty collection.
	RecordFetch(collection string, items int, degraded bool)

	// Auth flows
	RecordAuth(operation string, success bool)
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed means the circuit breaker is allowing requests through.
	CircuitClosed CircuitState = iota
	// CircuitOpen means the circuit breaker is blocking requests.
	CircuitOpen
	// CircuitHalfOpen means the circuit breaker is testing if the API has recovered.
	CircuitHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// NoOpCollector is a no-op implementation of MetricsCollector.
type NoOpCollector struct{}

// RecordRequest does nothing.
func (NoOpCollector) RecordRequest(route, method string, status int, duration time.Duration) {}

// RecordRequestError does nothing.
func (NoOpCollector) RecordRequestError(route, method, errorType string) {}

// RecordCircuitState does nothing.
func (NoOpCollector) RecordCircuitState(name string, state CircuitState) {}

// RecordFetch does nothing.
func (NoOpCollector) RecordFetch(collection string, items int, degraded bool) {}

// RecordAuth does nothing.
func (NoOpCollector) RecordAuth(operation string, success bool) {}

// MultiCollector forwards every record to each of its collectors.
type MultiCollector []MetricsCollector

// RecordRequest forwards to each collector.
func (m MultiCollector) RecordRequest(route, method string, status int, duration time.Duration) {
	for _, c := range m {
		c.RecordRequest(route, method, status, duration)
	}
}

// RecordRequestError forwards to each collector.
func (m MultiCollector) RecordRequestError(route, method, errorType string) {
	for _, c := range m {
		c.RecordRequestError(route, method, errorType)
	}
}

// RecordCircuitState forwards to each collector.
func (m MultiCollector) RecordCircuitState(name string, state CircuitState) {
	for _, c := range m {
		c.RecordCircuitState(name, state)
	}
}

// RecordFetch forwards to each collector.
func (m MultiCollector) RecordFetch(collection string, items int, degraded bool) {
	for _, c := range m {
		c.RecordFetch(collection, items, degraded)
	}
}

// RecordAuth forwards to each collector.
func (m MultiCollector) RecordAuth(operation string, success bool) {
	for _, c := range m {
		c.RecordAuth(operation, success)
	}
}
