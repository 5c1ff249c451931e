package memory

import (
	"sync"
	"time"

	"opensacco-client/pkg/metrics"
)

// MemoryCollector implements MetricsCollector in memory. It backs tests and
// the JSON metrics endpoint of the local dashboard server.
type MemoryCollector struct {
	mu sync.RWMutex

	routes      map[string]*RouteMetrics
	collections map[string]*CollectionMetrics
	circuits    map[string]metrics.CircuitState
	opens       map[string]int64
	auth        map[string]*AuthMetrics
}

// RouteMetrics holds metrics for a single API route and method.
type RouteMetrics struct {
	Requests     int64
	ByStatus     map[int]int64
	Errors       int64
	ErrorsByType map[string]int64
	Latencies    []time.Duration
}

// CollectionMetrics holds load counts for one collection.
type CollectionMetrics struct {
	Loads     int64
	Degraded  int64
	LastItems int
}

// AuthMetrics counts outcomes of one auth operation.
type AuthMetrics struct {
	Successes int64
	Failures  int64
}

// NewMemoryCollector creates a new in-memory metrics collector.
func NewMemoryCollector() *MemoryCollector {
	mc := &MemoryCollector{}
	mc.reset()
	return mc
}

func (mc *MemoryCollector) reset() {
	mc.routes = make(map[string]*RouteMetrics)
	mc.collections = make(map[string]*CollectionMetrics)
	mc.circuits = make(map[string]metrics.CircuitState)
	mc.opens = make(map[string]int64)
	mc.auth = make(map[string]*AuthMetrics)
}

func routeKey(route, method string) string {
	return method + " " + route
}

// route returns the RouteMetrics for key. Caller holds mu.
func (mc *MemoryCollector) route(key string) *RouteMetrics {
	rm, ok := mc.routes[key]
	if !ok {
		rm = &RouteMetrics{
			ByStatus:     make(map[int]int64),
			ErrorsByType: make(map[string]int64),
		}
		mc.routes[key] = rm
	}
	return rm
}

// RecordRequest records a completed API request.
func (mc *MemoryCollector) RecordRequest(route, method string, status int, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	rm := mc.route(routeKey(route, method))
	rm.Requests++
	rm.ByStatus[status]++
	rm.Latencies = append(rm.Latencies, duration)
}

// RecordRequestError records a request that failed with errorType.
func (mc *MemoryCollector) RecordRequestError(route, method, errorType string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	rm := mc.route(routeKey(route, method))
	rm.Errors++
	rm.ErrorsByType[errorType]++
}

// RecordCircuitState records the current circuit breaker state.
func (mc *MemoryCollector) RecordCircuitState(name string, state metrics.CircuitState) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	old := mc.circuits[name]
	mc.circuits[name] = state

	// Count transitions to open
	if old != metrics.CircuitOpen && state == metrics.CircuitOpen {
		mc.opens[name]++
	}
}

// RecordFetch records a collection load.
func (mc *MemoryCollector) RecordFetch(collection string, items int, degraded bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	cm, ok := mc.collections[collection]
	if !ok {
		cm = &CollectionMetrics{}
		mc.collections[collection] = cm
	}
	cm.Loads++
	cm.LastItems = items
	if degraded {
		cm.Degraded++
	}
}

// RecordAuth records the outcome of an auth operation.
func (mc *MemoryCollector) RecordAuth(operation string, success bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	am, ok := mc.auth[operation]
	if !ok {
		am = &AuthMetrics{}
		mc.auth[operation] = am
	}
	if success {
		am.Successes++
	} else {
		am.Failures++
	}
}

// Snapshot is a copy of the collected metrics.
type Snapshot struct {
	Routes        map[string]RouteMetrics      `json:"routes"`
	Collections   map[string]CollectionMetrics `json:"collections"`
	CircuitStates map[string]string            `json:"circuit_states"`
	CircuitOpens  map[string]int64             `json:"circuit_opens"`
	Auth          map[string]AuthMetrics       `json:"auth"`
}

// Snapshot returns a copy of the current metrics state.
func (mc *MemoryCollector) Snapshot() Snapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	s := Snapshot{
		Routes:        make(map[string]RouteMetrics, len(mc.routes)),
		Collections:   make(map[string]CollectionMetrics, len(mc.collections)),
		CircuitStates: make(map[string]string, len(mc.circuits)),
		CircuitOpens:  make(map[string]int64, len(mc.opens)),
		Auth:          make(map[string]AuthMetrics, len(mc.auth)),
	}

	for k, rm := range mc.routes {
		cp := *rm
		cp.ByStatus = make(map[int]int64, len(rm.ByStatus))
		for code, n := range rm.ByStatus {
			cp.ByStatus[code] = n
		}
		cp.ErrorsByType = make(map[string]int64, len(rm.ErrorsByType))
		for typ, n := range rm.ErrorsByType {
			cp.ErrorsByType[typ] = n
		}
		cp.Latencies = append([]time.Duration(nil), rm.Latencies...)
		s.Routes[k] = cp
	}
	for k, cm := range mc.collections {
		s.Collections[k] = *cm
	}
	for k, st := range mc.circuits {
		s.CircuitStates[k] = st.String()
	}
	for k, n := range mc.opens {
		s.CircuitOpens[k] = n
	}
	for k, am := range mc.auth {
		s.Auth[k] = *am
	}

	return s
}

// Route returns a copy of the metrics for route and method, or nil.
func (mc *MemoryCollector) Route(route, method string) *RouteMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if rm, ok := mc.routes[routeKey(route, method)]; ok {
		cp := *rm
		return &cp
	}
	return nil
}

// Collection returns a copy of the metrics for a collection, or nil.
func (mc *MemoryCollector) Collection(name string) *CollectionMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if cm, ok := mc.collections[name]; ok {
		cp := *cm
		return &cp
	}
	return nil
}

// Auth returns a copy of the counters for an auth operation.
func (mc *MemoryCollector) Auth(operation string) AuthMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if am, ok := mc.auth[operation]; ok {
		return *am
	}
	return AuthMetrics{}
}

// CircuitState returns the last recorded state for name.
func (mc *MemoryCollector) CircuitState(name string) metrics.CircuitState {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return mc.circuits[name]
}

// Reset clears all collected metrics.
func (mc *MemoryCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.reset()
}
