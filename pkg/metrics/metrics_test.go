package metrics

import (
	"testing"
	"time"
)

type countingCollector struct {
	NoOpCollector
	requests, fetches, auths int
}

func (c *countingCollector) RecordRequest(string, string, int, time.Duration) { c.requests++ }
func (c *countingCollector) RecordFetch(string, int, bool)                    { c.fetches++ }
func (c *countingCollector) RecordAuth(string, bool)                          { c.auths++ }

func TestMultiCollector_Forwards(t *testing.T) {
	a, b := &countingCollector{}, &countingCollector{}
	var m MetricsCollector = MultiCollector{a, b}

	m.RecordRequest("/loans", "GET", 200, time.Millisecond)
	m.RecordFetch("loans", 1, false)
	m.RecordAuth("signin", true)
	m.RecordRequestError("/loans", "GET", "timeout")
	m.RecordCircuitState("api", CircuitOpen)

	for i, c := range []*countingCollector{a, b} {
		if c.requests != 1 || c.fetches != 1 || c.auths != 1 {
			t.Errorf("collector %d: unexpected counts %+v", i, c)
		}
	}
}

func TestCircuitState_String(t *testing.T) {
	tests := map[CircuitState]string{
		CircuitClosed:   "closed",
		CircuitOpen:     "open",
		CircuitHalfOpen: "half-open",
		CircuitState(9): "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
