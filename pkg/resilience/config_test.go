package resilience

import (
	"testing"
	"time"
)

func TestDefaultResilientConfig(t *testing.T) {
	config := DefaultResilientConfig()

	if config.Timeout != 30*time.Second {
		t.Errorf("Expected timeout 30s, got %v", config.Timeout)
	}

	if config.CircuitBreakerConfig.MaxRequests != 1 {
		t.Errorf("Expected MaxRequests 1, got %d", config.CircuitBreakerConfig.MaxRequests)
	}

	if config.CircuitBreakerConfig.Timeout != 30*time.Second {
		t.Errorf("Expected CB timeout 30s, got %v", config.CircuitBreakerConfig.Timeout)
	}

	if config.CircuitBreakerConfig.ReadyToTrip == nil {
		t.Fatal("Expected ReadyToTrip function to be set")
	}

	if config.CircuitBreakerConfig.ReadyToTrip(Counts{ConsecutiveFailures: 4}) {
		t.Error("Should not trip with 4 failures")
	}

	if !config.CircuitBreakerConfig.ReadyToTrip(Counts{ConsecutiveFailures: 5}) {
		t.Error("Should trip with 5 failures")
	}
}

func TestConsecutiveFailures_ZeroUsesDefault(t *testing.T) {
	trip := ConsecutiveFailures(0)
	if trip(Counts{ConsecutiveFailures: 4}) {
		t.Error("Should not trip with 4 failures")
	}
	if !trip(Counts{ConsecutiveFailures: 5}) {
		t.Error("Should trip with 5 failures")
	}
}

func TestResilientConfig_WithTimeout(t *testing.T) {
	config := DefaultResilientConfig()
	newConfig := config.WithTimeout(2 * time.Second)

	if newConfig.Timeout != 2*time.Second {
		t.Errorf("Expected timeout 2s, got %v", newConfig.Timeout)
	}

	if config.Timeout != 30*time.Second {
		t.Errorf("Original config changed: got %v", config.Timeout)
	}
}

func TestResilientConfig_WithCircuitBreakerTimeout(t *testing.T) {
	config := DefaultResilientConfig()
	newConfig := config.WithCircuitBreakerTimeout(20 * time.Second)

	if newConfig.CircuitBreakerConfig.Timeout != 20*time.Second {
		t.Errorf("Expected CB timeout 20s, got %v", newConfig.CircuitBreakerConfig.Timeout)
	}

	if config.CircuitBreakerConfig.Timeout != 30*time.Second {
		t.Errorf("Original config changed: got %v", config.CircuitBreakerConfig.Timeout)
	}
}
