package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"opensacco-client/pkg/logging"
	"opensacco-client/pkg/metrics"
	"opensacco-client/pkg/portal"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Breaker guards API calls with a circuit breaker and a per-call timeout.
// Only failures that say something about API health count against the breaker:
// transport errors, timeouts and 5xx responses. Client errors, validation and
// calls the caller abandoned (cancelled or past its own deadline) pass through
// without tripping it.
type Breaker struct {
	name    string
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics metrics.MetricsCollector
	logger  *logging.Logger
}

// NewBreaker creates a breaker with no metrics.
func NewBreaker(name string, config ResilientConfig) *Breaker {
	return NewBreakerWithMetrics(name, config, metrics.NoOpCollector{})
}

// NewBreakerWithMetrics creates a breaker that reports state changes to metricsCollector.
func NewBreakerWithMetrics(name string, config ResilientConfig, metricsCollector metrics.MetricsCollector) *Breaker {
	if metricsCollector == nil {
		metricsCollector = metrics.NoOpCollector{}
	}
	logger := logging.Global().Named("resilience").Named(name)

	b := &Breaker{
		name:    name,
		timeout: config.Timeout,
		metrics: metricsCollector,
		logger:  logger,
	}

	logger.Debug("breaker initialized",
		zap.Duration("timeout", config.Timeout),
		zap.Uint32("max_requests", config.CircuitBreakerConfig.MaxRequests),
		zap.Duration("circuit_interval", config.CircuitBreakerConfig.Interval),
		zap.Duration("circuit_timeout", config.CircuitBreakerConfig.Timeout),
	)

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: config.CircuitBreakerConfig.MaxRequests,
		Interval:    config.CircuitBreakerConfig.Interval,
		Timeout:     config.CircuitBreakerConfig.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			c := Counts{
				Requests:             counts.Requests,
				TotalSuccesses:       counts.TotalSuccesses,
				TotalFailures:        counts.TotalFailures,
				ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
				ConsecutiveFailures:  counts.ConsecutiveFailures,
			}
			if config.CircuitBreakerConfig.ReadyToTrip != nil {
				return config.CircuitBreakerConfig.ReadyToTrip(c)
			}
			return c.ConsecutiveFailures >= 5
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)

			var state metrics.CircuitState
			switch to {
			case gobreaker.StateClosed:
				state = metrics.CircuitClosed
			case gobreaker.StateHalfOpen:
				state = metrics.CircuitHalfOpen
			case gobreaker.StateOpen:
				state = metrics.CircuitOpen
			}
			b.metrics.RecordCircuitState(name, state)
		},
	}

	b.cb = gobreaker.NewCircuitBreaker(settings)

	return b
}

// countsAsSuccess decides which errors leave the breaker untouched.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	if portal.IsValidation(err) || errors.Is(err, portal.ErrUnexpectedContent) || portal.IsNotAuthenticated(err) {
		return true
	}
	if code := portal.StatusCode(err); code > 0 && code < 500 {
		return true
	}
	return false
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current breaker state.
func (b *Breaker) State() metrics.CircuitState {
	switch b.cb.State() {
	case gobreaker.StateOpen:
		return metrics.CircuitOpen
	case gobreaker.StateHalfOpen:
		return metrics.CircuitHalfOpen
	default:
		return metrics.CircuitClosed
	}
}

// Execute runs fn under the breaker. fn must finish all I/O, including reading
// the response body, before returning because its context is cancelled afterwards.
func (b *Breaker) Execute(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	start := time.Now()

	callCtx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	// Failures after the caller gave up (cancel or its own deadline) say
	// nothing about API health and are kept out of the breaker counts.
	var abandoned error
	_, err := b.cb.Execute(func() (interface{}, error) {
		err := fn(callCtx)
		if err != nil && ctx.Err() != nil {
			abandoned = err
			return nil, nil
		}
		return nil, err
	})
	if abandoned != nil {
		return abandoned
	}
	if err == nil {
		return nil
	}

	duration := time.Since(start)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.logger.Warn("circuit breaker open - request rejected",
			zap.String("operation", operation),
		)
		return fmt.Errorf("%s: %w", operation, portal.ErrCircuitOpen)
	}

	// Our own deadline fired while the caller is still interested.
	if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		b.logger.Warn("operation timeout",
			zap.String("operation", operation),
			zap.Duration("timeout", b.timeout),
			zap.Duration("elapsed", duration),
		)
		return fmt.Errorf("%s: %w", operation, portal.ErrTimeout)
	}

	return err
}
