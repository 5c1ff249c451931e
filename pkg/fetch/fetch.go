// Package fetch loads a named API collection once per activation and exposes
// its progress as a {Data, Loading, Err} state.
//
// A Loader is bound to the lifetime of the view that started it: cancelling the
// context passed to Start aborts the request and drops any late result.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"opensacco-client/pkg/client"
	"opensacco-client/pkg/logging"
	"opensacco-client/pkg/metrics"
	"opensacco-client/pkg/portal"

	"go.uber.org/zap"
)

// Getter issues a GET against the API. *client.Client implements it.
type Getter interface {
	Get(ctx context.Context, path string, auth client.Auth) (*client.Response, error)
}

// State is a snapshot of a loader.
type State[T any] struct {
	// Data is the last loaded collection, empty (never nil) once settled.
	Data []T
	// Loading is true from construction until the first response or error.
	Loading bool
	// Err is set on transport failure or a non-2xx response.
	Err error
}

// Settled reports whether the loader has finished.
func (s State[T]) Settled() bool {
	return !s.Loading
}

// Option customizes a Loader.
type Option[T any] func(*Loader[T])

// OnChange registers fn to be called after every committed state change.
// fn runs on the loader's goroutine and must not block.
func OnChange[T any](fn func(State[T])) Option[T] {
	return func(l *Loader[T]) { l.onChange = append(l.onChange, fn) }
}

// WithMetrics sets the collector that records each load.
func WithMetrics[T any](m metrics.MetricsCollector) Option[T] {
	return func(l *Loader[T]) {
		if m != nil {
			l.metrics = m
		}
	}
}

// Loader fetches one collection.
type Loader[T any] struct {
	getter     Getter
	collection string
	metrics    metrics.MetricsCollector
	logger     *logging.Logger
	onChange   []func(State[T])

	once  sync.Once
	done  chan struct{}
	mu    sync.RWMutex
	state State[T]
}

// NewLoader creates a loader for collection. Nothing is fetched until Start.
func NewLoader[T any](getter Getter, collection string, opts ...Option[T]) (*Loader[T], error) {
	if getter == nil {
		return nil, errors.New("fetch: getter is nil")
	}
	if err := portal.ValidateCollection(collection); err != nil {
		return nil, err
	}

	l := &Loader[T]{
		getter:     getter,
		collection: collection,
		metrics:    metrics.NoOpCollector{},
		logger:     logging.Global().Named("fetch").With(zap.String("collection", collection)),
		done:       make(chan struct{}),
		state:      State[T]{Data: []T{}, Loading: true},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Collection returns the collection name.
func (l *Loader[T]) Collection() string {
	return l.collection
}

// Start issues the request in the background. Only the first call has an effect.
func (l *Loader[T]) Start(ctx context.Context) {
	l.once.Do(func() {
		go l.run(ctx)
	})
}

// State returns the current state. The returned Data must not be modified.
func (l *Loader[T]) State() State[T] {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Done is closed once the loader settles or its view context ends.
func (l *Loader[T]) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until the loader is done or ctx ends.
func (l *Loader[T]) Wait(ctx context.Context) (State[T], error) {
	select {
	case <-l.done:
		return l.State(), nil
	case <-ctx.Done():
		return l.State(), ctx.Err()
	}
}

func (l *Loader[T]) run(ctx context.Context) {
	defer close(l.done)

	data, degraded, err := load[T](ctx, l.getter, l.collection, l.logger)

	// The view is gone; nothing may observe this result.
	if ctx.Err() != nil {
		l.logger.Debug("dropping result after view closed", zap.Error(ctx.Err()))
		return
	}

	if err == nil {
		l.metrics.RecordFetch(l.collection, len(data), degraded)
	}
	l.commit(State[T]{Data: data, Loading: false, Err: err})
}

func (l *Loader[T]) commit(s State[T]) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()

	for _, fn := range l.onChange {
		fn(s)
	}
}

// Collection fetches collection once and returns its items. Degraded
// responses yield an empty, non-nil slice and no error.
func Collection[T any](ctx context.Context, getter Getter, collection string) ([]T, error) {
	if err := portal.ValidateCollection(collection); err != nil {
		return nil, err
	}
	logger := logging.Global().Named("fetch").With(zap.String("collection", collection))
	data, _, err := load[T](ctx, getter, collection, logger)
	return data, err
}

// load performs the request and applies the error policy: transport failures
// and non-2xx statuses are errors; unexpected content degrades to empty.
func load[T any](ctx context.Context, getter Getter, collection string, logger *logging.Logger) (data []T, degraded bool, err error) {
	resp, err := getter.Get(ctx, "/"+collection, client.AuthOptional)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return []T{}, false, err
		}
		logger.Warn("collection request failed", zap.Error(err))
		return []T{}, false, fmt.Errorf("fetch %s: %w", collection, err)
	}

	if !resp.IsJSON() {
		logger.Warn("invalid data format, using empty collection",
			zap.String("content_type", resp.Header.Get("Content-Type")),
		)
		return []T{}, true, nil
	}

	var items []T
	if err := json.Unmarshal(resp.Body, &items); err != nil {
		logger.Warn("malformed collection, using empty collection", zap.Error(err))
		return []T{}, true, nil
	}
	if items == nil {
		items = []T{}
	}

	logger.Debug("collection loaded", zap.Int("items", len(items)))
	return items, false, nil
}
