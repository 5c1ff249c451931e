package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"opensacco-client/pkg/dashboard"
	"opensacco-client/pkg/fetch"
	"opensacco-client/pkg/logging"
	"opensacco-client/pkg/metrics"
	"opensacco-client/pkg/metrics/memory"
	"opensacco-client/pkg/portal"
	"opensacco-client/pkg/resilience"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server serves the dashboard and the portal collections as JSON on a local
// address, plus health and metrics endpoints.
type Server struct {
	getter   fetch.Getter
	metrics  metrics.MetricsCollector
	gatherer prometheus.Gatherer
	breaker  *resilience.Breaker
	server   *http.Server
	config   ServerConfig
	logger   *logging.Logger
	started  time.Time
}

// ServerConfig holds configuration for the dashboard server.
type ServerConfig struct {
	// Address to listen on (e.g., ":8080")
	Address string

	// ReadTimeout for HTTP requests
	ReadTimeout time.Duration

	// WriteTimeout for HTTP responses
	WriteTimeout time.Duration

	// LoadTimeout bounds how long /dashboard waits for its collections.
	LoadTimeout time.Duration
}

// DefaultServerConfig returns a default configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:      ":8080",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		LoadTimeout:  25 * time.Second,
	}
}

// Option customizes a Server.
type Option func(*Server)

// WithGatherer exposes the given Prometheus registry on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithBreaker reports the API circuit state on /status.
func WithBreaker(b *resilience.Breaker) Option {
	return func(s *Server) { s.breaker = b }
}

// NewServer creates a dashboard server reading from getter.
func NewServer(getter fetch.Getter, collector metrics.MetricsCollector, config ServerConfig, opts ...Option) *Server {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	s := &Server{
		getter:  getter,
		metrics: collector,
		config:  config,
		logger:  logging.Global().Named("api"),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.server = &http.Server{
		Addr:         config.Address,
		Handler:      s.Router(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

// Router returns the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	// Health and status endpoints
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	// Metrics endpoints
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	r.HandleFunc("/metrics/json", s.handleMetricsJSON).Methods(http.MethodGet)

	// Portal data
	r.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	r.HandleFunc("/collections/{name}", s.handleCollection).Methods(http.MethodGet)

	return r
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	s.logger.Info("starting dashboard server", zap.String("address", s.config.Address))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("dashboard server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	defer s.logger.Info("dashboard server stopped")
	return s.server.Shutdown(ctx)
}

// handleHealth returns a simple health check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

// handleStatus returns detailed status information.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "running",
		"timestamp": time.Now().Unix(),
		"uptime":    time.Since(s.started).String(),
	}
	if s.breaker != nil {
		response["circuit"] = map[string]string{
			"name":  s.breaker.Name(),
			"state": s.breaker.State().String(),
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// handleMetrics returns metrics in Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.gatherer != nil {
		promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "# Prometheus export is not enabled\n")
}

// handleMetricsJSON returns metrics in JSON format.
func (s *Server) handleMetricsJSON(w http.ResponseWriter, r *http.Request) {
	if mc := snapshotter(s.metrics); mc != nil {
		writeJSON(w, http.StatusOK, mc.Snapshot())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"error": "Metrics collector does not support JSON snapshot",
	})
}

type snapshotSource interface {
	Snapshot() memory.Snapshot
}

// snapshotter finds a collector able to produce a JSON snapshot, looking
// inside a MultiCollector.
func snapshotter(m metrics.MetricsCollector) snapshotSource {
	switch mc := m.(type) {
	case snapshotSource:
		return mc
	case metrics.MultiCollector:
		for _, c := range mc {
			if src := snapshotter(c); src != nil {
				return src
			}
		}
	}
	return nil
}

// handleDashboard loads all collections and returns the summary and recent lists.
// Every request fetches afresh.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.LoadTimeout)
	defer cancel()

	view, err := dashboard.NewView(s.getter, dashboard.WithMetrics(s.metrics))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
		return
	}
	view.Open(ctx)

	snap, err := view.Wait(ctx)
	if err != nil {
		writeJSON(w, http.StatusGatewayTimeout, map[string]interface{}{
			"error":    err.Error(),
			"snapshot": snap,
		})
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// handleCollection returns one collection as loaded by the client.
func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var (
		items interface{}
		err   error
	)
	switch name {
	case portal.CollectionCustomers:
		items, err = fetch.Collection[portal.Customer](r.Context(), s.getter, name)
	case portal.CollectionAccounts:
		items, err = fetch.Collection[portal.Account](r.Context(), s.getter, name)
	case portal.CollectionLoans:
		items, err = fetch.Collection[portal.Loan](r.Context(), s.getter, name)
	case portal.CollectionTransactions:
		items, err = fetch.Collection[portal.Transaction](r.Context(), s.getter, name)
	default:
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error":      "unknown collection",
			"collection": name,
		})
		return
	}

	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":      err.Error(),
			"collection": name,
		})
		return
	}

	writeJSON(w, http.StatusOK, items)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
