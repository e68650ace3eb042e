// Package httpserver provides the HTTP API for the citation network service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/helixir/citation-network-service/internal/events"
	"github.com/helixir/citation-network-service/internal/network"
	"github.com/helixir/citation-network-service/internal/observability"
)

// Defaults for Config.
const (
	DefaultLimit    = network.DefaultLimit
	DefaultMaxLimit = 100
)

// NetworkBuilder builds citation networks. *network.Builder satisfies it.
type NetworkBuilder interface {
	Build(ctx context.Context, req network.Request) (*network.Result, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// DefaultLimit applies when a request carries no limit.
	DefaultLimit int
	// MaxLimit is the largest accepted limit.
	MaxLimit int
	// Dedupe is the default for the dedupe query parameter.
	Dedupe bool
}

// Server is the HTTP API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	config     Config
	builder    NetworkBuilder
	publisher  events.Publisher
	metrics    *observability.Metrics
	validate   *validator.Validate
	draining   atomic.Bool
	logger     zerolog.Logger
}

// NewServer creates a new HTTP server. publisher and metrics may be nil.
func NewServer(
	cfg Config,
	builder NetworkBuilder,
	publisher events.Publisher,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Server {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = DefaultMaxLimit
	}
	if publisher == nil {
		publisher = events.Noop{}
	}

	s := &Server{
		config:    cfg,
		builder:   builder,
		publisher: publisher,
		metrics:   metrics,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(correlationIDMiddleware)
	r.Use(s.metricsMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(jsonContentTypeMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/citation-network", s.getCitationNetwork)
	})

	return r
}

// Handler returns the root handler. Used by tests and embedding callers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown marks the server not ready and gracefully shuts it down.
func (s *Server) Shutdown(ctx context.Context) error {
	s.draining.Store(true)
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports not_ready once shutdown has begun.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if s.draining.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Error: message})
}
