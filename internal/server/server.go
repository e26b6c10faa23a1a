// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes unified search and deep research over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/delivery"
	"github.com/pdiddy/deep-research/pkg/types"
)

// Searcher runs a unified search. *search.Aggregator satisfies it.
type Searcher interface {
	Search(ctx context.Context, params types.UnifiedSearchParams) (*types.SearchResponse, error)
}

// Researcher runs a deep-research session. *research.Orchestrator satisfies it.
type Researcher interface {
	Run(ctx context.Context, q types.ResearchQuery) (*types.ResearchReport, error)
}

// Options configures a Server.
type Options struct {
	// Research is nil when no language model is configured; ResearchUnavailable
	// then explains why and deep-research requests answer 503.
	Research            Researcher
	ResearchUnavailable error

	// Deliverers maps a delivery kind (notion, file) to its deliverer.
	// Kinds missing here were not configured.
	Deliverers map[string]delivery.Deliverer

	// ResearchTimeout bounds one deep-research request. Zero means no bound
	// beyond the client connection.
	ResearchTimeout time.Duration
}

// Server holds the HTTP handlers.
type Server struct {
	search Searcher
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Server.
func New(search Searcher, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{search: search, opts: opts, logger: logger, now: time.Now}
}

// RegisterRoutes registers every endpoint on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/search/unified", s.handleSearch)
	mux.HandleFunc("GET /api/search/unified", s.handleSearchGet)
	mux.HandleFunc("GET /api/search/filters", s.handleFilters)
	mux.HandleFunc("POST /api/research/deep", s.handleResearch)
	mux.HandleFunc("GET /api/research/deep", s.handleReportLookup)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s.logRequests(mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP API listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down HTTP API")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"research": s.opts.Research != nil,
	})
}

// statusFor maps an error to an HTTP status: caller mistakes are 400,
// missing credentials 503, everything else 500.
func statusFor(err error) int {
	var verr *types.ValidationError
	var cerr *types.ConfigurationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.As(err, &cerr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", s.now().Sub(start)))
	})
}
