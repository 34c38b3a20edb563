// Package api provides the HTTP surface for claim submission and retrieval.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/clearclaim/heron/internal/detector"
	"github.com/clearclaim/heron/internal/domain"
	"github.com/clearclaim/heron/internal/rules"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, det *detector.Detector, scorer *rules.Scorer, repo domain.Repository, cache domain.Cache, version string) *Server {
	handler := NewHandler(det, scorer, repo, cache, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// Claim pipeline
	router.Post("/claims", handler.SubmitClaim)
	router.Get("/claims/{id}", handler.GetClaim)
	router.Get("/claims/{id}/analysis", handler.GetAnalysis)
	router.Patch("/claims/{id}/status", handler.UpdateClaimStatus)

	// Policy history
	router.Get("/policies/{policyNumber}/claims", handler.GetPolicyClaims)

	// Dashboard
	router.Get("/dashboard/summary", handler.GetDashboardSummary)

	// Scoring rules (read-only)
	router.Get("/rules", handler.ListRules)

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
