// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eventry/eventry/internal/config"
	"github.com/eventry/eventry/internal/database"
	"github.com/eventry/eventry/internal/importer"
	"github.com/eventry/eventry/internal/middleware"
	"github.com/eventry/eventry/internal/models"
)

// ImportRunner triggers import runs and reports on past ones. The importer
// satisfies it; tests substitute a stub.
type ImportRunner interface {
	Run(ctx context.Context, src *models.Source) (*importer.Stats, error)
	RunAll(ctx context.Context) error
	LastRun(sourceID int64) *importer.Stats
	LastRuns() []*importer.Stats
}

// Server holds the HTTP handler dependencies.
type Server struct {
	cfg      *config.ServerConfig
	db       *database.DB
	importer ImportRunner
}

// NewServer creates the API server.
func NewServer(cfg *config.ServerConfig, db *database.DB, imp ImportRunner) *Server {
	return &Server{cfg: cfg, db: db, importer: imp}
}

// Router builds the chi router with the full middleware stack and all
// API routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Use(chiMiddleware(middleware.PrometheusMetrics))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.cfg.RateLimitReqs > 0 {
			r.Use(httprate.LimitByIP(s.cfg.RateLimitReqs, s.cfg.RateLimitWindow))
		}

		r.Route("/sources", func(r chi.Router) {
			r.Get("/", s.handleListSources)
			r.Post("/", s.handleCreateSource)
			r.Get("/{id}", s.handleGetSource)
			r.Delete("/{id}", s.handleDeleteSource)
			r.Post("/{id}/import", s.handleImportSource)
			r.Get("/{id}/import", s.handleImportStatus)
		})

		r.Post("/imports", s.handleImportAll)
		r.Get("/imports", s.handleListImports)

		r.Get("/events", s.handleListEvents)

		r.Route("/venues", func(r chi.Router) {
			r.Get("/", s.handleListVenues)
			r.Get("/{id}", s.handleGetVenue)
			r.Post("/{id}/squash", s.handleSquashVenues)
		})
	})

	return r
}

// chiMiddleware adapts a http.HandlerFunc middleware to chi's
// func(http.Handler) http.Handler shape.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}
