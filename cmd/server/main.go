// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

// Package main is the entry point for the Eventry server.
//
// Eventry is a community events directory that imports events from
// external calendar feeds (iCalendar), reconciles them against the
// canonical event store, and serves them over a REST API.
//
// The server initializes components in the following order:
//
//  1. Configuration: koanf v2 with layered defaults, config file, env vars
//  2. Database: DuckDB with the event, venue, and lineage schema
//  3. Geocoder: rate-limited Nominatim client behind a circuit breaker
//  4. Import pipeline: feed fetcher, venue resolver, reconciler, importer
//  5. HTTP server and cron scheduler under a suture supervisor
//
// Configuration is loaded with the highest priority last:
//   - Built-in defaults
//   - Config file (eventry.yaml)
//   - Environment variables (EVENTRY_SERVER_PORT, EVENTRY_DATABASE_PATH, ...)
//
// The server handles graceful shutdown on SIGINT and SIGTERM: the
// supervisor stops the scheduler, drains in-flight HTTP requests, and
// the database is closed last.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/eventry/eventry/internal/api"
	"github.com/eventry/eventry/internal/config"
	"github.com/eventry/eventry/internal/database"
	"github.com/eventry/eventry/internal/feed"
	"github.com/eventry/eventry/internal/geocode"
	"github.com/eventry/eventry/internal/importer"
	"github.com/eventry/eventry/internal/logging"
	"github.com/eventry/eventry/internal/reconcile"
	"github.com/eventry/eventry/internal/scheduler"
	"github.com/eventry/eventry/internal/venues"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config errors are reported with the default logger because the
		// configured one is not available yet.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Bool("geocoder_enabled", cfg.Geocoder.Enabled).
		Bool("scheduler_enabled", cfg.Scheduler.Enabled).
		Msg("Configuration loaded")

	db, err := database.New(&cfg.Database, cfg.Identity.MaxChainHops)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	var geocoder geocode.Geocoder = geocode.Noop{}
	if cfg.Geocoder.Enabled {
		geocoder = geocode.NewClient(&cfg.Geocoder)
		logging.Info().Str("base_url", cfg.Geocoder.BaseURL).Msg("Geocoder enabled")
	}

	resolver := venues.NewResolver(db, geocoder, &cfg.Geocoder, &cfg.Identity)
	reconciler := reconcile.New(db, resolver)
	fetcher := feed.NewICalFetcher(&cfg.Import)
	imp := importer.New(db, fetcher, reconciler)

	server := api.NewServer(&cfg.Server, db, imp)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// sutureslog bridges supervisor events into the zerolog pipeline via
	// the slog adapter.
	hook := (&sutureslog.Handler{Logger: logging.NewSlogLogger()}).MustHook()
	sup := suture.New("eventry", suture.Spec{
		EventHook:      hook,
		FailureBackoff: 15 * time.Second,
		Timeout:        10 * time.Second,
	})

	sup.Add(api.NewHTTPService(httpServer, 10*time.Second))
	if cfg.Scheduler.Enabled {
		sup.Add(scheduler.New(&cfg.Scheduler, imp))
		logging.Info().Str("spec", cfg.Scheduler.Spec).Msg("Scheduler enabled")
	}

	logging.Info().Str("addr", httpServer.Addr).Msg("Starting Eventry")

	if err := sup.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor exited with error")
		return
	}
	logging.Info().Msg("Shutdown complete")
}
