// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

// Package config provides layered configuration for Eventry.
//
// Configuration is loaded with koanf in three layers with clear precedence:
// built-in defaults, then an optional YAML config file, then environment
// variables. See Load for details.
package config

import (
	"time"
)

// Config is the root configuration for the Eventry server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Geocoder  GeocoderConfig  `koanf:"geocoder"`
	Import    ImportConfig    `koanf:"import"`
	Identity  IdentityConfig  `koanf:"identity"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// RateLimitReqs is the per-IP request budget per RateLimitWindow.
	// Zero disables rate limiting.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the database file path, or ":memory:" for an in-memory store.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	// Threads is the DuckDB thread count. 0 = use runtime.NumCPU().
	Threads int `koanf:"threads"`
	// QueryTimeout bounds individual statements when the caller's context
	// carries no deadline of its own.
	QueryTimeout time.Duration `koanf:"query_timeout"`
}

// GeocoderConfig holds settings for the external geocoding service.
//
// Geocoding enablement is explicit configuration handed to the venue
// resolver at construction, never process-wide mutable state.
type GeocoderConfig struct {
	Enabled bool   `koanf:"enabled"`
	BaseURL string `koanf:"base_url"`

	// Timeout bounds a single geocode request. Failures past the timeout
	// are non-fatal to venue creation.
	Timeout time.Duration `koanf:"timeout"`

	// RequestsPerSecond throttles calls to the provider. Most public
	// Nominatim instances require at most 1 req/s.
	RequestsPerSecond float64 `koanf:"requests_per_second"`

	// Breaker settings: the circuit opens after BreakerFailures consecutive
	// failures and half-opens after BreakerCooldown.
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerCooldown time.Duration `koanf:"breaker_cooldown"`
}

// ImportConfig holds import pipeline settings.
type ImportConfig struct {
	// FetchTimeout bounds the feed download for one source.
	FetchTimeout time.Duration `koanf:"fetch_timeout"`

	// FutureOnly restricts imports to events that have not yet ended.
	FutureOnly bool `koanf:"future_only"`

	// MaxRecords caps records consumed from a single feed. 0 = unlimited.
	MaxRecords int `koanf:"max_records"`

	// RecurrenceHorizon bounds how far ahead recurring events are expanded.
	RecurrenceHorizon time.Duration `koanf:"recurrence_horizon"`
}

// IdentityConfig names the venue identity-field set used for exact-duplicate
// matching. The production set is a deployment decision; it always includes
// the normalized title, and never includes volatile descriptive fields
// (coordinates, contact info, free text, source id).
type IdentityConfig struct {
	// VenueFields are the fields hashed and compared for exact-duplicate
	// venue detection. Recognized names: title, street_address, locality,
	// region, postal_code, country.
	VenueFields []string `koanf:"venue_fields"`

	// MaxChainHops bounds duplicate-chain traversal. Chains are untrusted
	// mutable data and a guard keeps progenitor lookup terminating.
	MaxChainHops int `koanf:"max_chain_hops"`
}

// SchedulerConfig holds periodic import settings.
type SchedulerConfig struct {
	Enabled bool `koanf:"enabled"`
	// Spec is a cron expression controlling when all sources are imported.
	Spec string `koanf:"spec"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8723,
			Timeout:         30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Database: DatabaseConfig{
			Path:         "/data/eventry.duckdb",
			MaxMemory:    "1GB",
			Threads:      0,
			QueryTimeout: 30 * time.Second,
		},
		Geocoder: GeocoderConfig{
			Enabled:           true,
			BaseURL:           "https://nominatim.openstreetmap.org",
			Timeout:           3 * time.Second,
			RequestsPerSecond: 1,
			BreakerFailures:   5,
			BreakerCooldown:   60 * time.Second,
		},
		Import: ImportConfig{
			FetchTimeout:      30 * time.Second,
			FutureOnly:        true,
			MaxRecords:        0,
			RecurrenceHorizon: 365 * 24 * time.Hour,
		},
		Identity: IdentityConfig{
			VenueFields:  []string{"title", "street_address", "locality", "postal_code"},
			MaxChainHops: 32,
		},
		Scheduler: SchedulerConfig{
			Enabled: false,
			Spec:    "@hourly",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
