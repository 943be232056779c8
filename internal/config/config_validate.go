// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// recognizedVenueFields are the field names accepted in
// IdentityConfig.VenueFields.
var recognizedVenueFields = map[string]bool{
	"title":          true,
	"street_address": true,
	"locality":       true,
	"region":         true,
	"postal_code":    true,
	"country":        true,
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateGeocoder(); err != nil {
		return err
	}
	if err := c.validateIdentity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.QueryTimeout <= 0 {
		return fmt.Errorf("database.query_timeout must be positive")
	}
	return nil
}

func (c *Config) validateGeocoder() error {
	if !c.Geocoder.Enabled {
		return nil
	}

	if c.Geocoder.BaseURL == "" {
		return fmt.Errorf("geocoder.base_url is required when geocoder.enabled=true")
	}
	u, err := url.Parse(c.Geocoder.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("geocoder.base_url is not a valid URL: %q", c.Geocoder.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("geocoder.base_url must be http or https, got %q", u.Scheme)
	}
	if c.Geocoder.Timeout <= 0 {
		return fmt.Errorf("geocoder.timeout must be positive")
	}
	if c.Geocoder.RequestsPerSecond <= 0 {
		return fmt.Errorf("geocoder.requests_per_second must be positive")
	}
	return nil
}

func (c *Config) validateIdentity() error {
	if len(c.Identity.VenueFields) == 0 {
		return fmt.Errorf("identity.venue_fields must not be empty")
	}

	hasTitle := false
	for _, f := range c.Identity.VenueFields {
		name := strings.ToLower(strings.TrimSpace(f))
		if !recognizedVenueFields[name] {
			return fmt.Errorf("identity.venue_fields contains unrecognized field %q", f)
		}
		if name == "title" {
			hasTitle = true
		}
	}
	// Title equality is necessary for exact-duplicate matching; a set
	// without it would merge unrelated venues at the same address.
	if !hasTitle {
		return fmt.Errorf("identity.venue_fields must include \"title\"")
	}

	if c.Identity.MaxChainHops < 1 {
		return fmt.Errorf("identity.max_chain_hops must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled", "":
	default:
		return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error, fatal; got %q", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "console", "":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
