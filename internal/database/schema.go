// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

package database

import (
	"fmt"
)

// initSchema creates sequences, tables, and indexes. All statements are
// idempotent so startup against an existing database is safe.
func (db *DB) initSchema() error {
	queries := []string{
		// Sequence-backed int64 ids keep ORDER BY id monotonic with
		// insertion order, which lineage matching relies on.
		`CREATE SEQUENCE IF NOT EXISTS seq_sources START 1;`,
		`CREATE SEQUENCE IF NOT EXISTS seq_events START 1;`,
		`CREATE SEQUENCE IF NOT EXISTS seq_venues START 1;`,
		`CREATE SEQUENCE IF NOT EXISTS seq_abstract_events START 1;`,
		`CREATE SEQUENCE IF NOT EXISTS seq_abstract_locations START 1;`,

		`CREATE TABLE IF NOT EXISTS sources (
			id BIGINT PRIMARY KEY,
			url TEXT NOT NULL,
			title TEXT,
			organization_id BIGINT,
			enabled BOOLEAN NOT NULL DEFAULT true,
			last_imported_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,

		`CREATE TABLE IF NOT EXISTS events (
			id BIGINT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT,
			url TEXT,
			start_time TIMESTAMP NOT NULL,
			end_time TIMESTAMP NOT NULL,
			venue_id BIGINT,
			organization_id BIGINT,
			source_id BIGINT,
			duplicate_of_id BIGINT,
			tags TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,

		`CREATE TABLE IF NOT EXISTS venues (
			id BIGINT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT,
			address TEXT,
			url TEXT,
			street_address TEXT,
			locality TEXT,
			region TEXT,
			postal_code TEXT,
			country TEXT,
			latitude DOUBLE,
			longitude DOUBLE,
			geo_precision TEXT,
			email TEXT,
			telephone TEXT,
			source_id BIGINT,
			duplicate_of_id BIGINT,
			closed BOOLEAN NOT NULL DEFAULT false,
			wifi BOOLEAN NOT NULL DEFAULT false,
			access_notes TEXT,
			identity_hash TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (identity_hash)
		);`,

		// Venue tags live in a join table so machine-tag lookups are a
		// plain indexed query, and so squashing can leave each member's
		// tags untouched.
		`CREATE TABLE IF NOT EXISTS venue_tags (
			venue_id BIGINT NOT NULL,
			tag TEXT NOT NULL,
			UNIQUE (venue_id, tag)
		);`,

		`CREATE TABLE IF NOT EXISTS abstract_events (
			id BIGINT PRIMARY KEY,
			source_id BIGINT NOT NULL,
			external_id TEXT,
			title TEXT,
			description TEXT,
			url TEXT,
			start_time TIMESTAMP,
			end_time TIMESTAMP,
			tags TEXT,
			venue_title TEXT,
			abstract_location_id BIGINT,
			event_id BIGINT,
			venue_id BIGINT,
			organization_id BIGINT,
			result TEXT NOT NULL,
			error_detail TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,

		`CREATE TABLE IF NOT EXISTS abstract_locations (
			id BIGINT PRIMARY KEY,
			source_id BIGINT NOT NULL,
			external_id TEXT,
			title TEXT,
			description TEXT,
			address TEXT,
			url TEXT,
			street_address TEXT,
			locality TEXT,
			region TEXT,
			postal_code TEXT,
			country TEXT,
			latitude DOUBLE,
			longitude DOUBLE,
			email TEXT,
			telephone TEXT,
			tags TEXT,
			venue_id BIGINT,
			result TEXT NOT NULL DEFAULT '',
			error_detail TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,

		`CREATE INDEX IF NOT EXISTS idx_abstract_events_source ON abstract_events(source_id);`,
		`CREATE INDEX IF NOT EXISTS idx_abstract_events_external ON abstract_events(source_id, external_id);`,
		`CREATE INDEX IF NOT EXISTS idx_abstract_events_event ON abstract_events(event_id);`,
		`CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_time);`,
		`CREATE INDEX IF NOT EXISTS idx_events_venue ON events(venue_id);`,
		`CREATE INDEX IF NOT EXISTS idx_venues_duplicate ON venues(duplicate_of_id);`,
		`CREATE INDEX IF NOT EXISTS idx_venue_tags_tag ON venue_tags(tag);`,
	}

	for _, q := range queries {
		if _, err := db.conn.Exec(q); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
