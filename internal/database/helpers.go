// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

package database

import (
	"database/sql"
	"time"

	json "github.com/goccy/go-json"

	"github.com/eventry/eventry/internal/logging"
)

// marshalTags encodes a tag list as JSON text for storage. nil and empty
// encode identically.
func marshalTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	b, err := json.Marshal(tags)
	if err != nil {
		// []string cannot fail to marshal; log and degrade.
		logging.Warn().Err(err).Msg("Failed to marshal tags")
		return "[]"
	}
	return string(b)
}

// unmarshalTags decodes JSON tag text. Malformed or empty text yields nil.
func unmarshalTags(s sql.NullString) []string {
	if !s.Valid || s.String == "" || s.String == "[]" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(s.String), &tags); err != nil {
		logging.Warn().Err(err).Str("raw", s.String).Msg("Failed to unmarshal tags")
		return nil
	}
	return tags
}

// nullInt64 converts an optional id for use as a query argument.
func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

// int64Ptr converts a scanned nullable id back to an optional value.
func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// nullFloat64 converts an optional coordinate for use as a query argument.
func nullFloat64(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

// float64Ptr converts a scanned nullable coordinate back to an optional value.
func float64Ptr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// nullTime converts a possibly-zero time for storage; zero stores as NULL.
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

// timeValue converts a scanned nullable timestamp; NULL loads as zero time.
func timeValue(n sql.NullTime) time.Time {
	if !n.Valid {
		return time.Time{}
	}
	return n.Time
}

// nullString stores empty strings as NULL so blank-field matcher rules
// ("never match on partial data") see one representation of absence.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// stringValue converts a scanned nullable string; NULL loads as "".
func stringValue(n sql.NullString) string {
	if !n.Valid {
		return ""
	}
	return n.String
}
