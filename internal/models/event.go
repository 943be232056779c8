// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Source is a configured external calendar feed owned by an organization.
// A source owns its abstract-event rows; deleting a source cascades to them.
type Source struct {
	ID             int64      `json:"id"`
	URL            string     `json:"url" validate:"required,url"`
	Title          string     `json:"title"`
	OrganizationID *int64     `json:"organization_id,omitempty"`
	Enabled        bool       `json:"enabled"`
	LastImportedAt *time.Time `json:"last_imported_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Event is the canonical, user-facing event. Events may form a duplicate
// chain through DuplicateOfID; only the progenitor (chain root) is ever
// mutated by reconciliation.
type Event struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title" validate:"required,max=255"`
	Description    string    `json:"description"`
	URL            string    `json:"url" validate:"omitempty,max=255"`
	StartTime      time.Time `json:"start_time" validate:"required"`
	EndTime        time.Time `json:"end_time" validate:"required"`
	VenueID        *int64    `json:"venue_id,omitempty"`
	OrganizationID *int64    `json:"organization_id,omitempty"`
	SourceID       *int64    `json:"source_id,omitempty"`
	DuplicateOfID  *int64    `json:"duplicate_of_id,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// validate is the shared validator instance for model structs.
var validate = validator.New()

// Validate checks the event's required fields (title, start, end).
func (e *Event) Validate() error {
	return validate.Struct(e)
}

// ValidateSource checks the source's required fields.
func (s *Source) Validate() error {
	return validate.Struct(s)
}

// NormalizeTitle lowercases a title and collapses interior whitespace so
// that identity comparisons are insensitive to formatting drift in feeds.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// TruncateTitle strips surrounding whitespace and caps a title at 255
// characters, matching the column width of the canonical store.
func TruncateTitle(title string) string {
	title = strings.TrimSpace(title)
	if len(title) > 255 {
		title = title[:255]
	}
	return title
}
