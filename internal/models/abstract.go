// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

package models

import (
	"time"
)

// AbstractEvent is a versioned snapshot of one event as seen from one
// import run of one source. Rows are append-only: every import run writes a
// new row and older rows form the lineage history, never mutated. Exactly
// one row per (source, external identity) lineage is authoritative at a
// time — the latest by id.
type AbstractEvent struct {
	ID       int64 `json:"id"`
	SourceID int64 `json:"source_id" validate:"required"`

	ExternalID  string    `json:"external_id,omitempty"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`
	Tags        []string  `json:"tags,omitempty"`

	// VenueTitle is denormalized from the abstract location at assignment
	// time so lineage matching never re-fetches the location row.
	VenueTitle string `json:"venue_title,omitempty"`

	AbstractLocationID *int64 `json:"abstract_location_id,omitempty"`

	// EventID links to the canonical event this row produced. Nil either
	// because the row was invalid or because the link was explicitly
	// removed by an operator.
	EventID *int64 `json:"event_id,omitempty"`

	// VenueID and OrganizationID are derived during reconciliation (from
	// the resolved location and the owning source) and persisted so the
	// next run can diff against this row's accepted state.
	VenueID        *int64 `json:"venue_id,omitempty"`
	OrganizationID *int64 `json:"organization_id,omitempty"`

	Result      Outcome   `json:"result"`
	ErrorDetail string    `json:"error_detail,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate checks the abstract event's required fields.
func (a *AbstractEvent) Validate() error {
	return validate.Struct(a)
}

// SetTitle assigns the title with feed hygiene applied: surrounding
// whitespace stripped and length capped at 255.
func (a *AbstractEvent) SetTitle(title string) {
	a.Title = TruncateTitle(title)
}

// AttachLocation links an abstract location and caches its title and any
// already-resolved venue id on the event row.
func (a *AbstractEvent) AttachLocation(loc *AbstractLocation) {
	if loc == nil {
		a.AbstractLocationID = nil
		a.VenueTitle = ""
		return
	}
	if loc.ID != 0 {
		id := loc.ID
		a.AbstractLocationID = &id
	}
	a.VenueTitle = loc.Title
	a.VenueID = loc.VenueID
}

// AbstractLocation is parsed location data carried alongside an abstract
// event, not yet resolved to a venue. Importing attaches it to a venue and
// that attachment is immutable; re-import attempts are a no-op.
type AbstractLocation struct {
	ID       int64 `json:"id"`
	SourceID int64 `json:"source_id"`

	ExternalID  string `json:"external_id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Address     string `json:"address"`
	URL         string `json:"url"`

	StreetAddress string `json:"street_address"`
	Locality      string `json:"locality"`
	Region        string `json:"region"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	Email     string   `json:"email"`
	Telephone string   `json:"telephone"`
	Tags      []string `json:"tags,omitempty"`

	// VenueID is set once when the location is imported and never changes.
	VenueID *int64 `json:"venue_id,omitempty"`

	// Result is LocationPending until import, then LocationImported or
	// LocationInvalid. Terminal per row.
	Result string `json:"result,omitempty"`

	ErrorDetail string    `json:"error_detail,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Imported reports whether this location has already been through venue
// resolution (successfully or not).
func (l *AbstractLocation) Imported() bool {
	return l.Result != LocationPending
}
