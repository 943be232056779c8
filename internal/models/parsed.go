// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

package models

import (
	"time"
)

// ParsedEvent is the shape handed to the reconciler by feed front-ends.
// Feed-specific token parsing happens upstream; the core consumes exactly
// this record.
type ParsedEvent struct {
	ExternalID  string
	Title       string
	Description string
	URL         string
	StartTime   time.Time
	EndTime     time.Time
	Tags        []string
	Location    *ParsedLocation
}

// ParsedLocation is the location data carried on a parsed event.
type ParsedLocation struct {
	ExternalID  string
	Title       string
	Description string
	Address     string
	URL         string

	StreetAddress string
	Locality      string
	Region        string
	PostalCode    string
	Country       string

	Latitude  *float64
	Longitude *float64

	Email     string
	Telephone string
	Tags      []string
}

// ToAbstractLocation converts the parsed location into an unsaved
// abstract-location row for the given source.
func (p *ParsedLocation) ToAbstractLocation(sourceID int64) *AbstractLocation {
	if p == nil {
		return nil
	}
	return &AbstractLocation{
		SourceID:      sourceID,
		ExternalID:    p.ExternalID,
		Title:         TruncateTitle(p.Title),
		Description:   p.Description,
		Address:       p.Address,
		URL:           p.URL,
		StreetAddress: p.StreetAddress,
		Locality:      p.Locality,
		Region:        p.Region,
		PostalCode:    p.PostalCode,
		Country:       p.Country,
		Latitude:      p.Latitude,
		Longitude:     p.Longitude,
		Email:         p.Email,
		Telephone:     p.Telephone,
		Tags:          append([]string(nil), p.Tags...),
	}
}
