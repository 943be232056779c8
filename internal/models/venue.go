// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

package models

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// Venue is a canonical location. Venues form a duplicate chain through
// DuplicateOfID analogous to events; duplicate members are read-only
// redirection targets and only the progenitor is authoritative.
type Venue struct {
	ID          int64  `json:"id"`
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	Address     string `json:"address" validate:"omitempty,max=255"`
	URL         string `json:"url" validate:"omitempty,max=255"`

	StreetAddress string `json:"street_address" validate:"omitempty,max=255"`
	Locality      string `json:"locality" validate:"omitempty,max=255"`
	Region        string `json:"region" validate:"omitempty,max=255"`
	PostalCode    string `json:"postal_code" validate:"omitempty,max=255"`
	Country       string `json:"country" validate:"omitempty,max=255"`

	Latitude     *float64 `json:"latitude,omitempty" validate:"omitempty,min=-180,max=180"`
	Longitude    *float64 `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
	GeoPrecision string   `json:"geo_precision,omitempty"`

	Email     string `json:"email" validate:"omitempty,max=255"`
	Telephone string `json:"telephone" validate:"omitempty,max=255"`

	SourceID      *int64   `json:"source_id,omitempty"`
	DuplicateOfID *int64   `json:"duplicate_of_id,omitempty"`
	Closed        bool     `json:"closed"`
	WiFi          bool     `json:"wifi"`
	AccessNotes   string   `json:"access_notes,omitempty"`
	Tags          []string `json:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the venue's required fields and coordinate ranges.
func (v *Venue) Validate() error {
	return validate.Struct(v)
}

// StripWhitespace trims surrounding whitespace from all free-text fields,
// mirroring what feeds tend to leave behind.
func (v *Venue) StripWhitespace() {
	v.Title = strings.TrimSpace(v.Title)
	v.Description = strings.TrimSpace(v.Description)
	v.Address = strings.TrimSpace(v.Address)
	v.URL = strings.TrimSpace(v.URL)
	v.StreetAddress = strings.TrimSpace(v.StreetAddress)
	v.Locality = strings.TrimSpace(v.Locality)
	v.Region = strings.TrimSpace(v.Region)
	v.PostalCode = strings.TrimSpace(v.PostalCode)
	v.Country = strings.TrimSpace(v.Country)
	v.Email = strings.TrimSpace(v.Email)
	v.Telephone = strings.TrimSpace(v.Telephone)
}

// HasFullAddress reports whether any structured address component is set.
func (v *Venue) HasFullAddress() bool {
	return v.StreetAddress != "" || v.Locality != "" || v.Region != "" ||
		v.PostalCode != "" || v.Country != ""
}

// FullAddress renders the structured address as a single line, or "" when
// no structured components are present.
func (v *Venue) FullAddress() string {
	if !v.HasFullAddress() {
		return ""
	}
	return strings.TrimSpace(v.StreetAddress + ", " + strings.TrimSpace(
		v.Locality+" "+v.Region+" "+v.PostalCode+" "+v.Country))
}

// GeocodeAddress returns the string handed to the geocoder: the structured
// address when present, otherwise the free-form one.
func (v *Venue) GeocodeAddress() string {
	if full := v.FullAddress(); full != "" {
		return full
	}
	return v.Address
}

// HasLocation reports whether the venue carries a coordinate pair.
func (v *Venue) HasLocation() bool {
	return v.Latitude != nil && v.Longitude != nil
}

// identityFieldValue returns the normalized value of one identity field.
// Unrecognized names return "", which the config layer prevents.
func (v *Venue) identityFieldValue(field string) string {
	switch field {
	case "title":
		return NormalizeTitle(v.Title)
	case "street_address":
		return strings.ToLower(strings.TrimSpace(v.StreetAddress))
	case "locality":
		return strings.ToLower(strings.TrimSpace(v.Locality))
	case "region":
		return strings.ToLower(strings.TrimSpace(v.Region))
	case "postal_code":
		return strings.ToLower(strings.TrimSpace(v.PostalCode))
	case "country":
		return strings.ToLower(strings.TrimSpace(v.Country))
	}
	return ""
}

// IdentityHash hashes the venue's identity fields into a stable hex digest.
// The store keeps a unique constraint on this hash so that concurrent
// resolution of the same new venue collapses to one row. Field order in the
// configured set does not affect the digest.
func (v *Venue) IdentityHash(fields []string) string {
	normalized := make([]string, 0, len(fields))
	for _, f := range fields {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(f)))
	}
	sort.Strings(normalized)

	h := sha256.New()
	for _, f := range normalized {
		h.Write([]byte(f))
		h.Write([]byte{0})
		h.Write([]byte(v.identityFieldValue(f)))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// IdentityEqual reports whether two venues agree on every configured
// identity field. Volatile descriptive fields never participate.
func (v *Venue) IdentityEqual(other *Venue, fields []string) bool {
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if v.identityFieldValue(f) != other.identityFieldValue(f) {
			return false
		}
	}
	return true
}
