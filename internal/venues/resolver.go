// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

// Package venues resolves abstract locations to canonical venues.
//
// Resolution prefers reuse over creation: an incoming location is matched
// against existing venues first by identity-field equality, then by venue
// machine tag, and only creates a new venue when both miss. Matches are
// always redirected to the progenitor of the venue's duplicate chain, so
// resolution never hands out a duplicate member.
package venues

import (
	"context"
	"errors"
	"fmt"

	"github.com/eventry/eventry/internal/config"
	"github.com/eventry/eventry/internal/database"
	"github.com/eventry/eventry/internal/geocode"
	"github.com/eventry/eventry/internal/logging"
	"github.com/eventry/eventry/internal/metrics"
	"github.com/eventry/eventry/internal/models"
)

// Store is the venue persistence surface the resolver needs.
type Store interface {
	InsertVenue(ctx context.Context, v *models.Venue, identityFields []string) error
	FindVenueByIdentityHash(ctx context.Context, hash string) (*models.Venue, error)
	FindVenueByTag(ctx context.Context, tag string) (*models.Venue, error)
	VenueProgenitor(ctx context.Context, id int64) (*models.Venue, error)
}

// ResolveError marks a location that could not be resolved to a venue. The
// importer records it on the abstract rows instead of failing the batch.
type ResolveError struct {
	Reason string
	Err    error
}

func (e *ResolveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("venue resolution failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("venue resolution failed: %s", e.Reason)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// Resolver matches abstract locations to venues.
type Resolver struct {
	store          Store
	geocoder       geocode.Geocoder
	geocodeEnabled bool
	identityFields []string
}

// NewResolver builds a resolver. Geocoding enablement is fixed at
// construction; a disabled resolver creates venues without coordinates.
func NewResolver(store Store, geocoder geocode.Geocoder, geo *config.GeocoderConfig, identity *config.IdentityConfig) *Resolver {
	gc := geocoder
	if !geo.Enabled || gc == nil {
		gc = geocode.Noop{}
	}
	return &Resolver{
		store:          store,
		geocoder:       gc,
		geocodeEnabled: geo.Enabled && geocoder != nil,
		identityFields: identity.VenueFields,
	}
}

// Resolve finds or creates the venue for one abstract location and returns
// the progenitor. A location with a blank title cannot identify a venue and
// yields a ResolveError.
func (r *Resolver) Resolve(ctx context.Context, loc *models.AbstractLocation) (*models.Venue, error) {
	candidate := r.candidateFromLocation(loc)
	if candidate.Title == "" {
		return nil, &ResolveError{Reason: "location has no title"}
	}

	// Exact duplicate: every configured identity field agrees with an
	// existing venue. Reuse it untouched.
	hash := candidate.IdentityHash(r.identityFields)
	if existing, err := r.store.FindVenueByIdentityHash(ctx, hash); err != nil {
		return nil, &ResolveError{Reason: "identity lookup", Err: err}
	} else if existing != nil {
		metrics.RecordVenueResolution("identity")
		return r.progenitor(ctx, existing)
	}

	// Venue machine tag asserts identity out-of-band.
	if tag := models.FirstVenueTag(loc.Tags); tag != "" {
		tagged, err := r.store.FindVenueByTag(ctx, tag)
		if err != nil {
			return nil, &ResolveError{Reason: "tag lookup", Err: err}
		}
		if tagged != nil {
			metrics.RecordVenueResolution("tag")
			return r.progenitor(ctx, tagged)
		}
	}

	// No match: create. Geocoding is best-effort and its failure never
	// blocks creation.
	r.geocodeCandidate(ctx, candidate)

	// Geocoding may have filled blank identity fields; check the updated
	// identity once more before creating a row.
	if rehash := candidate.IdentityHash(r.identityFields); rehash != hash {
		if existing, err := r.store.FindVenueByIdentityHash(ctx, rehash); err != nil {
			return nil, &ResolveError{Reason: "identity lookup", Err: err}
		} else if existing != nil {
			return r.progenitor(ctx, existing)
		}
	}

	if err := candidate.Validate(); err != nil {
		return nil, &ResolveError{Reason: "venue validation", Err: err}
	}

	err := r.store.InsertVenue(ctx, candidate, r.identityFields)
	if err == nil {
		metrics.RecordVenueResolution("created")
		logging.Ctx(ctx).Info().
			Int64("venue_id", candidate.ID).
			Str("title", candidate.Title).
			Msg("Created venue")
		return candidate, nil
	}
	if !errors.Is(err, database.ErrIdentityConflict) {
		return nil, &ResolveError{Reason: "venue insert", Err: err}
	}

	// A concurrent import created the identity-equal venue first. Adopt
	// the winner. Geocoding may have filled identity fields since the
	// first lookup, so the hash is recomputed.
	winner, err := r.store.FindVenueByIdentityHash(ctx, candidate.IdentityHash(r.identityFields))
	if err != nil {
		return nil, &ResolveError{Reason: "conflict re-query", Err: err}
	}
	if winner == nil {
		return nil, &ResolveError{Reason: "identity conflict with no winning row"}
	}
	metrics.RecordVenueResolution("conflict")
	return r.progenitor(ctx, winner)
}

func (r *Resolver) progenitor(ctx context.Context, v *models.Venue) (*models.Venue, error) {
	if v.DuplicateOfID == nil {
		return v, nil
	}
	master, err := r.store.VenueProgenitor(ctx, v.ID)
	if err != nil {
		return nil, &ResolveError{Reason: "duplicate chain", Err: err}
	}
	return master, nil
}

// candidateFromLocation builds an unsaved venue from the location's fields.
func (r *Resolver) candidateFromLocation(loc *models.AbstractLocation) *models.Venue {
	v := &models.Venue{
		Title:         models.TruncateTitle(loc.Title),
		Description:   loc.Description,
		Address:       loc.Address,
		URL:           loc.URL,
		StreetAddress: loc.StreetAddress,
		Locality:      loc.Locality,
		Region:        loc.Region,
		PostalCode:    loc.PostalCode,
		Country:       loc.Country,
		Latitude:      loc.Latitude,
		Longitude:     loc.Longitude,
		Email:         loc.Email,
		Telephone:     loc.Telephone,
		SourceID:      int64PtrOrNil(loc.SourceID),
		Tags:          append([]string(nil), loc.Tags...),
	}
	v.StripWhitespace()
	return v
}

// geocodeCandidate fills coordinates and blank address components from the
// provider. Skip rules: disabled geocoder, manually supplied coordinates,
// and locations with no address at all.
func (r *Resolver) geocodeCandidate(ctx context.Context, v *models.Venue) {
	if !r.geocodeEnabled || v.HasLocation() {
		return
	}
	addr := v.GeocodeAddress()
	if addr == "" {
		return
	}

	res, err := r.geocoder.Geocode(ctx, addr)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("address", addr).Msg("Geocoding failed")
		return
	}
	if !res.Found {
		return
	}

	lat, lng := res.Latitude, res.Longitude
	v.Latitude = &lat
	v.Longitude = &lng
	v.GeoPrecision = res.Precision

	// Normalized components fill blanks only; feed-supplied values win.
	if v.StreetAddress == "" {
		v.StreetAddress = res.StreetAddress
	}
	if v.Locality == "" {
		v.Locality = res.Locality
	}
	if v.Region == "" {
		v.Region = res.Region
	}
	if v.PostalCode == "" {
		v.PostalCode = res.PostalCode
	}
	if v.Country == "" {
		v.Country = res.Country
	}
}

func int64PtrOrNil(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
