// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

package venues

import (
	"context"
	"errors"
	"testing"

	"github.com/eventry/eventry/internal/config"
	"github.com/eventry/eventry/internal/database"
	"github.com/eventry/eventry/internal/geocode"
	"github.com/eventry/eventry/internal/models"
)

// mockStore is an in-memory Store for resolver tests.
type mockStore struct {
	venues         map[int64]*models.Venue
	nextID         int64
	identityFields []string

	inserts int

	// missFirstLookup makes the first identity lookup miss, simulating a
	// concurrent writer landing between lookup and insert.
	missFirstLookup bool
}

func newMockStore(fields []string) *mockStore {
	return &mockStore{venues: map[int64]*models.Venue{}, nextID: 1, identityFields: fields}
}

func (m *mockStore) add(v *models.Venue) *models.Venue {
	v.ID = m.nextID
	m.nextID++
	m.venues[v.ID] = v
	return v
}

func (m *mockStore) InsertVenue(_ context.Context, v *models.Venue, fields []string) error {
	m.inserts++
	hash := v.IdentityHash(fields)
	for _, existing := range m.venues {
		if existing.IdentityHash(fields) == hash {
			return database.ErrIdentityConflict
		}
	}
	m.add(v)
	return nil
}

func (m *mockStore) FindVenueByIdentityHash(_ context.Context, hash string) (*models.Venue, error) {
	if m.missFirstLookup {
		m.missFirstLookup = false
		return nil, nil
	}
	for _, v := range m.venues {
		if v.IdentityHash(m.identityFields) == hash {
			return v, nil
		}
	}
	return nil, nil
}

func (m *mockStore) FindVenueByTag(_ context.Context, tag string) (*models.Venue, error) {
	var best *models.Venue
	for _, v := range m.venues {
		for _, t := range v.Tags {
			if t == tag && (best == nil || v.ID < best.ID) {
				best = v
			}
		}
	}
	return best, nil
}

func (m *mockStore) VenueProgenitor(_ context.Context, id int64) (*models.Venue, error) {
	v := m.venues[id]
	for v != nil && v.DuplicateOfID != nil {
		v = m.venues[*v.DuplicateOfID]
	}
	if v == nil {
		return nil, errors.New("broken chain")
	}
	return v, nil
}

// stubGeocoder returns a fixed result.
type stubGeocoder struct {
	result *geocode.Result
	err    error
	calls  int
}

func (s *stubGeocoder) Geocode(context.Context, string) (*geocode.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.result == nil {
		return &geocode.Result{}, nil
	}
	return s.result, nil
}

var testFields = []string{"title", "locality"}

func newTestResolver(store Store, gc geocode.Geocoder, enabled bool) *Resolver {
	return NewResolver(store, gc,
		&config.GeocoderConfig{Enabled: enabled},
		&config.IdentityConfig{VenueFields: testFields})
}

func loc(title string) *models.AbstractLocation {
	return &models.AbstractLocation{SourceID: 1, Title: title}
}

func TestResolveReusesIdentityMatch(t *testing.T) {
	store := newMockStore(testFields)
	existing := store.add(&models.Venue{Title: "Crystal Ballroom", Locality: "Portland"})

	gc := &stubGeocoder{}
	r := newTestResolver(store, gc, true)

	l := loc("  crystal ballroom ")
	l.Locality = "PORTLAND"
	got, err := r.Resolve(context.Background(), l)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != existing.ID {
		t.Errorf("resolved venue %d, want existing %d", got.ID, existing.ID)
	}
	if gc.calls != 0 {
		t.Error("identity match must not geocode")
	}
	if store.inserts != 0 {
		t.Error("identity match must not insert")
	}
}

func TestResolveFollowsDuplicateChainToProgenitor(t *testing.T) {
	store := newMockStore(testFields)
	master := store.add(&models.Venue{Title: "Master Hall"})
	dup := store.add(&models.Venue{Title: "Dup Hall", DuplicateOfID: &master.ID})

	r := newTestResolver(store, geocode.Noop{}, false)
	got, err := r.Resolve(context.Background(), loc(dup.Title))
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != master.ID {
		t.Errorf("resolved %d, want progenitor %d", got.ID, master.ID)
	}
}

func TestResolveByMachineTag(t *testing.T) {
	store := newMockStore(testFields)
	tagged := store.add(&models.Venue{Title: "Legion of Tech", Tags: []string{"epdx:venue=lot"}})

	r := newTestResolver(store, geocode.Noop{}, false)

	l := loc("Totally Different Name")
	l.Tags = []string{"random", "epdx:venue=lot"}
	got, err := r.Resolve(context.Background(), l)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != tagged.ID {
		t.Errorf("resolved %d, want tagged venue %d", got.ID, tagged.ID)
	}
	if store.inserts != 0 {
		t.Error("tag match must not insert")
	}
}

func TestResolveCreatesAndGeocodes(t *testing.T) {
	store := newMockStore(testFields)
	gc := &stubGeocoder{result: &geocode.Result{
		Found: true, Latitude: 45.5, Longitude: -122.6,
		Precision: "house", Locality: "Portland", Region: "Oregon",
	}}
	r := newTestResolver(store, gc, true)

	l := loc("New Venue")
	l.Address = "1332 W Burnside St"
	got, err := r.Resolve(context.Background(), l)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID == 0 {
		t.Fatal("expected created venue with id")
	}
	if !got.HasLocation() || *got.Latitude != 45.5 {
		t.Errorf("coordinates not applied: %+v", got)
	}
	if got.Locality != "Portland" || got.Region != "Oregon" {
		t.Errorf("blank address fields not backfilled: %+v", got)
	}
	if got.GeoPrecision != "house" {
		t.Errorf("GeoPrecision = %q", got.GeoPrecision)
	}
}

func TestResolveGeocoderNeverOverwritesFeedFields(t *testing.T) {
	store := newMockStore(testFields)
	gc := &stubGeocoder{result: &geocode.Result{
		Found: true, Latitude: 1, Longitude: 2, Locality: "Wrongville",
	}}
	r := newTestResolver(store, gc, true)

	l := loc("Venue With Address")
	l.Locality = "Portland"
	got, err := r.Resolve(context.Background(), l)
	if err != nil {
		t.Fatal(err)
	}
	if got.Locality != "Portland" {
		t.Errorf("feed locality overwritten: %q", got.Locality)
	}
}

func TestResolveSkipsGeocodeForManualCoordinates(t *testing.T) {
	store := newMockStore(testFields)
	gc := &stubGeocoder{}
	r := newTestResolver(store, gc, true)

	lat, lng := 45.0, -122.0
	l := loc("Pinned Venue")
	l.Address = "somewhere"
	l.Latitude, l.Longitude = &lat, &lng
	if _, err := r.Resolve(context.Background(), l); err != nil {
		t.Fatal(err)
	}
	if gc.calls != 0 {
		t.Error("manual coordinates must skip geocoding")
	}
}

func TestResolveSkipsGeocodeWithoutAddress(t *testing.T) {
	store := newMockStore(testFields)
	gc := &stubGeocoder{}
	r := newTestResolver(store, gc, true)

	if _, err := r.Resolve(context.Background(), loc("Addressless")); err != nil {
		t.Fatal(err)
	}
	if gc.calls != 0 {
		t.Error("blank address must skip geocoding")
	}
}

func TestResolveGeocodeFailureIsNonFatal(t *testing.T) {
	store := newMockStore(testFields)
	gc := &stubGeocoder{err: geocode.ErrUnavailable}
	r := newTestResolver(store, gc, true)

	l := loc("Venue")
	l.Address = "1 Main St"
	got, err := r.Resolve(context.Background(), l)
	if err != nil {
		t.Fatalf("geocode failure must not fail resolution: %v", err)
	}
	if got.HasLocation() {
		t.Error("failed geocode must leave coordinates empty")
	}
}

func TestResolveAdoptsConflictWinner(t *testing.T) {
	store := newMockStore(testFields)
	r := newTestResolver(store, geocode.Noop{}, false)

	// Simulate a concurrent insert: the winner row already exists but the
	// first lookup misses it, so the insert hits the unique constraint and
	// the re-query adopts the winner.
	winner := store.add(&models.Venue{Title: "Raced Venue"})
	store.missFirstLookup = true

	got, err := r.Resolve(context.Background(), loc("Raced Venue"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != winner.ID {
		t.Errorf("expected conflict winner %d, got %+v", winner.ID, got)
	}
	if store.inserts != 1 {
		t.Errorf("inserts = %d, want exactly one attempt", store.inserts)
	}
}

func TestResolveBlankTitle(t *testing.T) {
	r := newTestResolver(newMockStore(testFields), geocode.Noop{}, false)

	var resolveErr *ResolveError
	_, err := r.Resolve(context.Background(), loc("   "))
	if !errors.As(err, &resolveErr) {
		t.Fatalf("expected ResolveError, got %v", err)
	}
}
