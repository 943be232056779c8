// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

package database

import (
	"context"
	"testing"
	"time"

	"github.com/eventry/eventry/internal/config"
	"github.com/eventry/eventry/internal/models"
)

// setupTestDB creates a new in-memory test database. DuckDB runs through
// CGO, so database creation is kept serial per test via t.Cleanup close.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Path:         ":memory:",
		MaxMemory:    "512MB",
		QueryTimeout: 30 * time.Second,
	}

	db, err := New(cfg, 32)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})
	return db
}

func testSource(t *testing.T, db *DB) *models.Source {
	t.Helper()
	src := &models.Source{URL: "https://calendar.example.com/events.ics", Title: "Example Feed", Enabled: true}
	if err := db.InsertSource(context.Background(), src); err != nil {
		t.Fatalf("InsertSource: %v", err)
	}
	return src
}

func TestInsertAndGetSource(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	src := testSource(t, db)
	if src.ID == 0 {
		t.Fatal("expected id to be assigned")
	}

	got, err := db.GetSource(ctx, src.ID)
	if err != nil {
		t.Fatalf("GetSource: %v", err)
	}
	if got.URL != src.URL || got.Title != src.Title || !got.Enabled {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if got.LastImportedAt != nil {
		t.Error("new source should have no import timestamp")
	}
}

func TestTouchSourceImported(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	src := testSource(t, db)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := db.TouchSourceImported(ctx, src.ID, at); err != nil {
		t.Fatalf("TouchSourceImported: %v", err)
	}

	got, err := db.GetSource(ctx, src.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.LastImportedAt == nil || !got.LastImportedAt.Equal(at) {
		t.Errorf("LastImportedAt = %v, want %v", got.LastImportedAt, at)
	}

	if err := db.TouchSourceImported(ctx, 9999, at); !IsNotFound(err) {
		t.Errorf("expected NotFoundError for missing source, got %v", err)
	}
}

func TestEventRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	ev := &models.Event{
		Title:       "Standup",
		Description: "Morning sync",
		URL:         "https://example.com/standup",
		StartTime:   time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC),
		Tags:        []string{"work", "recurring"},
	}
	if err := db.InsertEvent(ctx, ev); err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}

	got, err := db.GetEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if got.Title != ev.Title || !got.StartTime.Equal(ev.StartTime) {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "work" {
		t.Errorf("tags mismatch: %v", got.Tags)
	}

	got.Title = "Renamed"
	if err := db.UpdateEvent(ctx, got); err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}
	again, err := db.GetEvent(ctx, ev.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.Title != "Renamed" {
		t.Errorf("update not persisted: %q", again.Title)
	}
}

func TestGetEventNotFound(t *testing.T) {
	db := setupTestDB(t)
	if _, err := db.GetEvent(context.Background(), 404); !IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestEventProgenitorFollowsChain(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	root := &models.Event{Title: "Root", StartTime: start, EndTime: end}
	if err := db.InsertEvent(ctx, root); err != nil {
		t.Fatal(err)
	}
	mid := &models.Event{Title: "Mid", StartTime: start, EndTime: end, DuplicateOfID: &root.ID}
	if err := db.InsertEvent(ctx, mid); err != nil {
		t.Fatal(err)
	}
	leaf := &models.Event{Title: "Leaf", StartTime: start, EndTime: end, DuplicateOfID: &mid.ID}
	if err := db.InsertEvent(ctx, leaf); err != nil {
		t.Fatal(err)
	}

	got, err := db.EventProgenitor(ctx, leaf.ID)
	if err != nil {
		t.Fatalf("EventProgenitor: %v", err)
	}
	if got.ID != root.ID {
		t.Errorf("progenitor = %d, want root %d", got.ID, root.ID)
	}
}

func TestEventProgenitorCycleGuard(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	a := &models.Event{Title: "A", StartTime: start, EndTime: end}
	if err := db.InsertEvent(ctx, a); err != nil {
		t.Fatal(err)
	}
	b := &models.Event{Title: "B", StartTime: start, EndTime: end, DuplicateOfID: &a.ID}
	if err := db.InsertEvent(ctx, b); err != nil {
		t.Fatal(err)
	}

	// Corrupt the chain into a cycle.
	a.DuplicateOfID = &b.ID
	if err := db.UpdateEvent(ctx, a); err != nil {
		t.Fatal(err)
	}

	if _, err := db.EventProgenitor(ctx, a.ID); err == nil {
		t.Error("expected cycle guard error, got nil")
	}
}

func TestVenueIdentityConflict(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	fields := []string{"title", "locality"}

	v1 := &models.Venue{Title: "Crystal Ballroom", Locality: "Portland"}
	if err := db.InsertVenue(ctx, v1, fields); err != nil {
		t.Fatalf("InsertVenue: %v", err)
	}

	// Identity-equal candidate must hit the unique constraint.
	v2 := &models.Venue{Title: "  crystal BALLROOM ", Locality: "portland", WiFi: true}
	err := db.InsertVenue(ctx, v2, fields)
	if err != ErrIdentityConflict {
		t.Fatalf("expected ErrIdentityConflict, got %v", err)
	}

	// The winner is findable by hash for the retry path.
	winner, err := db.FindVenueByIdentityHash(ctx, v2.IdentityHash(fields))
	if err != nil {
		t.Fatal(err)
	}
	if winner == nil || winner.ID != v1.ID {
		t.Errorf("expected to find original venue by hash, got %+v", winner)
	}
}

func TestFindVenueByTag(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	fields := []string{"title"}

	v := &models.Venue{Title: "Legion of Tech", Tags: []string{"epdx:venue=legion-of-tech", "tech"}}
	if err := db.InsertVenue(ctx, v, fields); err != nil {
		t.Fatal(err)
	}

	got, err := db.FindVenueByTag(ctx, "epdx:venue=legion-of-tech")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != v.ID {
		t.Fatalf("FindVenueByTag = %+v, want venue %d", got, v.ID)
	}
	if len(got.Tags) != 2 {
		t.Errorf("tags not loaded: %v", got.Tags)
	}

	miss, err := db.FindVenueByTag(ctx, "epdx:venue=unknown")
	if err != nil {
		t.Fatal(err)
	}
	if miss != nil {
		t.Errorf("expected nil for unknown tag, got %+v", miss)
	}
}

func TestAbstractEventMatchers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	src := testSource(t, db)

	start := time.Date(2026, 2, 1, 19, 0, 0, 0, time.UTC)

	first := &models.AbstractEvent{
		SourceID:   src.ID,
		ExternalID: "ext-1",
		Title:      "Concert",
		StartTime:  start,
		EndTime:    start.Add(2 * time.Hour),
		VenueTitle: "Crystal Ballroom",
		Result:     models.OutcomeCreated,
	}
	if err := db.InsertAbstractEvent(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := &models.AbstractEvent{
		SourceID:   src.ID,
		ExternalID: "ext-1",
		Title:      "Concert (updated)",
		StartTime:  start,
		EndTime:    start.Add(2 * time.Hour),
		VenueTitle: "Crystal Ballroom",
		Result:     models.OutcomeUpdated,
	}
	if err := db.InsertAbstractEvent(ctx, second); err != nil {
		t.Fatal(err)
	}

	// Latest row wins on external id.
	got, err := db.LatestAbstractEventByExternalID(ctx, src.ID, "ext-1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != second.ID {
		t.Errorf("latest by external id = %+v, want row %d", got, second.ID)
	}

	// Start+title matcher.
	got, err = db.LatestAbstractEventByStartTitle(ctx, src.ID, start, "Concert")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != first.ID {
		t.Errorf("latest by start+title matched %+v, want row %d", got, first.ID)
	}

	// Start+venue title matcher.
	got, err = db.LatestAbstractEventByStartVenueTitle(ctx, src.ID, start, "Crystal Ballroom")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != second.ID {
		t.Errorf("latest by start+venue = %+v, want row %d", got, second.ID)
	}

	// No hit returns nil, not an error.
	got, err = db.LatestAbstractEventByExternalID(ctx, src.ID, "ext-404")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown external id, got %+v", got)
	}
}

func TestAbstractLocationFinalizeOnce(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	src := testSource(t, db)

	al := &models.AbstractLocation{SourceID: src.ID, Title: "Crystal Ballroom"}
	if err := db.InsertAbstractLocation(ctx, al); err != nil {
		t.Fatal(err)
	}

	venueID := int64(42)
	if err := db.FinalizeAbstractLocation(ctx, al.ID, &venueID, models.LocationImported, ""); err != nil {
		t.Fatal(err)
	}

	// A second finalize must not overwrite the attachment.
	otherID := int64(99)
	if err := db.FinalizeAbstractLocation(ctx, al.ID, &otherID, models.LocationImported, ""); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetAbstractLocation(ctx, al.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.VenueID == nil || *got.VenueID != 42 {
		t.Errorf("venue attachment changed after re-finalize: %+v", got.VenueID)
	}
	if got.Result != models.LocationImported {
		t.Errorf("Result = %q, want imported", got.Result)
	}
}

func TestDeleteSourceCascades(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	src := testSource(t, db)

	ae := &models.AbstractEvent{SourceID: src.ID, Title: "Orphan", Result: models.OutcomeInvalid}
	if err := db.InsertAbstractEvent(ctx, ae); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteSource(ctx, src.ID); err != nil {
		t.Fatalf("DeleteSource: %v", err)
	}

	rows, err := db.ListAbstractEventsBySource(ctx, src.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Errorf("abstract events survived source deletion: %d rows", len(rows))
	}

	if _, err := db.GetSource(ctx, src.ID); !IsNotFound(err) {
		t.Errorf("expected NotFoundError after delete, got %v", err)
	}
}
