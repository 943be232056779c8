// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

package models

import (
	"strings"
	"testing"
	"time"
)

func TestEventValidate(t *testing.T) {
	valid := &Event{
		Title:     "Standup",
		StartTime: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid event should pass, got: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Event)
	}{
		{"missing title", func(e *Event) { e.Title = "" }},
		{"missing start", func(e *Event) { e.StartTime = time.Time{} }},
		{"missing end", func(e *Event) { e.EndTime = time.Time{} }},
		{"title too long", func(e *Event) { e.Title = strings.Repeat("x", 256) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := *valid
			tt.mutate(&e)
			if err := e.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Legion of Tech", "legion of tech"},
		{"  Legion   of\tTech ", "legion of tech"},
		{"LEGION OF TECH", "legion of tech"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncateTitle(t *testing.T) {
	long := strings.Repeat("a", 300)
	if got := TruncateTitle("  " + long); len(got) != 255 {
		t.Errorf("TruncateTitle length = %d, want 255", len(got))
	}
	if got := TruncateTitle("  Standup  "); got != "Standup" {
		t.Errorf("TruncateTitle = %q, want %q", got, "Standup")
	}
}

func TestVenueFullAddress(t *testing.T) {
	v := &Venue{
		StreetAddress: "920 SW 3rd Ave",
		Locality:      "Portland",
		Region:        "OR",
		PostalCode:    "97204",
		Country:       "US",
	}
	if !v.HasFullAddress() {
		t.Fatal("expected HasFullAddress")
	}
	got := v.FullAddress()
	for _, part := range []string{"920 SW 3rd Ave", "Portland", "OR", "97204", "US"} {
		if !strings.Contains(got, part) {
			t.Errorf("FullAddress %q missing %q", got, part)
		}
	}

	empty := &Venue{Address: "somewhere in town"}
	if empty.HasFullAddress() {
		t.Error("free-form address should not count as full address")
	}
	if empty.GeocodeAddress() != "somewhere in town" {
		t.Errorf("GeocodeAddress fell through incorrectly: %q", empty.GeocodeAddress())
	}
}

func TestVenueIdentityHash(t *testing.T) {
	fields := []string{"title", "locality"}

	a := &Venue{Title: "Legion of Tech", Locality: "Portland"}
	b := &Venue{Title: "  LEGION  of tech ", Locality: "portland"}
	c := &Venue{Title: "Legion of Tech", Locality: "Salem"}

	if a.IdentityHash(fields) != b.IdentityHash(fields) {
		t.Error("normalized-equal venues should hash identically")
	}
	if a.IdentityHash(fields) == c.IdentityHash(fields) {
		t.Error("venues differing on an identity field should hash differently")
	}

	// Field order in the configured set must not matter.
	if a.IdentityHash([]string{"locality", "title"}) != a.IdentityHash(fields) {
		t.Error("identity hash should be order-independent")
	}

	// Volatile fields must not affect the hash.
	d := &Venue{Title: "Legion of Tech", Locality: "Portland", WiFi: true, Closed: true, Description: "different"}
	if a.IdentityHash(fields) != d.IdentityHash(fields) {
		t.Error("descriptive fields must not participate in identity")
	}
}

func TestVenueIdentityEqual(t *testing.T) {
	fields := []string{"title", "postal_code"}
	a := &Venue{Title: "City Hall", PostalCode: "97204"}
	b := &Venue{Title: "city hall", PostalCode: "97204", Telephone: "555"}
	if !a.IdentityEqual(b, fields) {
		t.Error("expected identity equality")
	}
	b.PostalCode = "97205"
	if a.IdentityEqual(b, fields) {
		t.Error("expected identity inequality after postal change")
	}
}

func TestVenueCoordinateValidation(t *testing.T) {
	lat, lng := 45.5, -122.6
	v := &Venue{Title: "OK", Latitude: &lat, Longitude: &lng}
	if err := v.Validate(); err != nil {
		t.Errorf("in-range coordinates should pass: %v", err)
	}

	bad := 181.0
	v.Latitude = &bad
	if err := v.Validate(); err == nil {
		t.Error("latitude outside -180..180 should fail validation")
	}
}

func TestAttachLocationCachesVenueTitle(t *testing.T) {
	venueID := int64(7)
	loc := &AbstractLocation{ID: 3, Title: "Crystal Ballroom", VenueID: &venueID}

	var ae AbstractEvent
	ae.AttachLocation(loc)

	if ae.VenueTitle != "Crystal Ballroom" {
		t.Errorf("VenueTitle = %q, want cached location title", ae.VenueTitle)
	}
	if ae.AbstractLocationID == nil || *ae.AbstractLocationID != 3 {
		t.Error("AbstractLocationID not linked")
	}
	if ae.VenueID == nil || *ae.VenueID != 7 {
		t.Error("VenueID not carried from resolved location")
	}

	ae.AttachLocation(nil)
	if ae.VenueTitle != "" || ae.AbstractLocationID != nil {
		t.Error("nil location should clear the link")
	}
}

func TestParseMachineTag(t *testing.T) {
	tests := []struct {
		in      string
		want    MachineTag
		wantOK  bool
		isVenue bool
	}{
		{"epdx:venue=legion-of-tech", MachineTag{"epdx", "venue", "legion-of-tech"}, true, true},
		{"epdx:group=pdxruby", MachineTag{"epdx", "group", "pdxruby"}, true, false},
		{"plain-tag", MachineTag{}, false, false},
		{"novalue:venue=", MachineTag{}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseMachineTag(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseMachineTag = %+v, want %+v", got, tt.want)
			}
			if IsVenueTag(tt.in) != tt.isVenue {
				t.Errorf("IsVenueTag = %v, want %v", IsVenueTag(tt.in), tt.isVenue)
			}
		})
	}
}

func TestFirstVenueTag(t *testing.T) {
	tags := []string{"music", "epdx:group=x", "epdx:venue=crystal", "epdx:venue=other"}
	if got := FirstVenueTag(tags); got != "epdx:venue=crystal" {
		t.Errorf("FirstVenueTag = %q", got)
	}
	if got := FirstVenueTag([]string{"music"}); got != "" {
		t.Errorf("FirstVenueTag on plain tags = %q, want empty", got)
	}
}

func TestAbstractLocationImported(t *testing.T) {
	l := &AbstractLocation{}
	if l.Imported() {
		t.Error("pending location should not be imported")
	}
	l.Result = LocationImported
	if !l.Imported() {
		t.Error("imported location should report imported")
	}
	l.Result = LocationInvalid
	if !l.Imported() {
		t.Error("invalid outcome still terminates the location lifecycle")
	}
}
