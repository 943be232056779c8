// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eventry/eventry/internal/config"
)

func testConfig(baseURL string) *config.GeocoderConfig {
	return &config.GeocoderConfig{
		Enabled:           true,
		BaseURL:           baseURL,
		Timeout:           2 * time.Second,
		RequestsPerSecond: 0, // unthrottled in tests
		BreakerFailures:   3,
		BreakerCooldown:   time.Minute,
	}
}

const nominatimResponse = `[{
	"lat": "45.5227",
	"lon": "-122.6847",
	"addresstype": "house",
	"address": {
		"house_number": "1332",
		"road": "W Burnside St",
		"city": "Portland",
		"state": "Oregon",
		"postcode": "97209",
		"country": "United States"
	}
}]`

func TestGeocodeSuccess(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		if ua := r.Header.Get("User-Agent"); ua == "" {
			t.Error("missing User-Agent header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(nominatimResponse))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	res, err := c.Geocode(context.Background(), "1332 W Burnside St, Portland OR")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if gotQuery != "1332 W Burnside St, Portland OR" {
		t.Errorf("query = %q", gotQuery)
	}
	if !res.Found {
		t.Fatal("expected a match")
	}
	if res.Latitude != 45.5227 || res.Longitude != -122.6847 {
		t.Errorf("coordinates = %v, %v", res.Latitude, res.Longitude)
	}
	if res.StreetAddress != "1332 W Burnside St" {
		t.Errorf("StreetAddress = %q", res.StreetAddress)
	}
	if res.Locality != "Portland" || res.Region != "Oregon" ||
		res.PostalCode != "97209" || res.Country != "United States" {
		t.Errorf("address components: %+v", res)
	}
	if res.Precision != "house" {
		t.Errorf("Precision = %q", res.Precision)
	}
}

func TestGeocodeNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	res, err := c.Geocode(context.Background(), "nowhere at all")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if res.Found {
		t.Error("expected no match")
	}
}

func TestGeocodeEmptyAddressSkipsProvider(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	res, err := c.Geocode(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Found || called {
		t.Error("blank address must not reach the provider")
	}
}

func TestGeocodeBreakerOpensAfterFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.Geocode(ctx, "some address"); err == nil {
			t.Fatalf("request %d: expected provider error", i)
		}
	}

	// Circuit is now open; the next call short-circuits.
	_, err := c.Geocode(ctx, "some address")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable with open circuit, got %v", err)
	}
	if c.State() != "open" {
		t.Errorf("breaker state = %q, want open", c.State())
	}
}

func TestGeocodeLocalityFallsBackToTown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"lat":"51.1","lon":"0.5","addresstype":"town",
			"address":{"town":"Cranbrook","country":"United Kingdom"}}]`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	res, err := c.Geocode(context.Background(), "Cranbrook")
	if err != nil {
		t.Fatal(err)
	}
	if res.Locality != "Cranbrook" {
		t.Errorf("Locality = %q, want town fallback", res.Locality)
	}
}

func TestNoopGeocoder(t *testing.T) {
	res, err := Noop{}.Geocode(context.Background(), "anywhere")
	if err != nil {
		t.Fatal(err)
	}
	if res.Found {
		t.Error("noop geocoder must never find anything")
	}
}
