// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

// Package geocode resolves free-form venue addresses to coordinates and
// normalized address components using a Nominatim-compatible provider.
//
// Geocoding is best-effort infrastructure: every failure mode (timeout,
// provider error, open circuit, no match) is reported but never fatal to
// venue creation. The client rate-limits itself to the provider's budget
// and trips a circuit breaker on consecutive failures so a dead provider
// does not slow every import down to its timeout.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/eventry/eventry/internal/config"
	"github.com/eventry/eventry/internal/logging"
	"github.com/eventry/eventry/internal/metrics"
)

const userAgent = "eventry/1.0 (+https://github.com/eventry/eventry)"

// Result is the outcome of a successful lookup. Found=false means the
// provider answered but had no match for the address.
type Result struct {
	Found     bool
	Latitude  float64
	Longitude float64

	// Precision is the provider's result granularity, e.g. "house",
	// "street", "city".
	Precision string

	// Normalized address components. Blank when the provider did not
	// return that component.
	StreetAddress string
	Locality      string
	Region        string
	PostalCode    string
	Country       string
}

// Geocoder is the lookup interface the venue resolver depends on.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Result, error)
}

// ErrUnavailable is returned while the circuit is open.
var ErrUnavailable = errors.New("geocoder unavailable")

// Client talks to a Nominatim-compatible HTTP endpoint.
type Client struct {
	baseURL string
	httpc   *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*Result]
}

// NewClient builds a client from configuration. The zero rate means the
// provider imposes no budget.
func NewClient(cfg *config.GeocoderConfig) *Client {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &Client{
		baseURL: cfg.BaseURL,
		httpc:   &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
	}

	settings := gobreaker.Settings{
		Name:    "geocoder",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerTransition(name, from.String(), to.String())
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Geocoder circuit state changed")
		},
	}
	c.breaker = gobreaker.NewCircuitBreaker[*Result](settings)
	return c
}

// Geocode looks up one address. A nil-error Result with Found=false means
// the provider had no match. ErrUnavailable is returned while the circuit
// is open; callers treat it like any other lookup failure.
func (c *Client) Geocode(ctx context.Context, address string) (*Result, error) {
	if address == "" {
		return &Result{}, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("geocode rate wait: %w", err)
	}

	start := time.Now()
	res, err := c.breaker.Execute(func() (*Result, error) {
		return c.lookup(ctx, address)
	})
	if err != nil {
		metrics.RecordGeocode("error", time.Since(start))
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrUnavailable
		}
		return nil, err
	}
	if res.Found {
		metrics.RecordGeocode("hit", time.Since(start))
	} else {
		metrics.RecordGeocode("miss", time.Since(start))
	}
	return res, nil
}

// nominatimPlace is the subset of the provider's response we consume.
type nominatimPlace struct {
	Lat      string `json:"lat"`
	Lon      string `json:"lon"`
	AddrType string `json:"addresstype"`
	Address  struct {
		HouseNumber string `json:"house_number"`
		Road        string `json:"road"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		State       string `json:"state"`
		Postcode    string `json:"postcode"`
		Country     string `json:"country"`
	} `json:"address"`
}

func (c *Client) lookup(ctx context.Context, address string) (*Result, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "jsonv2")
	q.Set("addressdetails", "1")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("geocode provider returned %d", resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("geocode decode: %w", err)
	}
	if len(places) == 0 {
		return &Result{}, nil
	}
	return placeToResult(&places[0])
}

func placeToResult(p *nominatimPlace) (*Result, error) {
	var lat, lon float64
	if _, err := fmt.Sscanf(p.Lat, "%f", &lat); err != nil {
		return nil, fmt.Errorf("geocode bad latitude %q: %w", p.Lat, err)
	}
	if _, err := fmt.Sscanf(p.Lon, "%f", &lon); err != nil {
		return nil, fmt.Errorf("geocode bad longitude %q: %w", p.Lon, err)
	}

	r := &Result{
		Found:      true,
		Latitude:   lat,
		Longitude:  lon,
		Precision:  p.AddrType,
		Locality:   firstNonEmpty(p.Address.City, p.Address.Town, p.Address.Village),
		Region:     p.Address.State,
		PostalCode: p.Address.Postcode,
		Country:    p.Address.Country,
	}
	if p.Address.Road != "" {
		r.StreetAddress = p.Address.Road
		if p.Address.HouseNumber != "" {
			r.StreetAddress = p.Address.HouseNumber + " " + p.Address.Road
		}
	}
	return r, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Noop is a disabled geocoder: every lookup reports no match.
type Noop struct{}

func (Noop) Geocode(context.Context, string) (*Result, error) {
	return &Result{}, nil
}

// State reports the circuit breaker state for observability endpoints.
func (c *Client) State() string {
	return c.breaker.State().String()
}

var _ Geocoder = (*Client)(nil)
var _ Geocoder = Noop{}
