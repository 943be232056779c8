// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

// Package feed downloads and parses calendar feeds into the records the
// reconciler consumes.
//
// A fetch that cannot reach or read the feed fails the whole batch with an
// UnreachableError; a reachable feed with zero events is an empty batch,
// which is a different thing and not an error at all.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/eventry/eventry/internal/config"
	"github.com/eventry/eventry/internal/logging"
	"github.com/eventry/eventry/internal/models"
)

// UnreachableError means the feed itself could not be fetched or parsed.
// The importer aborts the batch on it instead of recording per-event
// failures.
type UnreachableError struct {
	URL string
	Err error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("source %s unreachable: %v", e.URL, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// Fetcher downloads one source and returns its parsed records.
type Fetcher interface {
	Fetch(ctx context.Context, src *models.Source) ([]*models.ParsedEvent, error)
}

// ICalFetcher fetches and parses iCalendar feeds.
type ICalFetcher struct {
	httpc *http.Client
	cfg   config.ImportConfig
	now   func() time.Time
}

// NewICalFetcher builds a fetcher from import configuration.
func NewICalFetcher(cfg *config.ImportConfig) *ICalFetcher {
	return &ICalFetcher{
		httpc: &http.Client{Timeout: cfg.FetchTimeout},
		cfg:   *cfg,
		now:   time.Now,
	}
}

// Fetch downloads and parses the source's feed. Recurring events are
// expanded into individual records within the configured horizon.
func (f *ICalFetcher) Fetch(ctx context.Context, src *models.Source) ([]*models.ParsedEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, &UnreachableError{URL: src.URL, Err: err}
	}
	req.Header.Set("Accept", "text/calendar, */*")

	resp, err := f.httpc.Do(req)
	if err != nil {
		return nil, &UnreachableError{URL: src.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UnreachableError{URL: src.URL,
			Err: fmt.Errorf("feed returned status %d", resp.StatusCode)}
	}

	cal, err := ics.ParseCalendar(resp.Body)
	if err != nil {
		return nil, &UnreachableError{URL: src.URL,
			Err: fmt.Errorf("feed is not parseable: %w", err)}
	}

	return f.recordsFromCalendar(ctx, cal), nil
}

func (f *ICalFetcher) recordsFromCalendar(ctx context.Context, cal *ics.Calendar) []*models.ParsedEvent {
	now := f.now().UTC()
	records := make([]*models.ParsedEvent, 0, len(cal.Events()))

	for _, ve := range cal.Events() {
		rec, rruleStr, err := f.recordFromVEvent(ve)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("uid", ve.Id()).Msg("Skipping malformed calendar entry")
			continue
		}

		if rruleStr != "" {
			records = append(records, f.expandRecurrence(ctx, rec, rruleStr, now)...)
		} else {
			records = append(records, rec)
		}

		if f.cfg.MaxRecords > 0 && len(records) >= f.cfg.MaxRecords {
			records = records[:f.cfg.MaxRecords]
			break
		}
	}

	if f.cfg.FutureOnly {
		future := records[:0]
		for _, r := range records {
			if r.EndTime.After(now) {
				future = append(future, r)
			}
		}
		records = future
	}
	return records
}

func (f *ICalFetcher) recordFromVEvent(ve *ics.VEvent) (*models.ParsedEvent, string, error) {
	start, err := ve.GetStartAt()
	if err != nil {
		return nil, "", fmt.Errorf("entry has no start time: %w", err)
	}
	end, err := ve.GetEndAt()
	if err != nil || end.Before(start) {
		// Feeds routinely omit DTEND; treat such events as ending an
		// hour after they start.
		end = start.Add(time.Hour)
	}

	rec := &models.ParsedEvent{
		ExternalID:  ve.Id(),
		Title:       propValue(ve, ics.ComponentPropertySummary),
		Description: propValue(ve, ics.ComponentPropertyDescription),
		URL:         propValue(ve, ics.ComponentPropertyUrl),
		StartTime:   start.UTC(),
		EndTime:     end.UTC(),
	}

	if cats := propValue(ve, ics.ComponentProperty(ics.PropertyCategories)); cats != "" {
		for _, c := range strings.Split(cats, ",") {
			if c = strings.TrimSpace(c); c != "" {
				rec.Tags = append(rec.Tags, c)
			}
		}
	}

	if locTitle := propValue(ve, ics.ComponentPropertyLocation); locTitle != "" {
		loc := &models.ParsedLocation{Title: locTitle}
		if lat, lng, ok := parseGeo(propValue(ve, ics.ComponentProperty(ics.PropertyGeo))); ok {
			loc.Latitude = &lat
			loc.Longitude = &lng
		}
		rec.Location = loc
	}

	return rec, propValue(ve, ics.ComponentProperty(ics.PropertyRrule)), nil
}

// expandRecurrence turns a recurring entry into discrete records inside the
// horizon. Each occurrence gets a distinct external id so occurrences keep
// their own lineages.
func (f *ICalFetcher) expandRecurrence(ctx context.Context, rec *models.ParsedEvent, rruleStr string, now time.Time) []*models.ParsedEvent {
	opt, err := rrule.StrToROption(rruleStr)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("rrule", rruleStr).Msg("Unparseable recurrence rule, keeping single occurrence")
		return []*models.ParsedEvent{rec}
	}
	opt.Dtstart = rec.StartTime

	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("rrule", rruleStr).Msg("Invalid recurrence rule, keeping single occurrence")
		return []*models.ParsedEvent{rec}
	}

	horizon := f.cfg.RecurrenceHorizon
	if horizon <= 0 {
		horizon = 365 * 24 * time.Hour
	}
	duration := rec.EndTime.Sub(rec.StartTime)

	var out []*models.ParsedEvent
	for _, occ := range rule.Between(rec.StartTime.Add(-time.Second), now.Add(horizon), false) {
		c := *rec
		c.StartTime = occ.UTC()
		c.EndTime = occ.Add(duration).UTC()
		if rec.ExternalID != "" {
			c.ExternalID = rec.ExternalID + "#" + c.StartTime.Format(time.RFC3339)
		}
		out = append(out, &c)

		if f.cfg.MaxRecords > 0 && len(out) >= f.cfg.MaxRecords {
			break
		}
	}
	if len(out) == 0 {
		return []*models.ParsedEvent{rec}
	}
	return out
}

func propValue(ve *ics.VEvent, name ics.ComponentProperty) string {
	p := ve.GetProperty(name)
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.Value)
}

// parseGeo parses an iCalendar GEO value, "lat;lon".
func parseGeo(v string) (lat, lng float64, ok bool) {
	parts := strings.SplitN(v, ";", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

var _ Fetcher = (*ICalFetcher)(nil)
