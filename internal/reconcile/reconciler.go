// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

// Package reconcile turns parsed feed records into abstract-event lineage
// rows and projects accepted changes onto canonical events.
//
// Every imported record appends exactly one abstract-event row carrying a
// terminal outcome (created, updated, unchanged, invalid). The prior row of
// the record's lineage is located by a matcher ladder, changes are diffed
// against that row's accepted state, and only fields the last direct edit
// has not claimed are copied onto the canonical event. Invalid records are
// persisted too, so the lineage stays auditable.
package reconcile

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/eventry/eventry/internal/database"
	"github.com/eventry/eventry/internal/dirty"
	"github.com/eventry/eventry/internal/logging"
	"github.com/eventry/eventry/internal/models"
)

// LocationResolver resolves an abstract location to its canonical venue.
type LocationResolver interface {
	Resolve(ctx context.Context, loc *models.AbstractLocation) (*models.Venue, error)
}

// Reconciler imports parsed records for one source at a time.
type Reconciler struct {
	db     *database.DB
	venues LocationResolver
}

// New builds a reconciler over the given store and venue resolver.
func New(db *database.DB, venues LocationResolver) *Reconciler {
	return &Reconciler{db: db, venues: venues}
}

// Import reconciles one parsed record. The returned abstract event is the
// persisted lineage row with its terminal outcome set. An error is returned
// only for infrastructure failures; validation and venue-resolution failures
// come back as a persisted row with OutcomeInvalid.
func (r *Reconciler) Import(ctx context.Context, src *models.Source, parsed *models.ParsedEvent) (*models.AbstractEvent, error) {
	ae := &models.AbstractEvent{
		SourceID:       src.ID,
		ExternalID:     parsed.ExternalID,
		Description:    parsed.Description,
		URL:            parsed.URL,
		StartTime:      parsed.StartTime,
		EndTime:        parsed.EndTime,
		Tags:           append([]string(nil), parsed.Tags...),
		OrganizationID: src.OrganizationID,
	}
	ae.SetTitle(parsed.Title)

	if parsed.Location != nil {
		if err := r.importLocation(ctx, ae, parsed.Location); err != nil {
			if infra, ok := err.(*infraError); ok {
				return nil, infra.err
			}
			return r.persistInvalid(ctx, ae, err.Error())
		}
	}

	if err := ae.Validate(); err != nil {
		return r.persistInvalid(ctx, ae, err.Error())
	}

	prev, err := r.previous(ctx, ae)
	if err != nil {
		return nil, err
	}

	tracker := trackerFor(ae)
	if prev != nil {
		rebase(ae, prev, tracker)
	}

	switch {
	case prev == nil || prev.EventID == nil:
		err = r.create(ctx, ae)
	case !tracker.Any() && !hasNewTags(ae.Tags, prev.Tags):
		ae.EventID = prev.EventID
		ae.Result = models.OutcomeUnchanged
		err = r.db.InsertAbstractEvent(ctx, ae)
	default:
		err = r.update(ctx, ae, prev, tracker)
	}
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Debug().
		Int64("source_id", src.ID).
		Str("external_id", ae.ExternalID).
		Str("result", string(ae.Result)).
		Msg("Reconciled record")
	return ae, nil
}

// infraError wraps store failures during location import so they abort the
// record instead of marking it invalid.
type infraError struct{ err error }

func (e *infraError) Error() string { return e.err.Error() }

// importLocation persists the abstract location, resolves its venue, and
// attaches the result to the event row. Resolution failure finalizes the
// location as invalid and is reported back as a record-level failure.
func (r *Reconciler) importLocation(ctx context.Context, ae *models.AbstractEvent, parsed *models.ParsedLocation) error {
	al := parsed.ToAbstractLocation(ae.SourceID)
	if err := r.db.InsertAbstractLocation(ctx, al); err != nil {
		return &infraError{err: err}
	}

	venue, err := r.venues.Resolve(ctx, al)
	if err != nil {
		if ferr := r.db.FinalizeAbstractLocation(ctx, al.ID, nil, models.LocationInvalid, err.Error()); ferr != nil {
			return &infraError{err: ferr}
		}
		al.Result = models.LocationInvalid
		ae.AttachLocation(al)
		return fmt.Errorf("location import: %w", err)
	}

	venueID := venue.ID
	if err := r.db.FinalizeAbstractLocation(ctx, al.ID, &venueID, models.LocationImported, ""); err != nil {
		return &infraError{err: err}
	}
	al.VenueID = &venueID
	al.Result = models.LocationImported
	ae.AttachLocation(al)
	return nil
}

// previous walks the matcher ladder for the incoming row's lineage: external
// id first, then start time plus title, then start time plus venue title. A
// blank field skips its matcher entirely, so records can never collide on
// empty values. When the matched row links to an event, the lineage re-roots
// on the latest row for that event, which keeps lineages converged after
// several sources or matchers touched the same event.
func (r *Reconciler) previous(ctx context.Context, ae *models.AbstractEvent) (*models.AbstractEvent, error) {
	var (
		prev *models.AbstractEvent
		err  error
	)

	if ae.ExternalID != "" {
		prev, err = r.db.LatestAbstractEventByExternalID(ctx, ae.SourceID, ae.ExternalID)
		if err != nil {
			return nil, err
		}
	}
	if prev == nil && ae.Title != "" && !ae.StartTime.IsZero() {
		prev, err = r.db.LatestAbstractEventByStartTitle(ctx, ae.SourceID, ae.StartTime, ae.Title)
		if err != nil {
			return nil, err
		}
	}
	if prev == nil && ae.VenueTitle != "" && !ae.StartTime.IsZero() {
		prev, err = r.db.LatestAbstractEventByStartVenueTitle(ctx, ae.SourceID, ae.StartTime, ae.VenueTitle)
		if err != nil {
			return nil, err
		}
	}
	if prev == nil || prev.EventID == nil {
		return prev, nil
	}

	latest, err := r.db.LatestAbstractEventByEventID(ctx, ae.SourceID, *prev.EventID)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		return latest, nil
	}
	return prev, nil
}

// trackerFor builds the tracker over the attribute set that participates
// in change detection and per-field merging.
func trackerFor(ae *models.AbstractEvent) *dirty.Tracker {
	return dirty.NewTracker([]dirty.Field{
		{Name: "url", Get: func() any { return ae.URL }},
		{Name: "title", Get: func() any { return ae.Title }},
		{Name: "start_time", Get: func() any { return ae.StartTime }},
		{Name: "end_time", Get: func() any { return ae.EndTime }},
		{Name: "description", Get: func() any { return ae.Description }},
		{Name: "venue_id", Get: func() any { return dirty.PtrValue(ae.VenueID) }},
		{Name: "organization_id", Get: func() any { return dirty.PtrValue(ae.OrganizationID) }},
	})
}

// rebase re-baselines the tracker on the previous row's accepted values, so
// ChangedFields afterwards is the diff of the incoming record against the
// last accepted state rather than against zero values.
func rebase(ae, prev *models.AbstractEvent, tracker *dirty.Tracker) {
	cur := *ae

	ae.URL = prev.URL
	ae.Title = prev.Title
	ae.StartTime = prev.StartTime
	ae.EndTime = prev.EndTime
	ae.Description = prev.Description
	ae.VenueID = prev.VenueID
	ae.OrganizationID = prev.OrganizationID
	tracker.Snapshot()

	ae.URL = cur.URL
	ae.Title = cur.Title
	ae.StartTime = cur.StartTime
	ae.EndTime = cur.EndTime
	ae.Description = cur.Description
	ae.VenueID = cur.VenueID
	ae.OrganizationID = cur.OrganizationID
}

// create makes a new canonical event and the lineage row atomically.
func (r *Reconciler) create(ctx context.Context, ae *models.AbstractEvent) error {
	ev := &models.Event{
		Title:          ae.Title,
		Description:    ae.Description,
		URL:            ae.URL,
		StartTime:      ae.StartTime,
		EndTime:        ae.EndTime,
		VenueID:        ae.VenueID,
		OrganizationID: ae.OrganizationID,
		SourceID:       &ae.SourceID,
		Tags:           append([]string(nil), ae.Tags...),
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := r.db.InsertEventTx(ctx, tx, ev); err != nil {
			return err
		}
		ae.EventID = &ev.ID
		ae.Result = models.OutcomeCreated
		return r.db.InsertAbstractEventTx(ctx, tx, ae)
	})
}

// update projects changed fields onto the canonical event and appends the
// lineage row in one transaction. Mutation always targets the progenitor of
// the event's duplicate chain. A field is copied only when the event's live
// value still equals the previous row's accepted value; a direct edit that
// moved the event away from the feed's last value wins until the feed value
// itself changes again.
func (r *Reconciler) update(ctx context.Context, ae, prev *models.AbstractEvent, tracker *dirty.Tracker) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		ev, err := r.db.GetEventTx(ctx, tx, *prev.EventID)
		if err != nil {
			if database.IsNotFound(err) {
				// The canonical event was deleted out from under the
				// lineage. Recreate rather than resurrect the pointer.
				return r.createTx(ctx, tx, ae)
			}
			return err
		}
		if ev.DuplicateOfID != nil {
			ev, err = r.db.EventProgenitorTx(ctx, tx, ev.ID)
			if err != nil {
				return err
			}
		}

		applied := false
		for _, name := range tracker.ChangedFields() {
			if applyField(ev, ae, tracker.Was(name), name) {
				applied = true
			}
		}
		if mergeTags(ev, ae.Tags) {
			applied = true
		}

		ae.EventID = &ev.ID
		if applied {
			ev.UpdatedAt = time.Now().UTC()
			if err := r.db.UpdateEventTx(ctx, tx, ev); err != nil {
				return err
			}
		}
		// The outcome reports whether the incoming record differed from
		// the last accepted state, not whether anything survived the
		// merge. A feed change shadowed by a direct edit is still an
		// update; the lineage row records the value the feed now holds.
		if tracker.Any() || applied {
			ae.Result = models.OutcomeUpdated
		} else {
			ae.Result = models.OutcomeUnchanged
		}
		return r.db.InsertAbstractEventTx(ctx, tx, ae)
	})
}

func (r *Reconciler) createTx(ctx context.Context, tx *sql.Tx, ae *models.AbstractEvent) error {
	ev := &models.Event{
		Title:          ae.Title,
		Description:    ae.Description,
		URL:            ae.URL,
		StartTime:      ae.StartTime,
		EndTime:        ae.EndTime,
		VenueID:        ae.VenueID,
		OrganizationID: ae.OrganizationID,
		SourceID:       &ae.SourceID,
		Tags:           append([]string(nil), ae.Tags...),
	}
	if err := r.db.InsertEventTx(ctx, tx, ev); err != nil {
		return err
	}
	ae.EventID = &ev.ID
	ae.Result = models.OutcomeCreated
	return r.db.InsertAbstractEventTx(ctx, tx, ae)
}

// applyField copies one changed field from the incoming row onto the event,
// but only when the event's live value still matches the previous accepted
// value. Returns whether the event was touched.
func applyField(ev *models.Event, ae *models.AbstractEvent, was any, name string) bool {
	switch name {
	case "url":
		if ev.URL == asString(was) {
			ev.URL = ae.URL
			return true
		}
	case "title":
		if ev.Title == asString(was) {
			ev.Title = ae.Title
			return true
		}
	case "start_time":
		if wt, ok := was.(time.Time); ok && ev.StartTime.Equal(wt) {
			ev.StartTime = ae.StartTime
			return true
		}
	case "end_time":
		if wt, ok := was.(time.Time); ok && ev.EndTime.Equal(wt) {
			ev.EndTime = ae.EndTime
			return true
		}
	case "description":
		if ev.Description == asString(was) {
			ev.Description = ae.Description
			return true
		}
	case "venue_id":
		if dirty.PtrValue(ev.VenueID) == was {
			ev.VenueID = ae.VenueID
			return true
		}
	case "organization_id":
		if dirty.PtrValue(ev.OrganizationID) == was {
			ev.OrganizationID = ae.OrganizationID
			return true
		}
	}
	return false
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// hasNewTags reports whether the incoming row carries a tag the previous
// accepted row did not. Tag additions count as a change even when every
// tracked field is identical.
func hasNewTags(incoming, accepted []string) bool {
	if len(incoming) == 0 {
		return false
	}
	have := make(map[string]bool, len(accepted))
	for _, t := range accepted {
		have[t] = true
	}
	for _, t := range incoming {
		if t != "" && !have[t] {
			return true
		}
	}
	return false
}

// mergeTags appends tags the event does not already carry. Tag merging is
// additive only; imports never remove a tag.
func mergeTags(ev *models.Event, tags []string) bool {
	if len(tags) == 0 {
		return false
	}
	have := make(map[string]bool, len(ev.Tags))
	for _, t := range ev.Tags {
		have[t] = true
	}
	added := false
	for _, t := range tags {
		if t != "" && !have[t] {
			ev.Tags = append(ev.Tags, t)
			have[t] = true
			added = true
		}
	}
	return added
}

// persistInvalid appends the row with OutcomeInvalid and the failure detail.
// The row is persisted so operators can see exactly what the feed sent.
func (r *Reconciler) persistInvalid(ctx context.Context, ae *models.AbstractEvent, detail string) (*models.AbstractEvent, error) {
	ae.Result = models.OutcomeInvalid
	ae.ErrorDetail = detail
	if err := r.db.InsertAbstractEvent(ctx, ae); err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Warn().
		Int64("source_id", ae.SourceID).
		Str("external_id", ae.ExternalID).
		Str("detail", detail).
		Msg("Record failed import")
	return ae, nil
}
