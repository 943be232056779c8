// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eventry/eventry/internal/models"
)

// InsertAbstractEvent appends one row to the lineage history. Rows are
// immutable after this point; the result tag is terminal.
func (db *DB) InsertAbstractEvent(ctx context.Context, ae *models.AbstractEvent) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return insertAbstractEvent(ctx, db.conn, ae)
}

// InsertAbstractEventTx is InsertAbstractEvent inside an existing transaction.
func (db *DB) InsertAbstractEventTx(ctx context.Context, tx *sql.Tx, ae *models.AbstractEvent) error {
	return insertAbstractEvent(ctx, tx, ae)
}

func insertAbstractEvent(ctx context.Context, q execer, ae *models.AbstractEvent) (err error) {
	defer observe("insert", "abstract_events")(&err)

	if ae.CreatedAt.IsZero() {
		ae.CreatedAt = time.Now().UTC()
	}

	row := q.QueryRowContext(ctx, `
		INSERT INTO abstract_events (
			id, source_id, external_id, title, description, url,
			start_time, end_time, tags, venue_title,
			abstract_location_id, event_id, venue_id, organization_id,
			result, error_detail, created_at
		) VALUES (nextval('seq_abstract_events'), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		ae.SourceID, nullString(ae.ExternalID), nullString(ae.Title),
		nullString(ae.Description), nullString(ae.URL),
		nullTime(ae.StartTime), nullTime(ae.EndTime),
		marshalTags(ae.Tags), nullString(ae.VenueTitle),
		nullInt64(ae.AbstractLocationID), nullInt64(ae.EventID),
		nullInt64(ae.VenueID), nullInt64(ae.OrganizationID),
		string(ae.Result), nullString(ae.ErrorDetail), ae.CreatedAt,
	)
	if err = row.Scan(&ae.ID); err != nil {
		return fmt.Errorf("failed to insert abstract event: %w", err)
	}
	return nil
}

// Lineage matchers. Each returns the latest matching row for the source
// (highest id wins — ids are monotonic with insertion order), or nil when
// nothing matches. Matcher arguments are required to be non-blank by the
// caller; blank fields never participate in matching.

// LatestAbstractEventByExternalID matches on the feed's own identifier.
func (db *DB) LatestAbstractEventByExternalID(ctx context.Context, sourceID int64, externalID string) (*models.AbstractEvent, error) {
	return db.latestAbstractEvent(ctx,
		`source_id = ? AND external_id = ?`, sourceID, externalID)
}

// LatestAbstractEventByStartTitle matches on (start_time, title).
func (db *DB) LatestAbstractEventByStartTitle(ctx context.Context, sourceID int64, start time.Time, title string) (*models.AbstractEvent, error) {
	return db.latestAbstractEvent(ctx,
		`source_id = ? AND start_time = ? AND title = ?`, sourceID, start, title)
}

// LatestAbstractEventByStartVenueTitle matches on (start_time, venue_title).
func (db *DB) LatestAbstractEventByStartVenueTitle(ctx context.Context, sourceID int64, start time.Time, venueTitle string) (*models.AbstractEvent, error) {
	return db.latestAbstractEvent(ctx,
		`source_id = ? AND start_time = ? AND venue_title = ?`, sourceID, start, venueTitle)
}

// LatestAbstractEventByEventID returns the newest row of the lineage tied
// to a canonical event. Used to follow drift in the authoritative line
// after a matcher hit on an older row.
func (db *DB) LatestAbstractEventByEventID(ctx context.Context, sourceID, eventID int64) (*models.AbstractEvent, error) {
	return db.latestAbstractEvent(ctx,
		`source_id = ? AND event_id = ?`, sourceID, eventID)
}

func (db *DB) latestAbstractEvent(ctx context.Context, where string, args ...any) (ae *models.AbstractEvent, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("select", "abstract_events")(&err)

	row := db.conn.QueryRowContext(ctx, abstractEventSelect+
		` WHERE `+where+` ORDER BY id DESC LIMIT 1`, args...)

	ae, err = scanAbstractEvent(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return ae, nil
}

// ListAbstractEventsBySource returns a source's lineage history in
// insertion order.
func (db *DB) ListAbstractEventsBySource(ctx context.Context, sourceID int64) ([]*models.AbstractEvent, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, abstractEventSelect+
		` WHERE source_id = ? ORDER BY id`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list abstract events: %w", err)
	}
	defer closeQuietly(rows)

	var out []*models.AbstractEvent
	for rows.Next() {
		ae, err := scanAbstractEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ae)
	}
	return out, rows.Err()
}

const abstractEventSelect = `
	SELECT id, source_id, external_id, title, description, url,
	       start_time, end_time, tags, venue_title,
	       abstract_location_id, event_id, venue_id, organization_id,
	       result, error_detail, created_at
	FROM abstract_events`

func scanAbstractEvent(row scanner) (*models.AbstractEvent, error) {
	var (
		ae          models.AbstractEvent
		externalID  sql.NullString
		title       sql.NullString
		description sql.NullString
		url         sql.NullString
		start       sql.NullTime
		end         sql.NullTime
		tags        sql.NullString
		venueTitle  sql.NullString
		locID       sql.NullInt64
		eventID     sql.NullInt64
		venueID     sql.NullInt64
		orgID       sql.NullInt64
		result      string
		errDetail   sql.NullString
	)
	err := row.Scan(&ae.ID, &ae.SourceID, &externalID, &title, &description, &url,
		&start, &end, &tags, &venueTitle, &locID, &eventID, &venueID, &orgID,
		&result, &errDetail, &ae.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Kind: "abstract event"}
		}
		return nil, fmt.Errorf("failed to scan abstract event: %w", err)
	}
	ae.ExternalID = stringValue(externalID)
	ae.Title = stringValue(title)
	ae.Description = stringValue(description)
	ae.URL = stringValue(url)
	ae.StartTime = timeValue(start)
	ae.EndTime = timeValue(end)
	ae.Tags = unmarshalTags(tags)
	ae.VenueTitle = stringValue(venueTitle)
	ae.AbstractLocationID = int64Ptr(locID)
	ae.EventID = int64Ptr(eventID)
	ae.VenueID = int64Ptr(venueID)
	ae.OrganizationID = int64Ptr(orgID)
	ae.Result = models.Outcome(result)
	ae.ErrorDetail = stringValue(errDetail)
	return &ae, nil
}

// InsertAbstractLocation persists a parsed location row for audit before
// venue resolution is attempted.
func (db *DB) InsertAbstractLocation(ctx context.Context, al *models.AbstractLocation) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("insert", "abstract_locations")(&err)

	if al.CreatedAt.IsZero() {
		al.CreatedAt = time.Now().UTC()
	}

	row := db.conn.QueryRowContext(ctx, `
		INSERT INTO abstract_locations (
			id, source_id, external_id, title, description, address, url,
			street_address, locality, region, postal_code, country,
			latitude, longitude, email, telephone, tags,
			venue_id, result, error_detail, created_at
		) VALUES (nextval('seq_abstract_locations'), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		al.SourceID, nullString(al.ExternalID), nullString(al.Title),
		nullString(al.Description), nullString(al.Address), nullString(al.URL),
		nullString(al.StreetAddress), nullString(al.Locality), nullString(al.Region),
		nullString(al.PostalCode), nullString(al.Country),
		nullFloat64(al.Latitude), nullFloat64(al.Longitude),
		nullString(al.Email), nullString(al.Telephone), marshalTags(al.Tags),
		nullInt64(al.VenueID), al.Result, nullString(al.ErrorDetail), al.CreatedAt,
	)
	if err = row.Scan(&al.ID); err != nil {
		return fmt.Errorf("failed to insert abstract location: %w", err)
	}
	return nil
}

// FinalizeAbstractLocation records the terminal result of venue resolution.
// Only a pending row can be finalized; the venue attachment is immutable
// once made, so repeat calls are a no-op returning the stored state.
func (db *DB) FinalizeAbstractLocation(ctx context.Context, id int64, venueID *int64, result, errDetail string) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("update", "abstract_locations")(&err)

	res, err := db.conn.ExecContext(ctx, `
		UPDATE abstract_locations
		SET venue_id = ?, result = ?, error_detail = ?
		WHERE id = ? AND result = ''`,
		nullInt64(venueID), result, nullString(errDetail), id)
	if err != nil {
		return fmt.Errorf("failed to finalize abstract location: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Already finalized or missing; the caller treats re-import of an
		// imported location as a no-op.
		return nil
	}
	return nil
}

// GetAbstractLocation fetches one abstract location by id.
func (db *DB) GetAbstractLocation(ctx context.Context, id int64) (*models.AbstractLocation, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `
		SELECT id, source_id, external_id, title, description, address, url,
		       street_address, locality, region, postal_code, country,
		       latitude, longitude, email, telephone, tags,
		       venue_id, result, error_detail, created_at
		FROM abstract_locations WHERE id = ?`, id)

	var (
		al         models.AbstractLocation
		externalID sql.NullString
		title      sql.NullString
		descr      sql.NullString
		address    sql.NullString
		url        sql.NullString
		street     sql.NullString
		locality   sql.NullString
		region     sql.NullString
		postal     sql.NullString
		country    sql.NullString
		lat        sql.NullFloat64
		lng        sql.NullFloat64
		email      sql.NullString
		telephone  sql.NullString
		tags       sql.NullString
		venueID    sql.NullInt64
		errDetail  sql.NullString
	)
	err := row.Scan(&al.ID, &al.SourceID, &externalID, &title, &descr, &address, &url,
		&street, &locality, &region, &postal, &country,
		&lat, &lng, &email, &telephone, &tags,
		&venueID, &al.Result, &errDetail, &al.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Kind: "abstract location", ID: id}
		}
		return nil, fmt.Errorf("failed to scan abstract location: %w", err)
	}
	al.ExternalID = stringValue(externalID)
	al.Title = stringValue(title)
	al.Description = stringValue(descr)
	al.Address = stringValue(address)
	al.URL = stringValue(url)
	al.StreetAddress = stringValue(street)
	al.Locality = stringValue(locality)
	al.Region = stringValue(region)
	al.PostalCode = stringValue(postal)
	al.Country = stringValue(country)
	al.Latitude = float64Ptr(lat)
	al.Longitude = float64Ptr(lng)
	al.Email = stringValue(email)
	al.Telephone = stringValue(telephone)
	al.Tags = unmarshalTags(tags)
	al.VenueID = int64Ptr(venueID)
	al.ErrorDetail = stringValue(errDetail)
	return &al, nil
}
