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

// execer is the common surface of *sql.DB and *sql.Tx used by the
// transaction-capable method variants.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// InsertEvent persists a new canonical event and fills in its id.
func (db *DB) InsertEvent(ctx context.Context, ev *models.Event) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return insertEvent(ctx, db.conn, ev)
}

// InsertEventTx is InsertEvent inside an existing transaction.
func (db *DB) InsertEventTx(ctx context.Context, tx *sql.Tx, ev *models.Event) error {
	return insertEvent(ctx, tx, ev)
}

func insertEvent(ctx context.Context, q execer, ev *models.Event) (err error) {
	defer observe("insert", "events")(&err)

	now := time.Now().UTC()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}
	ev.UpdatedAt = now

	row := q.QueryRowContext(ctx, `
		INSERT INTO events (
			id, title, description, url, start_time, end_time,
			venue_id, organization_id, source_id, duplicate_of_id, tags,
			created_at, updated_at
		) VALUES (nextval('seq_events'), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		ev.Title, nullString(ev.Description), nullString(ev.URL),
		ev.StartTime, ev.EndTime,
		nullInt64(ev.VenueID), nullInt64(ev.OrganizationID), nullInt64(ev.SourceID),
		nullInt64(ev.DuplicateOfID), marshalTags(ev.Tags),
		ev.CreatedAt, ev.UpdatedAt,
	)
	if err = row.Scan(&ev.ID); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// UpdateEvent rewrites all mutable columns of an existing event.
func (db *DB) UpdateEvent(ctx context.Context, ev *models.Event) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return updateEvent(ctx, db.conn, ev)
}

// UpdateEventTx is UpdateEvent inside an existing transaction.
func (db *DB) UpdateEventTx(ctx context.Context, tx *sql.Tx, ev *models.Event) error {
	return updateEvent(ctx, tx, ev)
}

func updateEvent(ctx context.Context, q execer, ev *models.Event) (err error) {
	defer observe("update", "events")(&err)

	ev.UpdatedAt = time.Now().UTC()

	res, err := q.ExecContext(ctx, `
		UPDATE events SET
			title = ?, description = ?, url = ?, start_time = ?, end_time = ?,
			venue_id = ?, organization_id = ?, source_id = ?, duplicate_of_id = ?,
			tags = ?, updated_at = ?
		WHERE id = ?`,
		ev.Title, nullString(ev.Description), nullString(ev.URL),
		ev.StartTime, ev.EndTime,
		nullInt64(ev.VenueID), nullInt64(ev.OrganizationID), nullInt64(ev.SourceID),
		nullInt64(ev.DuplicateOfID), marshalTags(ev.Tags), ev.UpdatedAt,
		ev.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Kind: "event", ID: ev.ID}
	}
	return nil
}

// GetEvent fetches one event by id.
func (db *DB) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return getEvent(ctx, db.conn, id)
}

// GetEventTx is GetEvent inside an existing transaction.
func (db *DB) GetEventTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Event, error) {
	return getEvent(ctx, tx, id)
}

func getEvent(ctx context.Context, q execer, id int64) (ev *models.Event, err error) {
	defer observe("select", "events")(&err)

	row := q.QueryRowContext(ctx, `
		SELECT id, title, description, url, start_time, end_time,
		       venue_id, organization_id, source_id, duplicate_of_id, tags,
		       created_at, updated_at
		FROM events WHERE id = ?`, id)

	ev, err = scanEvent(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, &NotFoundError{Kind: "event", ID: id}
		}
		return nil, err
	}
	return ev, nil
}

// EventProgenitor resolves the root of an event's duplicate chain,
// following duplicate_of references iteratively with a hop guard. Returns
// the event itself when it is not a duplicate.
func (db *DB) EventProgenitor(ctx context.Context, id int64) (*models.Event, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return db.eventProgenitor(ctx, db.conn, id)
}

// EventProgenitorTx is EventProgenitor inside an existing transaction.
func (db *DB) EventProgenitorTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Event, error) {
	return db.eventProgenitor(ctx, tx, id)
}

func (db *DB) eventProgenitor(ctx context.Context, q execer, id int64) (*models.Event, error) {
	seen := make(map[int64]bool)

	for hops := 0; hops < db.maxChainHops; hops++ {
		if seen[id] {
			return nil, fmt.Errorf("event duplicate chain contains a cycle at id %d", id)
		}
		seen[id] = true

		ev, err := getEvent(ctx, q, id)
		if err != nil {
			return nil, err
		}
		if ev.DuplicateOfID == nil {
			return ev, nil
		}
		id = *ev.DuplicateOfID
	}
	return nil, fmt.Errorf("event duplicate chain exceeds %d hops", db.maxChainHops)
}

// ListUpcomingEvents returns non-duplicate events starting at or after the
// given time, soonest first.
func (db *DB) ListUpcomingEvents(ctx context.Context, after time.Time, limit int) (events []*models.Event, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("select", "events")(&err)

	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title, description, url, start_time, end_time,
		       venue_id, organization_id, source_id, duplicate_of_id, tags,
		       created_at, updated_at
		FROM events
		WHERE duplicate_of_id IS NULL AND start_time >= ?
		ORDER BY start_time, id
		LIMIT ?`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		ev, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		events = append(events, ev)
	}
	err = rows.Err()
	return events, err
}

func scanEvent(row scanner) (*models.Event, error) {
	var (
		ev          models.Event
		description sql.NullString
		url         sql.NullString
		venueID     sql.NullInt64
		orgID       sql.NullInt64
		sourceID    sql.NullInt64
		dupID       sql.NullInt64
		tags        sql.NullString
	)
	err := row.Scan(&ev.ID, &ev.Title, &description, &url, &ev.StartTime, &ev.EndTime,
		&venueID, &orgID, &sourceID, &dupID, &tags, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Kind: "event"}
		}
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	ev.Description = stringValue(description)
	ev.URL = stringValue(url)
	ev.VenueID = int64Ptr(venueID)
	ev.OrganizationID = int64Ptr(orgID)
	ev.SourceID = int64Ptr(sourceID)
	ev.DuplicateOfID = int64Ptr(dupID)
	ev.Tags = unmarshalTags(tags)
	return &ev, nil
}
