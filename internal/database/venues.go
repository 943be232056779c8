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

// InsertVenue persists a new venue under the identity-hash unique
// constraint. On a hash collision it returns ErrIdentityConflict so the
// caller can re-query for the row that won the race.
func (db *DB) InsertVenue(ctx context.Context, v *models.Venue, identityFields []string) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("insert", "venues")(&err)

	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	hash := v.IdentityHash(identityFields)

	err = db.WithTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO venues (
				id, title, description, address, url,
				street_address, locality, region, postal_code, country,
				latitude, longitude, geo_precision, email, telephone,
				source_id, duplicate_of_id, closed, wifi, access_notes,
				identity_hash, created_at, updated_at
			) VALUES (nextval('seq_venues'), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			v.Title, nullString(v.Description), nullString(v.Address), nullString(v.URL),
			nullString(v.StreetAddress), nullString(v.Locality), nullString(v.Region),
			nullString(v.PostalCode), nullString(v.Country),
			nullFloat64(v.Latitude), nullFloat64(v.Longitude), nullString(v.GeoPrecision),
			nullString(v.Email), nullString(v.Telephone),
			nullInt64(v.SourceID), nullInt64(v.DuplicateOfID), v.Closed, v.WiFi,
			nullString(v.AccessNotes), hash, v.CreatedAt, v.UpdatedAt,
		)
		if err := row.Scan(&v.ID); err != nil {
			return err
		}

		for _, tag := range v.Tags {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO venue_tags (venue_id, tag) VALUES (?, ?) ON CONFLICT DO NOTHING`,
				v.ID, tag); err != nil {
				return fmt.Errorf("failed to insert venue tag: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrIdentityConflict
		}
		return fmt.Errorf("failed to insert venue: %w", err)
	}
	return nil
}

// UpdateVenue rewrites the venue's mutable columns and recomputes its
// identity hash. Tag rows are left untouched.
func (db *DB) UpdateVenue(ctx context.Context, v *models.Venue, identityFields []string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	v.UpdatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE venues SET
			title = ?, description = ?, address = ?, url = ?,
			street_address = ?, locality = ?, region = ?, postal_code = ?, country = ?,
			latitude = ?, longitude = ?, geo_precision = ?, email = ?, telephone = ?,
			source_id = ?, duplicate_of_id = ?, closed = ?, wifi = ?, access_notes = ?,
			identity_hash = ?, updated_at = ?
		WHERE id = ?`,
		v.Title, nullString(v.Description), nullString(v.Address), nullString(v.URL),
		nullString(v.StreetAddress), nullString(v.Locality), nullString(v.Region),
		nullString(v.PostalCode), nullString(v.Country),
		nullFloat64(v.Latitude), nullFloat64(v.Longitude), nullString(v.GeoPrecision),
		nullString(v.Email), nullString(v.Telephone),
		nullInt64(v.SourceID), nullInt64(v.DuplicateOfID), v.Closed, v.WiFi,
		nullString(v.AccessNotes), v.IdentityHash(identityFields), v.UpdatedAt,
		v.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrIdentityConflict
		}
		return fmt.Errorf("failed to update venue: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Kind: "venue", ID: v.ID}
	}
	return nil
}

// GetVenue fetches one venue by id, including its tags.
func (db *DB) GetVenue(ctx context.Context, id int64) (*models.Venue, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return db.getVenue(ctx, db.conn, id)
}

func (db *DB) getVenue(ctx context.Context, q execer, id int64) (v *models.Venue, err error) {
	defer observe("select", "venues")(&err)

	row := q.QueryRowContext(ctx, venueSelect+` WHERE id = ?`, id)
	v, err = scanVenue(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, &NotFoundError{Kind: "venue", ID: id}
		}
		return nil, err
	}
	if err := db.loadVenueTags(ctx, q, v); err != nil {
		return nil, err
	}
	return v, nil
}

// FindVenueByIdentityHash returns the venue carrying the given identity
// hash, or nil when none exists.
func (db *DB) FindVenueByIdentityHash(ctx context.Context, hash string) (v *models.Venue, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("select", "venues")(&err)

	row := db.conn.QueryRowContext(ctx, venueSelect+` WHERE identity_hash = ?`, hash)
	v, err = scanVenue(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if err := db.loadVenueTags(ctx, db.conn, v); err != nil {
		return nil, err
	}
	return v, nil
}

// FindVenueByTag returns the oldest venue carrying the exact tag, or nil
// when none does. Used for machine-tag identity matching.
func (db *DB) FindVenueByTag(ctx context.Context, tag string) (v *models.Venue, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("select", "venues")(&err)

	row := db.conn.QueryRowContext(ctx, venueSelect+`
		WHERE id IN (SELECT venue_id FROM venue_tags WHERE tag = ?)
		ORDER BY id LIMIT 1`, tag)
	v, err = scanVenue(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if err := db.loadVenueTags(ctx, db.conn, v); err != nil {
		return nil, err
	}
	return v, nil
}

// VenueProgenitor resolves the root of a venue's duplicate chain with the
// same hop guard as events.
func (db *DB) VenueProgenitor(ctx context.Context, id int64) (*models.Venue, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	seen := make(map[int64]bool)

	for hops := 0; hops < db.maxChainHops; hops++ {
		if seen[id] {
			return nil, fmt.Errorf("venue duplicate chain contains a cycle at id %d", id)
		}
		seen[id] = true

		v, err := db.getVenue(ctx, db.conn, id)
		if err != nil {
			return nil, err
		}
		if v.DuplicateOfID == nil {
			return v, nil
		}
		id = *v.DuplicateOfID
	}
	return nil, fmt.Errorf("venue duplicate chain exceeds %d hops", db.maxChainHops)
}

// ListMasterVenues returns venues that are not duplicates of anything,
// title order.
func (db *DB) ListMasterVenues(ctx context.Context, limit int) (venues []*models.Venue, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("select", "venues")(&err)

	if limit <= 0 {
		limit = 100
	}
	rows, err := db.conn.QueryContext(ctx, venueSelect+`
		WHERE duplicate_of_id IS NULL
		ORDER BY lower(title), id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list venues: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		v, scanErr := scanVenue(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		venues = append(venues, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, v := range venues {
		if err := db.loadVenueTags(ctx, db.conn, v); err != nil {
			return nil, err
		}
	}
	return venues, nil
}

const venueSelect = `
	SELECT id, title, description, address, url,
	       street_address, locality, region, postal_code, country,
	       latitude, longitude, geo_precision, email, telephone,
	       source_id, duplicate_of_id, closed, wifi, access_notes,
	       created_at, updated_at
	FROM venues`

func scanVenue(row scanner) (*models.Venue, error) {
	var (
		v           models.Venue
		description sql.NullString
		address     sql.NullString
		url         sql.NullString
		street      sql.NullString
		locality    sql.NullString
		region      sql.NullString
		postal      sql.NullString
		country     sql.NullString
		lat         sql.NullFloat64
		lng         sql.NullFloat64
		precision   sql.NullString
		email       sql.NullString
		telephone   sql.NullString
		sourceID    sql.NullInt64
		dupID       sql.NullInt64
		accessNotes sql.NullString
	)
	err := row.Scan(&v.ID, &v.Title, &description, &address, &url,
		&street, &locality, &region, &postal, &country,
		&lat, &lng, &precision, &email, &telephone,
		&sourceID, &dupID, &v.Closed, &v.WiFi, &accessNotes,
		&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Kind: "venue"}
		}
		return nil, fmt.Errorf("failed to scan venue: %w", err)
	}
	v.Description = stringValue(description)
	v.Address = stringValue(address)
	v.URL = stringValue(url)
	v.StreetAddress = stringValue(street)
	v.Locality = stringValue(locality)
	v.Region = stringValue(region)
	v.PostalCode = stringValue(postal)
	v.Country = stringValue(country)
	v.Latitude = float64Ptr(lat)
	v.Longitude = float64Ptr(lng)
	v.GeoPrecision = stringValue(precision)
	v.Email = stringValue(email)
	v.Telephone = stringValue(telephone)
	v.SourceID = int64Ptr(sourceID)
	v.DuplicateOfID = int64Ptr(dupID)
	v.AccessNotes = stringValue(accessNotes)
	return &v, nil
}

func (db *DB) loadVenueTags(ctx context.Context, q execer, v *models.Venue) error {
	rows, err := q.QueryContext(ctx,
		`SELECT tag FROM venue_tags WHERE venue_id = ? ORDER BY tag`, v.ID)
	if err != nil {
		return fmt.Errorf("failed to load venue tags: %w", err)
	}
	defer closeQuietly(rows)

	v.Tags = nil
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return fmt.Errorf("failed to scan venue tag: %w", err)
		}
		v.Tags = append(v.Tags, tag)
	}
	return rows.Err()
}
