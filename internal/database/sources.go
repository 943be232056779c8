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

// InsertSource persists a new source and fills in its id.
func (db *DB) InsertSource(ctx context.Context, src *models.Source) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("insert", "sources")(&err)

	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now().UTC()
	}

	row := db.conn.QueryRowContext(ctx, `
		INSERT INTO sources (id, url, title, organization_id, enabled, created_at)
		VALUES (nextval('seq_sources'), ?, ?, ?, ?, ?)
		RETURNING id`,
		src.URL, nullString(src.Title), nullInt64(src.OrganizationID), src.Enabled, src.CreatedAt,
	)
	if err = row.Scan(&src.ID); err != nil {
		return fmt.Errorf("failed to insert source: %w", err)
	}
	return nil
}

// GetSource fetches one source by id.
func (db *DB) GetSource(ctx context.Context, id int64) (src *models.Source, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("select", "sources")(&err)

	row := db.conn.QueryRowContext(ctx, `
		SELECT id, url, title, organization_id, enabled, last_imported_at, created_at
		FROM sources WHERE id = ?`, id)

	src, err = scanSource(row)
	return src, err
}

// ListEnabledSources returns all sources eligible for scheduled import,
// oldest first.
func (db *DB) ListEnabledSources(ctx context.Context) (sources []*models.Source, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("select", "sources")(&err)

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, url, title, organization_id, enabled, last_imported_at, created_at
		FROM sources WHERE enabled ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		src, scanErr := scanSource(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sources = append(sources, src)
	}
	err = rows.Err()
	return sources, err
}

// ListSources returns every source, enabled or not, oldest first.
func (db *DB) ListSources(ctx context.Context) (sources []*models.Source, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("select", "sources")(&err)

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, url, title, organization_id, enabled, last_imported_at, created_at
		FROM sources ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		src, scanErr := scanSource(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sources = append(sources, src)
	}
	err = rows.Err()
	return sources, err
}

// TouchSourceImported records a completed import run for the source.
func (db *DB) TouchSourceImported(ctx context.Context, id int64, at time.Time) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("update", "sources")(&err)

	res, err := db.conn.ExecContext(ctx,
		`UPDATE sources SET last_imported_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("failed to touch source: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Kind: "source", ID: id}
	}
	return nil
}

// DeleteSource removes a source and cascades to the abstract rows it owns.
// Canonical events and venues survive their source.
func (db *DB) DeleteSource(ctx context.Context, id int64) (err error) {
	defer observe("delete", "sources")(&err)
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM sources WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete source: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &NotFoundError{Kind: "source", ID: id}
		}

		if _, err := tx.Exec(`DELETE FROM abstract_events WHERE source_id = ?`, id); err != nil {
			return fmt.Errorf("failed to cascade abstract events: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM abstract_locations WHERE source_id = ?`, id); err != nil {
			return fmt.Errorf("failed to cascade abstract locations: %w", err)
		}
		return nil
	})
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSource(row scanner) (*models.Source, error) {
	var (
		src        models.Source
		title      sql.NullString
		orgID      sql.NullInt64
		lastImport sql.NullTime
	)
	err := row.Scan(&src.ID, &src.URL, &title, &orgID, &src.Enabled, &lastImport, &src.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Kind: "source"}
		}
		return nil, fmt.Errorf("failed to scan source: %w", err)
	}
	src.Title = stringValue(title)
	src.OrganizationID = int64Ptr(orgID)
	if lastImport.Valid {
		t := lastImport.Time
		src.LastImportedAt = &t
	}
	return &src, nil
}
