// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eventry/eventry/internal/logging"
	"github.com/eventry/eventry/internal/models"
)

// SquashVenues merges a confirmed duplicate set into the master venue.
// All of it happens in one transaction:
//
//   - events and pending abstract-location references move to the master
//   - each member's duplicate_of is set to the master DIRECTLY, and any
//     venue already pointing at a member is re-pointed too, so progenitor
//     lookup stays one hop
//   - tag rows are deliberately NOT merged; each member keeps its own tags
//     so a bad merge cannot pollute the master's tag set
//
// The operation is irreversible.
func (db *DB) SquashVenues(ctx context.Context, masterID int64, memberIDs []int64) (master *models.Venue, err error) {
	defer observe("tx", "venues")(&err)

	members := make([]int64, 0, len(memberIDs))
	for _, id := range memberIDs {
		if id == masterID {
			continue // master cannot be squashed into itself
		}
		members = append(members, id)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: requires at least one member besides the master", ErrSquashInvalid)
	}

	err = db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		master, err = db.getVenue(ctx, tx, masterID)
		if err != nil {
			return err
		}
		if master.DuplicateOfID != nil {
			return fmt.Errorf("%w: venue %d is itself a duplicate; squash into its progenitor instead", ErrSquashInvalid, masterID)
		}

		for _, id := range members {
			if _, err := db.getVenue(ctx, tx, id); err != nil {
				return err
			}

			if _, err := tx.ExecContext(ctx,
				`UPDATE events SET venue_id = ? WHERE venue_id = ?`, masterID, id); err != nil {
				return fmt.Errorf("failed to move events from venue %d: %w", id, err)
			}

			if _, err := tx.ExecContext(ctx,
				`UPDATE abstract_locations SET venue_id = ? WHERE venue_id = ? AND result = ''`,
				masterID, id); err != nil {
				return fmt.Errorf("failed to move pending locations from venue %d: %w", id, err)
			}

			// Flatten: members and anything already chained through them
			// all point at the master directly.
			if _, err := tx.ExecContext(ctx,
				`UPDATE venues SET duplicate_of_id = ? WHERE id = ? OR duplicate_of_id = ?`,
				masterID, id, id); err != nil {
				return fmt.Errorf("failed to mark venue %d duplicate: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Int64("master_id", masterID).
		Ints64("member_ids", members).
		Msg("Venue duplicate set squashed")
	return master, nil
}
