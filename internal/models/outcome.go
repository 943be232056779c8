// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

package models

// Outcome is the terminal result tag of one abstract-event row. It is set
// exactly once when the row is written and never changed afterward.
type Outcome string

const (
	// OutcomeCreated: no prior lineage existed; a new canonical event was made.
	OutcomeCreated Outcome = "created"

	// OutcomeUpdated: prior lineage existed and accepted changes were
	// projected onto the canonical event.
	OutcomeUpdated Outcome = "updated"

	// OutcomeUnchanged: no tracked attribute differed from the last
	// accepted state; the canonical event was not touched.
	OutcomeUnchanged Outcome = "unchanged"

	// OutcomeInvalid: the record failed validation or venue resolution.
	// The row is still persisted so the lineage stays auditable.
	OutcomeInvalid Outcome = "invalid"
)

// Valid reports whether o is one of the four recognized outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeCreated, OutcomeUpdated, OutcomeUnchanged, OutcomeInvalid:
		return true
	}
	return false
}

// Location import results. An abstract location is pending until imported;
// the attachment to a venue is immutable once made.
const (
	LocationPending  = ""
	LocationImported = "imported"
	LocationInvalid  = "invalid"
)
