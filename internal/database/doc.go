// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

/*
Package database provides the DuckDB-backed store for Eventry.

The store owns the schema and all SQL. Row ids come from sequences, so
"latest row" queries ordered by id are monotonic with insertion order —
the reconciler's lineage matching depends on that. Venue identity
deduplication is enforced with a unique constraint on an identity-field
hash; callers handle the conflict error with a re-query rather than a lock.

Mutations that must be observed atomically (canonical-event projection,
venue squashing) run inside transactions via WithTx or the *Tx method
variants.
*/
package database
