// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

// Package models defines the core data structures shared across Eventry:
// canonical events and venues, the append-only abstract-event import
// lineage, and the parsed-record shapes produced by feed front-ends.
//
// Persistence and reconciliation logic live elsewhere; this package holds
// only the types, their validation rules, and small derived helpers.
package models
