// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

// Package dirty provides per-field change tracking for reconciliation.
//
// A Tracker is built from an explicit accessor table (field name to getter)
// rather than reflection, so the tracked set is visible at the call site and
// checked at construction. Reconciliation uses it to decide which fields of
// an imported record differ from the last accepted state.
package dirty

import (
	"fmt"
	"time"
)

// Field describes one tracked field: its name and how to read its current
// in-memory value. Getters should return comparable canonical values;
// pointer-typed record fields should be dereferenced (nil stays nil) so
// equality means value equality.
type Field struct {
	Name string
	Get  func() any
}

// Tracker records, for a configured set of fields, the value in effect when
// the record was loaded ("was") distinct from the current in-memory value.
type Tracker struct {
	fields []Field
	index  map[string]int
	was    map[string]any
}

// NewTracker builds a tracker over the given field table and takes an
// initial snapshot. Duplicate or unnamed fields are programmer errors.
func NewTracker(fields []Field) *Tracker {
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Name == "" || f.Get == nil {
			panic("dirty: field with empty name or nil getter")
		}
		if _, dup := index[f.Name]; dup {
			panic(fmt.Sprintf("dirty: duplicate tracked field %q", f.Name))
		}
		index[f.Name] = i
	}

	t := &Tracker{fields: fields, index: index}
	t.Snapshot()
	return t
}

// Snapshot records the current values as the "was" baseline. Call after the
// record is loaded or persisted; prior baselines are discarded.
func (t *Tracker) Snapshot() {
	was := make(map[string]any, len(t.fields))
	for _, f := range t.fields {
		was[f.Name] = f.Get()
	}
	t.was = was
}

// ChangedFields returns, in table order, the names of fields whose current
// value differs from the snapshot baseline.
func (t *Tracker) ChangedFields() []string {
	var changed []string
	for _, f := range t.fields {
		if !valuesEqual(t.was[f.Name], f.Get()) {
			changed = append(changed, f.Name)
		}
	}
	return changed
}

// Changed reports whether the named field differs from its baseline.
// Asking about an untracked field is a programmer error.
func (t *Tracker) Changed(name string) bool {
	i, ok := t.index[name]
	if !ok {
		panic(fmt.Sprintf("dirty: untracked field %q", name))
	}
	return !valuesEqual(t.was[name], t.fields[i].Get())
}

// Was returns the baseline value of the named field. Asking about an
// untracked field is a programmer error.
func (t *Tracker) Was(name string) any {
	if _, ok := t.index[name]; !ok {
		panic(fmt.Sprintf("dirty: untracked field %q", name))
	}
	return t.was[name]
}

// Any reports whether any tracked field changed.
func (t *Tracker) Any() bool {
	for _, f := range t.fields {
		if !valuesEqual(t.was[f.Name], f.Get()) {
			return true
		}
	}
	return false
}

// valuesEqual compares two canonical values. Timestamps compare by instant
// so that values round-tripped through the store (which drops the monotonic
// reading) still match their in-memory originals.
func valuesEqual(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return a == b
}

// PtrValue canonicalizes a pointer field for tracking: nil stays nil,
// otherwise the pointed-to value is returned.
func PtrValue[T comparable](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
