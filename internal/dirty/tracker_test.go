// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

package dirty

import (
	"testing"
	"time"
)

type record struct {
	title   string
	start   time.Time
	venueID *int64
}

func trackerFor(r *record) *Tracker {
	return NewTracker([]Field{
		{Name: "title", Get: func() any { return r.title }},
		{Name: "start_time", Get: func() any { return r.start }},
		{Name: "venue_id", Get: func() any { return PtrValue(r.venueID) }},
	})
}

func TestNoChangesInitially(t *testing.T) {
	r := &record{title: "Standup", start: time.Now()}
	tr := trackerFor(r)

	if tr.Any() {
		t.Error("fresh tracker should report no changes")
	}
	if got := tr.ChangedFields(); len(got) != 0 {
		t.Errorf("ChangedFields = %v, want empty", got)
	}
}

func TestDetectsChange(t *testing.T) {
	r := &record{title: "Standup"}
	tr := trackerFor(r)

	r.title = "Retro"

	if !tr.Changed("title") {
		t.Error("title change not detected")
	}
	if tr.Changed("start_time") {
		t.Error("start_time should be unchanged")
	}
	if got := tr.ChangedFields(); len(got) != 1 || got[0] != "title" {
		t.Errorf("ChangedFields = %v, want [title]", got)
	}
	if tr.Was("title") != "Standup" {
		t.Errorf("Was(title) = %v, want Standup", tr.Was("title"))
	}
}

func TestSnapshotResetsBaseline(t *testing.T) {
	r := &record{title: "Standup"}
	tr := trackerFor(r)

	r.title = "Retro"
	tr.Snapshot()

	if tr.Any() {
		t.Error("snapshot should reset the baseline to current values")
	}
	if tr.Was("title") != "Retro" {
		t.Errorf("Was(title) = %v after snapshot, want Retro", tr.Was("title"))
	}
}

func TestPointerFieldsCompareByValue(t *testing.T) {
	five := int64(5)
	alsoFive := int64(5)
	r := &record{venueID: &five}
	tr := trackerFor(r)

	r.venueID = &alsoFive
	if tr.Changed("venue_id") {
		t.Error("distinct pointers to equal values should compare equal")
	}

	r.venueID = nil
	if !tr.Changed("venue_id") {
		t.Error("nil vs value should be a change")
	}
}

func TestTimeComparesByInstant(t *testing.T) {
	now := time.Now()
	r := &record{start: now}
	tr := trackerFor(r)

	// Round-trip through the store loses the monotonic reading.
	r.start = now.Round(0)
	if tr.Changed("start_time") {
		t.Error("equal instants should not register as changed")
	}

	r.start = now.Add(time.Hour)
	if !tr.Changed("start_time") {
		t.Error("shifted time not detected")
	}
}

func TestUntrackedFieldPanics(t *testing.T) {
	r := &record{}
	tr := trackerFor(r)

	defer func() {
		if recover() == nil {
			t.Error("Was on untracked field should panic")
		}
	}()
	tr.Was("description")
}

func TestDuplicateFieldPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("duplicate field names should panic at construction")
		}
	}()
	NewTracker([]Field{
		{Name: "title", Get: func() any { return "" }},
		{Name: "title", Get: func() any { return "" }},
	})
}
