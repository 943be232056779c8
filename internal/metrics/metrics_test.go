// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordOutcome(t *testing.T) {
	outcomes := []string{"created", "updated", "unchanged", "invalid"}
	for _, o := range outcomes {
		before := testutil.ToFloat64(ImportRecords.WithLabelValues(o))
		RecordOutcome(o)
		after := testutil.ToFloat64(ImportRecords.WithLabelValues(o))
		if after != before+1 {
			t.Errorf("outcome %q: counter went %v -> %v", o, before, after)
		}
	}
}

func TestRecordImportRun(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		records int
	}{
		{name: "successful run", status: "ok", records: 12},
		{name: "unreachable source", status: "unreachable", records: 0},
		{name: "failed run", status: "error", records: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(ImportRuns.WithLabelValues(tt.status))
			RecordImportRun(tt.status, 250*time.Millisecond, tt.records)
			after := testutil.ToFloat64(ImportRuns.WithLabelValues(tt.status))
			if after != before+1 {
				t.Errorf("status %q: counter went %v -> %v", tt.status, before, after)
			}
		})
	}
}

func TestRecordImportRunSetsLastSuccess(t *testing.T) {
	RecordImportRun("ok", time.Second, 1)
	if ts := testutil.ToFloat64(ImportLastSuccess); ts == 0 {
		t.Error("last success timestamp not set on ok run")
	}
}

func TestRecordGeocode(t *testing.T) {
	before := testutil.ToFloat64(GeocodeRequests.WithLabelValues("hit"))
	RecordGeocode("hit", 120*time.Millisecond)
	after := testutil.ToFloat64(GeocodeRequests.WithLabelValues("hit"))
	if after != before+1 {
		t.Errorf("hit counter went %v -> %v", before, after)
	}
}

func TestRecordDBQuery(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("insert", "venues"))
	RecordDBQuery("insert", "venues", 3*time.Millisecond, errors.New("unique constraint"))
	RecordDBQuery("insert", "venues", 3*time.Millisecond, nil)
	after := testutil.ToFloat64(DBQueryErrors.WithLabelValues("insert", "venues"))
	if after != before+1 {
		t.Errorf("error counter went %v -> %v, want one increment", before, after)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/events", "200"))
	RecordAPIRequest("GET", "/api/v1/events", 200, 15*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/events", "200"))
	if after != before+1 {
		t.Errorf("request counter went %v -> %v", before, after)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	base := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != base+1 {
		t.Errorf("gauge after inc = %v, want %v", got, base+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != base {
		t.Errorf("gauge after dec = %v, want %v", got, base)
	}
}

func TestRecordBreakerTransition(t *testing.T) {
	tests := []struct {
		to   string
		want float64
	}{
		{to: "open", want: 2},
		{to: "half-open", want: 1},
		{to: "closed", want: 0},
	}
	for _, tt := range tests {
		RecordBreakerTransition("geocoder", "closed", tt.to)
		if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("geocoder")); got != tt.want {
			t.Errorf("state gauge after transition to %q = %v, want %v", tt.to, got, tt.want)
		}
	}
}
