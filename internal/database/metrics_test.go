// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

package database

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/eventry/eventry/internal/metrics"
)

func TestQueryErrorMetricRecorded(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	before := testutil.ToFloat64(metrics.DBQueryErrors.WithLabelValues("select", "sources"))

	if _, err := db.GetSource(context.Background(), 1); err == nil {
		t.Fatal("expected an error querying a closed database")
	}

	after := testutil.ToFloat64(metrics.DBQueryErrors.WithLabelValues("select", "sources"))
	if after != before+1 {
		t.Errorf("DBQueryErrors = %v, want %v", after, before+1)
	}
}

func TestQueryErrorMetricSkipsMissingRows(t *testing.T) {
	db := setupTestDB(t)

	before := testutil.ToFloat64(metrics.DBQueryErrors.WithLabelValues("select", "sources"))

	if _, err := db.GetSource(context.Background(), 987654); !IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	after := testutil.ToFloat64(metrics.DBQueryErrors.WithLabelValues("select", "sources"))
	if after != before {
		t.Errorf("DBQueryErrors moved %v -> %v on a missing row", before, after)
	}
}
