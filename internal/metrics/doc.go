// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

/*
Package metrics provides Prometheus metrics collection and export.

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8723/metrics

Import metrics:
  - import_runs_total: import runs per source (counter)
    Labels: status (ok, unreachable, error)
  - import_run_duration_seconds: duration of one run (histogram)
  - import_records_total: records by terminal outcome (counter)
    Labels: outcome (created, updated, unchanged, invalid, error)
  - import_batch_size: parsed records per fetch (histogram)
  - import_last_success_timestamp: unix time of last successful run (gauge)

Geocoding metrics:
  - geocode_requests_total: lookups by result (counter)
    Labels: result (hit, miss, error)
  - geocode_request_duration_seconds: lookup latency (histogram)

Venue metrics:
  - venues_resolved_total: resolutions by match kind (counter)
    Labels: match (identity, tag, created, conflict)
  - venue_squashes_total: squash operations (counter)

Database metrics:
  - duckdb_query_duration_seconds: query latency (histogram)
    Labels: operation, table
  - duckdb_query_errors_total: failed queries (counter)
    Labels: operation, table

API metrics:
  - api_requests_total: requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: request latency (histogram)
    Labels: method, endpoint
  - api_active_requests: in-flight requests (gauge)

Circuit breaker metrics:
  - circuit_breaker_state: current state, 0=closed 1=half-open 2=open (gauge)
    Labels: name
  - circuit_breaker_state_transitions_total: transitions (counter)
    Labels: name, from_state, to_state

All metrics register on the default Prometheus registry via promauto at
package load.
*/
package metrics
