// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

// Package middleware provides HTTP middleware shared across the API:
// request-id propagation and Prometheus instrumentation. CORS, rate
// limiting, and panic recovery come from chi's ecosystem and are wired in
// the api package.
package middleware
