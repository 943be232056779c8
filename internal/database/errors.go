// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

package database

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// NotFoundError reports a missing row. Callers surface it to their own
// callers rather than retrying.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ErrIdentityConflict is returned when inserting a venue whose identity
// hash collides with an existing row. The resolver handles it by
// re-querying for the winner instead of treating it as a failure.
var ErrIdentityConflict = errors.New("venue identity hash already exists")

// ErrSquashInvalid is returned when a venue squash request is malformed,
// e.g. no members besides the master, or a master that is itself a
// duplicate.
var ErrSquashInvalid = errors.New("invalid squash request")

// isUniqueViolation detects DuckDB unique / primary key constraint errors.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint")
}

// closeQuietly closes a resource and explicitly ignores any error.
// Cleanup in error paths is best-effort.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
