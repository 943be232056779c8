// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

package models

import (
	"regexp"
)

// Machine tags are structured tags of the form namespace:predicate=value,
// e.g. "epdx:venue=legion-of-tech". Feeds use them to assert venue identity
// out-of-band, letting the resolver match a location to a known venue even
// when titles and addresses drift.

// machineTagPattern matches namespace:predicate=value.
var machineTagPattern = regexp.MustCompile(`^([^:]+):([^=]+)=(.+)$`)

// venuePredicates is the recognized venue-identity predicate vocabulary.
var venuePredicates = map[string]bool{
	"venue": true,
}

// MachineTag is a decomposed structured tag.
type MachineTag struct {
	Namespace string
	Predicate string
	Value     string
}

// ParseMachineTag decomposes a tag string. The second return value is false
// for plain (non-machine) tags.
func ParseMachineTag(tag string) (MachineTag, bool) {
	m := machineTagPattern.FindStringSubmatch(tag)
	if m == nil {
		return MachineTag{}, false
	}
	return MachineTag{Namespace: m[1], Predicate: m[2], Value: m[3]}, true
}

// IsVenueTag reports whether a tag is a machine tag with a recognized venue
// identity predicate.
func IsVenueTag(tag string) bool {
	mt, ok := ParseMachineTag(tag)
	return ok && venuePredicates[mt.Predicate]
}

// FirstVenueTag returns the first venue machine tag in tags, or "" if none.
func FirstVenueTag(tags []string) string {
	for _, t := range tags {
		if IsVenueTag(t) {
			return t
		}
	}
	return ""
}
