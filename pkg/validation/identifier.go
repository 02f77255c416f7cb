// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation checks user-provided identifiers before they reach
// storage keys or export queries.
//
// Record IDs become BadgerDB keys and InfluxDB tag values; org and bucket
// names are interpolated into InfluxDB requests. Validating them up front
// keeps path-like or quoted input out of both.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// recordIDPattern matches analysis record IDs.
// Allows: lowercase letters, digits, hyphens (uuid form)
// Max length: 36 characters (a full uuid)
var recordIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,35}$`)

// maxInfluxNameLen bounds org and bucket names.
const maxInfluxNameLen = 255

// ValidateRecordID validates a history record ID.
//
// Valid IDs:
//   - 1-36 characters
//   - Lowercase letters a-z and digits 0-9
//   - Hyphens (-) after the first character
//
// Example:
//
//	if err := validation.ValidateRecordID(id); err != nil {
//	    return nil, fmt.Errorf("invalid id: %w", err)
//	}
func ValidateRecordID(id string) error {
	if id == "" {
		return fmt.Errorf("record id cannot be empty")
	}
	if !recordIDPattern.MatchString(id) {
		return fmt.Errorf("invalid record id: %q (must be 1-36 lowercase alphanumeric chars or hyphens)", id)
	}
	return nil
}

// SanitizeRecordID trims and lowercases an ID, then validates it.
//
// Use this for IDs typed by a person, who may paste them in upper case.
func SanitizeRecordID(id string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(id))
	if err := ValidateRecordID(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// ValidateInfluxName validates an InfluxDB org or bucket name.
//
// Names must be non-empty, at most 255 bytes, must not start with an
// underscore (reserved for system buckets) and must not contain double
// quotes or control characters.
func ValidateInfluxName(kind, name string) error {
	switch {
	case name == "":
		return fmt.Errorf("influx %s is required", kind)
	case len(name) > maxInfluxNameLen:
		return fmt.Errorf("influx %s exceeds %d bytes", kind, maxInfluxNameLen)
	case strings.HasPrefix(name, "_"):
		return fmt.Errorf("influx %s %q must not start with an underscore", kind, name)
	case strings.ContainsRune(name, '"'):
		return fmt.Errorf("influx %s %q must not contain double quotes", kind, name)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("influx %s %q contains a control character", kind, name)
		}
	}
	return nil
}
