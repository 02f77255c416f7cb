// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package source models the program text submitted for analysis and the
// cheap pre-flight checks that run before any subprocess is started.
//
// Thread Safety: All functions are pure and safe for concurrent use.
package source

import (
	"regexp"
	"strings"

	"github.com/AleutianAI/perfscope/services/perfscope/domain"
)

var (
	entryTypeRe  = regexp.MustCompile(`public\s+class\s+(\w+)`)
	mainMethodRe = regexp.MustCompile(`public\s+static\s+void\s+main\s*\(\s*String\s*\[\s*\]\s*\w+\s*\)`)

	// embeddedDataRes recognize programs that carry their own input.
	embeddedDataRes = []*regexp.Regexp{
		regexp.MustCompile(`\{\s*\d+\s*,.*?\}`),
		regexp.MustCompile(`new\s+(?:int|String|double|float|char)\s*\[\s*\]\s*=\s*\{[^}]+\}`),
		regexp.MustCompile(`Arrays\.asList\([^)]+\)`),
		regexp.MustCompile(`List\.of\([^)]+\)`),
		regexp.MustCompile(`new\s+ArrayList\s*<[^>]*>\s*\(\s*Arrays\.asList\([^)]+\)\)`),
		regexp.MustCompile(`String\s+\w+\s*=\s*"[^"]+"\s*;`),
		regexp.MustCompile(`int\s+\w+\s*=\s*\d+\s*;`),
		regexp.MustCompile(`double\s+\w+\s*=\s*\d+\.?\d*\s*;`),
	}
)

// Unit is a piece of source code together with its entry-point type.
type Unit struct {
	// Code is the raw program text.
	Code string

	// EntryType is the name of the public top-level class. The compiled
	// artifact is launched by this name.
	EntryType string
}

// NewUnit validates code and derives its entry type.
//
// Description:
//
//	Scans once for a public class declaration. Code without one is
//	rejected with a ValidationError wrapping domain.ErrNoEntryPoint; no
//	compiler or program is ever started for such code.
//
// Inputs:
//
//	code - The program text.
//
// Outputs:
//
//	Unit - The validated unit.
//	error - *domain.ValidationError when no public class is declared.
func NewUnit(code string) (Unit, error) {
	name, ok := ExtractEntryType(code)
	if !ok {
		return Unit{}, &domain.ValidationError{
			Field:  "code",
			Reason: "could not find a public class declaration",
			Cause:  domain.ErrNoEntryPoint,
		}
	}
	return Unit{Code: code, EntryType: name}, nil
}

// FileName returns the file name the compiler expects for this unit.
func (u Unit) FileName() string {
	return u.EntryType + ".java"
}

// ExtractEntryType returns the first public class name in code.
func ExtractEntryType(code string) (string, bool) {
	m := entryTypeRe.FindStringSubmatch(code)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// HasEntryPoint reports whether code declares a runnable main method.
func HasEntryPoint(code string) bool {
	return mainMethodRe.MatchString(code)
}

// HasEmbeddedData reports whether code looks like it carries its own input,
// which makes the embedded-data mode (nothing on stdin) viable.
func HasEmbeddedData(code string) bool {
	for _, re := range embeddedDataRes {
		if re.MatchString(code) {
			return true
		}
	}
	return strings.Contains(code, "int[] arr") &&
		strings.Contains(code, "{") &&
		strings.Contains(code, "}")
}
