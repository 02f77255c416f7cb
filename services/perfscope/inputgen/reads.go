// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package inputgen

import (
	"regexp"
	"strings"
)

var arrayAllocRe = regexp.MustCompile(`(\w+)\s*=\s*new\s+(\w+)\s*\[`)

// stdinReads summarizes how a program consumes standard input.
type stdinReads struct {
	scanner  bool
	lineOnly bool
	matrix   bool
	arrays   int
	ints     int
	doubles  int
}

func scanReads(code string) stdinReads {
	r := stdinReads{
		scanner: strings.Contains(code, "Scanner"),
		matrix:  strings.Contains(code, "matrix") || strings.Contains(code, "[][]"),
		arrays:  len(arrayAllocRe.FindAllStringIndex(code, -1)),
		ints:    strings.Count(code, "nextInt()"),
		doubles: strings.Count(code, "nextDouble()"),
	}

	readsLines := strings.Contains(code, "scanner.nextLine()") ||
		(r.scanner && strings.Contains(code, "nextLine()"))
	r.lineOnly = readsLines &&
		r.ints == 0 &&
		r.doubles == 0 &&
		!strings.Contains(code, "next()")

	return r
}

// ReadsSingleLine reports whether code reads its input as whole lines only.
func ReadsSingleLine(code string) bool {
	return scanReads(code).lineOnly
}
