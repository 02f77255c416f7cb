// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package classify

import (
	"regexp"
	"strings"
)

var (
	methodDeclRe = regexp.MustCompile(`\b([A-Za-z_]\w*)\s*\(([^(){};]*)\)\s*(?:throws\s+[\w.,\s]+?)?\s*\{`)

	// stepArgRe matches an argument that steps a variable by one:
	// n - 1, i+1, k++, --k.
	stepArgRe = regexp.MustCompile(`\w\s*[-+]\s*1\b|\w\s*(?:\+\+|--)|(?:\+\+|--)\s*\w`)

	notMethods = map[string]bool{
		"if": true, "for": true, "while": true, "switch": true, "catch": true,
		"synchronized": true, "return": true, "else": true, "do": true, "try": true,
	}
)

// selfRecursiveCalls returns the argument lists of every call a declared
// method makes to itself inside its own body.
func selfRecursiveCalls(code string) []string {
	var calls []string
	for _, m := range methodDeclRe.FindAllStringSubmatchIndex(code, -1) {
		name := code[m[2]:m[3]]
		if notMethods[name] || strings.HasSuffix(strings.TrimRight(code[:m[2]], " \t\r\n"), "new") {
			continue
		}

		open := m[1] - 1
		end := matchBrace(code, open)
		if end < 0 {
			continue
		}
		calls = append(calls, callArgs(code[open+1:end], name)...)
	}
	return calls
}

// matchBrace returns the index of the brace closing the one at open, or -1.
func matchBrace(code string, open int) int {
	depth := 0
	for i := open; i < len(code); i++ {
		switch code[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// callArgs returns the argument text of each call to name in body.
func callArgs(body, name string) []string {
	callRe := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\s*\(`)
	var args []string
	for _, loc := range callRe.FindAllStringIndex(body, -1) {
		start := loc[1]
		depth := 1
		i := start
		for ; i < len(body) && depth > 0; i++ {
			switch body[i] {
			case '(':
				depth++
			case ')':
				depth--
			}
		}
		if depth != 0 {
			continue
		}
		args = append(args, body[start:i-1])
	}
	return args
}
