// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package harness

import (
	"github.com/AleutianAI/perfscope/services/perfscope/inputgen"
	"github.com/AleutianAI/perfscope/services/perfscope/source"
)

// HasEntryPoint reports whether code declares a runnable main method.
func HasEntryPoint(code string) bool {
	return source.HasEntryPoint(code)
}

// HasEmbeddedData reports whether code appears to carry its own input.
func HasEmbeddedData(code string) bool {
	return source.HasEmbeddedData(code)
}

// GenerateInput produces the stdin code would read for an input of size n.
//
// Description:
//
//	Uses the default seed, so equal arguments always give equal output.
//	Programs that read nothing from stdin get the empty string.
//
// Inputs:
//
//	code - The program text.
//	size - Element count, 1 to inputgen.MaxInputSize.
//	shape - random, sorted or nearly-sorted. Empty means random.
//
// Outputs:
//
//	string - The generated input.
//	error - *domain.ValidationError for a bad size or shape.
func GenerateInput(code string, size int, shape string) (string, error) {
	return generate(inputgen.Default(), code, size, shape)
}

// GenerateInput is GenerateInput with the analyzer's seed.
func (a *Analyzer) GenerateInput(code string, size int, shape string) (string, error) {
	return generate(a.gen, code, size, shape)
}

func generate(g *inputgen.Generator, code string, size int, shape string) (string, error) {
	parsed, err := inputgen.ParseShape(shape)
	if err != nil {
		return "", err
	}
	return g.ForCode(code, size, parsed)
}
