// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package source

import (
	"context"
	"fmt"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/AleutianAI/perfscope/services/perfscope/domain"
)

// maxSyntaxErrors bounds the report on heavily malformed input.
const maxSyntaxErrors = 50

// SyntaxError is one ERROR or MISSING node found by the parser.
type SyntaxError struct {
	// Line is the 1-indexed line number.
	Line int `json:"line"`

	// Column is the 0-indexed column number.
	Column int `json:"column"`

	// Message describes the error.
	Message string `json:"message"`

	// Missing is true when the parser inserted a missing token.
	Missing bool `json:"missing,omitempty"`
}

// SyntaxReport is the outcome of CheckSyntax.
type SyntaxReport struct {
	Valid     bool          `json:"valid"`
	Errors    []SyntaxError `json:"errors"`
	ParseTime time.Duration `json:"parse_time"`
}

// CheckSyntax parses Java code with tree-sitter and reports syntax errors.
//
// Description:
//
//	A fast pre-flight that runs in-process. It catches unbalanced braces and
//	missing semicolons without paying for a compiler subprocess. A clean
//	report does not guarantee the code compiles; type errors are still the
//	compiler's job.
//
// Inputs:
//
//	ctx - Context for cancellation. Must not be nil.
//	code - Java source text.
//
// Outputs:
//
//	*SyntaxReport - Parse result with line/column diagnostics.
//	error - Non-nil only if the parser itself failed.
func CheckSyntax(ctx context.Context, code string) (*SyntaxReport, error) {
	if ctx == nil {
		return nil, domain.ErrNilContext
	}
	start := time.Now()

	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())

	content := []byte(code)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing failed: %w", err)
	}
	defer tree.Close()

	errs := make([]SyntaxError, 0)
	collectSyntaxErrors(tree.RootNode(), content, &errs, 0)

	return &SyntaxReport{
		Valid:     len(errs) == 0,
		Errors:    errs,
		ParseTime: time.Since(start),
	}, nil
}

func collectSyntaxErrors(node *sitter.Node, content []byte, errs *[]SyntaxError, depth int) {
	if node == nil || depth > 1000 || len(*errs) >= maxSyntaxErrors {
		return
	}

	if node.IsError() || node.IsMissing() {
		pos := node.StartPoint()
		se := SyntaxError{
			Line:    int(pos.Row) + 1,
			Column:  int(pos.Column),
			Message: "syntax error",
			Missing: node.IsMissing(),
		}
		if node.IsMissing() {
			se.Message = fmt.Sprintf("missing %s", node.Type())
		} else if snippet := nodeText(node, content); snippet != "" {
			se.Message = fmt.Sprintf("unexpected: %s", snippet)
		}
		*errs = append(*errs, se)
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		collectSyntaxErrors(node.Child(i), content, errs, depth+1)
	}
}

func nodeText(node *sitter.Node, content []byte) string {
	start, end := node.StartByte(), node.EndByte()
	if end > uint32(len(content)) {
		end = uint32(len(content))
	}
	if end <= start || end-start >= 100 {
		return ""
	}
	s := string(content[start:end])
	if len(s) > 50 {
		s = s[:50] + "..."
	}
	return s
}
