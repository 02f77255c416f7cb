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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/perfscope/services/perfscope/domain"
)

const helloProgram = `import java.util.Scanner;

public class Hello {
    public static void main(String[] args) {
        System.out.println("hello");
    }
}
`

// =============================================================================
// ENTRY TYPE
// =============================================================================

func TestNewUnit(t *testing.T) {
	t.Run("public class found", func(t *testing.T) {
		u, err := NewUnit(helloProgram)
		require.NoError(t, err)
		assert.Equal(t, "Hello", u.EntryType)
		assert.Equal(t, "Hello.java", u.FileName())
	})

	t.Run("missing public class", func(t *testing.T) {
		_, err := NewUnit("class Hidden { public static void main(String[] a) {} }")
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrValidation))
		assert.True(t, errors.Is(err, domain.ErrNoEntryPoint))
	})

	t.Run("first public class wins", func(t *testing.T) {
		name, ok := ExtractEntryType("public class A {}\npublic class B {}")
		assert.True(t, ok)
		assert.Equal(t, "A", name)
	})
}

func TestHasEntryPoint(t *testing.T) {
	assert.True(t, HasEntryPoint(helloProgram))
	assert.True(t, HasEntryPoint("public static void main ( String [ ] argv )"))
	assert.False(t, HasEntryPoint("public static void main(String args)"))
	assert.False(t, HasEntryPoint("static void main(String[] args)"))
}

// =============================================================================
// EMBEDDED DATA
// =============================================================================

func TestHasEmbeddedData(t *testing.T) {
	tests := []struct {
		name string
		code string
		want bool
	}{
		{"array literal", "int[] a = new int[] = {1, 2, 3};", true},
		{"brace list", "int[] a = {5, 3, 1};", true},
		{"asList", "List<Integer> xs = Arrays.asList(1, 2);", true},
		{"List.of", "var xs = List.of(1, 2);", true},
		{"string constant", `String s = "abc";`, true},
		{"int constant", "int n = 42;", true},
		{"double constant", "double d = 3.5;", true},
		{"arr fallback", "int[] arr; { }", true},
		{"stdin only", "Scanner sc = new Scanner(System.in); int n = sc.nextInt();", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasEmbeddedData(tt.code))
		})
	}
}

// =============================================================================
// SYNTAX
// =============================================================================

func TestCheckSyntax(t *testing.T) {
	ctx := context.Background()

	t.Run("valid program", func(t *testing.T) {
		report, err := CheckSyntax(ctx, helloProgram)
		require.NoError(t, err)
		assert.True(t, report.Valid)
		assert.Empty(t, report.Errors)
	})

	t.Run("unbalanced braces", func(t *testing.T) {
		report, err := CheckSyntax(ctx, "public class Broken {\n    public static void main(String[] args) {\n        int x = ;\n")
		require.NoError(t, err)
		assert.False(t, report.Valid)
		require.NotEmpty(t, report.Errors)
		assert.GreaterOrEqual(t, report.Errors[0].Line, 1)
	})

	t.Run("nil context", func(t *testing.T) {
		//nolint:staticcheck // exercising the nil guard
		_, err := CheckSyntax(nil, helloProgram)
		assert.ErrorIs(t, err, domain.ErrNilContext)
	})
}
