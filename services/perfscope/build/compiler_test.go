// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package build

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/perfscope/services/perfscope/domain"
	"github.com/AleutianAI/perfscope/services/perfscope/source"
)

// shellRegistry returns a registry with a /bin/sh toolchain whose "compile"
// step is a syntax check.
func shellRegistry() *ToolchainRegistry {
	r := NewToolchainRegistry()
	r.Register(&Toolchain{
		Language:  "sh",
		Extension: ".sh",
		Compile:   []string{"sh", "-n", "{file}"},
		Run:       []string{"sh", "{file}"},
	})
	return r
}

func newShellCompiler(t *testing.T) (*Compiler, string) {
	t.Helper()
	root := t.TempDir()
	cfg := NewConfig(WithLanguage("sh"), WithTempRoot(root))
	return NewCompiler(cfg, shellRegistry(), nil), root
}

// =============================================================================
// BUILD
// =============================================================================

func TestCompiler_Build(t *testing.T) {
	ctx := context.Background()

	t.Run("success creates scratch dir", func(t *testing.T) {
		c, root := newShellCompiler(t)
		art, err := c.Build(ctx, source.Unit{Code: "echo hi\n", EntryType: "Prog"})
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(filepath.Base(art.Dir), ScratchPrefix))
		assert.Equal(t, root, filepath.Dir(art.Dir))
		assert.FileExists(t, filepath.Join(art.Dir, "Prog.sh"))
		assert.Equal(t, []string{"sh", art.SourcePath}, art.RunArgs())
		assert.Equal(t, "sh", art.Language())

		require.NoError(t, art.Release())
		assert.NoDirExists(t, art.Dir)
		assert.NoError(t, art.Release(), "second release is a no-op")
	})

	t.Run("unique dirs per build", func(t *testing.T) {
		c, _ := newShellCompiler(t)
		unit := source.Unit{Code: "true\n", EntryType: "Prog"}
		a, err := c.Build(ctx, unit)
		require.NoError(t, err)
		defer a.Release()
		b, err := c.Build(ctx, unit)
		require.NoError(t, err)
		defer b.Release()
		assert.NotEqual(t, a.Dir, b.Dir)
	})

	t.Run("compile failure returns diagnostics and cleans up", func(t *testing.T) {
		c, root := newShellCompiler(t)
		_, err := c.Build(ctx, source.Unit{Code: "if then fi\n", EntryType: "Broken"})
		require.Error(t, err)

		var buildErr *domain.BuildError
		require.True(t, errors.As(err, &buildErr))
		assert.Equal(t, "Broken", buildErr.EntryType)
		assert.NotEmpty(t, buildErr.Diagnostics)
		assert.Nil(t, buildErr.Cause)

		entries, err := os.ReadDir(root)
		require.NoError(t, err)
		assert.Empty(t, entries, "scratch dir must be removed on failure")
	})

	t.Run("missing compiler binary", func(t *testing.T) {
		r := NewToolchainRegistry()
		r.Register(&Toolchain{
			Language:  "ghost",
			Extension: ".g",
			Compile:   []string{"perfscope-no-such-compiler", "{file}"},
			Run:       []string{"true"},
		})
		c := NewCompiler(NewConfig(WithLanguage("ghost"), WithTempRoot(t.TempDir())), r, nil)
		_, err := c.Build(ctx, source.Unit{Code: "x", EntryType: "G"})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrBuild)

		var buildErr *domain.BuildError
		require.True(t, errors.As(err, &buildErr))
		assert.NotNil(t, buildErr.Cause)
	})

	t.Run("unknown language", func(t *testing.T) {
		c := NewCompiler(NewConfig(WithLanguage("cobol"), WithTempRoot(t.TempDir())), nil, nil)
		_, err := c.Build(ctx, source.Unit{Code: "x", EntryType: "C"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("nil context", func(t *testing.T) {
		c, _ := newShellCompiler(t)
		//nolint:staticcheck // exercising the nil guard
		_, err := c.Build(nil, source.Unit{Code: "true", EntryType: "P"})
		assert.ErrorIs(t, err, domain.ErrNilContext)
	})
}

func TestCompiler_BuildJava(t *testing.T) {
	if _, err := exec.LookPath("javac"); err != nil {
		t.Skip("javac not installed")
	}
	c := NewCompiler(NewConfig(WithTempRoot(t.TempDir())), nil, nil)

	art, err := c.Build(context.Background(), source.Unit{
		Code:      "public class Hi { public static void main(String[] a) { System.out.println(1); } }",
		EntryType: "Hi",
	})
	require.NoError(t, err)
	defer art.Release()
	assert.FileExists(t, filepath.Join(art.Dir, "Hi.class"))

	_, err = c.Build(context.Background(), source.Unit{Code: "public class Bad { int x = ; }", EntryType: "Bad"})
	var buildErr *domain.BuildError
	require.True(t, errors.As(err, &buildErr))
	assert.Contains(t, buildErr.Diagnostics, "error")
}

// =============================================================================
// TOOLCHAINS
// =============================================================================

func TestToolchainRegistry(t *testing.T) {
	r := NewToolchainRegistry()
	java, ok := r.Get("java")
	require.True(t, ok)
	assert.Equal(t,
		[]string{"java", "-XX:+UseSerialGC", "-Xms64m", "-Xmx512m", "-cp", "/tmp/x", "Main"},
		java.RunArgs("/tmp/x", "/tmp/x/Main.java", "Main"))
	assert.Equal(t, []string{"javac", "/tmp/x/Main.java"}, java.CompileArgs("/tmp/x", "/tmp/x/Main.java", "Main"))

	r.Register(&Toolchain{Language: "incomplete"})
	_, ok = r.Get("incomplete")
	assert.False(t, ok, "toolchains without a run command are ignored")

	r.Register(&Toolchain{Language: "sh", Run: []string{"sh", "{file}"}})
	assert.Equal(t, []string{"java", "sh"}, r.Languages())
}

func TestLimitedWriter(t *testing.T) {
	var sb strings.Builder
	lw := &limitedWriter{w: &sb, limit: 4}
	n, err := lw.Write([]byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, "abcd", sb.String())
	assert.True(t, lw.truncated)
}

func TestConfig_Validate(t *testing.T) {
	cfg := &Config{CompileTimeout: 1, MaxOutputBytes: 1}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "java", cfg.Language)
	assert.NotEmpty(t, cfg.TempRoot)
	assert.Equal(t, 1024, cfg.MaxOutputBytes)
}
