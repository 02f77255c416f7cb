// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package build materializes a source unit in a private scratch directory
// and compiles it into a runnable artifact.
package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/perfscope/services/perfscope/domain"
	"github.com/AleutianAI/perfscope/services/perfscope/source"
)

// ScratchPrefix prefixes every scratch directory name.
const ScratchPrefix = "perfscope_"

// =============================================================================
// ARTIFACT
// =============================================================================

// Artifact is a compiled program rooted in its own scratch directory.
//
// An Artifact is owned by exactly one analysis call. Release removes the
// directory and may be called more than once.
type Artifact struct {
	// Dir is the absolute scratch directory.
	Dir string

	// SourcePath is the absolute path of the written source file.
	SourcePath string

	// EntryType is the class the launcher starts.
	EntryType string

	toolchain   *Toolchain
	releaseOnce sync.Once
	releaseErr  error
}

// RunArgs returns the launcher argv for this artifact.
func (a *Artifact) RunArgs() []string {
	return a.toolchain.RunArgs(a.Dir, a.SourcePath, a.EntryType)
}

// Language returns the toolchain language the artifact was built with.
func (a *Artifact) Language() string {
	return a.toolchain.Language
}

// Release deletes the scratch directory.
//
// Thread Safety: Safe for concurrent use; only the first call does work.
func (a *Artifact) Release() error {
	a.releaseOnce.Do(func() {
		a.releaseErr = os.RemoveAll(a.Dir)
	})
	return a.releaseErr
}

// =============================================================================
// COMPILER
// =============================================================================

// Compiler turns source units into artifacts.
//
// Thread Safety: Safe for concurrent use. Each build gets its own directory.
type Compiler struct {
	cfg        *Config
	toolchains *ToolchainRegistry
	logger     *slog.Logger
}

// NewCompiler creates a compiler.
//
// Inputs:
//
//	cfg - Build configuration. Nil uses DefaultConfig().
//	toolchains - Toolchain registry. Nil uses DefaultToolchains.
//	logger - Logger for structured logging. Nil uses slog.Default().
//
// Outputs:
//
//	*Compiler - Ready to build.
func NewCompiler(cfg *Config, toolchains *ToolchainRegistry, logger *slog.Logger) *Compiler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	_ = cfg.Validate()
	if toolchains == nil {
		toolchains = DefaultToolchains
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{cfg: cfg, toolchains: toolchains, logger: logger}
}

// Build writes the unit to a fresh scratch directory and compiles it.
//
// Description:
//
//	Creates <TempRoot>/perfscope_<uuid>, writes <EntryType><ext> into it and
//	runs the toolchain's compile command there with stdout and stderr
//	combined. On any failure the directory is removed before returning.
//
// Inputs:
//
//	ctx - Context for cancellation. Must not be nil.
//	unit - Validated source unit.
//
// Outputs:
//
//	*Artifact - The compiled program. Caller must Release it.
//	error - *domain.BuildError with the full diagnostics on compile failure,
//	        or with a cause when the compiler could not run at all.
//
// Thread Safety: Safe for concurrent use.
func (c *Compiler) Build(ctx context.Context, unit source.Unit) (*Artifact, error) {
	if ctx == nil {
		return nil, domain.ErrNilContext
	}
	tc, ok := c.toolchains.Get(c.cfg.Language)
	if !ok {
		return nil, &domain.ValidationError{
			Field:  "language",
			Reason: fmt.Sprintf("no toolchain registered for %q", c.cfg.Language),
			Cause:  domain.ErrUnsupportedType,
		}
	}

	dir := filepath.Join(c.cfg.TempRoot, ScratchPrefix+uuid.New().String())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, &domain.BuildError{EntryType: unit.EntryType, Cause: fmt.Errorf("creating scratch dir: %w", err)}
	}

	art := &Artifact{
		Dir:        dir,
		SourcePath: filepath.Join(dir, unit.EntryType+tc.Extension),
		EntryType:  unit.EntryType,
		toolchain:  tc,
	}

	if err := os.WriteFile(art.SourcePath, []byte(unit.Code), 0o600); err != nil {
		_ = art.Release()
		return nil, &domain.BuildError{EntryType: unit.EntryType, Cause: fmt.Errorf("writing source: %w", err)}
	}

	args := tc.CompileArgs(art.Dir, art.SourcePath, art.EntryType)
	if len(args) == 0 {
		return art, nil
	}

	start := time.Now()
	output, err := c.compile(ctx, dir, args)
	if err != nil {
		_ = art.Release()
		var buildErr *domain.BuildError
		if errors.As(err, &buildErr) {
			buildErr.EntryType = unit.EntryType
		}
		c.logger.Warn("Compilation failed",
			slog.String("entry_type", unit.EntryType),
			slog.Duration("duration", time.Since(start)),
			slog.Int("diagnostic_bytes", len(output)),
		)
		return nil, err
	}

	c.logger.Debug("Compilation succeeded",
		slog.String("entry_type", unit.EntryType),
		slog.String("dir", dir),
		slog.Duration("duration", time.Since(start)),
	)
	return art, nil
}

func (c *Compiler) compile(ctx context.Context, dir string, args []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CompileTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir

	var out bytes.Buffer
	lw := &limitedWriter{w: &out, limit: c.cfg.MaxOutputBytes}
	cmd.Stdout = lw
	cmd.Stderr = lw

	err := cmd.Run()
	output := out.String()

	if ctx.Err() == context.DeadlineExceeded {
		return output, &domain.BuildError{
			Diagnostics: output,
			Cause:       &domain.TimeoutError{Deadline: c.cfg.CompileTimeout, Output: output},
		}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return output, &domain.BuildError{Diagnostics: output}
		}
		return output, &domain.BuildError{Diagnostics: output, Cause: err}
	}
	return output, nil
}

// =============================================================================
// LIMITED WRITER
// =============================================================================

// limitedWriter wraps a writer with a size limit.
type limitedWriter struct {
	w         io.Writer
	limit     int
	written   int
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if lw.written >= lw.limit {
		lw.truncated = true
		return n, nil
	}
	if remaining := lw.limit - lw.written; len(p) > remaining {
		p = p[:remaining]
		lw.truncated = true
	}
	written, err := lw.w.Write(p)
	lw.written += written
	return n, err
}
