// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package execution runs a compiled artifact once under a deadline, feeds
// its stdin, captures its output and measures elapsed time and memory.
//
// Executed code is not sandboxed. The engine provides process-group
// isolation for cleanup only.
package execution

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/perfscope/services/perfscope/build"
	"github.com/AleutianAI/perfscope/services/perfscope/domain"
)

// =============================================================================
// REQUEST
// =============================================================================

// Request describes one execution.
type Request struct {
	// Artifact is the compiled program to launch.
	Artifact *build.Artifact

	// Input is fed to stdin line by line. Empty means nothing is written.
	Input string

	// Deadline overrides Config.Deadline when positive.
	Deadline time.Duration
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine executes artifacts.
//
// Thread Safety: Safe for concurrent use. Each run owns its own process,
// pipes and pump goroutines.
type Engine struct {
	cfg    *Config
	probe  MemoryProbe
	logger *slog.Logger
}

// NewEngine creates an execution engine.
//
// Inputs:
//
//	cfg - Engine configuration. Nil uses DefaultConfig().
//	probe - Memory probe. Nil uses RuntimeProbe with cfg.SettlePause.
//	logger - Logger for structured logging. Nil uses slog.Default().
func NewEngine(cfg *Config, probe MemoryProbe, logger *slog.Logger) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	_ = cfg.Validate()
	if probe == nil {
		probe = RuntimeProbe{Settle: cfg.SettlePause}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, probe: probe, logger: logger}
}

// Run executes the artifact once.
//
// Description:
//
//	Takes a memory snapshot, starts the clock, spawns the program in its own
//	process group with stderr merged into stdout, then runs two pumps: a
//	writer that feeds the input one line at a time with Config.LinePause
//	between lines, and a reader that drains output until EOF. Both pumps
//	are joined before the process is reaped and before the clock stops.
//	A second snapshot follows; the memory delta is clamped at zero.
//
//	The deadline bounds the program's own run time; the time spent pacing
//	input lines is added on top of it. When it expires the whole process
//	group is killed and a *domain.TimeoutError is returned. Timeouts are
//	never retried.
//
// Inputs:
//
//	ctx - Context for cancellation. Must not be nil.
//	req - The execution request.
//
// Outputs:
//
//	domain.PerformanceSample - The measured run. Zero on error.
//	error - *domain.TimeoutError, *domain.ExecutionError, or a context error
//	        when ctx itself was cancelled.
//
// Thread Safety: Safe for concurrent use.
func (e *Engine) Run(ctx context.Context, req Request) (domain.PerformanceSample, error) {
	if ctx == nil {
		return domain.PerformanceSample{}, domain.ErrNilContext
	}
	if req.Artifact == nil {
		return domain.PerformanceSample{}, domain.NewValidationError("artifact", "artifact must not be nil")
	}
	args := req.Artifact.RunArgs()
	if len(args) == 0 {
		return domain.PerformanceSample{}, domain.NewValidationError("artifact", "toolchain has no run command")
	}
	deadline := req.Deadline
	if deadline <= 0 {
		deadline = e.cfg.Deadline
	}

	memStart, err := e.probe.Sample(ctx)
	if err != nil {
		return domain.PerformanceSample{}, fmt.Errorf("memory probe: %w", err)
	}

	// Paced input feeding is not charged against the deadline; the
	// allowance is reported on timeout.
	lines := splitLines(req.Input)
	pacing := time.Duration(len(lines)) * e.cfg.LinePause
	runCtx, cancel := context.WithTimeout(ctx, deadline+pacing)
	defer cancel()

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = req.Artifact.Dir
	setProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return domain.PerformanceSample{}, &domain.ExecutionError{ExitCode: -1, Cause: err}
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		_ = stdin.Close()
		return domain.PerformanceSample{}, &domain.ExecutionError{ExitCode: -1, Cause: err}
	}
	cmd.Stdout = outW
	cmd.Stderr = outW

	start := time.Now()
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = outR.Close()
		_ = outW.Close()
		return domain.PerformanceSample{}, &domain.ExecutionError{ExitCode: -1, Cause: err}
	}
	// The child holds its own copy; ours must go so the reader sees EOF.
	_ = outW.Close()

	var killed atomic.Bool
	reaped := make(chan struct{})
	go func() {
		select {
		case <-runCtx.Done():
			killed.Store(true)
			killProcessGroup(cmd.Process)
		case <-reaped:
		}
	}()

	capture := &boundedBuffer{limit: e.cfg.MaxOutputBytes}
	var g errgroup.Group
	g.Go(func() error {
		defer stdin.Close()
		return e.feed(runCtx, stdin, lines)
	})
	g.Go(func() error {
		defer outR.Close()
		_, err := io.Copy(capture, outR)
		return err
	})

	pumpErr := g.Wait()
	waitErr := cmd.Wait()
	elapsed := time.Since(start)
	close(reaped)

	output := capture.String()

	if killed.Load() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.PerformanceSample{}, fmt.Errorf("execution cancelled: %w", ctxErr)
		}
		e.logger.Warn("Program timed out",
			slog.String("entry_type", req.Artifact.EntryType),
			slog.Duration("deadline", deadline),
			slog.Duration("pacing_allowance", pacing),
		)
		return domain.PerformanceSample{}, &domain.TimeoutError{
			Deadline:        deadline,
			PacingAllowance: pacing,
			Output:          output,
		}
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return domain.PerformanceSample{}, &domain.ExecutionError{ExitCode: -1, Output: output, Cause: waitErr}
		}
		exitCode = exitErr.ExitCode()
	}
	if exitCode != 0 {
		return domain.PerformanceSample{}, &domain.ExecutionError{ExitCode: exitCode, Output: output}
	}
	if pumpErr != nil {
		return domain.PerformanceSample{}, &domain.ExecutionError{ExitCode: exitCode, Output: output, Cause: pumpErr}
	}

	memEnd, err := e.probe.Sample(ctx)
	if err != nil {
		return domain.PerformanceSample{}, fmt.Errorf("memory probe: %w", err)
	}

	sample := domain.PerformanceSample{
		ElapsedMs:        float64(elapsed) / float64(time.Millisecond),
		MemoryDeltaBytes: domain.ClampMemoryDelta(memStart, memEnd),
		PeakRSSBytes:     peakRSS(cmd.ProcessState),
		Stdout:           output,
		Truncated:        capture.truncated,
		ExitCode:         exitCode,
	}

	e.logger.Debug("Program run completed",
		slog.String("entry_type", req.Artifact.EntryType),
		slog.Float64("elapsed_ms", sample.ElapsedMs),
		slog.Int64("memory_delta_bytes", sample.MemoryDeltaBytes),
		slog.Int("output_bytes", len(output)),
	)
	return sample, nil
}

// feed writes lines to stdin, each followed by a newline.
func (e *Engine) feed(ctx context.Context, w io.Writer, lines []string) error {
	for i, line := range lines {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			if isClosedPipe(err) {
				// The program exited without reading everything.
				return nil
			}
			return fmt.Errorf("writing stdin: %w", err)
		}
		if i == len(lines)-1 || e.cfg.LinePause <= 0 {
			continue
		}
		t := time.NewTimer(e.cfg.LinePause)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
	return nil
}

// splitLines splits on newlines and drops trailing empty lines.
func splitLines(input string) []string {
	if input == "" {
		return nil
	}
	lines := strings.Split(input, "\n")
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func isClosedPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}

// =============================================================================
// BOUNDED BUFFER
// =============================================================================

// boundedBuffer keeps the first limit bytes written to it and discards the
// rest, so the writer side never blocks on a full pipe.
type boundedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if remaining := b.limit - b.buf.Len(); remaining < len(p) {
		b.truncated = true
		if remaining <= 0 {
			return n, nil
		}
		p = p[:remaining]
	}
	b.buf.Write(p)
	return n, nil
}

func (b *boundedBuffer) String() string {
	return b.buf.String()
}
