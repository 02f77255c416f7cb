// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/AleutianAI/perfscope/pkg/ux"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var (
	watchOpts     analyzeFlags
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <file.java>",
	Short: "Re-analyze a program every time it is saved",
	Long: `Runs analyze once, then again after each save. Saves within the debounce
window are coalesced. Failed builds and runs are reported and watching
continues.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	registerAnalyzeFlags(watchCmd, &watchOpts)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 300*time.Millisecond, "quiet period before re-running")
}

// =============================================================================
// DEBOUNCER
// =============================================================================

// debouncer coalesces bursts of Trigger calls into one send on C, delay
// after the last call.
//
// Thread Safety: Safe for concurrent use.
type debouncer struct {
	delay time.Duration
	C     chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay, C: make(chan struct{}, 1)}
}

// Trigger restarts the quiet period.
func (d *debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		select {
		case d.C <- struct{}{}:
		default:
		}
	})
}

// Stop cancels a pending send.
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// isSaveEvent reports whether event changed target. Editors that save by
// rename show up as Create or Rename on the watched directory.
func isSaveEvent(event fsnotify.Event, target string) bool {
	if filepath.Clean(event.Name) != target {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// =============================================================================
// COMMAND
// =============================================================================

func runWatch(cmd *cobra.Command, args []string) error {
	target, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	units, err := displayUnits(watchOpts)
	if err != nil {
		return err
	}
	spec, err := buildSpec(watchOpts, os.ReadFile)
	if err != nil {
		return err
	}
	applyRunOverrides(watchOpts)
	svc, err := newService()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(target), err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deb := newDebouncer(watchDebounce)
	defer deb.Stop()

	rerun := func() {
		code, err := readCode(target)
		if err != nil {
			reportError(err)
			return
		}
		if _, err := analyzeOnce(ctx, svc, code, spec, target, watchOpts.noRecord, units); err != nil {
			if ctx.Err() != nil {
				return
			}
			reportError(err)
		}
	}

	rerun()
	ux.Muted(fmt.Sprintf("Watching %s (Ctrl+C to stop)", target))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if isSaveEvent(event, target) {
				slog.Debug("Source changed", "file", event.Name, "op", event.Op.String())
				deb.Trigger()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("File watcher error", "error", err)
		case <-deb.C:
			ux.Title(fmt.Sprintf("Change detected at %s", time.Now().Format(time.TimeOnly)))
			rerun()
		}
	}
}
