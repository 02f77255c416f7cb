// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package execution

import "time"

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds configuration for the execution engine.
type Config struct {
	// Deadline is the per-run timeout used when a Request does not set one.
	// Default: 10s
	Deadline time.Duration

	// LinePause is the delay between stdin lines. Programs that read
	// interactively see their input arrive the way a typist would feed it.
	// Default: 10ms
	LinePause time.Duration

	// SettlePause is how long the default memory probe waits after a GC.
	// Default: 100ms
	SettlePause time.Duration

	// MaxOutputBytes is the maximum program output to capture.
	// Output beyond this is read and discarded.
	// Default: 1048576 (1MB)
	MaxOutputBytes int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Deadline:       10 * time.Second,
		LinePause:      10 * time.Millisecond,
		SettlePause:    100 * time.Millisecond,
		MaxOutputBytes: 1 << 20,
	}
}

// Validate clamps out-of-range values.
func (c *Config) Validate() error {
	if c.Deadline < 10*time.Millisecond {
		c.Deadline = 10 * time.Millisecond
	}
	if c.LinePause < 0 {
		c.LinePause = 0
	}
	if c.SettlePause < 0 {
		c.SettlePause = 0
	}
	if c.MaxOutputBytes < 1024 {
		c.MaxOutputBytes = 1024
	}
	return nil
}

// Option is a function that modifies Config.
type Option func(*Config)

// WithDeadline sets the default per-run timeout.
func WithDeadline(d time.Duration) Option {
	return func(c *Config) {
		c.Deadline = d
	}
}

// WithLinePause sets the delay between stdin lines.
func WithLinePause(d time.Duration) Option {
	return func(c *Config) {
		c.LinePause = d
	}
}

// WithSettlePause sets the memory probe settle time.
func WithSettlePause(d time.Duration) Option {
	return func(c *Config) {
		c.SettlePause = d
	}
}

// WithMaxOutputBytes sets the output capture limit.
func WithMaxOutputBytes(n int) Option {
	return func(c *Config) {
		c.MaxOutputBytes = n
	}
}

// NewConfig creates a Config with the given options applied.
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	_ = cfg.Validate()
	return cfg
}
