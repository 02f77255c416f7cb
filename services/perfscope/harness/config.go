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
	"time"

	"github.com/AleutianAI/perfscope/services/perfscope/inputgen"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds the measurement policy of an Analyzer.
type Config struct {
	// WarmupRuns is the number of discarded runs per size. The default
	// is a tuning choice; any count >= 0 is valid.
	// Default: 3
	WarmupRuns int

	// MeasuredRuns is the number of averaged runs per size. The default
	// is a tuning choice; any count >= 1 is valid.
	// Default: 5
	MeasuredRuns int

	// Seed seeds the synthetic input generator.
	// Default: 42
	Seed uint64

	// RunDeadline is the per-run timeout. Zero uses the engine default.
	// Default: 10s
	RunDeadline time.Duration

	// TotalTimeout bounds a whole Analyze call. Zero means no bound.
	// Default: 0
	TotalTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		WarmupRuns:   3,
		MeasuredRuns: 5,
		Seed:         inputgen.DefaultSeed,
		RunDeadline:  10 * time.Second,
	}
}

// Validate clamps out-of-range values.
func (c *Config) Validate() error {
	if c.WarmupRuns < 0 {
		c.WarmupRuns = 0
	}
	if c.MeasuredRuns < 1 {
		c.MeasuredRuns = 1
	}
	if c.RunDeadline < 0 {
		c.RunDeadline = 0
	}
	if c.TotalTimeout < 0 {
		c.TotalTimeout = 0
	}
	return nil
}

// Option is a function that modifies Config.
type Option func(*Config)

// WithWarmupRuns sets the discarded runs per size.
func WithWarmupRuns(n int) Option {
	return func(c *Config) {
		c.WarmupRuns = n
	}
}

// WithMeasuredRuns sets the averaged runs per size.
func WithMeasuredRuns(n int) Option {
	return func(c *Config) {
		c.MeasuredRuns = n
	}
}

// WithSeed sets the input generator seed.
func WithSeed(seed uint64) Option {
	return func(c *Config) {
		c.Seed = seed
	}
}

// WithRunDeadline sets the per-run timeout.
func WithRunDeadline(d time.Duration) Option {
	return func(c *Config) {
		c.RunDeadline = d
	}
}

// WithTotalTimeout bounds a whole Analyze call.
func WithTotalTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.TotalTimeout = d
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
