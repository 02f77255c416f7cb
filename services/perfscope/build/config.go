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
	"os"
	"time"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds configuration for the build step.
type Config struct {
	// Language selects the toolchain.
	// Default: "java"
	Language string

	// TempRoot is the parent of every scratch directory.
	// Default: os.TempDir()
	TempRoot string

	// CompileTimeout bounds a single compiler invocation.
	// Default: 60s
	CompileTimeout time.Duration

	// MaxOutputBytes is the maximum compiler output kept as diagnostics.
	// Default: 65536 (64KB)
	MaxOutputBytes int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Language:       "java",
		TempRoot:       os.TempDir(),
		CompileTimeout: 60 * time.Second,
		MaxOutputBytes: 64 * 1024,
	}
}

// Validate clamps out-of-range values.
func (c *Config) Validate() error {
	if c.Language == "" {
		c.Language = "java"
	}
	if c.TempRoot == "" {
		c.TempRoot = os.TempDir()
	}
	if c.CompileTimeout < time.Second {
		c.CompileTimeout = time.Second
	}
	if c.MaxOutputBytes < 1024 {
		c.MaxOutputBytes = 1024
	}
	return nil
}

// Option is a function that modifies Config.
type Option func(*Config)

// WithLanguage selects the toolchain.
func WithLanguage(lang string) Option {
	return func(c *Config) {
		c.Language = lang
	}
}

// WithTempRoot sets the scratch parent directory.
func WithTempRoot(dir string) Option {
	return func(c *Config) {
		c.TempRoot = dir
	}
}

// WithCompileTimeout sets the compiler timeout.
func WithCompileTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.CompileTimeout = d
	}
}

// WithMaxOutputBytes sets the diagnostics capture limit.
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
