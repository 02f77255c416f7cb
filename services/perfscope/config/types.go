// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the perfscope process configuration.
//
// The file lives at ~/.perfscope/perfscope.yaml unless a path is given and
// is created with defaults on first run. Component configs are derived from
// it through the To* methods; command-line flags override on top.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/AleutianAI/perfscope/services/perfscope/build"
	"github.com/AleutianAI/perfscope/services/perfscope/execution"
	"github.com/AleutianAI/perfscope/services/perfscope/harness"
	"github.com/AleutianAI/perfscope/services/perfscope/history"
	"github.com/AleutianAI/perfscope/services/perfscope/telemetry"
)

// CurrentConfigVersion is written into new files.
const CurrentConfigVersion = "1"

// PerfscopeConfig is the root of perfscope.yaml.
type PerfscopeConfig struct {
	Meta      MetaConfig       `yaml:"meta"`
	Harness   HarnessConfig    `yaml:"harness"`
	Execution ExecutionConfig  `yaml:"execution"`
	Build     BuildConfig      `yaml:"build"`
	Server    ServerConfig     `yaml:"server"`
	History   HistoryConfig    `yaml:"history"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Logging   LoggingConfig    `yaml:"logging"`
	Export    ExportConfig     `yaml:"export"`
}

// MetaConfig records the file's schema version.
type MetaConfig struct {
	Version string `yaml:"version"`
}

// HarnessConfig is the measurement policy.
type HarnessConfig struct {
	WarmupRuns   int           `yaml:"warmup_runs"`
	MeasuredRuns int           `yaml:"measured_runs"`
	Seed         uint64        `yaml:"seed"`
	TotalTimeout time.Duration `yaml:"total_timeout"`
}

// ExecutionConfig bounds a single program run.
type ExecutionConfig struct {
	Deadline       time.Duration `yaml:"deadline"`
	LinePause      time.Duration `yaml:"line_pause"`
	SettlePause    time.Duration `yaml:"settle_pause"`
	MaxOutputBytes int           `yaml:"max_output_bytes"`
}

// BuildConfig selects and bounds the compiler.
type BuildConfig struct {
	Language       string        `yaml:"language"`
	TempRoot       string        `yaml:"temp_root"`
	CompileTimeout time.Duration `yaml:"compile_timeout"`
}

// ServerConfig configures `perfscope serve`.
type ServerConfig struct {
	Addr            string  `yaml:"addr"`
	RateLimit       float64 `yaml:"rate_limit"`
	RateBurst       int     `yaml:"rate_burst"`
	MaxCodeBytes    int     `yaml:"max_code_bytes"`
	MaxConcurrent   int     `yaml:"max_concurrent"`
	RecordToHistory bool    `yaml:"record_to_history"`

	// AllowedOrigins are browser origins, besides the server's own, that
	// may call the API. Empty means same-origin only.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// HistoryConfig locates the history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	JSON   bool   `yaml:"json"`
	LogDir string `yaml:"log_dir"`
}

// ExportConfig configures measurement exports.
type ExportConfig struct {
	CSVDir string              `yaml:"csv_dir"`
	Influx history.InfluxConfig `yaml:"influx"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() PerfscopeConfig {
	h := harness.DefaultConfig()
	e := execution.DefaultConfig()
	b := build.DefaultConfig()
	base := defaultBaseDir()

	return PerfscopeConfig{
		Meta: MetaConfig{Version: CurrentConfigVersion},
		Harness: HarnessConfig{
			WarmupRuns:   h.WarmupRuns,
			MeasuredRuns: h.MeasuredRuns,
			Seed:         h.Seed,
			TotalTimeout: h.TotalTimeout,
		},
		Execution: ExecutionConfig{
			Deadline:       e.Deadline,
			LinePause:      e.LinePause,
			SettlePause:    e.SettlePause,
			MaxOutputBytes: e.MaxOutputBytes,
		},
		Build: BuildConfig{
			Language:       b.Language,
			CompileTimeout: b.CompileTimeout,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:12240",
			RateLimit:       2,
			RateBurst:       5,
			MaxCodeBytes:    256 * 1024,
			MaxConcurrent:   2,
			RecordToHistory: true,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(base, "history"),
		},
		Telemetry: telemetry.DefaultConfig(),
		Logging: LoggingConfig{
			Level: "warn",
		},
		Export: ExportConfig{
			CSVDir: ".",
		},
	}
}

// ToHarness converts the harness section.
func (c PerfscopeConfig) ToHarness() *harness.Config {
	return harness.NewConfig(
		harness.WithWarmupRuns(c.Harness.WarmupRuns),
		harness.WithMeasuredRuns(c.Harness.MeasuredRuns),
		harness.WithSeed(c.Harness.Seed),
		harness.WithRunDeadline(c.Execution.Deadline),
		harness.WithTotalTimeout(c.Harness.TotalTimeout),
	)
}

// ToExecution converts the execution section.
func (c PerfscopeConfig) ToExecution() *execution.Config {
	return execution.NewConfig(
		execution.WithDeadline(c.Execution.Deadline),
		execution.WithLinePause(c.Execution.LinePause),
		execution.WithSettlePause(c.Execution.SettlePause),
		execution.WithMaxOutputBytes(c.Execution.MaxOutputBytes),
	)
}

// ToBuild converts the build section. An empty temp root keeps the default.
func (c PerfscopeConfig) ToBuild() *build.Config {
	opts := []build.Option{
		build.WithLanguage(c.Build.Language),
		build.WithCompileTimeout(c.Build.CompileTimeout),
	}
	if c.Build.TempRoot != "" {
		opts = append(opts, build.WithTempRoot(c.Build.TempRoot))
	}
	return build.NewConfig(opts...)
}

// defaultBaseDir is ~/.perfscope, or a relative .perfscope without a home.
func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".perfscope"
	}
	return filepath.Join(home, ".perfscope")
}
