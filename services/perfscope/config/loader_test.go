// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestLoad_CreatesDefault verifies first-run creation.
func TestLoad_CreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".perfscope", "perfscope.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr, "config file was not created")

	assert.Equal(t, CurrentConfigVersion, cfg.Meta.Version)
	assert.Equal(t, 3, cfg.Harness.WarmupRuns)
	assert.Equal(t, 5, cfg.Harness.MeasuredRuns)
	assert.Equal(t, uint64(42), cfg.Harness.Seed)
	assert.Equal(t, 10*time.Second, cfg.Execution.Deadline)
	assert.Equal(t, "java", cfg.Build.Language)
}

// TestLoad_DurationsAreReadable verifies durations round-trip as strings.
func TestLoad_DurationsAreReadable(t *testing.T) {
	data, err := yaml.Marshal(DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, string(data), "deadline: 10s")
	assert.Contains(t, string(data), "line_pause: 10ms")
}

// TestLoad_PartialFileKeepsDefaults verifies missing keys keep defaults.
func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perfscope.yaml")
	content := "harness:\n  measured_runs: 9\nexecution:\n  deadline: 2s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Harness.MeasuredRuns)
	assert.Equal(t, 3, cfg.Harness.WarmupRuns)
	assert.Equal(t, 2*time.Second, cfg.Execution.Deadline)
	assert.Equal(t, 10*time.Millisecond, cfg.Execution.LinePause)

	h := cfg.ToHarness()
	assert.Equal(t, 9, h.MeasuredRuns)
	assert.Equal(t, 2*time.Second, h.RunDeadline)
	assert.Equal(t, 2*time.Second, cfg.ToExecution().Deadline)
}

// TestLoad_EnvOverrides verifies environment variables win over the file.
func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perfscope.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: 0.0.0.0:1\n"), 0o644))
	t.Setenv("PERFSCOPE_ADDR", "127.0.0.1:9999")
	t.Setenv("PERFSCOPE_INFLUX_TOKEN", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
	assert.Equal(t, "secret", cfg.Export.Influx.Token)
}

// TestLoad_InvalidYAML verifies parse errors surface.
func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perfscope.yaml")
	require.NoError(t, os.WriteFile(path, []byte("harness: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

// TestToBuild_TempRoot verifies an empty temp root keeps the default.
func TestToBuild_TempRoot(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, os.TempDir(), cfg.ToBuild().TempRoot)

	cfg.Build.TempRoot = "/var/tmp/perfscope"
	assert.Equal(t, "/var/tmp/perfscope", cfg.ToBuild().TempRoot)
}

// TestLoad_AllowedOrigins verifies the origin allowlist is read and
// defaults to empty.
func TestLoad_AllowedOrigins(t *testing.T) {
	assert.Empty(t, DefaultConfig().Server.AllowedOrigins)

	path := filepath.Join(t.TempDir(), "perfscope.yaml")
	body := "server:\n  allowed_origins:\n    - http://localhost:5173\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
}
