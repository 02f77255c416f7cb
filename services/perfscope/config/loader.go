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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultPath returns ~/.perfscope/perfscope.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".perfscope", "perfscope.yaml"), nil
}

// Load reads the configuration at path, creating it with defaults when it
// does not exist. An empty path means DefaultPath().
//
// Description:
//
//	Values absent from the file keep their defaults. Environment variables
//	are applied last:
//	  - PERFSCOPE_ADDR: server listen address
//	  - PERFSCOPE_HISTORY_PATH: history database directory
//	  - PERFSCOPE_LOG_LEVEL: logging level
//	  - PERFSCOPE_TEMP_ROOT: scratch directory root
//	  - PERFSCOPE_INFLUX_URL, PERFSCOPE_INFLUX_TOKEN: InfluxDB export target
//
// Outputs:
//
//	PerfscopeConfig - The loaded configuration.
//	error - Non-nil if the file cannot be created, read or parsed.
func Load(path string) (PerfscopeConfig, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return PerfscopeConfig{}, err
		}
		path = p
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Info("First run detected, creating the config", slog.String("path", path))
		if err := createDefault(path); err != nil {
			return PerfscopeConfig{}, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return PerfscopeConfig{}, fmt.Errorf("failed to read the config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return PerfscopeConfig{}, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	applyEnv(&cfg)
	return cfg, nil
}

func createDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func applyEnv(cfg *PerfscopeConfig) {
	cfg.Server.Addr = getEnvOr("PERFSCOPE_ADDR", cfg.Server.Addr)
	cfg.History.Path = getEnvOr("PERFSCOPE_HISTORY_PATH", cfg.History.Path)
	cfg.Logging.Level = getEnvOr("PERFSCOPE_LOG_LEVEL", cfg.Logging.Level)
	cfg.Build.TempRoot = getEnvOr("PERFSCOPE_TEMP_ROOT", cfg.Build.TempRoot)
	cfg.Export.Influx.URL = getEnvOr("PERFSCOPE_INFLUX_URL", cfg.Export.Influx.URL)
	cfg.Export.Influx.Token = getEnvOr("PERFSCOPE_INFLUX_TOKEN", cfg.Export.Influx.Token)
}

// getEnvOr returns the environment variable value or the fallback.
func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
