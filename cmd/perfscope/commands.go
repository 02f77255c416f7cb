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
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/perfscope/pkg/logging"
	"github.com/AleutianAI/perfscope/pkg/ux"
	"github.com/AleutianAI/perfscope/services/perfscope/api"
	"github.com/AleutianAI/perfscope/services/perfscope/build"
	"github.com/AleutianAI/perfscope/services/perfscope/config"
	"github.com/AleutianAI/perfscope/services/perfscope/execution"
	"github.com/AleutianAI/perfscope/services/perfscope/harness"
	"github.com/AleutianAI/perfscope/services/perfscope/history"
	"github.com/AleutianAI/perfscope/services/perfscope/telemetry"
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath       string
	logLevel         string
	personalityLevel string
	jsonOutput       bool
	noHistory        bool

	appCfg            config.PerfscopeConfig
	appLogger         *logging.Logger
	telemetryShutdown func(context.Context) error
	historyDB         *history.DB
	influxSink        *history.InfluxSink

	rootCmd = &cobra.Command{
		Use:   "perfscope",
		Short: "Measure and classify the complexity of Java programs",
		Long: `perfscope compiles a Java program, runs it against fixed, embedded or
generated stdin, averages time and memory over measured runs, and labels
its time and space complexity. Size sweeps fit the measurements to growth
curves.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupApp,
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default ~/.perfscope/perfscope.yaml)")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&personalityLevel, "personality", "", "output style: full, minimal, machine")
	pf.BoolVar(&jsonOutput, "json", false, "print results as JSON")
	pf.BoolVar(&noHistory, "no-history", false, "do not open or write the history database")

	rootCmd.AddCommand(analyzeCmd, generateCmd, checkCmd, classifyCmd, fitCmd, serveCmd, historyCmd, watchCmd)
}

// setupApp loads configuration and builds the logger and telemetry.
func setupApp(cmd *cobra.Command, _ []string) error {
	if personalityLevel != "" {
		ux.SetPersonality(ux.ParsePersonalityLevel(personalityLevel))
	} else {
		ux.InitPersonality()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	appCfg = cfg

	appLogger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.LogDir,
		Service: "perfscope",
		JSON:    cfg.Logging.JSON,
	})
	slog.SetDefault(appLogger.Slog())

	shutdown, err := telemetry.Init(cmd.Context(), cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	telemetryShutdown = shutdown
	return nil
}

// closeApp releases everything setupApp and newService opened.
func closeApp() {
	if influxSink != nil {
		influxSink.Close()
		influxSink = nil
	}
	if historyDB != nil {
		if err := historyDB.Close(); err != nil {
			slog.Warn("Failed to close history database", "error", err)
		}
		historyDB = nil
	}
	if telemetryShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := telemetryShutdown(ctx); err != nil {
			slog.Warn("Telemetry shutdown failed", "error", err)
		}
		cancel()
		telemetryShutdown = nil
	}
	if appLogger != nil {
		_ = appLogger.Close()
		appLogger = nil
	}
}

// newAnalyzer builds a harness from the loaded configuration.
func newAnalyzer() *harness.Analyzer {
	logger := slog.Default()
	compiler := build.NewCompiler(appCfg.ToBuild(), nil, logger)
	engine := execution.NewEngine(appCfg.ToExecution(), nil, logger)
	return harness.NewAnalyzer(appCfg.ToHarness(), compiler, engine, logger)
}

// openStore opens the history database unless disabled.
func openStore() (*history.Store, error) {
	if noHistory || !appCfg.History.Enabled {
		return nil, nil
	}
	if historyDB == nil {
		dbCfg := history.DefaultDBConfig(appCfg.History.Path)
		dbCfg.Logger = slog.Default()
		db, err := history.OpenDB(dbCfg)
		if err != nil {
			return nil, fmt.Errorf("opening history at %s: %w", appCfg.History.Path, err)
		}
		historyDB = db
	}
	return history.NewStore(historyDB, slog.Default()), nil
}

// requireStore is openStore for commands that cannot work without history.
func requireStore() (*history.Store, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("history is disabled")
	}
	return store, nil
}

// openInflux connects the configured InfluxDB sink, or returns nil when no
// URL is configured.
func openInflux() (*history.InfluxSink, error) {
	if appCfg.Export.Influx.URL == "" {
		return nil, nil
	}
	if influxSink == nil {
		sink, err := history.NewInfluxSink(appCfg.Export.Influx, slog.Default())
		if err != nil {
			return nil, err
		}
		influxSink = sink
	}
	return influxSink, nil
}

// newService wires the analyzer, history and export sink.
func newService() (*api.Service, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	var sink api.Sink
	if store != nil {
		s, err := openInflux()
		if err != nil {
			return nil, err
		}
		if s != nil {
			sink = s
		}
	}
	return api.NewService(newAnalyzer(), store, sink, api.ServiceConfig{
		MaxConcurrent:   appCfg.Server.MaxConcurrent,
		RecordToHistory: appCfg.Server.RecordToHistory,
	}, slog.Default()), nil
}
