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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/AleutianAI/perfscope/pkg/ux"
	"github.com/AleutianAI/perfscope/services/perfscope/api"
	"github.com/AleutianAI/perfscope/services/perfscope/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const serverShutdownTimeout = 10 * time.Second

var (
	serveAddr  string
	serveDebug bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API over HTTP",
	Long: `Serves /v1/perfscope/* (including the analyze websocket stream) and
/metrics. Requests are rate limited per client address.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "gin debug mode with request logging")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if serveDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	addr := serveAddr
	if addr == "" {
		addr = appCfg.Server.Addr
	}

	svc, err := newService()
	if err != nil {
		return err
	}
	handlers := api.NewHandlers(svc, appCfg.Server.MaxCodeBytes, slog.Default())
	router := api.NewRouter(handlers, api.RouterConfig{
		ServiceName: appCfg.Telemetry.ServiceName,
		Limiter:     api.NewClientRateLimiter(appCfg.Server.RateLimit, appCfg.Server.RateBurst),
		Metrics:     telemetry.MetricsHandler(),

		AllowedOrigins: appCfg.Server.AllowedOrigins,
	})
	if serveDebug {
		router.Use(gin.Logger())
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting perfscope server", "address", addr)
		errCh <- server.ListenAndServe()
	}()
	ux.Info(fmt.Sprintf("Listening on http://%s", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down perfscope server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
