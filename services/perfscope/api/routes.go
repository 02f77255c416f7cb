// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RegisterRoutes registers all perfscope routes with the router.
//
// Description:
//
//	Registers all /v1/perfscope/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Endpoints:
//
//	POST   /v1/perfscope/analyze - Run an analysis
//	GET    /v1/perfscope/analyze/stream - Run analyses over a websocket
//	POST   /v1/perfscope/generate - Generate stdin for a program
//	POST   /v1/perfscope/check - Entry point, embedded data and syntax
//	POST   /v1/perfscope/classify - Static complexity labels
//	POST   /v1/perfscope/fit - Fit measured values to a growth curve
//	GET    /v1/perfscope/history - List recorded analyses
//	GET    /v1/perfscope/history/:id - Get one record
//	DELETE /v1/perfscope/history/:id - Delete one record
//	GET    /v1/perfscope/health - Health check
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	ps := rg.Group("/perfscope")
	{
		ps.POST("/analyze", h.HandleAnalyze)
		ps.GET("/analyze/stream", h.HandleAnalyzeStream)
		ps.POST("/generate", h.HandleGenerate)
		ps.POST("/check", h.HandleCheck)
		ps.POST("/classify", h.HandleClassify)
		ps.POST("/fit", h.HandleFit)
		ps.GET("/health", h.HandleHealth)

		hist := ps.Group("/history")
		{
			hist.GET("", h.HandleListHistory)
			hist.GET("/:id", h.HandleGetHistory)
			hist.DELETE("/:id", h.HandleDeleteHistory)
		}
	}
}

// RouterConfig configures NewRouter.
type RouterConfig struct {
	// ServiceName names the otelgin spans.
	ServiceName string

	// Limiter throttles /v1. Nil disables rate limiting.
	Limiter *ClientRateLimiter

	// Metrics serves /metrics when non-nil.
	Metrics http.Handler

	// AllowedOrigins lists browser origins besides the server's own that
	// may call /v1.
	AllowedOrigins []string
}

// NewRouter builds the gin engine with tracing, recovery, origin checks,
// rate limiting and the metrics endpoint.
func NewRouter(h *Handlers, cfg RouterConfig) *gin.Engine {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "perfscope"
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))

	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	origins := NewOriginPolicy(cfg.AllowedOrigins)
	h.setOriginPolicy(origins)

	v1 := router.Group("/v1")
	v1.Use(origins.Middleware())
	if cfg.Limiter != nil {
		v1.Use(cfg.Limiter.Middleware())
	}
	RegisterRoutes(v1, h)
	return router
}
