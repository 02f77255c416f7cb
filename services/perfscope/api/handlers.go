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
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/AleutianAI/perfscope/services/perfscope/classify"
	"github.com/AleutianAI/perfscope/services/perfscope/domain"
	"github.com/AleutianAI/perfscope/services/perfscope/fit"
	"github.com/AleutianAI/perfscope/services/perfscope/harness"
	"github.com/AleutianAI/perfscope/services/perfscope/source"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// defaultHistoryLimit caps GET /history without a limit parameter.
const defaultHistoryLimit = 50

// Handlers contains the HTTP handlers for perfscope.
type Handlers struct {
	svc      *Service
	validate *validator.Validate
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandlers creates handlers for the given service.
//
// Inputs:
//
//	svc - The service. Must not be nil.
//	maxCodeBytes - Upper bound on request code size. <= 0 means 256 KiB.
//	logger - Logger. Nil means slog.Default().
func NewHandlers(svc *Service, maxCodeBytes int, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	if maxCodeBytes <= 0 {
		maxCodeBytes = 256 * 1024
	}
	return &Handlers{
		svc:      svc,
		validate: newValidator(maxCodeBytes),
		upgrader: newUpgrader(NewOriginPolicy(nil)),
		logger:   logger,
	}
}

// setOriginPolicy replaces the websocket origin check.
func (h *Handlers) setOriginPolicy(policy *OriginPolicy) {
	h.upgrader = newUpgrader(policy)
}

// bind decodes and validates a JSON body, writing a 415 or 400 on failure.
// Only application/json bodies are accepted; other content types are
// what a browser can send cross-site without a preflight.
func (h *Handlers) bind(c *gin.Context, logger *slog.Logger, req any) bool {
	if ct := c.ContentType(); ct != binding.MIMEJSON {
		logger.Warn("Unsupported content type", "content_type", ct)
		c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{
			Error: "Content-Type must be application/json",
			Code:  "UNSUPPORTED_MEDIA_TYPE",
		})
		return false
	}
	if err := c.ShouldBindJSON(req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		logger.Warn("Request failed validation", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: describeValidation(err),
			Code:  "INVALID_REQUEST",
		})
		return false
	}
	return true
}

// fail logs and writes the mapped error response.
func (h *Handlers) fail(c *gin.Context, logger *slog.Logger, msg string, err error) {
	status, resp := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, "error", err, "status", status)
	} else {
		logger.Warn(msg, "error", err, "status", status)
	}
	c.JSON(status, resp)
}

// HandleAnalyze handles POST /v1/perfscope/analyze.
//
// Description:
//
//	Runs one analysis synchronously. The request's input field is parsed
//	with harness.ParseInputSpec; an empty input means an empty fixed stdin.
//
// Request Body:
//
//	AnalyzeRequest
//
// Response:
//
//	200 OK: AnalyzeResponse
//	400 Bad Request: Validation error (no subprocess was started)
//	422 Unprocessable Entity: Build or execution failure
//	504 Gateway Timeout: A run exceeded its deadline
func (h *Handlers) HandleAnalyze(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleAnalyze")

	var req AnalyzeRequest
	if !h.bind(c, logger, &req) {
		return
	}
	spec, err := harness.ParseInputSpec(req.Input)
	if err != nil {
		h.fail(c, logger, "Invalid input spec", err)
		return
	}

	logger.Info("Analyzing", "mode", string(spec.Mode), "code_bytes", len(req.Code))
	report, recorded, err := h.svc.Analyze(c.Request.Context(), AnalyzeCall{
		Code:   req.Code,
		Spec:   spec,
		Source: req.Source,
		Record: req.Record,
	})
	if err != nil {
		h.fail(c, logger, "Analysis failed", err)
		return
	}
	c.JSON(http.StatusOK, AnalyzeResponse{Report: report, Recorded: recorded})
}

// HandleGenerate handles POST /v1/perfscope/generate.
//
// Response:
//
//	200 OK: GenerateResponse
//	400 Bad Request: Bad size or shape
func (h *Handlers) HandleGenerate(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleGenerate")

	var req GenerateRequest
	if !h.bind(c, logger, &req) {
		return
	}
	input, err := h.svc.Analyzer().GenerateInput(req.Code, req.Size, req.Shape)
	if err != nil {
		h.fail(c, logger, "Input generation failed", err)
		return
	}
	c.JSON(http.StatusOK, GenerateResponse{
		Input: input,
		Lines: strings.Count(input, "\n"),
	})
}

// HandleCheck handles POST /v1/perfscope/check.
//
// Description:
//
//	Reports entry point, embedded data and syntax diagnostics without
//	compiling or running anything.
func (h *Handlers) HandleCheck(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleCheck")

	var req CodeRequest
	if !h.bind(c, logger, &req) {
		return
	}
	syntax, err := source.CheckSyntax(c.Request.Context(), req.Code)
	if err != nil {
		h.fail(c, logger, "Syntax check failed", err)
		return
	}
	entryType, _ := source.ExtractEntryType(req.Code)
	c.JSON(http.StatusOK, CheckResponse{
		HasEntryPoint:   harness.HasEntryPoint(req.Code),
		HasEmbeddedData: harness.HasEmbeddedData(req.Code),
		EntryType:       entryType,
		Syntax:          syntax,
	})
}

// HandleClassify handles POST /v1/perfscope/classify.
func (h *Handlers) HandleClassify(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleClassify")

	var req CodeRequest
	if !h.bind(c, logger, &req) {
		return
	}
	c.JSON(http.StatusOK, classify.Classify(req.Code))
}

// HandleFit handles POST /v1/perfscope/fit.
//
// Response:
//
//	200 OK: fit.Result
//	400 Bad Request: Mismatched lengths or non-finite values
func (h *Handlers) HandleFit(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleFit")

	var req FitRequest
	if !h.bind(c, logger, &req) {
		return
	}
	result, err := fit.FitDetailed(req.Sizes, req.Values)
	if err != nil {
		h.fail(c, logger, "Fit failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleListHistory handles GET /v1/perfscope/history.
//
// Query Parameters:
//
//	limit - Maximum records, newest first. Default 50.
func (h *Handlers) HandleListHistory(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleListHistory")

	store := h.svc.Store()
	if store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "history is disabled", Code: "HISTORY_DISABLED"})
		return
	}
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.fail(c, logger, "Invalid limit", domain.NewValidationError("limit", "must be a positive integer"))
			return
		}
		limit = n
	}
	records, err := store.List(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, logger, "History list failed", err)
		return
	}
	c.JSON(http.StatusOK, HistoryListResponse{Records: records, Count: len(records)})
}

// HandleGetHistory handles GET /v1/perfscope/history/:id.
func (h *Handlers) HandleGetHistory(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleGetHistory")

	store := h.svc.Store()
	if store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "history is disabled", Code: "HISTORY_DISABLED"})
		return
	}
	rec, err := store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, logger, "History get failed", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// HandleDeleteHistory handles DELETE /v1/perfscope/history/:id.
func (h *Handlers) HandleDeleteHistory(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleDeleteHistory")

	store := h.svc.Store()
	if store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "history is disabled", Code: "HISTORY_DISABLED"})
		return
	}
	if err := store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, logger, "History delete failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleHealth handles GET /v1/perfscope/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
		History: h.svc.Store() != nil,
	})
}

func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
