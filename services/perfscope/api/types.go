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
	"github.com/AleutianAI/perfscope/services/perfscope/classify"
	"github.com/AleutianAI/perfscope/services/perfscope/harness"
	"github.com/AleutianAI/perfscope/services/perfscope/history"
	"github.com/AleutianAI/perfscope/services/perfscope/source"
)

// ServiceVersion is reported by the health endpoint.
const ServiceVersion = "0.1.0"

// =============================================================================
// REQUESTS
// =============================================================================

// AnalyzeRequest is the body of POST /v1/perfscope/analyze and the first
// message on the analyze stream.
type AnalyzeRequest struct {
	// Code is the Java source. Limited to the server's max_code_bytes.
	Code string `json:"code" validate:"required,maxbytes"`

	// Input is an input spec in text form: a literal, "HARDCODED",
	// "size:<n>[:<shape>]" or "generate:<base>:<shape>:<sizes>".
	Input string `json:"input"`

	// Source labels the record in history, e.g. a file name.
	Source string `json:"source,omitempty" validate:"max=256"`

	// Record overrides the server's record_to_history setting.
	Record *bool `json:"record,omitempty"`
}

// GenerateRequest is the body of POST /v1/perfscope/generate.
type GenerateRequest struct {
	Code  string `json:"code" validate:"required,maxbytes"`
	Size  int    `json:"size" validate:"required,gte=1,lte=100000"`
	Shape string `json:"shape" validate:"shape"`
}

// CodeRequest is the body of POST /v1/perfscope/check and /classify.
type CodeRequest struct {
	Code string `json:"code" validate:"required,maxbytes"`
}

// FitRequest is the body of POST /v1/perfscope/fit.
type FitRequest struct {
	Sizes  []int     `json:"sizes" validate:"required,min=2,max=1000,dive,gte=1"`
	Values []float64 `json:"values" validate:"required,min=2,max=1000"`
}

// =============================================================================
// RESPONSES
// =============================================================================

// AnalyzeResponse wraps a report with its history status.
type AnalyzeResponse struct {
	Report *harness.Report `json:"report"`

	// Recorded is true when the report was written to history.
	Recorded bool `json:"recorded"`
}

// GenerateResponse carries a generated stdin.
type GenerateResponse struct {
	Input string `json:"input"`
	Lines int    `json:"lines"`
}

// CheckResponse is the pre-flight view of a program.
type CheckResponse struct {
	HasEntryPoint   bool                 `json:"has_entry_point"`
	HasEmbeddedData bool                 `json:"has_embedded_data"`
	EntryType       string               `json:"entry_type,omitempty"`
	Syntax          *source.SyntaxReport `json:"syntax"`
}

// ClassifyResponse is the static classification.
type ClassifyResponse = classify.Classification

// HistoryListResponse is the body of GET /v1/perfscope/history.
type HistoryListResponse struct {
	Records []history.Record `json:"records"`
	Count   int              `json:"count"`
}

// HealthResponse is the body of GET /v1/perfscope/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	History bool   `json:"history"`
}

// ErrorResponse is returned on failure.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code.
	Code string `json:"code,omitempty"`

	// Details carries compiler diagnostics or program output when present.
	Details string `json:"details,omitempty"`
}

// =============================================================================
// STREAM MESSAGES
// =============================================================================

// Stream message types.
const (
	StreamSession  = "session"
	StreamProgress = "progress"
	StreamResult   = "result"
	StreamError    = "error"
)

// StreamMessage is one server-to-client websocket message.
type StreamMessage struct {
	Type      string            `json:"type"`
	SessionID string            `json:"session_id,omitempty"`
	Progress  *harness.Progress `json:"progress,omitempty"`
	Result    *AnalyzeResponse  `json:"result,omitempty"`
	Error     *ErrorResponse    `json:"error,omitempty"`
}
