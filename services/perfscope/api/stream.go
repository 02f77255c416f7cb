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
	"context"
	"sync"
	"time"

	"github.com/AleutianAI/perfscope/services/perfscope/harness"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// streamWriteTimeout bounds each websocket write.
const streamWriteTimeout = 10 * time.Second

// newUpgrader builds the websocket upgrader. Origins are checked by
// policy, so a cross-site page cannot open an analysis session.
func newUpgrader(policy *OriginPolicy) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin:     policy.Allowed,
		ReadBufferSize:  64 * 1024,
		WriteBufferSize: 64 * 1024,
	}
}

// streamConn serializes writes; progress arrives on the analysis goroutine.
type streamConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (s *streamConn) send(msg StreamMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.ws.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return s.ws.WriteJSON(msg)
}

// HandleAnalyzeStream handles GET /v1/perfscope/analyze/stream.
//
// Description:
//
//	Upgrades to a websocket and sends a "session" message. Each
//	AnalyzeRequest the client sends runs one analysis, streaming "progress"
//	messages followed by exactly one "result" or "error". Requests on one
//	connection run one at a time. A progress message that cannot be
//	written cancels the running analysis and ends the session.
func (h *Handlers) HandleAnalyzeStream(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade the websocket", "error", err)
		return
	}
	defer ws.Close()

	sessionID := uuid.NewString()
	logger := h.logger.With("session_id", sessionID, "handler", "HandleAnalyzeStream")
	logger.Info("Websocket client connected")

	conn := &streamConn{ws: ws}
	if err := conn.send(StreamMessage{Type: StreamSession, SessionID: sessionID}); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	for {
		var req AnalyzeRequest
		if err := ws.ReadJSON(&req); err != nil {
			logger.Info("Websocket client disconnected", "error", err.Error())
			return
		}
		if err := h.streamOne(ctx, conn, req); err != nil {
			logger.Warn("Failed to write websocket message", "error", err)
			return
		}
	}
}

// streamOne runs one request. It returns an error only when the
// connection is unusable.
func (h *Handlers) streamOne(ctx context.Context, conn *streamConn, req AnalyzeRequest) error {
	sendErr := func(err error) error {
		_, resp := errorStatus(err)
		return conn.send(StreamMessage{Type: StreamError, Error: &resp})
	}

	if err := h.validate.Struct(&req); err != nil {
		return conn.send(StreamMessage{Type: StreamError, Error: &ErrorResponse{
			Error: describeValidation(err),
			Code:  "INVALID_REQUEST",
		}})
	}
	spec, err := harness.ParseInputSpec(req.Input)
	if err != nil {
		return sendErr(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var writeErr error
	var writeOnce sync.Once
	progress := harness.WithProgress(func(p harness.Progress) {
		if err := conn.send(StreamMessage{Type: StreamProgress, Progress: &p}); err != nil {
			writeOnce.Do(func() {
				writeErr = err
				cancel()
			})
		}
	})

	report, recorded, err := h.svc.Analyze(ctx, AnalyzeCall{
		Code:   req.Code,
		Spec:   spec,
		Source: req.Source,
		Record: req.Record,
	}, progress)
	if writeErr != nil {
		return writeErr
	}
	if err != nil {
		return sendErr(err)
	}
	return conn.send(StreamMessage{
		Type:   StreamResult,
		Result: &AnalyzeResponse{Report: report, Recorded: recorded},
	})
}
