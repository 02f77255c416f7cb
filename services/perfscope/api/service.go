// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package api exposes perfscope over HTTP and websocket.
//
// Service is the caller-side wrapper around harness.Analyzer shared by the
// HTTP handlers and the CLI: it bounds concurrent analyses and records
// finished reports to history. The harness itself keeps no state between
// calls.
package api

import (
	"context"
	"log/slog"

	"github.com/AleutianAI/perfscope/services/perfscope/domain"
	"github.com/AleutianAI/perfscope/services/perfscope/harness"
	"github.com/AleutianAI/perfscope/services/perfscope/history"
	"golang.org/x/sync/semaphore"
)

// Sink receives every recorded report. *history.InfluxSink implements it.
type Sink interface {
	Write(ctx context.Context, rec *history.Record) error
}

// ServiceConfig bounds the Service.
type ServiceConfig struct {
	// MaxConcurrent is the number of analyses allowed to run at once.
	// Default: 2
	MaxConcurrent int

	// RecordToHistory is the default for calls that do not say.
	RecordToHistory bool
}

// Service runs analyses and records them.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	analyzer *harness.Analyzer
	store    *history.Store
	sink     Sink
	sem      *semaphore.Weighted
	cfg      ServiceConfig
	logger   *slog.Logger
}

// NewService creates a Service.
//
// Inputs:
//
//	analyzer - The harness. Must not be nil.
//	store - History store. Nil disables recording and the history endpoints.
//	sink - Optional extra destination for recorded reports. May be nil.
//	cfg - Limits. MaxConcurrent <= 0 means 2.
//	logger - Logger. Nil means slog.Default().
func NewService(analyzer *harness.Analyzer, store *history.Store, sink Sink, cfg ServiceConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}
	return &Service{
		analyzer: analyzer,
		store:    store,
		sink:     sink,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "perfscope_service")),
	}
}

// Analyzer returns the wrapped harness.
func (s *Service) Analyzer() *harness.Analyzer {
	return s.analyzer
}

// Store returns the history store, or nil when history is disabled.
func (s *Service) Store() *history.Store {
	return s.store
}

// AnalyzeCall describes one Service.Analyze call.
type AnalyzeCall struct {
	Code   string
	Spec   harness.InputSpec
	Source string

	// Record overrides ServiceConfig.RecordToHistory when non-nil.
	Record *bool
}

// Analyze waits for a free slot, runs the analysis and records the report.
//
// Description:
//
//	Recording failures are logged and reported through the returned bool;
//	they never fail the call, since the measurement itself succeeded.
//
// Outputs:
//
//	*harness.Report - The report on success.
//	bool - True if the report was written to history.
//	error - The harness error, or the context error while waiting for a slot.
func (s *Service) Analyze(ctx context.Context, call AnalyzeCall, opts ...harness.CallOption) (*harness.Report, bool, error) {
	if ctx == nil {
		return nil, false, domain.ErrNilContext
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, false, err
	}
	report, err := s.analyzer.Analyze(ctx, call.Code, call.Spec, opts...)
	s.sem.Release(1)
	if err != nil {
		return nil, false, err
	}

	record := s.cfg.RecordToHistory
	if call.Record != nil {
		record = *call.Record
	}
	if !record || s.store == nil {
		return report, false, nil
	}

	rec := history.NewRecord(report, call.Code, call.Source)
	if err := s.store.Put(ctx, rec); err != nil {
		s.logger.Warn("failed to record analysis",
			slog.String("analysis_id", report.ID),
			slog.String("error", err.Error()))
		return report, false, nil
	}
	if s.sink != nil {
		if err := s.sink.Write(ctx, &rec); err != nil {
			s.logger.Warn("failed to export analysis",
				slog.String("analysis_id", report.ID),
				slog.String("error", err.Error()))
		}
	}
	return report, true, nil
}
