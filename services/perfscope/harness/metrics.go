// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package harness

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for analysis operations.
var (
	tracer = otel.Tracer("perfscope.harness")
	meter  = otel.Meter("perfscope.harness")
)

// Metrics for analysis operations.
var (
	analysisLatency  metric.Float64Histogram
	analysisTotal    metric.Int64Counter
	stateTransitions metric.Int64Counter
	programRuns      metric.Int64Counter
	runLatency       metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		analysisLatency, err = meter.Float64Histogram(
			"perfscope_analysis_duration_seconds",
			metric.WithDescription("Duration of analysis calls"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		analysisTotal, err = meter.Int64Counter(
			"perfscope_analysis_total",
			metric.WithDescription("Total number of analysis calls"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		stateTransitions, err = meter.Int64Counter(
			"perfscope_state_transitions_total",
			metric.WithDescription("Total number of analysis state transitions"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		programRuns, err = meter.Int64Counter(
			"perfscope_program_runs_total",
			metric.WithDescription("Total number of program executions, warm-up included"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runLatency, err = meter.Float64Histogram(
			"perfscope_run_duration_ms",
			metric.WithDescription("Elapsed time of measured program runs"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startAnalysisSpan creates a span for an analysis call.
func startAnalysisSpan(ctx context.Context, analysisID string, mode Mode) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Analyzer.Analyze",
		trace.WithAttributes(
			attribute.String("perfscope.analysis_id", analysisID),
			attribute.String("perfscope.mode", string(mode)),
		),
	)
}

// setAnalysisSpanResult sets the result attributes on an analysis span.
func setAnalysisSpanResult(span trace.Span, success bool, finalState State, sizes, runs int) {
	span.SetAttributes(
		attribute.Bool("perfscope.success", success),
		attribute.String("perfscope.final_state", string(finalState)),
		attribute.Int("perfscope.sizes", sizes),
		attribute.Int("perfscope.runs", runs),
	)
}

// recordAnalysisMetrics records metrics for an analysis call.
func recordAnalysisMetrics(ctx context.Context, mode Mode, duration time.Duration, success bool, runs int) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("mode", string(mode)),
		attribute.Bool("success", success),
	)

	analysisLatency.Record(ctx, duration.Seconds(), attrs)
	analysisTotal.Add(ctx, 1, attrs)
	programRuns.Add(ctx, int64(runs), attrs)
}

// recordRun records the elapsed time of one measured run.
func recordRun(ctx context.Context, size int, elapsedMs float64) {
	if err := initMetrics(); err != nil {
		return
	}
	runLatency.Record(ctx, elapsedMs, metric.WithAttributes(
		attribute.Int("input_size", size),
	))
}

// recordStateTransition records a state transition event.
func recordStateTransition(ctx context.Context, from, to State) {
	if err := initMetrics(); err != nil {
		return
	}
	stateTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	))
}

// addStateTransitionEvent adds a state transition event to the span.
func addStateTransitionEvent(span trace.Span, from, to State, size int) {
	span.AddEvent("state_transition", trace.WithAttributes(
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
		attribute.Int("input_size", size),
	))
}
