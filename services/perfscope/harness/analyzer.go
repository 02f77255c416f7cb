// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package harness drives an analysis: it builds a program once, runs it
// repeatedly per input size, averages the measured runs and labels the
// result with a time and a space complexity.
//
// Single-input analyses are labeled by the static classifier on the source
// text. Sweeps are labeled by fitting the measured curves. The two paths
// can disagree; both are kept.
package harness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/perfscope/services/perfscope/build"
	"github.com/AleutianAI/perfscope/services/perfscope/classify"
	"github.com/AleutianAI/perfscope/services/perfscope/domain"
	"github.com/AleutianAI/perfscope/services/perfscope/execution"
	"github.com/AleutianAI/perfscope/services/perfscope/fit"
	"github.com/AleutianAI/perfscope/services/perfscope/inputgen"
	"github.com/AleutianAI/perfscope/services/perfscope/source"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Builder compiles a unit into a runnable artifact.
type Builder interface {
	Build(ctx context.Context, unit source.Unit) (*build.Artifact, error)
}

// Runner executes an artifact once.
type Runner interface {
	Run(ctx context.Context, req execution.Request) (domain.PerformanceSample, error)
}

// =============================================================================
// CALL OPTIONS
// =============================================================================

type callOptions struct {
	progress ProgressFunc
}

// CallOption customizes a single Analyze call.
type CallOption func(*callOptions)

// WithProgress registers a progress callback for one call.
func WithProgress(fn ProgressFunc) CallOption {
	return func(o *callOptions) {
		o.progress = fn
	}
}

// =============================================================================
// ANALYZER
// =============================================================================

// Analyzer runs analyses.
//
// Thread Safety: Safe for concurrent use. All per-call state lives in a
// session owned by the calling goroutine; the Analyzer itself is read-only
// after construction.
type Analyzer struct {
	cfg     *Config
	builder Builder
	runner  Runner
	gen     *inputgen.Generator
	logger  *slog.Logger
}

// NewAnalyzer creates an Analyzer.
//
// Inputs:
//
//	cfg - Measurement policy. Nil uses DefaultConfig().
//	builder - Compiler. Nil uses a build.Compiler with default settings.
//	runner - Execution engine. Nil uses an execution.Engine with default settings.
//	logger - Logger for structured logging. Nil uses slog.Default().
//
// Outputs:
//
//	*Analyzer - The configured analyzer. Never nil.
func NewAnalyzer(cfg *Config, builder Builder, runner Runner, logger *slog.Logger) *Analyzer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	_ = cfg.Validate()
	if logger == nil {
		logger = slog.Default()
	}
	if builder == nil {
		builder = build.NewCompiler(nil, nil, logger)
	}
	if runner == nil {
		runner = execution.NewEngine(nil, nil, logger)
	}
	return &Analyzer{
		cfg:     cfg,
		builder: builder,
		runner:  runner,
		gen:     inputgen.New(cfg.Seed),
		logger:  logger,
	}
}

// Config returns a copy of the analyzer's measurement policy.
func (a *Analyzer) Config() Config {
	return *a.cfg
}

// Analyze measures code under spec.
//
// Description:
//
//	validate: the code must declare a public class and the spec must be
//	well formed. Inputs for every size are generated here, once, and reused
//	by every run of that size.
//	build: the code is compiled once. The scratch directory is released
//	when Analyze returns, whatever the outcome.
//	warmup/measure: per size, WarmupRuns discarded runs then MeasuredRuns
//	averaged runs.
//	classify: sweeps fit the measured curves; other modes use the static
//	classifier.
//
//	Any failure aborts the call. No partial result is returned.
//
// Inputs:
//
//	ctx - Context for cancellation. Must not be nil.
//	code - Java source with a public class.
//	spec - How stdin is obtained.
//	opts - Per-call options such as WithProgress.
//
// Outputs:
//
//	*Report - The call's report. Nil on error.
//	error - *domain.ValidationError, *domain.BuildError, *domain.ExecutionError,
//	        *domain.TimeoutError, or a context error.
//
// Thread Safety: Safe for concurrent use.
func (a *Analyzer) Analyze(ctx context.Context, code string, spec InputSpec, opts ...CallOption) (*Report, error) {
	if ctx == nil {
		return nil, domain.ErrNilContext
	}
	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}
	if a.cfg.TotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.TotalTimeout)
		defer cancel()
	}
	if spec.Mode == "" {
		spec.Mode = ModeFixed
	}

	id := uuid.New().String()[:8]
	ctx, span := startAnalysisSpan(ctx, id, spec.Mode)
	defer span.End()

	s := &session{
		id:       id,
		state:    StateValidate,
		started:  time.Now(),
		progress: co.progress,
		span:     span,
		logger:   a.logger.With(slog.String("analysis_id", id)),
	}
	s.logger.Info("Starting analysis",
		slog.String("mode", string(spec.Mode)),
		slog.String("spec", truncateSpec(spec.String())),
	)

	report, err := a.analyze(ctx, s, code, spec)
	duration := time.Since(s.started)

	if err != nil {
		s.transition(ctx, StateFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		setAnalysisSpanResult(span, false, s.state, s.sizes, s.runs)
		recordAnalysisMetrics(ctx, spec.Mode, duration, false, s.runs)
		s.logger.Warn("Analysis failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", duration),
		)
		return nil, err
	}

	s.transition(ctx, StateDone)
	setAnalysisSpanResult(span, true, s.state, s.sizes, s.runs)
	recordAnalysisMetrics(ctx, spec.Mode, duration, true, s.runs)

	report.ID = id
	report.StartedAt = s.started
	report.Duration = duration
	report.State = s.state
	s.logger.Info("Analysis complete",
		slog.String("time_complexity", report.Result.TimeComplexity),
		slog.String("space_complexity", report.Result.SpaceComplexity),
		slog.Int("input_size", report.Result.InputSize),
		slog.Duration("duration", duration),
	)
	return report, nil
}

// plannedInput is the stdin of one measured size.
type plannedInput struct {
	size  int
	input string
}

func (a *Analyzer) analyze(ctx context.Context, s *session, code string, spec InputSpec) (*Report, error) {
	unit, err := source.NewUnit(code)
	if err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	plan, err := a.plan(code, spec)
	if err != nil {
		return nil, err
	}

	s.transition(ctx, StateBuild)
	artifact, err := a.builder.Build(ctx, unit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := artifact.Release(); err != nil {
			s.logger.Warn("Failed to release scratch directory",
				slog.String("dir", artifact.Dir),
				slog.String("error", err.Error()),
			)
		}
	}()

	report := &Report{
		Mode:         spec.Mode,
		Spec:         spec.String(),
		EntryType:    unit.EntryType,
		Measurements: make([]domain.Measurement, 0, len(plan)),
	}
	for i, p := range plan {
		m, output, err := a.measure(ctx, s, artifact, p, i+1, len(plan))
		if err != nil {
			return nil, err
		}
		report.Measurements = append(report.Measurements, m)
		report.Input = p.input
		report.Output = output
		s.sizes++
	}

	s.transition(ctx, StateClassify)
	last := report.Measurements[len(report.Measurements)-1]
	report.Result = domain.AnalysisResult{
		AvgTimeMs:      last.AvgTimeMs,
		AvgMemoryBytes: last.AvgMemoryBytes,
		InputSize:      last.InputSize,
	}

	if spec.Mode == ModeSweep {
		timeLabel, err := fit.Fit(report.Sizes(), report.Times())
		if err != nil {
			return nil, fmt.Errorf("fitting time curve: %w", err)
		}
		spaceLabel, err := fit.Fit(report.Sizes(), report.Memories())
		if err != nil {
			return nil, fmt.Errorf("fitting memory curve: %w", err)
		}
		report.Result.TimeComplexity = timeLabel
		report.Result.SpaceComplexity = spaceLabel
		return report, nil
	}

	c := classify.Classify(code)
	report.Result.TimeComplexity = c.Time
	report.Result.SpaceComplexity = c.Space
	report.Rule = string(c.Rule)
	return report, nil
}

// plan generates the stdin for every size of the call.
func (a *Analyzer) plan(code string, spec InputSpec) ([]plannedInput, error) {
	switch spec.Mode {
	case ModeEmbedded:
		return []plannedInput{{size: 0}}, nil
	case ModeSingle:
		input, err := a.gen.ForCode(code, spec.Size, shapeOrRandom(spec.Shape))
		if err != nil {
			return nil, err
		}
		return []plannedInput{{size: spec.Size, input: input}}, nil
	case ModeSweep:
		base, err := inputgen.ParseBaseType(string(spec.Base))
		if err != nil {
			return nil, err
		}
		plan := make([]plannedInput, 0, len(spec.Sizes))
		for _, size := range spec.Sizes {
			var input string
			if base == inputgen.BaseAuto {
				input, err = a.gen.ForCode(code, size, shapeOrRandom(spec.Shape))
			} else {
				input, err = a.gen.Typed(base, shapeOrRandom(spec.Shape), size)
			}
			if err != nil {
				return nil, err
			}
			plan = append(plan, plannedInput{size: size, input: input})
		}
		return plan, nil
	default:
		return []plannedInput{{size: fixedInputSize(spec.Literal), input: spec.Literal}}, nil
	}
}

// measure runs the warm-ups and measured runs of one size.
func (a *Analyzer) measure(ctx context.Context, s *session, artifact *build.Artifact, p plannedInput, step, steps int) (domain.Measurement, string, error) {
	req := execution.Request{
		Artifact: artifact,
		Input:    p.input,
		Deadline: a.cfg.RunDeadline,
	}
	message := fmt.Sprintf("Analyzing size: %d", p.size)

	s.size = p.size
	if a.cfg.WarmupRuns > 0 {
		s.transition(ctx, StateWarmup)
	}
	for run := 1; run <= a.cfg.WarmupRuns; run++ {
		s.emit(Progress{Size: p.size, Run: run, Of: a.cfg.WarmupRuns, Step: step, Steps: steps, Message: message})
		if _, err := a.runOnce(ctx, s, req); err != nil {
			return domain.Measurement{}, "", err
		}
	}

	s.transition(ctx, StateMeasure)
	samples := make([]domain.PerformanceSample, 0, a.cfg.MeasuredRuns)
	for run := 1; run <= a.cfg.MeasuredRuns; run++ {
		s.emit(Progress{Size: p.size, Run: run, Of: a.cfg.MeasuredRuns, Step: step, Steps: steps, Message: message})
		sample, err := a.runOnce(ctx, s, req)
		if err != nil {
			return domain.Measurement{}, "", err
		}
		recordRun(ctx, p.size, sample.ElapsedMs)
		samples = append(samples, sample)
	}

	m := domain.NewMeasurement(p.size, samples)
	s.logger.Debug("Size measured",
		slog.Int("input_size", p.size),
		slog.Float64("avg_time_ms", m.AvgTimeMs),
		slog.Float64("avg_memory_bytes", m.AvgMemoryBytes),
	)
	return m, samples[len(samples)-1].Stdout, nil
}

func (a *Analyzer) runOnce(ctx context.Context, s *session, req execution.Request) (domain.PerformanceSample, error) {
	if err := ctx.Err(); err != nil {
		return domain.PerformanceSample{}, err
	}
	s.runs++
	return a.runner.Run(ctx, req)
}

// =============================================================================
// SESSION
// =============================================================================

// session is the mutable state of one Analyze call.
type session struct {
	id       string
	state    State
	started  time.Time
	size     int
	sizes    int
	runs     int
	progress ProgressFunc
	span     trace.Span
	logger   *slog.Logger
}

// transition moves the session to a new state.
func (s *session) transition(ctx context.Context, to State) {
	from := s.state
	s.state = to

	recordStateTransition(ctx, from, to)
	addStateTransitionEvent(s.span, from, to, s.size)

	s.logger.Info("Analysis state transition",
		slog.String("from", string(from)),
		slog.String("to", string(to)),
		slog.Int("input_size", s.size),
		slog.Int("runs", s.runs),
		slog.Duration("elapsed", time.Since(s.started)),
	)

	if to != StateWarmup && to != StateMeasure {
		s.emit(Progress{})
	}
}

// emit stamps p with the session identity and delivers it.
func (s *session) emit(p Progress) {
	if s.progress == nil {
		return
	}
	p.AnalysisID = s.id
	p.State = s.state
	s.progress(p)
}

// truncateSpec keeps literal inputs out of the logs.
func truncateSpec(spec string) string {
	const limit = 64
	if len(spec) <= limit {
		return spec
	}
	return spec[:limit] + "..."
}
