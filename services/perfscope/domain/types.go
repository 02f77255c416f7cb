// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package domain holds the value types and error taxonomy shared by the
// perfscope services: samples, measurements, analysis results, and the
// typed errors every stage reports.
package domain

// =============================================================================
// COMPLEXITY LABELS
// =============================================================================

// Complexity labels produced by the classifier and the fitter. Labels are
// surfaced verbatim to callers, so the spelling is part of the contract.
const (
	LabelConstant    = "O(1)"
	LabelLog         = "O(log n)"
	LabelLinear      = "O(n)"
	LabelLinearithm  = "O(n log n)"
	LabelQuadratic   = "O(n^2)"
	LabelExponential = "O(2^n)"
	LabelFactorial   = "O(N!)"
	LabelGraphLinear = "O(V + E)"
	LabelGraphHeap   = "O((V + E) log V)"
	LabelGraphDense  = "O(V^2)"
)

// =============================================================================
// SAMPLES & RESULTS
// =============================================================================

// PerformanceSample is the outcome of a single execution.
type PerformanceSample struct {
	// ElapsedMs is the wall-clock time of the run in milliseconds. Never negative.
	ElapsedMs float64 `json:"elapsed_ms"`

	// MemoryDeltaBytes is the clamped difference between the used-memory
	// snapshots taken around the run. Never negative.
	MemoryDeltaBytes int64 `json:"memory_delta_bytes"`

	// PeakRSSBytes is the child's peak resident set size when the platform
	// reports it, zero otherwise.
	PeakRSSBytes int64 `json:"peak_rss_bytes,omitempty"`

	// Stdout is the combined stdout/stderr captured from the program.
	Stdout string `json:"stdout"`

	// Truncated is set when Stdout hit the capture limit.
	Truncated bool `json:"truncated,omitempty"`

	// ExitCode is the process exit code.
	ExitCode int `json:"exit_code"`
}

// ClampMemoryDelta returns end - start, or zero when the difference is negative.
func ClampMemoryDelta(start, end int64) int64 {
	if end < start {
		return 0
	}
	return end - start
}

// Measurement is the averaged result of the measured runs for one input size.
type Measurement struct {
	InputSize      int     `json:"input_size"`
	AvgTimeMs      float64 `json:"avg_time_ms"`
	AvgMemoryBytes float64 `json:"avg_memory_bytes"`
}

// NewMeasurement averages samples into a Measurement.
//
// Outputs:
//
//	Measurement - Zero averages when samples is empty.
func NewMeasurement(size int, samples []PerformanceSample) Measurement {
	m := Measurement{InputSize: size}
	if len(samples) == 0 {
		return m
	}
	var totalTime, totalMem float64
	for _, s := range samples {
		totalTime += s.ElapsedMs
		totalMem += float64(s.MemoryDeltaBytes)
	}
	m.AvgTimeMs = totalTime / float64(len(samples))
	m.AvgMemoryBytes = totalMem / float64(len(samples))
	return m
}

// AnalysisResult is the terminal artifact of one analysis call.
//
// It is a plain value; callers receive copies and nothing in perfscope
// mutates a result after it has been returned.
type AnalysisResult struct {
	AvgTimeMs       float64 `json:"avg_time_ms"`
	AvgMemoryBytes  float64 `json:"avg_memory_bytes"`
	TimeComplexity  string  `json:"time_complexity"`
	SpaceComplexity string  `json:"space_complexity"`
	InputSize       int     `json:"input_size"`
}
