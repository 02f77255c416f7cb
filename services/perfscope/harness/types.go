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
	"time"

	"github.com/AleutianAI/perfscope/services/perfscope/domain"
)

// =============================================================================
// STATE MACHINE
// =============================================================================

// State represents a state in the analysis state machine.
type State string

const (
	// StateValidate checks the code and the input spec. No subprocess runs here.
	StateValidate State = "validate"

	// StateBuild compiles the unit into a scratch directory.
	StateBuild State = "build"

	// StateWarmup executes discarded runs for the current size.
	StateWarmup State = "warmup"

	// StateMeasure executes the averaged runs for the current size.
	StateMeasure State = "measure"

	// StateClassify assigns complexity labels.
	StateClassify State = "classify"

	// StateDone is the terminal success state.
	StateDone State = "done"

	// StateFailed is the terminal failure state.
	StateFailed State = "failed"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsTerminal returns true if the state is terminal (done or failed).
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// =============================================================================
// PROGRESS
// =============================================================================

// Progress is one progress notification from a running analysis.
type Progress struct {
	// AnalysisID identifies the call.
	AnalysisID string `json:"analysis_id"`

	// State is the state the analysis is in.
	State State `json:"state"`

	// Size is the input size being measured, zero outside warmup/measure.
	Size int `json:"size,omitempty"`

	// Run is the 1-indexed run within the current state.
	Run int `json:"run,omitempty"`

	// Of is the number of runs in the current state.
	Of int `json:"of,omitempty"`

	// Step and Steps count sizes in a sweep, 1-indexed.
	Step  int `json:"step,omitempty"`
	Steps int `json:"steps,omitempty"`

	// Message is a human-readable summary.
	Message string `json:"message,omitempty"`
}

// ProgressFunc receives progress notifications. It is called synchronously
// from the analysis goroutine and must not block for long.
type ProgressFunc func(Progress)

// =============================================================================
// REPORT
// =============================================================================

// Report is everything one Analyze call produced.
//
// A Report is owned by the caller. The Analyzer keeps no reference to it.
type Report struct {
	// ID is the short analysis identifier.
	ID string `json:"id"`

	// Result is the terminal artifact of the call.
	Result domain.AnalysisResult `json:"result"`

	// Measurements holds one entry per measured size, in measurement order.
	Measurements []domain.Measurement `json:"measurements"`

	// Mode is the input mode the call ran in.
	Mode Mode `json:"mode"`

	// Spec is the canonical form of the input spec.
	Spec string `json:"spec"`

	// Input is the stdin fed on the last measured size.
	Input string `json:"input"`

	// Output is the program output captured on the last measured run.
	Output string `json:"output"`

	// EntryType is the public class that was analyzed.
	EntryType string `json:"entry_type"`

	// Rule is the static time rule that fired, empty for sweeps.
	Rule string `json:"rule,omitempty"`

	// StartedAt is when the call began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall-clock time of the whole call.
	Duration time.Duration `json:"duration"`

	// State is the final state of the call.
	State State `json:"state"`
}

// Sizes returns the measured input sizes.
func (r *Report) Sizes() []int {
	out := make([]int, len(r.Measurements))
	for i, m := range r.Measurements {
		out[i] = m.InputSize
	}
	return out
}

// Times returns the average time per measured size.
func (r *Report) Times() []float64 {
	out := make([]float64, len(r.Measurements))
	for i, m := range r.Measurements {
		out[i] = m.AvgTimeMs
	}
	return out
}

// Memories returns the average memory per measured size.
func (r *Report) Memories() []float64 {
	out := make([]float64, len(r.Measurements))
	for i, m := range r.Measurements {
		out[i] = m.AvgMemoryBytes
	}
	return out
}
