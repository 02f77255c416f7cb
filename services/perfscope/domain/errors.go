// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package domain

import (
	"errors"
	"strconv"
	"time"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrValidation classifies input that was rejected before any subprocess ran.
	ErrValidation = errors.New("validation failed")

	// ErrBuild classifies compiler failures.
	ErrBuild = errors.New("build failed")

	// ErrExecution classifies a program that exited with a non-zero code.
	ErrExecution = errors.New("execution failed")

	// ErrTimeout classifies a run that exceeded its deadline and was killed.
	ErrTimeout = errors.New("execution timed out")

	// ErrNilContext indicates a nil context.Context was passed.
	ErrNilContext = errors.New("context must not be nil")

	// ErrNoEntryPoint indicates the code declares no public class.
	ErrNoEntryPoint = errors.New("could not find a public class in the code")

	// ErrUnsupportedShape indicates an unknown generator shape.
	ErrUnsupportedShape = errors.New("unsupported input shape")

	// ErrUnsupportedType indicates an unknown generator base type.
	ErrUnsupportedType = errors.New("unsupported input type")

	// ErrNotFound indicates a history record does not exist.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ValidationError reports a rejected input. It is always raised before any
// subprocess starts and is never retried.
type ValidationError struct {
	// Field names the offending input (code, sizes, shape...).
	Field string

	// Reason is the human-readable explanation.
	Reason string

	// Cause is an optional sentinel such as ErrNoEntryPoint.
	Cause error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return "invalid " + e.Field + ": " + e.Reason
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError without a cause.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// BuildError carries the compiler's diagnostics.
type BuildError struct {
	// EntryType is the public class that was being compiled.
	EntryType string

	// Diagnostics is the full combined compiler output.
	Diagnostics string

	// Cause is set when the compiler could not be started at all.
	Cause error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	if e.Cause != nil {
		return "compilation failed: " + e.Cause.Error()
	}
	return "compilation failed: " + e.Diagnostics
}

// Unwrap returns the underlying error.
func (e *BuildError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrBuild.
func (e *BuildError) Is(target error) bool {
	return target == ErrBuild
}

// ExecutionError reports a program that exited with a non-zero code.
type ExecutionError struct {
	// ExitCode is the exit code from the program, -1 when unknown.
	ExitCode int

	// Output is the captured combined output.
	Output string

	// Cause is set when the process could not be started or waited on.
	Cause error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return "program execution failed: " + e.Cause.Error()
	}
	return "program execution failed with exit code " + strconv.Itoa(e.ExitCode) + ": " + e.Output
}

// Unwrap returns the underlying error.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrExecution.
func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}

// TimeoutError reports a run that was force-killed at its deadline.
type TimeoutError struct {
	// Deadline is the timeout that expired.
	Deadline time.Duration

	// PacingAllowance is the extra time granted for line-paced stdin on
	// top of Deadline. The process was killed after Deadline plus this.
	PacingAllowance time.Duration

	// Output is whatever the program printed before it was killed.
	Output string
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if e.PacingAllowance > 0 {
		return "process timed out after " + e.Deadline.String() +
			" (plus " + e.PacingAllowance.String() + " for paced input)"
	}
	return "process timed out after " + e.Deadline.String()
}

// Is reports whether target is ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}
