// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/AleutianAI/perfscope/pkg/ux"
	"github.com/AleutianAI/perfscope/services/perfscope/domain"
	"github.com/AleutianAI/perfscope/services/perfscope/harness"
)

// Exit codes.
const (
	CLIExitSuccess = 0 // Operation completed successfully
	CLIExitFailure = 1 // The analyzed program failed to build or run
	CLIExitError   = 2 // Invalid usage, invalid input or internal failure
)

// exitCodeFor maps an error to an exit code.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return CLIExitSuccess
	case errors.Is(err, domain.ErrBuild),
		errors.Is(err, domain.ErrExecution),
		errors.Is(err, domain.ErrTimeout):
		return CLIExitFailure
	default:
		return CLIExitError
	}
}

// reportError prints err, with compiler diagnostics or program output in
// a box when present.
func reportError(err error) {
	var buildErr *domain.BuildError
	var execErr *domain.ExecutionError
	var timeoutErr *domain.TimeoutError

	switch {
	case errors.As(err, &buildErr) && buildErr.Diagnostics != "":
		ux.ErrorBox("Compilation failed", strings.TrimRight(buildErr.Diagnostics, "\n"))
	case errors.As(err, &execErr) && execErr.Output != "":
		ux.Error(err.Error())
		ux.ErrorBox("Program output", strings.TrimRight(execErr.Output, "\n"))
	case errors.As(err, &timeoutErr):
		ux.Error(err.Error())
		if timeoutErr.Output != "" {
			ux.ErrorBox("Output before timeout", strings.TrimRight(timeoutErr.Output, "\n"))
		}
	default:
		ux.Error(err.Error())
	}
}

// outputJSON writes v as indented JSON to stdout.
func outputJSON(v any) error {
	encoder := json.NewEncoder(ux.Stdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// toResultView converts a report for display.
func toResultView(r *harness.Report) ux.ResultView {
	v := ux.ResultView{
		ID:              r.ID,
		Mode:            string(r.Mode),
		Input:           r.Spec,
		TimeComplexity:  r.Result.TimeComplexity,
		SpaceComplexity: r.Result.SpaceComplexity,
		AvgTimeMs:       r.Result.AvgTimeMs,
		AvgMemoryBytes:  r.Result.AvgMemoryBytes,
		Rule:            r.Rule,
		Output:          r.Output,
	}
	if r.Mode == harness.ModeSweep {
		for _, m := range r.Measurements {
			v.Rows = append(v.Rows, ux.MeasurementRow{
				Size:        m.InputSize,
				TimeMs:      m.AvgTimeMs,
				MemoryBytes: m.AvgMemoryBytes,
			})
		}
	}
	return v
}
