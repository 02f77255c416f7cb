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
	"fmt"
	"strconv"
	"strings"

	"github.com/AleutianAI/perfscope/pkg/ux"
	"github.com/AleutianAI/perfscope/services/perfscope/api"
	"github.com/AleutianAI/perfscope/services/perfscope/classify"
	"github.com/AleutianAI/perfscope/services/perfscope/domain"
	"github.com/AleutianAI/perfscope/services/perfscope/fit"
	"github.com/AleutianAI/perfscope/services/perfscope/harness"
	"github.com/AleutianAI/perfscope/services/perfscope/source"
	"github.com/spf13/cobra"
)

var (
	fitSizes  string
	fitValues string
)

var fitCmd = &cobra.Command{
	Use:     "fit",
	Short:   "Fit measured values to a growth curve",
	Example: `  perfscope fit --sizes 100,200,400,800 --values 1.1,2.0,4.2,8.1`,
	Args:    cobra.NoArgs,
	RunE:    runFit,
}

func init() {
	fitCmd.Flags().StringVar(&fitSizes, "sizes", "", "comma-separated input sizes")
	fitCmd.Flags().StringVar(&fitValues, "values", "", "comma-separated measurements, one per size")
	_ = fitCmd.MarkFlagRequired("sizes")
	_ = fitCmd.MarkFlagRequired("values")
}

func runCheck(cmd *cobra.Command, args []string) error {
	code, err := readCode(args[0])
	if err != nil {
		return err
	}
	syntax, err := source.CheckSyntax(cmd.Context(), code)
	if err != nil {
		return err
	}
	entryType, _ := source.ExtractEntryType(code)
	resp := api.CheckResponse{
		HasEntryPoint:   harness.HasEntryPoint(code),
		HasEmbeddedData: harness.HasEmbeddedData(code),
		EntryType:       entryType,
		Syntax:          syntax,
	}
	if jsonOutput {
		return outputJSON(resp)
	}

	ux.KeyValue("entry_point", yesNo(resp.HasEntryPoint))
	if resp.EntryType != "" {
		ux.KeyValue("entry_type", resp.EntryType)
	}
	ux.KeyValue("embedded_data", yesNo(resp.HasEmbeddedData))
	if syntax.Valid {
		ux.Success("No syntax errors")
		return nil
	}
	lines := make([]string, 0, len(syntax.Errors))
	for _, e := range syntax.Errors {
		lines = append(lines, fmt.Sprintf("%d:%d %s", e.Line, e.Column, e.Message))
	}
	ux.ErrorBox(fmt.Sprintf("%d syntax error(s)", len(syntax.Errors)), strings.Join(lines, "\n"))
	return nil
}

func runClassify(_ *cobra.Command, args []string) error {
	code, err := readCode(args[0])
	if err != nil {
		return err
	}
	c := classify.Classify(code)
	if jsonOutput {
		return outputJSON(c)
	}
	ux.KeyValue("time_complexity", c.Time)
	ux.KeyValue("space_complexity", c.Space)
	ux.KeyValue("rule", string(c.Rule))
	return nil
}

func runFit(_ *cobra.Command, _ []string) error {
	sizes, err := parseInts(fitSizes)
	if err != nil {
		return err
	}
	values, err := parseFloats(fitValues)
	if err != nil {
		return err
	}
	result, err := fit.FitDetailed(sizes, values)
	if err != nil {
		return err
	}
	if jsonOutput {
		return outputJSON(result)
	}
	ux.KeyValue("complexity", result.Label)
	for _, s := range result.Scores {
		ux.Muted(fmt.Sprintf("%-12s mse=%.4f cv=%.4f score=%.4f", s.Label, s.MSE, s.CV, s.Total))
	}
	return nil
}

// parseInts reads a comma-separated list of integers.
func parseInts(text string) ([]int, error) {
	fields := splitList(text)
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, domain.NewValidationError("sizes", fmt.Sprintf("%q is not an integer", f))
		}
		out = append(out, n)
	}
	return out, nil
}

// parseFloats reads a comma-separated list of numbers.
func parseFloats(text string) ([]float64, error) {
	fields := splitList(text)
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, domain.NewValidationError("values", fmt.Sprintf("%q is not a number", f))
		}
		out = append(out, v)
	}
	return out, nil
}

func splitList(text string) []string {
	var out []string
	for _, f := range strings.Split(text, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
