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
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/AleutianAI/perfscope/pkg/ux"
	"github.com/AleutianAI/perfscope/services/perfscope/api"
	"github.com/AleutianAI/perfscope/services/perfscope/domain"
	"github.com/AleutianAI/perfscope/services/perfscope/harness"
	"github.com/spf13/cobra"
)

// analyzeFlags are the input and display options shared by analyze and watch.
type analyzeFlags struct {
	input      string
	inputFile  string
	size       int
	sweep      string
	sizeRange  string
	embedded   bool
	shape      string
	baseType   string
	spec       string
	timeUnit   string
	memoryUnit string
	noRecord   bool
	warmup     int
	runs       int
	timeout    time.Duration
}

var analyzeOpts analyzeFlags

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.java|->",
	Short: "Compile, run and measure a program",
	Long: `Compiles the program, feeds it stdin, and reports average time and memory
with static complexity labels. With --sweep or --range, the program is
measured at each size and the labels come from fitting the measurements.

Exactly one input source may be given; with none, the program gets empty
stdin.`,
	Example: `  perfscope analyze Sum.java --input "3 1 2 3"
  perfscope analyze Sort.java --size 1000 --shape sorted
  perfscope analyze Sort.java --range 100..1000/100 --type array
  perfscope analyze Matrix.java --embedded`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var generateCmd = &cobra.Command{
	Use:   "generate <file.java|->",
	Short: "Print the synthetic stdin a program would be fed",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerate,
}

var checkCmd = &cobra.Command{
	Use:   "check <file.java|->",
	Short: "Report entry point, embedded data and syntax errors",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

var classifyCmd = &cobra.Command{
	Use:   "classify <file.java|->",
	Short: "Label time and space complexity from source alone",
	Args:  cobra.ExactArgs(1),
	RunE:  runClassify,
}

var (
	generateSize  int
	generateShape string
)

func init() {
	registerAnalyzeFlags(analyzeCmd, &analyzeOpts)

	generateCmd.Flags().IntVar(&generateSize, "size", 10, "input size")
	generateCmd.Flags().StringVar(&generateShape, "shape", "", "random, sorted or nearly-sorted")
}

func registerAnalyzeFlags(cmd *cobra.Command, f *analyzeFlags) {
	fl := cmd.Flags()
	fl.StringVar(&f.input, "input", "", "literal stdin")
	fl.StringVar(&f.inputFile, "input-file", "", "read stdin from a file")
	fl.IntVar(&f.size, "size", 0, "generate one input of this size")
	fl.StringVar(&f.sweep, "sweep", "", "sweep comma-separated sizes, e.g. 100,200,400")
	fl.StringVar(&f.sizeRange, "range", "", "sweep min..max[/step]")
	fl.BoolVar(&f.embedded, "embedded", false, "the program carries its own data")
	fl.StringVar(&f.shape, "shape", "", "generated shape: random, sorted, nearly-sorted")
	fl.StringVar(&f.baseType, "type", "", "sweep base type: array, matrix, string, auto")
	fl.StringVar(&f.spec, "spec", "", "raw input spec, e.g. generate:array:sorted:10..100")
	fl.StringVar(&f.timeUnit, "time-unit", "ms", "ms, s or min")
	fl.StringVar(&f.memoryUnit, "memory-unit", "KB", "bytes, KB or MB")
	fl.BoolVar(&f.noRecord, "no-record", false, "do not record this analysis")
	fl.IntVar(&f.warmup, "warmup", -1, "warmup runs per size (default from config)")
	fl.IntVar(&f.runs, "runs", 0, "measured runs per size (default from config)")
	fl.DurationVar(&f.timeout, "timeout", 0, "per-run deadline (default from config)")
	cmd.MarkFlagsMutuallyExclusive("input", "input-file", "size", "sweep", "range", "embedded", "spec")
}

// buildSpec turns the input flags into a validated InputSpec.
//
// Description:
//
//	At most one input source may be set. Generated sources are expressed
//	in the textual spec form so flags and --spec share one parser.
func buildSpec(f analyzeFlags, readFile func(string) ([]byte, error)) (harness.InputSpec, error) {
	sources := 0
	for _, set := range []bool{
		f.input != "", f.inputFile != "", f.size != 0, f.sweep != "",
		f.sizeRange != "", f.embedded, f.spec != "",
	} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return harness.InputSpec{}, domain.NewValidationError("input",
			"use only one of --input, --input-file, --size, --sweep, --range, --embedded, --spec")
	}

	switch {
	case f.spec != "":
		return harness.ParseInputSpec(f.spec)
	case f.embedded:
		return harness.Embedded(), nil
	case f.input != "":
		return harness.Fixed(f.input), nil
	case f.inputFile != "":
		data, err := readFile(f.inputFile)
		if err != nil {
			return harness.InputSpec{}, fmt.Errorf("reading input file: %w", err)
		}
		return harness.Fixed(string(data)), nil
	case f.size != 0:
		text := fmt.Sprintf("size:%d", f.size)
		if f.shape != "" {
			text += ":" + f.shape
		}
		return harness.ParseInputSpec(text)
	case f.sweep != "", f.sizeRange != "":
		sizes := f.sweep
		if sizes == "" {
			sizes = f.sizeRange
		}
		base := f.baseType
		if base == "" {
			base = "auto"
		}
		shape := f.shape
		if shape == "" {
			shape = "random"
		}
		return harness.ParseInputSpec(fmt.Sprintf("generate:%s:%s:%s", base, shape, strings.ReplaceAll(sizes, " ", "")))
	default:
		return harness.Fixed(""), nil
	}
}

// applyRunOverrides copies per-invocation run policy onto the loaded config.
func applyRunOverrides(f analyzeFlags) {
	if f.warmup >= 0 {
		appCfg.Harness.WarmupRuns = f.warmup
	}
	if f.runs > 0 {
		appCfg.Harness.MeasuredRuns = f.runs
	}
	if f.timeout > 0 {
		appCfg.Execution.Deadline = f.timeout
	}
}

// readCode reads a source file, or stdin for "-".
func readCode(path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func displayUnits(f analyzeFlags) (ux.DisplayUnits, error) {
	tu, err := ux.ParseTimeUnit(f.timeUnit)
	if err != nil {
		return ux.DisplayUnits{}, err
	}
	mu, err := ux.ParseMemoryUnit(f.memoryUnit)
	if err != nil {
		return ux.DisplayUnits{}, err
	}
	return ux.DisplayUnits{Time: tu, Memory: mu}, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	code, err := readCode(args[0])
	if err != nil {
		return err
	}
	units, err := displayUnits(analyzeOpts)
	if err != nil {
		return err
	}
	spec, err := buildSpec(analyzeOpts, os.ReadFile)
	if err != nil {
		return err
	}
	applyRunOverrides(analyzeOpts)

	svc, err := newService()
	if err != nil {
		return err
	}
	_, err = analyzeOnce(cmd.Context(), svc, code, spec, args[0], analyzeOpts.noRecord, units)
	return err
}

// analyzeOnce runs one analysis with progress and prints the result.
func analyzeOnce(ctx context.Context, svc *api.Service, code string, spec harness.InputSpec, source string, noRecord bool, units ux.DisplayUnits) (*harness.Report, error) {
	var record *bool
	if noRecord {
		no := false
		record = &no
	}

	tracker := ux.NewTracker(ux.Stderr(), ux.ShouldShowProgress())
	report, recorded, err := svc.Analyze(ctx, api.AnalyzeCall{
		Code:   code,
		Spec:   spec,
		Source: source,
		Record: record,
	}, harness.WithProgress(func(p harness.Progress) {
		tracker.Update(p.Step, p.Steps, p.Message)
	}))
	tracker.Done()
	if err != nil {
		return nil, err
	}

	if jsonOutput {
		return report, outputJSON(api.AnalyzeResponse{Report: report, Recorded: recorded})
	}
	ux.RenderResult(toResultView(report), units)
	if recorded {
		ux.Muted(fmt.Sprintf("Recorded as %s", report.ID))
	}
	return report, nil
}

func runGenerate(_ *cobra.Command, args []string) error {
	code, err := readCode(args[0])
	if err != nil {
		return err
	}
	input, err := newAnalyzer().GenerateInput(code, generateSize, generateShape)
	if err != nil {
		return err
	}
	if jsonOutput {
		return outputJSON(api.GenerateResponse{Input: input, Lines: strings.Count(input, "\n")})
	}
	_, err = io.WriteString(ux.Stdout(), input)
	return err
}
