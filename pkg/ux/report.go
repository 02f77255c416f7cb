// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ResultView is the display form of one analysis.
type ResultView struct {
	ID              string
	Mode            string
	Input           string
	TimeComplexity  string
	SpaceComplexity string
	AvgTimeMs       float64
	AvgMemoryBytes  float64
	Rule            string
	Output          string
	Rows            []MeasurementRow
}

// MeasurementRow is one sweep point.
type MeasurementRow struct {
	Size        int
	TimeMs      float64
	MemoryBytes float64
}

// DisplayUnits selects the units for time and memory.
type DisplayUnits struct {
	Time   TimeUnit
	Memory MemoryUnit
}

// RenderResult writes an analysis result to stdout.
//
// Machine mode prints key=value lines and one "row" line per sweep point,
// tab-separated. Other modes print a titled box plus a table for sweeps.
func RenderResult(v ResultView, units DisplayUnits) {
	if units.Time == "" {
		units.Time = TimeMillis
	}
	if units.Memory == "" {
		units.Memory = MemoryBytes
	}

	if GetPersonality() == PersonalityMachine {
		KeyValue("id", v.ID)
		KeyValue("mode", v.Mode)
		KeyValue("time_complexity", v.TimeComplexity)
		KeyValue("space_complexity", v.SpaceComplexity)
		KeyValue("avg_time_"+string(units.Time), fmt.Sprintf("%.2f", ConvertTime(v.AvgTimeMs, units.Time)))
		KeyValue("avg_memory_"+string(units.Memory), fmt.Sprintf("%.2f", ConvertMemory(v.AvgMemoryBytes, units.Memory)))
		for _, r := range v.Rows {
			fmt.Fprintf(Stdout(), "row\t%d\t%.4f\t%.0f\n", r.Size, r.TimeMs, r.MemoryBytes)
		}
		return
	}

	var b strings.Builder
	fmt.Fprintln(&b, FormatTime(v.AvgTimeMs, units.Time))
	fmt.Fprintln(&b, FormatMemory(v.AvgMemoryBytes, units.Memory))
	fmt.Fprintf(&b, "Time Complexity: %s\n", Styles.Highlight.Render(v.TimeComplexity))
	fmt.Fprintf(&b, "Space Complexity: %s", Styles.Highlight.Render(v.SpaceComplexity))
	if v.Rule != "" {
		fmt.Fprintf(&b, "\n%s", Styles.Muted.Render("rule: "+v.Rule))
	}
	Box(fmt.Sprintf("Analysis %s (%s)", v.ID, v.Mode), b.String())

	if len(v.Rows) > 0 {
		fmt.Fprintln(Stdout(), MeasurementTable(v.Rows, units))
	}
	if v.Output != "" {
		Muted("Program output:")
		fmt.Fprintln(Stdout(), strings.TrimRight(v.Output, "\n"))
	}
}

// MeasurementTable renders sweep points as aligned columns.
func MeasurementTable(rows []MeasurementRow, units DisplayUnits) string {
	header := []string{"Input Size", "Time (" + string(units.Time) + ")", "Memory (" + string(units.Memory) + ")"}
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []string{
			fmt.Sprintf("%d", r.Size),
			fmt.Sprintf("%.4f", ConvertTime(r.TimeMs, units.Time)),
			fmt.Sprintf("%.2f", ConvertMemory(r.MemoryBytes, units.Memory)),
		})
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range cells {
		for i, c := range row {
			widths[i] = max(widths[i], len(c))
		}
	}

	cell := func(s string, w int) string {
		return lipgloss.NewStyle().Width(w).Align(lipgloss.Right).Render(s)
	}
	var lines []string
	var head []string
	for i, h := range header {
		head = append(head, Styles.Bold.Render(cell(h, widths[i])))
	}
	lines = append(lines, strings.Join(head, "  "))
	for _, row := range cells {
		var line []string
		for i, c := range row {
			line = append(line, cell(c, widths[i]))
		}
		lines = append(lines, strings.Join(line, "  "))
	}
	return strings.Join(lines, "\n")
}
