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
)

// TimeUnit selects how execution times are displayed.
type TimeUnit string

const (
	TimeMillis  TimeUnit = "ms"
	TimeSeconds TimeUnit = "s"
	TimeMinutes TimeUnit = "min"
)

// MemoryUnit selects how memory amounts are displayed.
type MemoryUnit string

const (
	MemoryBytes     MemoryUnit = "bytes"
	MemoryKilobytes MemoryUnit = "KB"
	MemoryMegabytes MemoryUnit = "MB"
)

// ParseTimeUnit accepts ms, s or min and their long names.
func ParseTimeUnit(s string) (TimeUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ms", "millis", "milliseconds":
		return TimeMillis, nil
	case "s", "sec", "seconds":
		return TimeSeconds, nil
	case "min", "minutes":
		return TimeMinutes, nil
	default:
		return "", fmt.Errorf("unknown time unit %q (want ms, s or min)", s)
	}
}

// ParseMemoryUnit accepts bytes, KB or MB and their long names.
func ParseMemoryUnit(s string) (MemoryUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "b", "bytes":
		return MemoryBytes, nil
	case "kb", "kilobytes":
		return MemoryKilobytes, nil
	case "mb", "megabytes":
		return MemoryMegabytes, nil
	default:
		return "", fmt.Errorf("unknown memory unit %q (want bytes, KB or MB)", s)
	}
}

// ConvertTime converts milliseconds to the unit.
func ConvertTime(ms float64, unit TimeUnit) float64 {
	switch unit {
	case TimeSeconds:
		return ms / 1000.0
	case TimeMinutes:
		return ms / (1000.0 * 60)
	default:
		return ms
	}
}

// ConvertMemory converts bytes to the unit.
func ConvertMemory(bytes float64, unit MemoryUnit) float64 {
	switch unit {
	case MemoryKilobytes:
		return bytes / 1024.0
	case MemoryMegabytes:
		return bytes / (1024.0 * 1024)
	default:
		return bytes
	}
}

// FormatTime renders "Average Execution Time: 12.34 ms".
func FormatTime(ms float64, unit TimeUnit) string {
	if unit == "" {
		unit = TimeMillis
	}
	return fmt.Sprintf("Average Execution Time: %.2f %s", ConvertTime(ms, unit), unit)
}

// FormatMemory renders "Average Memory Used: 1.50 KB".
func FormatMemory(bytes float64, unit MemoryUnit) string {
	if unit == "" {
		unit = MemoryBytes
	}
	return fmt.Sprintf("Average Memory Used: %.2f %s", ConvertMemory(bytes, unit), unit)
}
