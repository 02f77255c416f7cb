// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling for the perfscope CLI.
package ux

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // highlights, success
	ColorTealPrimary = lipgloss.Color("#20B9B4") // main brand color
	ColorTealDeep    = lipgloss.Color("#16858E") // borders
	ColorSlate       = lipgloss.Color("#2C4A54") // muted text

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	Box      lipgloss.Style
	ErrorBox lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealBright).Bold(true),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

var (
	outMu  sync.Mutex
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// SetOutput redirects the package's stdout and stderr streams and returns
// a function restoring the previous ones.
func SetOutput(out, errOut io.Writer) (restore func()) {
	outMu.Lock()
	defer outMu.Unlock()
	prevOut, prevErr := stdout, stderr
	stdout, stderr = out, errOut
	return func() {
		outMu.Lock()
		defer outMu.Unlock()
		stdout, stderr = prevOut, prevErr
	}
}

// Stdout returns the current result stream.
func Stdout() io.Writer {
	outMu.Lock()
	defer outMu.Unlock()
	return stdout
}

// Stderr returns the current diagnostic stream.
func Stderr() io.Writer {
	outMu.Lock()
	defer outMu.Unlock()
	return stderr
}

// Title prints a styled title
func Title(text string) {
	if GetPersonality() == PersonalityMachine {
		return
	}
	fmt.Fprintln(Stdout(), Styles.Title.Render(text))
}

// Success prints a success message with checkmark
func Success(text string) {
	switch GetPersonality() {
	case PersonalityMachine:
		fmt.Fprintf(Stdout(), "OK: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(Stdout(), "%s %s\n", IconSuccess, text)
	default:
		fmt.Fprintf(Stdout(), "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
	}
}

// Warning prints a warning message
func Warning(text string) {
	switch GetPersonality() {
	case PersonalityMachine:
		fmt.Fprintf(Stderr(), "WARN: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(Stderr(), "%s %s\n", IconWarning, text)
	default:
		fmt.Fprintf(Stderr(), "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
	}
}

// Error prints an error message
func Error(text string) {
	switch GetPersonality() {
	case PersonalityMachine:
		fmt.Fprintf(Stderr(), "ERROR: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(Stderr(), "%s %s\n", IconError, text)
	default:
		fmt.Fprintf(Stderr(), "%s %s\n", IconError.Render(), Styles.Error.Render(text))
	}
}

// Info prints an informational message
func Info(text string) {
	if GetPersonality() == PersonalityMachine {
		fmt.Fprintln(Stdout(), text)
		return
	}
	fmt.Fprintf(Stdout(), "%s %s\n", Styles.Muted.Render("│"), text)
}

// Muted prints secondary text
func Muted(text string) {
	if GetPersonality() == PersonalityMachine {
		return
	}
	fmt.Fprintln(Stdout(), Styles.Muted.Render(text))
}

// Box prints text in a rounded box
func Box(title, content string) {
	if GetPersonality() != PersonalityFull {
		fmt.Fprintf(Stdout(), "%s:\n%s\n", title, content)
		return
	}
	titleLine := Styles.Title.Render(title)
	fmt.Fprintln(Stdout(), Styles.Box.Render(titleLine+"\n"+content))
}

// ErrorBox prints multi-line diagnostics, such as compiler output, in an
// error-styled box on stderr.
func ErrorBox(title, content string) {
	if GetPersonality() != PersonalityFull {
		fmt.Fprintf(Stderr(), "ERROR %s:\n%s\n", title, content)
		return
	}
	titleLine := Styles.Error.Bold(true).Render(title)
	fmt.Fprintln(Stderr(), Styles.ErrorBox.Render(titleLine+"\n"+content))
}

// KeyValue prints an aligned "key: value" line.
func KeyValue(key, value string) {
	if GetPersonality() == PersonalityMachine {
		fmt.Fprintf(Stdout(), "%s=%s\n", key, value)
		return
	}
	fmt.Fprintf(Stdout(), "%s %s\n", Styles.Muted.Render(fmt.Sprintf("%-18s", key+":")), value)
}
