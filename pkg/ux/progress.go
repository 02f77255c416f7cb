// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// ProgressBar renders a simple progress bar
func ProgressBar(current, total int, width int) string {
	if GetPersonality() == PersonalityMachine || total <= 0 {
		return fmt.Sprintf("%d/%d", current, total)
	}
	if current > total {
		current = total
	}
	pct := float64(current) / float64(total)
	filled := int(pct * float64(width))
	empty := width - filled

	bar := Styles.Success.Render(strings.Repeat("█", filled)) +
		Styles.Muted.Render(strings.Repeat("░", empty))

	return fmt.Sprintf("%s %3.0f%%", bar, pct*100)
}

// Tracker draws step progress on one redrawn line. In machine mode, or when
// the stream is not a terminal, it prints one "PROGRESS:" line per new
// message instead.
//
// Thread Safety: Safe for concurrent use.
type Tracker struct {
	mu          sync.Mutex
	w           io.Writer
	live        bool
	width       int
	lastMessage string
	drawn       bool
}

// NewTracker creates a Tracker writing to w. live enables line redrawing.
func NewTracker(w io.Writer, live bool) *Tracker {
	return &Tracker{w: w, live: live, width: 30}
}

// Update records progress: step of steps completed, with a status message.
func (t *Tracker) Update(step, steps int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.live {
		if message != "" && message != t.lastMessage {
			fmt.Fprintf(t.w, "PROGRESS: %s\n", message)
		}
		t.lastMessage = message
		return
	}
	t.lastMessage = message
	fmt.Fprintf(t.w, "\r\033[K%s %s", ProgressBar(step, steps, t.width), message)
	t.drawn = true
}

// Done clears the progress line.
func (t *Tracker) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.live && t.drawn {
		fmt.Fprint(t.w, "\r\033[K")
		t.drawn = false
	}
}
