// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package build

import (
	"sort"
	"strings"
	"sync"
)

// =============================================================================
// TOOLCHAIN
// =============================================================================

// Toolchain describes how to compile and launch programs of one language.
//
// Argument templates may use these placeholders:
//
//	{dir}   - absolute scratch directory
//	{file}  - absolute path of the written source file
//	{class} - entry type name
type Toolchain struct {
	// Language is the toolchain identifier (e.g., "java").
	Language string

	// Extension is the source file extension including the dot.
	Extension string

	// Compile is the compiler argv. Empty means the language needs no
	// separate build step.
	Compile []string

	// Run is the launcher argv.
	Run []string
}

// CompileArgs returns the compiler argv with placeholders substituted.
func (t *Toolchain) CompileArgs(dir, file, class string) []string {
	return substitute(t.Compile, dir, file, class)
}

// RunArgs returns the launcher argv with placeholders substituted.
func (t *Toolchain) RunArgs(dir, file, class string) []string {
	return substitute(t.Run, dir, file, class)
}

func substitute(args []string, dir, file, class string) []string {
	if len(args) == 0 {
		return nil
	}
	out := make([]string, len(args))
	for i, arg := range args {
		s := strings.ReplaceAll(arg, "{dir}", dir)
		s = strings.ReplaceAll(s, "{file}", file)
		s = strings.ReplaceAll(s, "{class}", class)
		out[i] = s
	}
	return out
}

// =============================================================================
// TOOLCHAIN REGISTRY
// =============================================================================

// ToolchainRegistry maps language names to toolchains.
//
// Thread Safety: Safe for concurrent reads after initialization.
// Register operations should only be done during setup.
type ToolchainRegistry struct {
	mu         sync.RWMutex
	toolchains map[string]*Toolchain
}

// NewToolchainRegistry creates a registry holding the default Java toolchain.
func NewToolchainRegistry() *ToolchainRegistry {
	r := &ToolchainRegistry{
		toolchains: make(map[string]*Toolchain),
	}
	r.registerDefaults()
	return r
}

func (r *ToolchainRegistry) registerDefaults() {
	// Serial GC and a fixed heap keep runs comparable.
	r.toolchains["java"] = &Toolchain{
		Language:  "java",
		Extension: ".java",
		Compile:   []string{"javac", "{file}"},
		Run:       []string{"java", "-XX:+UseSerialGC", "-Xms64m", "-Xmx512m", "-cp", "{dir}", "{class}"},
	}
}

// Get returns the toolchain for a language.
//
// Thread Safety: Safe for concurrent use.
func (r *ToolchainRegistry) Get(language string) (*Toolchain, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tc, ok := r.toolchains[language]
	return tc, ok
}

// Register adds or replaces a toolchain. Entries without a language or a run
// command are ignored.
func (r *ToolchainRegistry) Register(tc *Toolchain) {
	if tc == nil || tc.Language == "" || len(tc.Run) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toolchains[tc.Language] = tc
}

// Languages returns the registered language names, sorted.
func (r *ToolchainRegistry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	langs := make([]string, 0, len(r.toolchains))
	for lang := range r.toolchains {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// DefaultToolchains is the shared registry.
var DefaultToolchains = NewToolchainRegistry()
