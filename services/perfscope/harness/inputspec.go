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
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/AleutianAI/perfscope/services/perfscope/domain"
	"github.com/AleutianAI/perfscope/services/perfscope/inputgen"
)

// EmbeddedSentinel selects embedded mode when used as an input spec.
const EmbeddedSentinel = "HARDCODED"

// maxRangePoints is the number of sizes a range yields when no step is given.
const maxRangePoints = 10

// Mode is how an analysis obtains its stdin.
type Mode string

const (
	// ModeFixed feeds a caller-supplied literal.
	ModeFixed Mode = "fixed"

	// ModeEmbedded feeds nothing; the program carries its own data.
	ModeEmbedded Mode = "embedded"

	// ModeSingle feeds one generated input of a given size.
	ModeSingle Mode = "single"

	// ModeSweep measures a generated input at several sizes and fits curves.
	ModeSweep Mode = "sweep"
)

// InputSpec describes the stdin of an analysis.
//
// Build one with Fixed, Embedded, Single, Sweep, SweepRange or
// ParseInputSpec. The zero value is an empty fixed input.
type InputSpec struct {
	Mode Mode `json:"mode"`

	// Literal is the stdin of a fixed spec.
	Literal string `json:"literal,omitempty"`

	// Base selects the sweep layout. BaseAuto derives it from the code.
	Base inputgen.BaseType `json:"base,omitempty"`

	// Shape orders generated integers.
	Shape inputgen.Shape `json:"shape,omitempty"`

	// Size is the generated size of a single spec.
	Size int `json:"size,omitempty"`

	// Sizes are the sweep sizes in ascending measurement order; the last
	// is the largest.
	Sizes []int `json:"sizes,omitempty"`
}

// Fixed returns a spec that feeds literal verbatim.
func Fixed(literal string) InputSpec {
	return InputSpec{Mode: ModeFixed, Literal: literal}
}

// Embedded returns a spec that feeds nothing.
func Embedded() InputSpec {
	return InputSpec{Mode: ModeEmbedded}
}

// Single returns a spec for one generated input of the given size.
func Single(size int, shape inputgen.Shape) InputSpec {
	return InputSpec{Mode: ModeSingle, Size: size, Shape: shape}
}

// Sweep returns a spec over explicit sizes, sorted ascending so the
// result of the sweep reports the largest size.
func Sweep(base inputgen.BaseType, shape inputgen.Shape, sizes ...int) InputSpec {
	sorted := append([]int(nil), sizes...)
	sort.Ints(sorted)
	return InputSpec{
		Mode:  ModeSweep,
		Base:  base,
		Shape: shape,
		Sizes: sorted,
	}
}

// SweepRange returns a spec over min, min+step, ... up to max.
//
// Description:
//
//	A step of zero is derived so the range yields at most ten sizes.
//	An explicit step must be positive and smaller than max - min.
//
// Outputs:
//
//	InputSpec - The sweep spec.
//	error - *domain.ValidationError when the range is malformed.
func SweepRange(base inputgen.BaseType, shape inputgen.Shape, lo, hi, step int) (InputSpec, error) {
	if lo <= 0 || hi <= 0 || step < 0 {
		return InputSpec{}, domain.NewValidationError("range", "min, max and step must be positive")
	}
	if lo >= hi {
		return InputSpec{}, domain.NewValidationError("range", "min must be less than max")
	}
	if hi > inputgen.MaxInputSize {
		return InputSpec{}, domain.NewValidationError("range",
			fmt.Sprintf("max must not exceed %d", inputgen.MaxInputSize))
	}
	if step == 0 {
		step = max(1, (hi-lo+maxRangePoints-2)/(maxRangePoints-1))
	} else if step >= hi-lo {
		return InputSpec{}, domain.NewValidationError("range", "step must be less than max - min")
	}

	var sizes []int
	for s := lo; s <= hi; s += step {
		sizes = append(sizes, s)
	}
	return Sweep(base, shape, sizes...), nil
}

// Validate checks the spec without touching any subprocess.
func (s InputSpec) Validate() error {
	switch s.Mode {
	case ModeFixed, ModeEmbedded, "":
		return nil
	case ModeSingle:
		if s.Size <= 0 || s.Size > inputgen.MaxInputSize {
			return domain.NewValidationError("size",
				fmt.Sprintf("size must be between 1 and %d, got %d", inputgen.MaxInputSize, s.Size))
		}
		_, err := inputgen.ParseShape(string(s.Shape))
		return err
	case ModeSweep:
		if len(s.Sizes) < 2 {
			return domain.NewValidationError("sizes", "a sweep needs at least two sizes")
		}
		for _, n := range s.Sizes {
			if n <= 0 {
				return domain.NewValidationError("sizes", "sizes must be greater than 0")
			}
			if n > inputgen.MaxInputSize {
				return domain.NewValidationError("sizes",
					fmt.Sprintf("sizes must not exceed %d", inputgen.MaxInputSize))
			}
		}
		if _, err := inputgen.ParseBaseType(string(s.Base)); err != nil {
			return err
		}
		_, err := inputgen.ParseShape(string(s.Shape))
		return err
	default:
		return domain.NewValidationError("mode", fmt.Sprintf("unknown input mode %q", s.Mode))
	}
}

// String returns the canonical form accepted by ParseInputSpec.
func (s InputSpec) String() string {
	switch s.Mode {
	case ModeEmbedded:
		return EmbeddedSentinel
	case ModeSingle:
		return fmt.Sprintf("size:%d:%s", s.Size, shapeOrRandom(s.Shape))
	case ModeSweep:
		parts := make([]string, len(s.Sizes))
		for i, n := range s.Sizes {
			parts[i] = strconv.Itoa(n)
		}
		base := s.Base
		if base == "" {
			base = inputgen.BaseAuto
		}
		return fmt.Sprintf("generate:%s:%s:%s", base, shapeOrRandom(s.Shape), strings.Join(parts, ","))
	default:
		return s.Literal
	}
}

func shapeOrRandom(s inputgen.Shape) inputgen.Shape {
	if s == "" {
		return inputgen.ShapeRandom
	}
	return s
}

// ParseInputSpec reads the textual form of a spec.
//
// Description:
//
//	HARDCODED                          embedded
//	size:<n>[:<shape>]                 single
//	generate:<base>[:<shape>]:<sizes>  sweep; sizes are a,b,c or min..max[/step]
//	anything else                      fixed literal
//
// Outputs:
//
//	InputSpec - The parsed spec, already validated.
//	error - *domain.ValidationError on malformed size, shape or range.
func ParseInputSpec(text string) (InputSpec, error) {
	trimmed := strings.TrimSpace(text)
	switch {
	case trimmed == EmbeddedSentinel:
		return Embedded(), nil
	case strings.HasPrefix(trimmed, "size:"):
		return parseSingle(strings.Split(trimmed, ":")[1:])
	case strings.HasPrefix(trimmed, "generate:"):
		return parseSweep(strings.Split(trimmed, ":")[1:])
	default:
		return Fixed(text), nil
	}
}

func parseSingle(parts []string) (InputSpec, error) {
	if len(parts) < 1 || len(parts) > 2 {
		return InputSpec{}, domain.NewValidationError("input", "expected size:<n>[:<shape>]")
	}
	size, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return InputSpec{}, domain.NewValidationError("size", fmt.Sprintf("%q is not an integer", parts[0]))
	}
	var shape inputgen.Shape = inputgen.ShapeRandom
	if len(parts) == 2 {
		if shape, err = inputgen.ParseShape(parts[1]); err != nil {
			return InputSpec{}, err
		}
	}
	spec := Single(size, shape)
	if err := spec.Validate(); err != nil {
		return InputSpec{}, err
	}
	return spec, nil
}

func parseSweep(parts []string) (InputSpec, error) {
	if len(parts) < 2 || len(parts) > 3 {
		return InputSpec{}, domain.NewValidationError("input", "expected generate:<base>[:<shape>]:<sizes>")
	}
	base, err := inputgen.ParseBaseType(parts[0])
	if err != nil {
		return InputSpec{}, err
	}
	var shape inputgen.Shape = inputgen.ShapeRandom
	if len(parts) == 3 {
		if shape, err = inputgen.ParseShape(parts[1]); err != nil {
			return InputSpec{}, err
		}
	}
	sizesText := strings.TrimSpace(parts[len(parts)-1])

	if lo, rest, ok := strings.Cut(sizesText, ".."); ok {
		hiText, stepText, _ := strings.Cut(rest, "/")
		nums, err := atoiAll("range", lo, hiText, stepText)
		if err != nil {
			return InputSpec{}, err
		}
		return SweepRange(base, shape, nums[0], nums[1], nums[2])
	}

	sizes, err := atoiAll("sizes", strings.Split(sizesText, ",")...)
	if err != nil {
		return InputSpec{}, err
	}
	spec := Sweep(base, shape, sizes...)
	if err := spec.Validate(); err != nil {
		return InputSpec{}, err
	}
	return spec, nil
}

// atoiAll parses each field; an empty field parses as zero.
func atoiAll(field string, texts ...string) ([]int, error) {
	out := make([]int, len(texts))
	for i, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		n, err := strconv.Atoi(t)
		if err != nil {
			return nil, domain.NewValidationError(field, fmt.Sprintf("%q is not an integer", t))
		}
		out[i] = n
	}
	return out, nil
}

// fixedInputSize derives the input size reported for a literal input.
//
// More than one token: the first token as an integer, or the token count
// when it is not one. One token or none: zero.
func fixedInputSize(literal string) int {
	fields := strings.Fields(literal)
	if len(fields) <= 1 {
		return 0
	}
	if n, err := strconv.Atoi(fields[0]); err == nil {
		return n
	}
	return len(fields)
}
