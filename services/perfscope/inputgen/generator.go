// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package inputgen produces deterministic synthetic stdin payloads for the
// programs under analysis.
//
// Every call derives a fresh PCG source from the generator seed and the
// requested size, so the same (seed, code, size, shape) always yields the
// same bytes and concurrent callers never share random state.
//
// Thread Safety: Generator is immutable and safe for concurrent use.
package inputgen

import (
	_ "embed"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/AleutianAI/perfscope/services/perfscope/domain"
)

// =============================================================================
// LIMITS & DEFAULTS
// =============================================================================

const (
	// DefaultSeed keeps generated inputs reproducible across runs.
	DefaultSeed uint64 = 42

	// MaxInputSize is the largest element count accepted for any input.
	MaxInputSize = 100000

	// MaxMatrixDim bounds typed matrix inputs, which grow quadratically.
	MaxMatrixDim = 2000

	// codeMatrixDim caps the dimension of matrices generated from code.
	codeMatrixDim = 100
)

//go:embed common_words.txt
var commonWordsData string

var commonWords = loadWords(commonWordsData)

func loadWords(data string) []string {
	var words []string
	for _, line := range strings.Split(data, "\n") {
		w := strings.TrimSpace(line)
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		words = append(words, w)
	}
	return words
}

// =============================================================================
// SHAPES & BASE TYPES
// =============================================================================

// Shape controls the ordering of generated integer values.
type Shape string

const (
	ShapeRandom       Shape = "random"
	ShapeSorted       Shape = "sorted"
	ShapeNearlySorted Shape = "nearly-sorted"
)

// ParseShape converts a user-supplied shape. The empty string means random.
func ParseShape(s string) (Shape, error) {
	switch Shape(strings.ToLower(strings.TrimSpace(s))) {
	case "", ShapeRandom:
		return ShapeRandom, nil
	case ShapeSorted:
		return ShapeSorted, nil
	case ShapeNearlySorted, "nearly_sorted", "nearlysorted":
		return ShapeNearlySorted, nil
	default:
		return "", &domain.ValidationError{
			Field:  "shape",
			Reason: fmt.Sprintf("%q is not one of random, sorted, nearly-sorted", s),
			Cause:  domain.ErrUnsupportedShape,
		}
	}
}

// BaseType selects the layout of a typed input.
type BaseType string

const (
	BaseArray  BaseType = "array"
	BaseMatrix BaseType = "matrix"
	BaseString BaseType = "string"

	// BaseAuto derives the layout from the program's stdin reads.
	BaseAuto BaseType = "auto"
)

// ParseBaseType converts a user-supplied base type.
func ParseBaseType(s string) (BaseType, error) {
	switch BaseType(strings.ToLower(strings.TrimSpace(s))) {
	case BaseArray:
		return BaseArray, nil
	case BaseMatrix:
		return BaseMatrix, nil
	case BaseString:
		return BaseString, nil
	case BaseAuto, "":
		return BaseAuto, nil
	default:
		return "", &domain.ValidationError{
			Field:  "input_type",
			Reason: fmt.Sprintf("unsupported input type %q", s),
			Cause:  domain.ErrUnsupportedType,
		}
	}
}

// =============================================================================
// GENERATOR
// =============================================================================

// Generator builds stdin payloads.
type Generator struct {
	seed uint64
}

// New creates a Generator with the given seed.
func New(seed uint64) *Generator {
	return &Generator{seed: seed}
}

// Default creates a Generator seeded with DefaultSeed.
func Default() *Generator {
	return New(DefaultSeed)
}

// Seed returns the generator's seed.
func (g *Generator) Seed() uint64 {
	return g.seed
}

func (g *Generator) rng(size int, salt uint64) *rand.Rand {
	return rand.New(rand.NewPCG(g.seed, uint64(size)<<8|salt))
}

// Typed generates an input of a fixed layout.
//
// Description:
//
//	array:  "<size>\n" followed by size integers on one line.
//	matrix: "<size> <size>\n" followed by size rows of size integers 0..99.
//	string: size random lowercase letters.
//	auto is not accepted here; use ForCode.
//
// Inputs:
//
//	base - The layout.
//	shape - Ordering of array values. Only random is valid for matrix and string.
//	size - Element count (array, string) or dimension (matrix).
//
// Outputs:
//
//	string - Newline-delimited payload.
//	error - *domain.ValidationError for bad sizes, types, or shapes.
func (g *Generator) Typed(base BaseType, shape Shape, size int) (string, error) {
	if err := validateSize(size); err != nil {
		return "", err
	}

	var sb strings.Builder
	switch base {
	case BaseArray:
		r := g.rng(size, 1)
		values, err := shapedInts(r, size, shape)
		if err != nil {
			return "", err
		}
		sb.WriteString(strconv.Itoa(size))
		sb.WriteByte('\n')
		writeInts(&sb, values)
		sb.WriteByte('\n')

	case BaseMatrix:
		if err := requireRandom(base, shape); err != nil {
			return "", err
		}
		if size > MaxMatrixDim {
			return "", domain.NewValidationError("size",
				fmt.Sprintf("matrix dimension cannot exceed %d", MaxMatrixDim))
		}
		r := g.rng(size, 2)
		fmt.Fprintf(&sb, "%d %d\n", size, size)
		writeMatrix(&sb, r, size, 100)

	case BaseString:
		if err := requireRandom(base, shape); err != nil {
			return "", err
		}
		r := g.rng(size, 3)
		const letters = "abcdefghijklmnopqrstuvwxyz"
		buf := make([]byte, size)
		for i := range buf {
			buf[i] = letters[r.IntN(len(letters))]
		}
		sb.Write(buf)
		sb.WriteByte('\n')

	default:
		return "", &domain.ValidationError{
			Field:  "input_type",
			Reason: fmt.Sprintf("unsupported input type %q", base),
			Cause:  domain.ErrUnsupportedType,
		}
	}
	return sb.String(), nil
}

// ForCode generates an input shaped after the program's stdin reads.
//
// Description:
//
//	Inspects the code for Scanner usage and picks a layout:
//	  - only nextLine reads: a sentence of size common words
//	  - Scanner with matrix vocabulary or [][]: two dim x dim matrices of
//	    values 0..9, each preceded by its dimension, dim = min(size, 100)
//	  - more than one array allocation: two arrays of size values
//	  - otherwise a size header plus one row per element holding
//	    (nextInt reads - 1) ints and nextDouble reads doubles
//	Code that never reads stdin through a Scanner gets an empty payload.
//
// Inputs:
//
//	code - Program text.
//	size - Requested element count.
//	shape - Ordering of integer values. Sentences and matrices accept random only.
//
// Outputs:
//
//	string - Newline-delimited payload.
//	error - *domain.ValidationError for bad sizes or unsupported shapes.
func (g *Generator) ForCode(code string, size int, shape Shape) (string, error) {
	if err := validateSize(size); err != nil {
		return "", err
	}
	if shape == "" {
		shape = ShapeRandom
	}

	reads := scanReads(code)
	var sb strings.Builder

	switch {
	case reads.lineOnly:
		if err := requireRandom("sentence", shape); err != nil {
			return "", err
		}
		r := g.rng(size, 4)
		for i := 0; i < size; i++ {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(commonWords[r.IntN(len(commonWords))])
		}

	case reads.scanner && reads.matrix:
		if err := requireRandom(BaseMatrix, shape); err != nil {
			return "", err
		}
		r := g.rng(size, 5)
		dim := min(size, codeMatrixDim)
		fmt.Fprintf(&sb, "%d\n%d\n", dim, dim)
		writeMatrix(&sb, r, dim, 10)
		writeMatrix(&sb, r, dim, 10)

	case reads.scanner && reads.arrays > 1:
		r := g.rng(size, 6)
		for k := 0; k < 2; k++ {
			values, err := shapedInts(r, size, shape)
			if err != nil {
				return "", err
			}
			sb.WriteString(strconv.Itoa(size))
			sb.WriteByte('\n')
			writeInts(&sb, values)
			sb.WriteByte('\n')
		}

	case reads.scanner && (reads.ints > 0 || reads.doubles > 0):
		r := g.rng(size, 7)
		intCols := max(reads.ints-1, 0)
		columns := make([][]int, intCols)
		for j := range columns {
			values, err := shapedInts(r, size, shape)
			if err != nil {
				return "", err
			}
			columns[j] = values
		}
		sb.WriteString(strconv.Itoa(size))
		sb.WriteByte('\n')
		for i := 0; i < size; i++ {
			fields := make([]string, 0, intCols+reads.doubles)
			for j := 0; j < intCols; j++ {
				fields = append(fields, strconv.Itoa(columns[j][i]))
			}
			for j := 0; j < reads.doubles; j++ {
				fields = append(fields, strconv.FormatFloat(r.Float64()*100, 'f', -1, 64))
			}
			sb.WriteString(strings.Join(fields, " "))
			sb.WriteByte('\n')
		}
	}

	return sb.String(), nil
}

// =============================================================================
// HELPERS
// =============================================================================

func validateSize(size int) error {
	if size <= 0 {
		return domain.NewValidationError("size", "input size must be greater than 0")
	}
	if size > MaxInputSize {
		return domain.NewValidationError("size", fmt.Sprintf("input size cannot exceed %d", MaxInputSize))
	}
	return nil
}

func requireRandom[T ~string](base T, shape Shape) error {
	if shape == "" || shape == ShapeRandom {
		return nil
	}
	return &domain.ValidationError{
		Field:  "shape",
		Reason: fmt.Sprintf("shape %q is not supported for %s inputs", shape, base),
		Cause:  domain.ErrUnsupportedShape,
	}
}

// shapedInts returns size integers ordered by shape.
func shapedInts(r *rand.Rand, size int, shape Shape) ([]int, error) {
	values := make([]int, size)
	switch shape {
	case ShapeSorted:
		for i := range values {
			values[i] = i
		}
	case ShapeNearlySorted:
		for i := range values {
			values[i] = i
		}
		// Perturb a tenth of the positions with short-range swaps.
		for i := 0; i < size/10; i++ {
			a := r.IntN(size)
			b := min(size-1, a+r.IntN(3)+1)
			values[a], values[b] = values[b], values[a]
		}
	case ShapeRandom, "":
		for i := range values {
			values[i] = r.IntN(100)
		}
	default:
		return nil, &domain.ValidationError{
			Field:  "shape",
			Reason: fmt.Sprintf("unsupported shape %q", shape),
			Cause:  domain.ErrUnsupportedShape,
		}
	}
	return values, nil
}

func writeInts(sb *strings.Builder, values []int) {
	for i, v := range values {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.Itoa(v))
	}
}

func writeMatrix(sb *strings.Builder, r *rand.Rand, dim, bound int) {
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.Itoa(r.IntN(bound)))
		}
		sb.WriteByte('\n')
	}
}
