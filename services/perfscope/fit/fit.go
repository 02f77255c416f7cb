// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fit picks the growth curve that best explains a series of
// (input size, measured value) pairs.
//
// Both the observed values and each candidate's expected shape are divided
// by their own maximum, so the fit ignores units and absolute scale. Each
// candidate is scored by mean squared error plus the coefficient of
// variation of the normalized observations. The lowest score wins; ties
// keep the earlier candidate.
//
// Two samples always produce a weak fit. That is a precision limit of the
// method, not an error.
package fit

import (
	"fmt"
	"math"

	"github.com/AleutianAI/perfscope/services/perfscope/domain"
)

// MinSamples is the fewest points Fit accepts.
const MinSamples = 2

// Candidate is one growth curve.
type Candidate struct {
	Label string
	Shape func(n float64) float64
}

// Candidates are evaluated in this order; earlier entries win ties.
var Candidates = []Candidate{
	{Label: domain.LabelConstant, Shape: func(float64) float64 { return 1 }},
	{Label: domain.LabelLog, Shape: math.Log2},
	{Label: domain.LabelLinear, Shape: func(n float64) float64 { return n }},
	{Label: domain.LabelLinearithm, Shape: func(n float64) float64 { return n * math.Log2(n) }},
	{Label: domain.LabelQuadratic, Shape: func(n float64) float64 { return n * n }},
}

// Score is the evaluation of one candidate.
type Score struct {
	Label string  `json:"label"`
	MSE   float64 `json:"mse"`
	CV    float64 `json:"cv"`
	Total float64 `json:"score"`
}

// Result is the full outcome of FitDetailed.
type Result struct {
	// Label is the chosen candidate.
	Label string `json:"label"`

	// Scores holds every candidate in evaluation order.
	Scores []Score `json:"scores"`
}

// Fit returns the label of the best-matching candidate.
//
// Inputs:
//
//	sizes - Input sizes, all > 0.
//	values - Measured values, one per size, finite.
//
// Outputs:
//
//	string - The chosen label. O(n) when no candidate scores finitely,
//	         which happens when every observed value is zero.
//	error - *domain.ValidationError for fewer than MinSamples points,
//	        mismatched lengths, non-positive sizes, or non-finite values.
func Fit(sizes []int, values []float64) (string, error) {
	r, err := FitDetailed(sizes, values)
	if err != nil {
		return "", err
	}
	return r.Label, nil
}

// FitDetailed is Fit with every candidate's score.
func FitDetailed(sizes []int, values []float64) (*Result, error) {
	if err := validate(sizes, values); err != nil {
		return nil, err
	}

	observed := normalize(values)
	cv := coefficientOfVariation(observed)

	ns := make([]float64, len(sizes))
	for i, s := range sizes {
		ns[i] = float64(s)
	}

	result := &Result{
		Label:  domain.LabelLinear,
		Scores: make([]Score, 0, len(Candidates)),
	}
	best := math.Inf(1)
	for _, c := range Candidates {
		expected := make([]float64, len(ns))
		for i, n := range ns {
			expected[i] = c.Shape(n)
		}
		mse := meanSquaredError(observed, normalize(expected))
		total := mse + cv
		result.Scores = append(result.Scores, Score{Label: c.Label, MSE: mse, CV: cv, Total: total})

		if total < best {
			best = total
			result.Label = c.Label
		}
	}
	return result, nil
}

func validate(sizes []int, values []float64) error {
	if len(sizes) != len(values) {
		return domain.NewValidationError("values",
			fmt.Sprintf("got %d values for %d sizes", len(values), len(sizes)))
	}
	if len(sizes) < MinSamples {
		return domain.NewValidationError("sizes",
			fmt.Sprintf("at least %d samples are required, got %d", MinSamples, len(sizes)))
	}
	for i, s := range sizes {
		if s <= 0 {
			return domain.NewValidationError("sizes", fmt.Sprintf("size at index %d must be greater than 0", i))
		}
		if math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			return domain.NewValidationError("values", fmt.Sprintf("value at index %d is not finite", i))
		}
	}
	return nil
}
