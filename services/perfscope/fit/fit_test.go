// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/perfscope/services/perfscope/domain"
)

func TestFit_Shapes(t *testing.T) {
	tests := []struct {
		name   string
		sizes  []int
		values []float64
		want   string
	}{
		{"quadratic", []int{10, 100, 1000}, []float64{100, 10000, 1000000}, domain.LabelQuadratic},
		{"constant", []int{10, 100, 1000}, []float64{7, 7, 7}, domain.LabelConstant},
		{"linear", []int{10, 100, 1000}, []float64{10, 100, 1000}, domain.LabelLinear},
		{"logarithmic", []int{2, 4, 8, 16}, []float64{1, 2, 3, 4}, domain.LabelLog},
		{"linearithmic", []int{2, 4, 8}, []float64{2, 8, 24}, domain.LabelLinearithm},
		{"two points", []int{10, 20}, []float64{10, 20}, domain.LabelLinear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Fit(tt.sizes, tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFit_ScaleInvariant(t *testing.T) {
	sizes := []int{100, 200, 400, 800, 1600}
	series := [][]float64{
		{3.1, 6.4, 12.2, 25.0, 49.9},
		{1.0, 1.1, 0.9, 1.0, 1.05},
		{10, 41, 160, 650, 2560},
	}

	for _, values := range series {
		base, err := Fit(sizes, values)
		require.NoError(t, err)

		for _, k := range []float64{0.001, 3, 1e6} {
			scaled := make([]float64, len(values))
			for i, v := range values {
				scaled[i] = v * k
			}
			got, err := Fit(sizes, scaled)
			require.NoError(t, err)
			assert.Equal(t, base, got, "scale %v", k)
		}
	}
}

func TestFit_AllZeroDefaultsToLinear(t *testing.T) {
	r, err := FitDetailed([]int{10, 100}, []float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, domain.LabelLinear, r.Label)
	require.Len(t, r.Scores, len(Candidates))
	for _, s := range r.Scores {
		assert.True(t, math.IsInf(s.Total, 1))
	}
}

func TestFitDetailed_ScoresInOrder(t *testing.T) {
	r, err := FitDetailed([]int{10, 100, 1000}, []float64{100, 10000, 1000000})
	require.NoError(t, err)

	labels := make([]string, 0, len(r.Scores))
	for _, s := range r.Scores {
		labels = append(labels, s.Label)
	}
	assert.Equal(t, []string{"O(1)", "O(log n)", "O(n)", "O(n log n)", "O(n^2)"}, labels)
	assert.InDelta(t, 0, r.Scores[4].MSE, 1e-12)
}

func TestFit_Validation(t *testing.T) {
	tests := []struct {
		name   string
		sizes  []int
		values []float64
	}{
		{"empty", nil, nil},
		{"one sample", []int{10}, []float64{1}},
		{"mismatched", []int{10, 20}, []float64{1}},
		{"zero size", []int{0, 20}, []float64{1, 2}},
		{"NaN value", []int{10, 20}, []float64{1, math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fit(tt.sizes, tt.values)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestStats(t *testing.T) {
	assert.Equal(t, []float64{0.5, 1}, normalize([]float64{1, 2}))
	assert.Equal(t, []float64{0, 0}, normalize([]float64{0, 0}))
	assert.InDelta(t, 1.0, stddev([]float64{1, 3}), 1e-12)
	assert.True(t, math.IsInf(coefficientOfVariation([]float64{0, 0}), 1))
	assert.InDelta(t, 0.5, coefficientOfVariation([]float64{1, 3}), 1e-12)
}
