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

import "math"

// normalize divides by the maximum. A zero maximum leaves values unchanged.
func normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	peak := math.Inf(-1)
	for _, v := range values {
		peak = math.Max(peak, v)
	}
	if peak == 0 || math.IsInf(peak, -1) {
		return out
	}
	for i := range out {
		out[i] /= peak
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the population standard deviation.
func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// coefficientOfVariation is stddev/mean, +Inf when the mean is zero.
func coefficientOfVariation(values []float64) float64 {
	m := mean(values)
	if m == 0 {
		return math.Inf(1)
	}
	return stddev(values) / m
}

func meanSquaredError(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum / float64(len(a))
}
