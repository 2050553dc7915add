// Package util provides common utility functions for price calculations.
package util

import "math"

// RoundToStep rounds x to the nearest strike step.
// For example, with step=50, 24132 becomes 24150.
func RoundToStep(x, step float64) float64 {
	if step <= 0 {
		return x
	}
	return math.Round(x/step) * step
}

// Round2 rounds x to two decimal places, the quoting precision for
// index option premiums.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
