// Package floatutils provides utilities for working with floats
package floatutils

import (
	"math"

	"gonum.org/v1/gonum/spatial/r1"
)

// Clip clips a floating point to within a minimum and maximum value.
func Clip(value, min, max float64) float64 {
	return math.Max(math.Min(value, max), min)
}

// ClipInterval is a wrapper to use Clip with an r1.Interval instead of
// a separate max and min value
func ClipInterval(value float64, interval r1.Interval) float64 {
	return Clip(value, interval.Min, interval.Max)
}

// MaxSlice gets the maximum value and the indices of all elements
// attaining the maximum value in a slice of float64.
func MaxSlice(values []float64) (max float64, indices []int) {
	max, indices = values[0], []int{0}

	for i := 1; i < len(values); i++ {
		if values[i] > max {
			max = values[i]
			indices = []int{i}
		} else if values[i] == max {
			indices = append(indices, i)
		}
	}
	return
}

// Sign returns -1 for negative values and 1 otherwise
func Sign(value float64) float64 {
	if value < 0 {
		return -1.0
	}
	return 1.0
}

// Wrap wraps value into the interval [min, max)
func Wrap(value, min, max float64) float64 {
	width := max - min
	wrapped := math.Mod(value-min, width)
	if wrapped < 0 {
		wrapped += width
	}
	return wrapped + min
}
