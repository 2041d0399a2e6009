// Package maths provides rounding helpers.
package maths

import (
	"math"
)

// RoundFloat64ToInt rounds v to the nearest int. NaN and infinities become 0.
func RoundFloat64ToInt(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	return int(math.Round(v))
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}

	pow := math.Pow(10, float64(places))

	return math.Round(v*pow) / pow
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
