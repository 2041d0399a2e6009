// Package calc provides arithmetic helpers for progress and size reporting.
package calc

import (
	"math"
	"time"
)

const (
	percentMultiplier = 100
	bytesPerMiB       = 1024 * 1024
)

// Percent returns part/whole as a percentage. ok is false when whole is not
// positive or the result is not a finite number.
func Percent(part, whole float64) (float64, bool) {
	if whole <= 0 {
		return 0, false
	}

	p := part / whole * percentMultiplier
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, false
	}

	return p, true
}

// Megabytes converts a byte count to mebibytes.
func Megabytes(bytes int64) float64 {
	return float64(bytes) / bytesPerMiB
}

// ETA estimates the remaining time of a job that reached percent after running since started.
func ETA(percent float64, started time.Time) time.Duration {
	if percent <= 0 || percent >= percentMultiplier {
		return 0
	}

	elapsed := time.Since(started)

	return time.Duration(float64(elapsed) * (percentMultiplier/percent - 1))
}
