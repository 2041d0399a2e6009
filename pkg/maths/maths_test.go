package maths_test

import (
	"math"
	"testing"

	"vidgrab/pkg/maths"
)

func TestRoundFloat64ToInt(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{in: 212.4, want: 212},
		{in: 212.5, want: 213},
		{in: math.NaN(), want: 0},
		{in: math.Inf(-1), want: 0},
	}

	for _, tt := range tests {
		if got := maths.RoundFloat64ToInt(tt.in); got != tt.want {
			t.Errorf("RoundFloat64ToInt(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := maths.Clamp(120, 0, 100); got != 100 {
		t.Errorf("Clamp(120) = %v, want 100", got)
	}

	if got := maths.Clamp(-3, 0, 100); got != 0 {
		t.Errorf("Clamp(-3) = %v, want 0", got)
	}

	if got := maths.RoundTo(45.349, 1); got != 45.3 {
		t.Errorf("RoundTo(45.349, 1) = %v, want 45.3", got)
	}
}
