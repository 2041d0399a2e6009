package calc_test

import (
	"math"
	"testing"
	"time"

	"vidgrab/pkg/calc"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		name   string
		part   float64
		whole  float64
		want   float64
		wantOK bool
	}{
		{name: "quarter", part: 50, whole: 200, want: 25, wantOK: true},
		{name: "complete", part: 200, whole: 200, want: 100, wantOK: true},
		{name: "nothing yet", part: 0, whole: 10, want: 0, wantOK: true},
		{name: "zero whole", part: 10, whole: 0, wantOK: false},
		{name: "negative whole", part: 10, whole: -5, wantOK: false},
		{name: "nan part", part: math.NaN(), whole: 10, wantOK: false},
		{name: "inf part", part: math.Inf(1), whole: 10, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := calc.Percent(tt.part, tt.whole)
			if ok != tt.wantOK {
				t.Fatalf("Percent() ok = %v, want %v", ok, tt.wantOK)
			}

			if ok && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Percent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMegabytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  float64
	}{
		{bytes: 0, want: 0},
		{bytes: 1024 * 1024, want: 1},
		{bytes: 500 * 1024 * 1024, want: 500},
		{bytes: 1536 * 1024, want: 1.5},
	}

	for _, tt := range tests {
		if got := calc.Megabytes(tt.bytes); got != tt.want {
			t.Errorf("Megabytes(%d) = %v, want %v", tt.bytes, got, tt.want)
		}
	}
}

func TestETA(t *testing.T) {
	if got := calc.ETA(0, time.Now()); got != 0 {
		t.Errorf("ETA(0) = %v, want 0", got)
	}

	if got := calc.ETA(100, time.Now().Add(-time.Minute)); got != 0 {
		t.Errorf("ETA(100) = %v, want 0", got)
	}

	got := calc.ETA(50, time.Now().Add(-10*time.Second))
	if got < 9*time.Second || got > 11*time.Second {
		t.Errorf("ETA(50) = %v, want about 10s", got)
	}
}
