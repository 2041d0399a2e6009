// Package progress turns raw extractor progress reports into percentages.
package progress

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"vidgrab/internal/entity"
	"vidgrab/pkg/calc"
	"vidgrab/pkg/maths"
)

// Complete is the percentage forced when the extractor reports a finished file.
const Complete = 100.0

var reANSI = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

// Normalize computes a percentage from one report. The sources are tried in
// order: downloaded/total, downloaded/estimate, the percent string.
// ok is false when none of them yields a number; Normalize never fails.
func Normalize(r entity.ProgressReport) (float64, bool) {
	if r.DownloadedBytes != nil && r.TotalBytes != nil {
		if p, ok := calc.Percent(*r.DownloadedBytes, *r.TotalBytes); ok {
			return p, true
		}
	}

	if r.DownloadedBytes != nil && r.TotalBytesEstimate != nil {
		if p, ok := calc.Percent(*r.DownloadedBytes, *r.TotalBytesEstimate); ok {
			return p, true
		}
	}

	if r.PercentStr != nil {
		return ParsePercent(*r.PercentStr)
	}

	return 0, false
}

// ParsePercent parses strings such as " 45.3%" or colored terminal output.
// NaN and infinities are rejected.
func ParsePercent(s string) (float64, bool) {
	s = reANSI.ReplaceAllString(s, "")
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))

	p, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, false
	}

	return p, true
}

// Tracker converts the report stream of one job into percentages to emit.
// Emitted values never decrease, intermediate values are rate limited and a
// finished report always yields Complete.
type Tracker struct {
	mu       sync.Mutex
	interval time.Duration
	now      func() time.Time

	last     float64
	lastSent time.Time
	emitted  bool
	complete bool
}

// NewTracker returns a Tracker that lets at most one intermediate value through per interval.
func NewTracker(interval time.Duration) *Tracker {
	return &Tracker{
		interval: interval,
		now:      time.Now,
	}
}

// Observe feeds one report. It returns the percentage to emit, if any.
func (t *Tracker) Observe(r entity.ProgressReport) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if r.Status == entity.ProgressStatusFinished {
		return t.finish()
	}

	if t.complete {
		return 0, false
	}

	p, ok := Normalize(r)
	if !ok {
		return 0, false
	}

	p = maths.Clamp(p, 0, Complete)
	if t.emitted && p <= t.last {
		return 0, false
	}

	now := t.now()
	if t.emitted && now.Sub(t.lastSent) < t.interval {
		return 0, false
	}

	t.last, t.lastSent, t.emitted = p, now, true

	return p, true
}

// Finish forces Complete unless it has already been emitted.
func (t *Tracker) Finish() (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.finish()
}

func (t *Tracker) finish() (float64, bool) {
	if t.complete {
		return 0, false
	}

	t.last, t.lastSent, t.emitted, t.complete = Complete, t.now(), true, true

	return Complete, true
}

// Last returns the highest percentage emitted so far.
func (t *Tracker) Last() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.last
}
