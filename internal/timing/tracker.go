// Package timing accumulates how long a player spends on each question.
package timing

import (
	"math"
	"time"
)

// Totals is a snapshot of accumulated seconds.
type Totals struct {
	PerQuestion map[string]int `json:"perQuestion"`
	Total       int            `json:"total"`
}

// Tracker accumulates whole seconds per question id. It is not safe for
// concurrent use; the owning player serializes access.
type Tracker struct {
	now     func() time.Time
	current string
	started time.Time
	totals  map[string]int
}

// NewTrackerWithClock returns a tracker reading time from now.
func NewTrackerWithClock(now func() time.Time) *Tracker {
	return &Tracker{now: now, totals: make(map[string]int)}
}

// Start makes questionID the timed question, flushing the time spent on the
// previous one. Starting the question already being timed is a no-op.
func (t *Tracker) Start(questionID string) {
	if t.current == questionID && !t.started.IsZero() {
		return
	}
	now := t.now()
	if t.current != "" {
		t.flushAt(now)
	}
	t.current = questionID
	t.started = now
}

// FlushAndTotal folds the pending time of the current question into its
// total without switching, and returns a snapshot of all totals.
func (t *Tracker) FlushAndTotal() Totals {
	if t.current != "" {
		t.flushAt(t.now())
	}
	out := Totals{PerQuestion: make(map[string]int, len(t.totals))}
	for id, secs := range t.totals {
		out.PerQuestion[id] = secs
		out.Total += secs
	}
	return out
}

// Reset drops all accumulated time.
func (t *Tracker) Reset() {
	t.current = ""
	t.started = time.Time{}
	t.totals = make(map[string]int)
}

// flushAt adds the elapsed seconds since the last start and moves the start
// mark to now, so a second flush never counts the same interval twice.
// Sub-second remainders stay pending until they round up.
func (t *Tracker) flushAt(now time.Time) {
	elapsed := now.Sub(t.started)
	if elapsed < 0 {
		t.started = now
		return
	}
	secs := int(math.Round(elapsed.Seconds()))
	if secs == 0 {
		return
	}
	t.totals[t.current] += secs
	t.started = t.started.Add(time.Duration(secs) * time.Second)
}
