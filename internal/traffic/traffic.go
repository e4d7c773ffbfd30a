// Package traffic keeps a short sliding window of chat request outcomes.
// /health derives "overloaded" and "degraded" from it.
package traffic

import (
	"sync"
	"time"
)

// Outcome classifies a finished request.
type Outcome int

const (
	// Answered is a request that produced an answer (including refusals and templates).
	Answered Outcome = iota
	// Failed is a request whose response carried a pipeline error.
	Failed
	// Denied is a request rejected by the rate limiter.
	Denied
)

// retention bounds memory; windows longer than this see truncated counts.
const retention = 5 * time.Minute

var defaultTracker = NewTracker()

// Record adds an outcome to the process-wide tracker.
func Record(o Outcome) { defaultTracker.Record(o) }

// RequestCount returns all outcomes within window from the process-wide tracker.
func RequestCount(window time.Duration) int { return defaultTracker.RequestCount(window) }

// DenialCount returns denials within window from the process-wide tracker.
func DenialCount(window time.Duration) int { return defaultTracker.DenialCount(window) }

// ErrorRate returns (failed, answered+failed) within window from the process-wide tracker.
func ErrorRate(window time.Duration) (failed, total int) { return defaultTracker.ErrorRate(window) }

// Reset clears the process-wide tracker. For tests.
func Reset() { defaultTracker.Reset() }

type event struct {
	at      time.Time
	outcome Outcome
}

// Tracker is a time-ordered event log pruned to retention.
type Tracker struct {
	mu     sync.Mutex
	events []event
	now    func() time.Time
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// Record appends one outcome.
func (t *Tracker) Record(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.events = append(t.events, event{at: now, outcome: o})
	t.pruneLocked(now)
}

// RequestCount returns the number of outcomes of any kind within window.
func (t *Tracker) RequestCount(window time.Duration) int {
	n := 0
	t.each(window, func(event) { n++ })
	return n
}

// DenialCount returns the number of Denied outcomes within window.
func (t *Tracker) DenialCount(window time.Duration) int {
	n := 0
	t.each(window, func(e event) {
		if e.outcome == Denied {
			n++
		}
	})
	return n
}

// ErrorRate returns failures and the total of answered plus failed
// requests within window. Denials are excluded.
func (t *Tracker) ErrorRate(window time.Duration) (failed, total int) {
	t.each(window, func(e event) {
		switch e.outcome {
		case Failed:
			failed++
			total++
		case Answered:
			total++
		}
	})
	return failed, total
}

// Reset drops all events.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
}

func (t *Tracker) each(window time.Duration, fn func(event)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	for i := len(t.events) - 1; i >= 0; i-- {
		if t.events[i].at.Before(cutoff) {
			break
		}
		fn(t.events[i])
	}
}

// pruneLocked drops events older than retention. Events are appended in time order.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	i := 0
	for i < len(t.events) && t.events[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		t.events = append(t.events[:0], t.events[i:]...)
	}
}
