package traffic

import (
	"testing"
	"time"
)

// TestRequestCount_Empty verifies that RequestCount returns 0 when nothing
// has been recorded within the window.
func TestRequestCount_Empty(t *testing.T) {
	Reset()
	if n := RequestCount(time.Minute); n != 0 {
		t.Errorf("RequestCount() = %d, want 0", n)
	}
}

// TestRecord_Counts verifies each outcome feeds the right counters.
func TestRecord_Counts(t *testing.T) {
	Reset()
	Record(Answered)
	Record(Answered)
	Record(Failed)
	Record(Denied)

	if n := RequestCount(time.Minute); n != 4 {
		t.Errorf("RequestCount() = %d, want 4", n)
	}
	if n := DenialCount(time.Minute); n != 1 {
		t.Errorf("DenialCount() = %d, want 1", n)
	}
	failed, total := ErrorRate(time.Minute)
	if failed != 1 || total != 3 {
		t.Errorf("ErrorRate() = (%d, %d), want (1, 3)", failed, total)
	}
}

// TestTracker_WindowAndPrune verifies events outside the window are not
// counted and events beyond retention are dropped.
func TestTracker_WindowAndPrune(t *testing.T) {
	tr := NewTracker()
	now := time.Unix(1_700_000_000, 0)
	tr.now = func() time.Time { return now }

	tr.Record(Failed)
	now = now.Add(90 * time.Second)
	tr.Record(Answered)

	if n := tr.RequestCount(time.Minute); n != 1 {
		t.Errorf("RequestCount(1m) = %d, want 1", n)
	}
	if n := tr.RequestCount(2 * time.Minute); n != 2 {
		t.Errorf("RequestCount(2m) = %d, want 2", n)
	}

	now = now.Add(retention + time.Second)
	tr.Record(Denied)
	tr.mu.Lock()
	kept := len(tr.events)
	tr.mu.Unlock()
	if kept != 1 {
		t.Errorf("events after prune = %d, want 1", kept)
	}
}
