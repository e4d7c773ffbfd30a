package lifecycle

import (
	"testing"
	"time"
)

func TestIsShuttingDown_DefaultFalse(t *testing.T) {
	SetShuttingDown(false)
	if IsShuttingDown() {
		t.Error("IsShuttingDown() = true, want false by default")
	}
}

func TestSetShuttingDown_True(t *testing.T) {
	SetShuttingDown(true)
	defer SetShuttingDown(false)
	if !IsShuttingDown() {
		t.Error("IsShuttingDown() = false after SetShuttingDown(true), want true")
	}
}

func TestSetShuttingDown_False(t *testing.T) {
	SetShuttingDown(true)
	SetShuttingDown(false)
	if IsShuttingDown() {
		t.Error("IsShuttingDown() = true after SetShuttingDown(false), want false")
	}
}

func TestUptime(t *testing.T) {
	startedAt.Store(0)
	if got := Uptime(time.Now()); got != 0 {
		t.Errorf("Uptime() before MarkStarted = %v, want 0", got)
	}

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	MarkStarted(start)
	defer startedAt.Store(0)
	if !StartTime().Equal(start) {
		t.Errorf("StartTime() = %v, want %v", StartTime(), start)
	}
	if got := Uptime(start.Add(90 * time.Second)); got != 90*time.Second {
		t.Errorf("Uptime() = %v, want 90s", got)
	}
}
