// Package lifecycle holds process-wide state read by /health: the drain flag
// and the process start time.
package lifecycle

import (
	"sync/atomic"
	"time"
)

var (
	shuttingDown atomic.Bool
	startedAt    atomic.Int64
)

// SetShuttingDown sets the shutdown flag. Call when SIGTERM/SIGINT received.
// Health handler returns 503 with status shutting-down while true.
func SetShuttingDown(v bool) {
	shuttingDown.Store(v)
}

// IsShuttingDown returns true if the process is draining and should not receive new traffic.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}

// MarkStarted records t as the process start time.
func MarkStarted(t time.Time) {
	startedAt.Store(t.UnixNano())
}

// StartTime returns the time passed to MarkStarted, or the zero time.
func StartTime() time.Time {
	ns := startedAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Uptime returns the time since MarkStarted, or 0 before it is called.
func Uptime(now time.Time) time.Duration {
	start := StartTime()
	if start.IsZero() {
		return 0
	}
	return now.Sub(start)
}
