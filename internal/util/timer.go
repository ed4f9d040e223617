package util

import "time"

// Timer is a lightweight helper to measure elapsed durations.
type Timer struct {
	start time.Time
}

// StartTimer creates a new timer starting at current time.
func StartTimer() Timer {
	return Timer{start: time.Now()}
}

// Elapsed returns the duration since start, zero for an unstarted timer.
func (t Timer) Elapsed() time.Duration {
	if t.start.IsZero() {
		return 0
	}
	return time.Since(t.start)
}

// ElapsedUs returns the elapsed microseconds since start. Engine runs are
// well under a millisecond, so the journal stores microseconds.
func (t Timer) ElapsedUs() int64 {
	return t.Elapsed().Microseconds()
}
