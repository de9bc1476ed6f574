// Package clock provides the wall-clock seam used for session timing.
package clock

import "time"

// Clock reports the current time. Session start/end stamps and per-guess
// timings read it so tests can control elapsed durations.
type Clock interface {
	Now() time.Time
	// Since returns the time elapsed since t
	Since(t time.Time) time.Duration
}

// RealClock implements Clock using the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current local time
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// Since uses the monotonic reading when t came from Now
func (c *RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}
