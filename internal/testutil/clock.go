package testutil

import "time"

// FixedClock is a wall clock pinned to one instant.
//
// Retention cutoffs are derived from "now", so tests and scenarios pin it
// to a known epoch second.
type FixedClock struct {
	now time.Time
}

// NewFixedClock creates a clock reading the given epoch second.
func NewFixedClock(unix int64) *FixedClock {
	return &FixedClock{now: time.Unix(unix, 0).UTC()}
}

// Now returns the pinned instant. Its signature matches time.Now so it
// can be passed wherever a func() time.Time is expected.
func (c *FixedClock) Now() time.Time {
	return c.now
}
