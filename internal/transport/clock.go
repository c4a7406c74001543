// Package transport implements the audio-domain time source and the
// phase-locked bar scheduler dependent tracks use to start recording in
// alignment with the master loop.
package transport

import (
	"math"
	"time"
)

const epsilon = 1e-6

// Clock is a monotonic audio-domain time source. The zero value is not
// usable; construct with NewClock. Tests inject a fake via WithNow.
type Clock struct {
	start time.Time
	now   func() time.Time
}

// NewClock returns a Clock whose Now() reports seconds elapsed since
// construction.
func NewClock() *Clock {
	return &Clock{start: time.Now(), now: time.Now}
}

// NewClockAt returns a Clock anchored at a specific start instant, with an
// injectable now function -- used by tests that need deterministic time.
func NewClockAt(start time.Time, now func() time.Time) *Clock {
	return &Clock{start: start, now: now}
}

// Now returns monotonic audio-clock seconds since the clock was created.
func (c *Clock) Now() float64 {
	return c.now().Sub(c.start).Seconds()
}

// ScheduleNextBar computes (start_at, wait) for a dependent-track recording
// per spec.md §4.1. If masterSet is false, recording may start immediately.
func (c *Clock) ScheduleNextBar(masterSet bool, masterStart, masterDuration float64, divider int) (startAt, wait float64) {
	t := c.Now()
	if !masterSet || masterDuration <= 0 {
		return t, 0
	}

	e := math.Mod(t-masterStart, masterDuration)
	if e < 0 {
		e += masterDuration
	}
	if e < epsilon {
		e = 0
	}

	waitToBar := masterDuration - e
	startAt = t + waitToBar*float64(divider)
	wait = startAt - t
	if wait < 0 {
		wait = 0
	}
	return startAt, wait
}

// RelativeOffset returns ((now - loopStart) mod loopDuration), the position
// within a loop's current cycle -- used for re-alignment on master replace
// and for arming overdub at the next loop boundary.
func RelativeOffset(now, loopStart, loopDuration float64) float64 {
	if loopDuration <= 0 {
		return 0
	}
	off := math.Mod(now-loopStart, loopDuration)
	if off < 0 {
		off += loopDuration
	}
	return off
}
