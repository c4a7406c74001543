package transport

import (
	"math"
	"testing"
	"time"
)

func fakeClockAt(seconds float64) (*Clock, *time.Time) {
	start := time.Unix(0, 0)
	cur := start.Add(time.Duration(seconds * float64(time.Second)))
	return NewClockAt(start, func() time.Time { return cur }), &cur
}

func TestNowNoMaster(t *testing.T) {
	c, _ := fakeClockAt(1.3)
	startAt, wait := c.ScheduleNextBar(false, 0, 0, 1)
	if startAt != 1.3 || wait != 0 {
		t.Errorf("no master: got (%v, %v), want (1.3, 0)", startAt, wait)
	}
}

func TestScheduleNextBarScenario2(t *testing.T) {
	// Track 1 = 2.0s; press Track 2 at t=1.3s with divider=1 -> starts at t=2.0s.
	c, _ := fakeClockAt(1.3)
	startAt, wait := c.ScheduleNextBar(true, 0, 2.0, 1)
	if math.Abs(startAt-2.0) > 0.0005 {
		t.Errorf("startAt = %v, want ~2.0", startAt)
	}
	if math.Abs(wait-0.7) > 0.0005 {
		t.Errorf("wait = %v, want ~0.7", wait)
	}
}

func TestScheduleNextBarWithDivider(t *testing.T) {
	c, _ := fakeClockAt(1.0)
	startAt, wait := c.ScheduleNextBar(true, 0, 2.0, 3)
	// e = 1.0, waitToBar = 1.0, startAt = 1.0 + 1.0*3 = 4.0
	if math.Abs(startAt-4.0) > 0.0005 {
		t.Errorf("startAt = %v, want 4.0", startAt)
	}
	if math.Abs(wait-3.0) > 0.0005 {
		t.Errorf("wait = %v, want 3.0", wait)
	}
}

func TestScheduleNextBarNeverNegative(t *testing.T) {
	c, _ := fakeClockAt(0)
	_, wait := c.ScheduleNextBar(true, 0, 2.0, 1)
	if wait < 0 {
		t.Errorf("wait = %v, must never be negative", wait)
	}
}

func TestRelativeOffsetWraps(t *testing.T) {
	off := RelativeOffset(5.0, 0, 2.0)
	if math.Abs(off-1.0) > 1e-9 {
		t.Errorf("RelativeOffset = %v, want 1.0", off)
	}
}

func TestRelativeOffsetZeroDuration(t *testing.T) {
	if off := RelativeOffset(5.0, 0, 0); off != 0 {
		t.Errorf("RelativeOffset with zero duration = %v, want 0", off)
	}
}
