package track

import (
	"time"

	"github.com/jstrand/loopdeck/internal/pitch"
	"github.com/jstrand/loopdeck/internal/recorder"
	"github.com/jstrand/loopdeck/internal/transport"
)

// MasterHooks lets the Session Coordinator observe Track 1's lifecycle
// without Track holding a reference back to the Coordinator or its sibling
// tracks (spec.md §9 "Global singletons -> injected Coordinator").
type MasterHooks struct {
	// OnRecorded fires when Track 1 finishes recording: the coordinator
	// should (re)initialize transport.State and re-align dependents.
	OnRecorded func(duration, loopStart float64)
	// OnCleared fires when Track 1 is Cleared: the coordinator should reset
	// transport.State and clear every dependent.
	OnCleared func()
}

// Deps bundles everything a Track needs from the outside world: the
// transport clock and shared state, a capture backend, the pitch worker
// pool, and tunables. Injected at construction so tests can swap in fakes
// (spec.md §9).
type Deps struct {
	Clock     *transport.Clock
	Transport *transport.State
	Recorder  *recorder.Recorder
	Source    recorder.Source
	PitchPool *pitch.Pool

	UndoLimit int

	// AfterSeconds schedules fn to run once, seconds of audio-clock time
	// from now, returning a cancel function. Defaults to a real
	// time.AfterFunc-backed implementation; tests may override with a
	// faster or synchronous scheduler.
	AfterSeconds func(seconds float64, fn func()) (cancel func())

	MasterCapSeconds float64 // Track 1 recording cap, spec.md default 60s

	// LoopbackDetected reports the Session Coordinator's current loopback
	// probe reading; nil means no probe is wired (no feedback protection).
	LoopbackDetected func() bool
	// ConfirmOverdub is consulted when LoopbackDetected returns true; it
	// must return true for the Overdub transition to proceed.
	ConfirmOverdub func() bool

	// AllowWrapOverdub mirrors the ALLOW_WRAP_OVERDUB config flag
	// (spec.md §4.5): when true, an overdub capture longer than the loop
	// wraps its excess onto the start instead of being truncated.
	AllowWrapOverdub bool
}

// defaultAfterSeconds schedules fn on a real wall-clock timer.
func defaultAfterSeconds(seconds float64, fn func()) func() {
	if seconds < 0 {
		seconds = 0
	}
	timer := time.AfterFunc(time.Duration(seconds*float64(time.Second)), fn)
	return func() { timer.Stop() }
}

func (d *Deps) schedule(seconds float64, fn func()) func() {
	if d.AfterSeconds != nil {
		return d.AfterSeconds(seconds, fn)
	}
	return defaultAfterSeconds(seconds, fn)
}

func (d *Deps) undoLimit() int {
	if d.UndoLimit <= 0 {
		return 6
	}
	return d.UndoLimit
}

func (d *Deps) masterCap() float64 {
	if d.MasterCapSeconds <= 0 {
		return 60
	}
	return d.MasterCapSeconds
}

func (d *Deps) allowWrapOverdub() bool {
	return d.AllowWrapOverdub
}
