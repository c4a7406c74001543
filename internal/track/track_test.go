package track

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jstrand/loopdeck/internal/pitch"
	"github.com/jstrand/loopdeck/internal/recorder"
	"github.com/jstrand/loopdeck/internal/transport"
)

// testStream is a minimal recorder.Stream a test drives by hand: push one
// chunk of interleaved samples (or none), then close Ended.
type testStream struct {
	frames chan []float32
	ended  chan struct{}
}

func newTestStream() *testStream {
	return &testStream{frames: make(chan []float32, 1), ended: make(chan struct{})}
}

func (s *testStream) Frames() <-chan []float32 { return s.frames }
func (s *testStream) Ended() <-chan struct{}   { return s.ended }
func (s *testStream) Close()                   {}

func (s *testStream) finish(interleaved []float32) {
	if len(interleaved) > 0 {
		s.frames <- interleaved
	}
	close(s.ended)
}

type testSource struct {
	rate, ch int
	mu       sync.Mutex
	streams  []*testStream
}

func (s *testSource) SampleRate() int  { return s.rate }
func (s *testSource) NumChannels() int { return s.ch }

func (s *testSource) Open(ctx context.Context) (recorder.Stream, error) {
	st := newTestStream()
	s.mu.Lock()
	s.streams = append(s.streams, st)
	s.mu.Unlock()
	return st, nil
}

func (s *testSource) last() *testStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streams[len(s.streams)-1]
}

// schedCall is one recorded Deps.AfterSeconds invocation; fakeScheduler lets
// a test fire it on demand instead of waiting on a real timer.
type schedCall struct {
	seconds   float64
	fn        func()
	cancelled bool
}

type fakeScheduler struct {
	mu    sync.Mutex
	calls []*schedCall
}

func (f *fakeScheduler) after(seconds float64, fn func()) func() {
	c := &schedCall{seconds: seconds, fn: fn}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		c.cancelled = true
		f.mu.Unlock()
	}
}

func (f *fakeScheduler) fire(i int) {
	f.mu.Lock()
	c := f.calls[i]
	f.mu.Unlock()
	if !c.cancelled {
		c.fn()
	}
}

func (f *fakeScheduler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func waitForState(t *testing.T, tr *Track, want State) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if tr.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", tr.State(), want)
}

func newTestDeps(src *testSource, sched *fakeScheduler) Deps {
	return Deps{
		Clock:     transport.NewClock(),
		Transport: &transport.State{},
		Recorder:  recorder.NewRecorder(),
		Source:    src,
		PitchPool: pitch.NewPool(),
		AfterSeconds: func(seconds float64, fn func()) func() {
			if sched != nil {
				return sched.after(seconds, fn)
			}
			return func() {}
		},
	}
}

func TestMasterRecordingReachesPlaying(t *testing.T) {
	src := &testSource{rate: 8000, ch: 1}
	deps := newTestDeps(src, &fakeScheduler{})
	tr := NewTrack(1, deps, nil, MasterHooks{})

	if err := tr.Press(context.Background()); err != nil {
		t.Fatalf("Press: %v", err)
	}
	if got := tr.State(); got != Recording {
		t.Fatalf("state after Press = %v, want Recording", got)
	}

	src.last().finish([]float32{0.1, 0.2, 0.3, 0.4})
	waitForState(t, tr, Playing)

	if got := tr.Info().LoopDuration; got <= 0 {
		t.Errorf("LoopDuration = %v, want > 0", got)
	}
}

func TestStopWhileRecordingDiscardsBuffer(t *testing.T) {
	src := &testSource{rate: 8000, ch: 1}
	deps := newTestDeps(src, &fakeScheduler{})
	tr := NewTrack(1, deps, nil, MasterHooks{})

	if err := tr.Press(context.Background()); err != nil {
		t.Fatalf("Press: %v", err)
	}
	if err := tr.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := tr.State(); got != Ready {
		t.Fatalf("state after Stop = %v, want Ready", got)
	}
	if tr.Buffer() != nil {
		t.Error("buffer should be discarded after aborting a recording")
	}
}

func TestDependentTrackWaitsForBarThenRecords(t *testing.T) {
	start := time.Now()
	now := func() time.Time { return start.Add(1300 * time.Millisecond) }
	clock := transport.NewClockAt(start, now)

	transportState := &transport.State{}
	transportState.SetMaster(2.0, 0)

	src := &testSource{rate: 8000, ch: 1}
	sched := &fakeScheduler{}
	deps := newTestDeps(src, sched)
	deps.Clock = clock
	deps.Transport = transportState

	tr := NewTrack(2, deps, nil, MasterHooks{})
	if err := tr.Press(context.Background()); err != nil {
		t.Fatalf("Press: %v", err)
	}
	if got := tr.State(); got != Waiting {
		t.Fatalf("state after Press = %v, want Waiting", got)
	}
	if sched.count() != 1 {
		t.Fatalf("schedule calls = %d, want 1", sched.count())
	}
	if wait := sched.calls[0].seconds; wait < 0.69 || wait > 0.71 {
		t.Errorf("scheduled wait = %v, want ~0.7 (spec.md scenario 2)", wait)
	}

	sched.fire(0)
	waitForState(t, tr, Recording)

	src.last().finish([]float32{0.1, 0.1})
	waitForState(t, tr, Playing)
}

func TestDependentTrackPressRejectedWithoutMaster(t *testing.T) {
	src := &testSource{rate: 8000, ch: 1}
	deps := newTestDeps(src, &fakeScheduler{})
	tr := NewTrack(2, deps, nil, MasterHooks{})

	err := tr.Press(context.Background())
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("Press with no master set: err = %v, want ErrInvalidState", err)
	}
	if got := tr.State(); got != Ready {
		t.Errorf("state = %v, want Ready (no state change on rejection)", got)
	}
	if len(src.streams) != 0 {
		t.Error("no recorder stream should be opened when master isn't set")
	}
}

func TestSetDividerRejectedOnMaster(t *testing.T) {
	deps := newTestDeps(&testSource{rate: 8000, ch: 1}, &fakeScheduler{})
	tr := NewTrack(1, deps, nil, MasterHooks{})
	if err := tr.SetDivider(2); err == nil {
		t.Error("SetDivider on the master track should be rejected")
	}
}

func TestUndoRestoresPriorBuffer(t *testing.T) {
	src := &testSource{rate: 8000, ch: 1}
	deps := newTestDeps(src, &fakeScheduler{})
	tr := NewTrack(1, deps, nil, MasterHooks{})

	tr.Press(context.Background())
	src.last().finish([]float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8})
	waitForState(t, tr, Playing)

	original := tr.Buffer()

	if err := tr.SubmitPitch(context.Background(), 3); err != nil {
		t.Fatalf("SubmitPitch: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && tr.Info().PitchSemis == 0 {
		time.Sleep(2 * time.Millisecond)
	}
	if tr.Info().PitchSemis != 3 {
		t.Fatal("pitch shift never completed")
	}

	if err := tr.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if !tr.Buffer().Equal(original) {
		t.Error("Undo did not restore the pre-pitch-shift buffer")
	}
}

func TestPressWithoutBufferCannotSubmitPitch(t *testing.T) {
	deps := newTestDeps(&testSource{rate: 8000, ch: 1}, &fakeScheduler{})
	tr := NewTrack(1, deps, nil, MasterHooks{})
	if err := tr.SubmitPitch(context.Background(), 2); err == nil {
		t.Error("SubmitPitch on an empty track should be rejected")
	}
}

func TestRealignPreservesRelativeOffset(t *testing.T) {
	src := &testSource{rate: 8000, ch: 1}
	deps := newTestDeps(src, &fakeScheduler{})
	tr := NewTrack(2, deps, nil, MasterHooks{})

	tr.Press(context.Background())
	src.last().finish([]float32{0.1, 0.2, 0.3, 0.4})
	waitForState(t, tr, Playing)

	now := deps.Clock.Now() + 5.0
	before := transport.RelativeOffset(now, tr.Info().LoopStart, tr.Info().LoopDuration)

	tr.Realign(now)

	after := transport.RelativeOffset(now, tr.Info().LoopStart, tr.Info().LoopDuration)
	if diff := after - before; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("relative offset changed across Realign: before=%v after=%v", before, after)
	}
}

func TestRealignNoopWhenNoBuffer(t *testing.T) {
	deps := newTestDeps(&testSource{rate: 8000, ch: 1}, &fakeScheduler{})
	tr := NewTrack(3, deps, nil, MasterHooks{})
	tr.Realign(10) // must not panic with no buffer
	if got := tr.State(); got != Ready {
		t.Errorf("state = %v, want Ready", got)
	}
}

func TestOverdubArmRejectedOnLoopback(t *testing.T) {
	src := &testSource{rate: 8000, ch: 1}
	deps := newTestDeps(src, &fakeScheduler{})
	deps.LoopbackDetected = func() bool { return true }
	deps.ConfirmOverdub = func() bool { return false }
	tr := NewTrack(1, deps, nil, MasterHooks{})

	tr.Press(context.Background())
	src.last().finish([]float32{0.1, 0.2})
	waitForState(t, tr, Playing)

	if err := tr.Press(context.Background()); err != ErrLoopbackDetected {
		t.Fatalf("Press into Overdub with unconfirmed loopback = %v, want ErrLoopbackDetected", err)
	}
	if got := tr.State(); got != Playing {
		t.Errorf("state after rejected overdub = %v, want Playing", got)
	}
}
