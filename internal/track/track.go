package track

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jstrand/loopdeck/internal/audio"
	"github.com/jstrand/loopdeck/internal/effects"
	"github.com/jstrand/loopdeck/internal/mixer"
	"github.com/jstrand/loopdeck/internal/pitch"
	"github.com/jstrand/loopdeck/internal/recorder"
	"github.com/jstrand/loopdeck/internal/transport"
)

// ErrInvalidState is returned when a command doesn't apply to the track's
// current state (spec.md §7 InvalidState).
var ErrInvalidState = fmt.Errorf("track: command not valid in current state")

// ErrLoopbackDetected is returned when Overdub is rejected because the
// Session Coordinator's loopback probe flagged monitor feedback and the
// caller didn't confirm (spec.md §4.5 anti-feedback).
var ErrLoopbackDetected = fmt.Errorf("track: loopback detected, overdub rejected")

// Track is one of the four Loop Tracks: a state machine over Ready, Waiting,
// Recording, Playing, Overdub, and Stopped (spec.md §4.4), holding an audio
// buffer, an effect chain, and a bounded undo stack. Track 1 additionally
// drives the shared transport.State via MasterHooks; Tracks 2-4 read it to
// phase-lock their own recording to Track 1's bar.
type Track struct {
	Index int

	mu     sync.Mutex
	deps   Deps
	events Events
	hooks  MasterHooks

	state    State
	buffer   *audio.Buffer
	chain    *effects.Chain
	undo     *undoStack
	divider  int
	pitch    float64
	uiLocked bool

	loopStart    float64
	loopDuration float64

	recHandle *recorder.Handle
	cancelFn  func()
	pitchJob  *pitch.Job
}

// NewTrack constructs a Track. hooks is only consulted when index == 1.
func NewTrack(index int, deps Deps, events Events, hooks MasterHooks) *Track {
	if events == nil {
		events = NopEvents{}
	}
	return &Track{
		Index:   index,
		deps:    deps,
		events:  events,
		hooks:   hooks,
		state:   Ready,
		chain:   effects.NewChain(),
		undo:    newUndoStack(deps.undoLimit()),
		divider: 1,
	}
}

// State returns the track's current state.
func (t *Track) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Info is a point-in-time snapshot for status reporting.
type Info struct {
	State        State
	LoopDuration float64
	LoopStart    float64
	Divider      int
	PitchSemis   float64
	UndoDepth    int
	UILocked     bool
	Effects      []*effects.Descriptor
}

// Buffer returns the track's current audio buffer, or nil if it has none
// recorded. Callers must not mutate the returned Buffer.
func (t *Track) Buffer() *audio.Buffer {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buffer
}

// Info returns a snapshot of the track's state for a status/UI readout.
func (t *Track) Info() Info {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Info{
		State:        t.state,
		LoopDuration: t.loopDuration,
		LoopStart:    t.loopStart,
		Divider:      t.divider,
		PitchSemis:   t.pitch,
		UndoDepth:    t.undo.len(),
		UILocked:     t.uiLocked,
		Effects:      t.chain.Descriptors(),
	}
}

func (t *Track) setState(s State) {
	t.state = s
	if s == Playing {
		t.rebuildChain()
	}
	t.events.TrackStateChanged(t.Index, s)
}

// rebuildChain reconnects the effect chain's runtime nodes (spec.md §4.6:
// "rebuilt whenever composition changes or playback starts"). No real Node
// backend exists yet (the DSP graph itself is out of scope, see
// internal/effects), so connect hands back a no-op node purely to exercise
// the rebuild wiring; a host-supplied Node implementation plugs in here
// later without changing any call site.
func (t *Track) rebuildChain() {
	t.chain.Rebuild(nopNode{}, func(*effects.Descriptor) effects.Node {
		return nopNode{}
	})
}

// nopNode is a placeholder effects.Node: connecting/disposing it does
// nothing, since no runtime DSP backend is wired in yet.
type nopNode struct{}

func (nopNode) Connect(effects.Node) {}
func (nopNode) Disconnect()          {}
func (nopNode) Dispose()             {}

func (t *Track) cancelPending() {
	if t.cancelFn != nil {
		t.cancelFn()
		t.cancelFn = nil
	}
}

// Press implements the spec.md §4.4 Press transitions: Ready/Waiting start
// or arm a recording, Recording finalizes it, Playing arms an overdub,
// Overdub finalizes the mix-in, and Stopped resumes playback.
func (t *Track) Press(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case Ready:
		return t.beginRecording(ctx)
	case Waiting:
		// Already armed for the next bar; a second Press is a no-op -
		// the bar fire will start recording on schedule.
		return nil
	case Recording:
		t.deps.Recorder.Stop(t.recHandle)
		return nil
	case Playing:
		return t.armOverdub(ctx)
	case Overdub:
		t.finalizeOverdubEarly()
		return nil
	case Stopped:
		t.setState(Playing)
		return nil
	default:
		return ErrInvalidState
	}
}

// beginRecording starts Track 1 immediately, or arms a dependent track to
// wait for the next bar boundary per transport.Clock.ScheduleNextBar.
func (t *Track) beginRecording(ctx context.Context) error {
	if t.Index == 1 {
		return t.startCapture(ctx, t.deps.masterCap())
	}

	snap := t.deps.Transport.Get()
	if !snap.IsSet {
		t.events.Error(t.Index, KindInvalidState, "no master set")
		return ErrInvalidState
	}
	_, wait := t.deps.Clock.ScheduleNextBar(snap.IsSet, snap.LoopStart, snap.Duration, t.divider)

	t.setState(Waiting)
	length := snap.Duration * float64(t.divider)
	t.cancelFn = t.deps.schedule(wait, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.state != Waiting {
			return
		}
		t.cancelFn = nil
		if err := t.startCapture(ctx, length); err != nil {
			t.events.Error(t.Index, KindMicUnavailable, err.Error())
			t.setState(Ready)
		}
	})
	return nil
}

// startCapture opens the recorder. expected of 0 means "until Press stops
// it" (Track 1's natural length, capped at masterCap seconds); a positive
// expected is the fixed dependent-track length that auto-stops on its own.
func (t *Track) startCapture(ctx context.Context, expected float64) error {
	expectedDur := time.Duration(expected * float64(time.Second))

	onStop := func(buf *audio.Buffer) {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.finishRecording(buf)
	}
	onError := func(err error) {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.events.Error(t.Index, KindMicUnavailable, err.Error())
		t.setState(Ready)
	}

	handle, err := t.deps.Recorder.Start(ctx, t.deps.Source, expectedDur, nil, onStop, onError)
	if err != nil {
		return err
	}
	t.recHandle = handle
	t.setState(Recording)

	if expected > 0 {
		t.cancelFn = t.deps.schedule(expected, func() {
			t.deps.Recorder.Stop(handle)
		})
	}
	return nil
}

func (t *Track) finishRecording(buf *audio.Buffer) {
	t.cancelPending()
	t.recHandle = nil
	t.buffer = buf
	t.loopDuration = buf.Duration()
	if t.Index == 1 {
		t.loopStart = t.deps.Clock.Now() - buf.Duration()
		t.setState(Playing)
		if t.hooks.OnRecorded != nil {
			t.hooks.OnRecorded(t.loopDuration, t.loopStart)
		}
		return
	}
	t.loopStart = t.deps.Clock.Now() - buf.Duration()
	t.setState(Playing)
}

// armOverdub schedules an overdub capture to start at the next loop
// boundary (spec.md §4.5: delay = loop_duration - ((now - loop_start) mod
// loop_duration)).
func (t *Track) armOverdub(ctx context.Context) error {
	if t.deps.LoopbackDetected != nil && t.deps.LoopbackDetected() {
		if t.deps.ConfirmOverdub == nil || !t.deps.ConfirmOverdub() {
			t.events.Error(t.Index, KindLoopbackDetect, "monitor loopback detected; overdub rejected")
			return ErrLoopbackDetected
		}
	}

	t.setState(Overdub)
	off := transport.RelativeOffset(t.deps.Clock.Now(), t.loopStart, t.loopDuration)
	delay := t.loopDuration - off
	if delay >= t.loopDuration {
		delay = 0
	}

	t.cancelFn = t.deps.schedule(delay, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.state != Overdub || t.recHandle != nil {
			return
		}
		t.cancelFn = nil
		t.beginOverdubCapture(ctx)
	})
	return nil
}

func (t *Track) beginOverdubCapture(ctx context.Context) {
	onStop := func(buf *audio.Buffer) {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.finishOverdub(buf)
	}
	onError := func(err error) {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.events.Error(t.Index, KindMicUnavailable, err.Error())
		t.setState(Playing)
	}

	expected := time.Duration(t.loopDuration * float64(time.Second))
	handle, err := t.deps.Recorder.Start(ctx, t.deps.Source, expected, nil, onStop, onError)
	if err != nil {
		t.events.Error(t.Index, KindMicUnavailable, err.Error())
		t.setState(Playing)
		return
	}
	t.recHandle = handle
	t.cancelFn = t.deps.schedule(t.loopDuration, func() {
		t.deps.Recorder.Stop(handle)
	})
}

// finalizeOverdubEarly handles a Press while in Overdub: if capture hasn't
// started yet (still waiting for the loop boundary), cancel the arm with no
// mix. If capture is in progress, stop it now -- finishOverdub runs the mix
// once the recorder decodes what was captured so far.
func (t *Track) finalizeOverdubEarly() {
	if t.recHandle == nil {
		t.cancelPending()
		t.setState(Playing)
		return
	}
	t.deps.Recorder.Stop(t.recHandle)
}

func (t *Track) finishOverdub(buf *audio.Buffer) {
	t.cancelPending()
	t.recHandle = nil
	t.undo.push(Snapshot{Buffer: t.buffer.Clone(), Chain: t.chain.Clone()})
	t.buffer = mixer.Mix(t.buffer, buf, mixer.Policy{AllowWrap: t.deps.allowWrapOverdub()})
	t.setState(Playing)
}

// Stop implements the spec.md §4.4 Stop transitions. Waiting/Recording/
// Overdub discard whatever was in flight; Playing pauses to Stopped.
func (t *Track) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case Ready, Stopped:
		return nil
	case Waiting:
		t.cancelPending()
		t.setState(Ready)
		return nil
	case Recording:
		t.cancelPending()
		if t.recHandle != nil {
			t.deps.Recorder.Abort(t.recHandle)
			t.recHandle = nil
		}
		t.setState(Ready)
		return nil
	case Playing:
		t.setState(Stopped)
		return nil
	case Overdub:
		t.cancelPending()
		if t.recHandle != nil {
			t.deps.Recorder.Abort(t.recHandle)
			t.recHandle = nil
		}
		t.setState(Stopped)
		return nil
	default:
		return ErrInvalidState
	}
}

// Clear discards the track's loop entirely and returns it to Ready.
func (t *Track) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelPending()
	if t.recHandle != nil {
		t.deps.Recorder.Abort(t.recHandle)
		t.recHandle = nil
	}
	if t.pitchJob != nil {
		t.pitchJob.Cancel()
		t.pitchJob = nil
	}
	t.chain.Dispose()
	t.chain = effects.NewChain()
	t.undo = newUndoStack(t.deps.undoLimit())
	t.buffer = nil
	t.loopDuration = 0
	t.loopStart = 0
	t.pitch = 0
	t.setState(Ready)

	if t.Index == 1 && t.hooks.OnCleared != nil {
		t.hooks.OnCleared()
	}
}

// Realign re-anchors loop_start_time to now while preserving the track's
// current relative offset within its loop (spec.md §4.1): used by the
// Session Coordinator when Track 1's recording is replaced, so playing or
// overdubbing dependents don't drift relative to the new master timeline.
func (t *Track) Realign(now float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.buffer == nil || t.loopDuration <= 0 {
		return
	}
	if t.state != Playing && t.state != Overdub {
		return
	}
	off := transport.RelativeOffset(now, t.loopStart, t.loopDuration)
	t.loopStart = now - off
}

// SetDivider sets the bar multiple a dependent track waits for before
// recording (spec.md §4.1). Invalid on Track 1, which defines the bar.
func (t *Track) SetDivider(d int) error {
	if d < 1 {
		return fmt.Errorf("track: divider must be >= 1, got %d", d)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Index == 1 {
		return fmt.Errorf("%w: divider does not apply to the master track", ErrInvalidState)
	}
	t.divider = d
	return nil
}

// Undo pops the most recent snapshot and restores the buffer and effect
// chain it carried (spec.md §3 Undo).
func (t *Track) Undo() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap, ok := t.undo.pop()
	if !ok {
		return fmt.Errorf("track: nothing to undo")
	}
	t.chain.Dispose()
	t.buffer = snap.Buffer
	t.chain = snap.Chain
	t.loopDuration = t.buffer.Duration()
	return nil
}

// AddEffect appends a new effect descriptor to the chain. A Pitch effect is
// applied immediately via SubmitPitch rather than riding in the runtime
// graph (spec.md §4.3/§4.6).
func (t *Track) AddEffect(typ effects.Type, params map[string]float64) (*effects.Descriptor, error) {
	if typ == effects.Pitch {
		semis := params["semitones"]
		if err := t.SubmitPitch(context.Background(), semis); err != nil {
			return nil, err
		}
	}

	d := effects.NewDescriptor(typ, params)
	t.mu.Lock()
	t.chain.Add(d)
	t.rebuildChain()
	t.mu.Unlock()
	return d, nil
}

// RemoveEffect removes an effect descriptor by id.
func (t *Track) RemoveEffect(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.chain.Remove(id); err != nil {
		return err
	}
	t.rebuildChain()
	return nil
}

// MoveEffect shifts an effect descriptor's position by dir (+1 or -1).
func (t *Track) MoveEffect(id string, dir int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.chain.Move(id, dir); err != nil {
		return err
	}
	t.rebuildChain()
	return nil
}

// ToggleBypass flips an effect descriptor's bypass flag.
func (t *Track) ToggleBypass(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.chain.ToggleBypass(id); err != nil {
		return err
	}
	t.rebuildChain()
	return nil
}

// SetParam sets a parameter on an effect descriptor.
func (t *Track) SetParam(id, key string, value float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.chain.SetParam(id, key, value); err != nil {
		return err
	}
	t.rebuildChain()
	return nil
}

// SubmitPitch runs the Granular Pitch Engine against the track's buffer,
// clamping semitones to [-12, 12] (spec.md §4.3), pushing an undo snapshot
// first, and atomically swapping in the shifted buffer on completion.
func (t *Track) SubmitPitch(ctx context.Context, semitones float64) error {
	if semitones > 12 {
		semitones = 12
	}
	if semitones < -12 {
		semitones = -12
	}

	t.mu.Lock()
	if t.buffer == nil {
		t.mu.Unlock()
		return fmt.Errorf("%w: no audio to pitch-shift", ErrInvalidState)
	}
	t.undo.push(Snapshot{Buffer: t.buffer.Clone(), Chain: t.chain.Clone()})
	channels := make([][]float32, t.buffer.NumChannels())
	for i := range channels {
		src := t.buffer.Channel(i)
		channels[i] = append([]float32(nil), src...)
	}
	sampleRate := t.buffer.SampleRate()
	t.uiLocked = true
	job := t.deps.PitchPool.Submit(ctx, t.Index, channels, semitones)
	t.pitchJob = job
	t.mu.Unlock()

	go t.awaitPitchJob(ctx, job, semitones, sampleRate)
	return nil
}

func (t *Track) awaitPitchJob(ctx context.Context, job *pitch.Job, semitones float64, sampleRate int) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	done := make(chan struct{})
	go func() {
		job.Wait(ctx)
		close(done)
	}()

loop:
	for {
		select {
		case <-done:
			break loop
		case <-ticker.C:
			t.events.PitchProgress(t.Index, job.Progress())
		}
	}

	result, err := job.Wait(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.uiLocked = false
	if t.pitchJob == job {
		t.pitchJob = nil
	}

	if err != nil {
		t.events.Error(t.Index, KindPitchFailed, err.Error())
		return
	}
	if result == nil {
		if job.Cancelled() {
			t.events.Error(t.Index, KindPitchCancelled, "pitch job cancelled")
		}
		return
	}

	buf, buildErr := audio.NewBuffer(sampleRate, result)
	if buildErr != nil {
		t.events.Error(t.Index, KindPitchFailed, buildErr.Error())
		return
	}
	t.buffer = buf
	t.loopDuration = buf.Duration()
	t.pitch = semitones
	t.events.PitchProgress(t.Index, 1)
}
