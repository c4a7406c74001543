// Package session implements the Session Coordinator (spec.md §4.6): it
// owns the four Loop Tracks and the shared Transport State, dispatches user
// commands to the right track, re-aligns dependents when the master is
// replaced, runs the anti-feedback loopback probe, and mixes every playing
// or overdubbing track's buffer down to a master bus frame on demand.
package session

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jstrand/loopdeck/internal/audio"
	"github.com/jstrand/loopdeck/internal/pitch"
	"github.com/jstrand/loopdeck/internal/recorder"
	"github.com/jstrand/loopdeck/internal/track"
	"github.com/jstrand/loopdeck/internal/transport"
	"gonum.org/v1/gonum/stat"
)

const numTracks = 4

// Events is the session-wide fan-out surface (spec.md §6 "Events
// emitted"); it is track.Events plus TransportChanged, since that event has
// no single track it belongs to.
type Events interface {
	TrackStateChanged(i int, state track.State)
	TrackProgress(i int, ratio float64)
	TransportChanged(duration float64, bpm int)
	PitchProgress(i int, pct float64)
	Error(i int, kind track.ErrorKind, message string)
}

// NopEvents discards every callback.
type NopEvents struct{}

func (NopEvents) TrackStateChanged(int, track.State)     {}
func (NopEvents) TrackProgress(int, float64)             {}
func (NopEvents) TransportChanged(float64, int)          {}
func (NopEvents) PitchProgress(int, float64)             {}
func (NopEvents) Error(int, track.ErrorKind, string)      {}

// Config is the subset of internal/config.Config the coordinator consumes
// directly; cmd/looperd maps its loaded config.Config onto this.
type Config struct {
	SampleRate               int
	UndoLimit                int
	MasterCapSeconds         float64
	AllowWrapOverdub         bool
	AutoMuteMonitorOnOverdub bool
	LoopbackRMSThreshold     float64
}

// Coordinator owns the four Loop Tracks and the shared Transport State.
type Coordinator struct {
	cfg    Config
	events Events

	clock     *transport.Clock
	transport *transport.State
	recorder  *recorder.Recorder
	pitchPool *pitch.Pool
	source    recorder.Source

	tracks [numTracks]*track.Track

	mu                 sync.Mutex
	loopbackDetected   bool
	overdubConfirmed   bool
	overdubActive      int // count of tracks currently in Overdub, for monitor mute
	monitorMutedManual bool
	mixRec             *mixRecording

	onMonitorMute func(muted bool)
}

// New constructs a Coordinator and its four Loop Tracks, wiring Track 1's
// MasterHooks back into the coordinator's transport/re-align/loopback
// logic.
func New(cfg Config, source recorder.Source, events Events) *Coordinator {
	if events == nil {
		events = NopEvents{}
	}
	c := &Coordinator{
		cfg:       cfg,
		events:    events,
		clock:     transport.NewClock(),
		transport: &transport.State{},
		recorder:  recorder.NewRecorder(),
		pitchPool: pitch.NewPool(),
		source:    source,
	}

	for i := 1; i <= numTracks; i++ {
		index := i
		deps := track.Deps{
			Clock:            c.clock,
			Transport:        c.transport,
			Recorder:         c.recorder,
			Source:           source,
			PitchPool:        c.pitchPool,
			UndoLimit:        cfg.UndoLimit,
			MasterCapSeconds: cfg.MasterCapSeconds,
			AllowWrapOverdub: cfg.AllowWrapOverdub,
			LoopbackDetected: c.LoopbackDetected,
			ConfirmOverdub:   c.overdubIsConfirmed,
		}
		hooks := track.MasterHooks{}
		if index == 1 {
			hooks.OnRecorded = c.onMasterRecorded
			hooks.OnCleared = c.onMasterCleared
		}
		c.tracks[i-1] = track.NewTrack(index, deps, &trackEventsAdapter{c}, hooks)
	}

	return c
}

// trackEventsAdapter forwards track.Events callbacks to the coordinator's
// wider Events, and additionally tracks Overdub entry/exit for monitor
// muting (spec.md §4.4 "master bus gain is ramped to 0").
type trackEventsAdapter struct{ c *Coordinator }

func (a *trackEventsAdapter) TrackStateChanged(i int, s track.State) {
	a.c.noteOverdubTransition(s)
	a.c.events.TrackStateChanged(i, s)
}
func (a *trackEventsAdapter) TrackProgress(i int, ratio float64) { a.c.events.TrackProgress(i, ratio) }
func (a *trackEventsAdapter) PitchProgress(i int, pct float64)   { a.c.events.PitchProgress(i, pct) }
func (a *trackEventsAdapter) Error(i int, kind track.ErrorKind, msg string) {
	a.c.events.Error(i, kind, msg)
}

func (c *Coordinator) noteOverdubTransition(s track.State) {
	c.mu.Lock()
	if s == track.Overdub {
		c.overdubActive++
	}
	// Entering any state other than Overdub from Overdub is not
	// distinguishable here without the prior state, so SetMonitorMuteHook
	// consumers rely on the count only going up on entry; track.go never
	// re-enters Overdub without first leaving it, and every exit path
	// (Playing or Stopped) calls setState exactly once, so we decrement on
	// every non-Overdub notification guarded by a floor of zero.
	if s != track.Overdub && c.overdubActive > 0 {
		c.overdubActive--
	}
	autoMuted := c.cfg.AutoMuteMonitorOnOverdub && c.overdubActive > 0
	muted := autoMuted || c.monitorMutedManual
	c.mu.Unlock()

	if c.onMonitorMute != nil {
		c.onMonitorMute(muted)
	}
}

// SetMonitorMuteHook wires a callback the coordinator invokes with true
// when any track enters Overdub and false when the last one leaves, so a
// caller can ramp internal/audio.LiveFeed's gain (AUTO_MUTE_MONITOR_ON_OVERDUB).
func (c *Coordinator) SetMonitorMuteHook(fn func(muted bool)) {
	c.onMonitorMute = fn
}

func (c *Coordinator) onMasterRecorded(duration, loopStart float64) {
	c.transport.SetMaster(duration, loopStart)
	snap := c.transport.Get()
	c.events.TransportChanged(snap.Duration, snap.BPM)

	now := c.clock.Now()
	for _, t := range c.tracks[1:] {
		t.Realign(now)
	}
}

func (c *Coordinator) onMasterCleared() {
	c.transport.Clear()
	c.events.TransportChanged(0, 0)
	for _, t := range c.tracks[1:] {
		t.Clear()
	}
}

// Track returns the Loop Track at index i (1-based). Panics on an invalid
// index, mirroring how callers are expected to validate indices from a
// fixed four-track command surface before reaching the coordinator.
func (c *Coordinator) Track(i int) *track.Track {
	return c.tracks[i-1]
}

// Press dispatches Press to track i.
func (c *Coordinator) Press(ctx context.Context, i int) error {
	if i < 1 || i > numTracks {
		return fmt.Errorf("%w: invalid track index %d", track.ErrInvalidState, i)
	}
	return c.tracks[i-1].Press(ctx)
}

// Stop dispatches Stop to track i.
func (c *Coordinator) Stop(i int) error {
	if i < 1 || i > numTracks {
		return fmt.Errorf("%w: invalid track index %d", track.ErrInvalidState, i)
	}
	return c.tracks[i-1].Stop()
}

// Clear dispatches Clear to track i. Clearing Track 1 cascades via
// MasterHooks.OnCleared to every dependent.
func (c *Coordinator) Clear(i int) error {
	if i < 1 || i > numTracks {
		return fmt.Errorf("%w: invalid track index %d", track.ErrInvalidState, i)
	}
	c.tracks[i-1].Clear()
	return nil
}

// Undo dispatches Undo to track i.
func (c *Coordinator) Undo(i int) error {
	if i < 1 || i > numTracks {
		return fmt.Errorf("%w: invalid track index %d", track.ErrInvalidState, i)
	}
	return c.tracks[i-1].Undo()
}

// LoopbackDetected reports the last loopback probe result. Passed into
// every track's Deps.LoopbackDetected.
func (c *Coordinator) LoopbackDetected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loopbackDetected
}

func (c *Coordinator) overdubIsConfirmed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overdubConfirmed
}

// ConfirmOverdubOverride lets the operator acknowledge a detected loopback
// and proceed with overdubbing anyway (spec.md §4.7 "require explicit user
// confirm"). Sticky until explicitly revoked, since the probe only runs
// once at session start and the acoustic path it detects doesn't change
// mid-session.
func (c *Coordinator) ConfirmOverdubOverride(confirmed bool) {
	c.mu.Lock()
	c.overdubConfirmed = confirmed
	c.mu.Unlock()
}

// burstDuration is the loopback probe's test-tone length (spec.md §4.4).
const burstDuration = 120 * time.Millisecond
const burstFreqHz = 1000.0

// RunLoopbackProbe plays a 120ms sine burst and measures mic RMS against
// it, setting loopback_detected when the two correlate above threshold
// (spec.md §4.4). playBurst is the host's hook for routing the tone to the
// master bus/output device; if nil, the probe falls back to sampling
// ambient mic RMS only, which still catches a hot monitor feed bleeding
// into the mic but can't attribute it to the burst specifically.
func (c *Coordinator) RunLoopbackProbe(ctx context.Context, playBurst func(samples []float32) error) error {
	sampleRate := c.cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	n := int(burstDuration.Seconds() * float64(sampleRate))
	burst := make([]float32, n)
	for i := range burst {
		burst[i] = float32(0.5 * math.Sin(2*math.Pi*burstFreqHz*float64(i)/float64(sampleRate)))
	}
	if playBurst != nil {
		if err := playBurst(burst); err != nil {
			return fmt.Errorf("session: play loopback burst: %w", err)
		}
	}

	stream, err := c.source.Open(ctx)
	if err != nil {
		return fmt.Errorf("session: open mic for loopback probe: %w", err)
	}
	defer stream.Close()

	var samples []float32
	deadline := time.NewTimer(burstDuration + 50*time.Millisecond)
	defer deadline.Stop()

collect:
	for {
		select {
		case frame, ok := <-stream.Frames():
			if !ok {
				break collect
			}
			samples = append(samples, frame...)
			if len(samples) >= n {
				break collect
			}
		case <-stream.Ended():
			break collect
		case <-deadline.C:
			break collect
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	rms := rootMeanSquare(samples)
	threshold := c.cfg.LoopbackRMSThreshold
	if threshold <= 0 {
		threshold = 0.02
	}

	c.mu.Lock()
	c.loopbackDetected = rms > threshold
	c.mu.Unlock()
	return nil
}

func rootMeanSquare(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	squares := make([]float64, len(samples))
	for i, s := range samples {
		squares[i] = float64(s) * float64(s)
	}
	return math.Sqrt(stat.Mean(squares, nil))
}

// MixDown sums every Playing or Overdub track's buffer at its current loop
// phase into one interleaved frame of frameSamples total samples (across
// channels) at c.cfg.SampleRate/outputChannels, clipped to [-1,1]. This is
// the master bus the Remote monitor and mix-record capture read from; it
// intentionally does not run the effect chain's DSP nodes, since those are
// out of scope (spec.md §1) -- only composition/ordering/bypass is
// implemented in internal/effects.
func (c *Coordinator) MixDown(outputChannels int, frameSamples int) []float32 {
	if outputChannels <= 0 {
		outputChannels = 2
	}
	perChannel := frameSamples / outputChannels
	out := make([]float32, perChannel*outputChannels)

	now := c.clock.Now()
	for _, t := range c.tracks {
		info := t.Info()
		if info.State != track.Playing && info.State != track.Overdub {
			continue
		}
		buf := t.Buffer()
		if buf == nil || info.LoopDuration <= 0 {
			continue
		}
		mixTrackInto(out, outputChannels, perChannel, buf, info, now)
	}

	for i, v := range out {
		out[i] = clip(v)
	}
	return out
}

func mixTrackInto(out []float32, outputChannels, perChannel int, buf *audio.Buffer, info track.Info, now float64) {
	sampleRate := buf.SampleRate()
	startOffset := transport.RelativeOffset(now, info.LoopStart, info.LoopDuration)
	startSample := int(startOffset * float64(sampleRate))
	bufLen := buf.Len()
	if bufLen == 0 {
		return
	}

	numSrcChannels := buf.NumChannels()
	for i := 0; i < perChannel; i++ {
		srcIdx := (startSample + i) % bufLen
		for ch := 0; ch < outputChannels; ch++ {
			srcCh := ch
			if srcCh >= numSrcChannels {
				srcCh = numSrcChannels - 1
			}
			out[i*outputChannels+ch] = clip(out[i*outputChannels+ch] + buf.Channel(srcCh)[srcIdx])
		}
	}
}

func clip(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// AddEffect, RemoveEffect, MoveEffect, ToggleBypass, SetParam, and
// SetDivider are thin per-track passthroughs the HTTP command surface
// calls directly via Track(i); the coordinator doesn't wrap them since
// they carry no cross-track coordination (unlike Press/Stop/Clear/Undo,
// which the master-track hooks above must observe).
