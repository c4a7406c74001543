// Package recorder implements the Recording Lease and the capture
// coordinator: at-most-one active capture process-wide, a timeout watchdog,
// and decode-on-stop into an audio.Buffer (spec.md §4.2).
package recorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jstrand/loopdeck/internal/audio"
)

// maxWatchdog caps the timeout guard at 120s even for very long expected
// durations (spec.md §4.2: "min(expected_ms + 2000, 120000) ms").
const maxWatchdog = 120 * time.Second
const watchdogSlack = 2 * time.Second

// Handle identifies an in-flight capture so the caller can Stop or Abort it.
type Handle struct {
	ID string

	stopOnce  sync.Once
	abortOnce sync.Once
	stopCh    chan struct{}
	abortCh   chan struct{}
	stream    Stream
}

// Recorder serializes capture operations behind a single Lease and decodes
// the result into an audio.Buffer on stop.
type Recorder struct {
	lease *Lease
}

// NewRecorder creates a Recorder backed by a fresh Lease.
func NewRecorder() *Recorder {
	return &Recorder{lease: NewLease()}
}

// Start begins a capture from source, expected to last roughly expected.
// onData is called with each raw interleaved frame as it arrives; onStop is
// called exactly once with the decoded Audio Buffer when capture ends
// (naturally, by timeout, or by an explicit Stop); onError is called
// instead of onStop on failure. Start returns ErrRecorderBusy without
// touching any state if the Lease is already held by a live capture.
func (r *Recorder) Start(
	ctx context.Context,
	source Source,
	expected time.Duration,
	onData func([]float32),
	onStop func(*audio.Buffer),
	onError func(error),
) (*Handle, error) {
	if !r.lease.Acquire() {
		return nil, ErrRecorderBusy
	}

	stream, err := source.Open(ctx)
	if err != nil {
		r.lease.Release()
		return nil, fmt.Errorf("%w: %v", ErrMicUnavailable, err)
	}

	handle := &Handle{
		ID:      uuid.NewString(),
		stopCh:  make(chan struct{}),
		abortCh: make(chan struct{}),
		stream:  stream,
	}

	watchdog := expected + watchdogSlack
	if watchdog > maxWatchdog {
		watchdog = maxWatchdog
	}

	go r.run(ctx, handle, source, watchdog, onData, onStop, onError)

	return handle, nil
}

func (r *Recorder) run(
	ctx context.Context,
	h *Handle,
	source Source,
	watchdog time.Duration,
	onData func([]float32),
	onStop func(*audio.Buffer),
	onError func(error),
) {
	defer r.lease.Release()
	defer h.stream.Close()

	timer := time.NewTimer(watchdog)
	defer timer.Stop()

	var raw []float32
	var aborted bool

	for {
		select {
		case <-ctx.Done():
			aborted = true
			goto finish
		case <-h.abortCh:
			aborted = true
			goto finish
		case <-h.stopCh:
			goto finish
		case <-timer.C:
			goto finish
		case <-h.stream.Ended():
			goto finish
		case frame, ok := <-h.stream.Frames():
			if !ok {
				goto finish
			}
			raw = append(raw, frame...)
			if onData != nil {
				onData(frame)
			}
		}
	}

finish:
	if aborted {
		return
	}

	buf, err := decodeInterleaved(raw, source.NumChannels(), source.SampleRate())
	if err != nil {
		if onError != nil {
			onError(err)
		}
		return
	}
	if onStop != nil {
		onStop(buf)
	}
}

// Stop ends capture and triggers the normal decode-and-finish path.
func (r *Recorder) Stop(h *Handle) {
	if h == nil {
		return
	}
	h.stopOnce.Do(func() { close(h.stopCh) })
}

// Abort ends capture and discards the in-flight buffer entirely; neither
// onStop nor onError fires (spec.md "Recording --Stop--> Ready (abort;
// buffer discarded)").
func (r *Recorder) Abort(h *Handle) {
	if h == nil {
		return
	}
	h.abortOnce.Do(func() { close(h.abortCh) })
}

// LeaseHeld reports whether a capture is currently in flight.
func (r *Recorder) LeaseHeld() bool {
	return r.lease.Held()
}
