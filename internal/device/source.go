package device

import (
	"context"
	"sync"

	"github.com/jstrand/loopdeck/internal/recorder"
)

// NewMicSourceAdapter wraps a continuously-open MicSource into a
// recorder.Source: each Open starts a goroutine pulling frameSamples-sized
// buffers from mic and republishing them as a fresh recorder.Stream, so the
// Recorder always sees "a fresh copy of the raw microphone tracks" (spec.md
// §4.2) even though the underlying device handle is shared across takes.
func NewMicSourceAdapter(mic MicSource, frameSamples int) recorder.Source {
	return &micSourceAdapter{mic: mic, frameSamples: frameSamples}
}

type micSourceAdapter struct {
	mic          MicSource
	frameSamples int
}

func (a *micSourceAdapter) SampleRate() int  { return a.mic.SampleRate() }
func (a *micSourceAdapter) NumChannels() int { return a.mic.NumChannels() }

func (a *micSourceAdapter) Open(ctx context.Context) (recorder.Stream, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	s := &micStream{
		frames: make(chan []float32, 4),
		ended:  make(chan struct{}),
		cancel: cancel,
	}
	go s.pump(streamCtx, a.mic, a.frameSamples*a.mic.NumChannels())
	return s, nil
}

type micStream struct {
	frames    chan []float32
	ended     chan struct{}
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (s *micStream) Frames() <-chan []float32 { return s.frames }
func (s *micStream) Ended() <-chan struct{}   { return s.ended }

func (s *micStream) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
	})
}

func (s *micStream) pump(ctx context.Context, mic MicSource, frameLen int) {
	defer close(s.ended)
	for {
		frame := make([]float32, frameLen)
		if err := mic.ReadInto(ctx, frame); err != nil {
			return
		}
		select {
		case s.frames <- frame:
		case <-ctx.Done():
			return
		}
	}
}
