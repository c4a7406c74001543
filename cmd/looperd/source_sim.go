//go:build !live

package main

import (
	"context"
	"time"

	"github.com/jstrand/loopdeck/internal/config"
	"github.com/jstrand/loopdeck/internal/recorder"
)

// newMicSource returns a synthetic silence source for development builds
// without the "live" tag, so looperd runs end to end (HTTP commands,
// transport, mixdown, monitor feed) without real audio hardware attached.
func newMicSource(cfg config.Config) recorder.Source {
	return &simSource{sampleRate: cfg.SampleRate, channels: 1}
}

type simSource struct {
	sampleRate int
	channels   int
}

func (s *simSource) SampleRate() int  { return s.sampleRate }
func (s *simSource) NumChannels() int { return s.channels }

func (s *simSource) Open(ctx context.Context) (recorder.Stream, error) {
	st := &simStream{
		frames: make(chan []float32, 4),
		ended:  make(chan struct{}),
	}
	go st.run(ctx, s.sampleRate, s.channels)
	return st, nil
}

type simStream struct {
	frames chan []float32
	ended  chan struct{}
}

func (s *simStream) Frames() <-chan []float32 { return s.frames }
func (s *simStream) Ended() <-chan struct{}   { return s.ended }
func (s *simStream) Close()                   {}

func (s *simStream) run(ctx context.Context, sampleRate, channels int) {
	defer close(s.ended)
	const frameDuration = 20 * time.Millisecond
	perChannel := int(frameDuration.Seconds() * float64(sampleRate))
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame := make([]float32, perChannel*channels)
			select {
			case s.frames <- frame:
			case <-ctx.Done():
				return
			}
		}
	}
}
