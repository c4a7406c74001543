package audio

import (
	"context"
	"sync"
	"time"
)

// DefaultFrameDuration is the PCM frame length LiveFeed ticks at, matching
// the 20ms frame the stream package's WebRTC/Opus path expects.
const DefaultFrameDuration = 20 * time.Millisecond

// gainStep is the per-frame ramp rate for SetMuted transitions: a mute or
// unmute reaches its target gain over about ten frames (200ms at the
// default frame duration) rather than a click-inducing hard cut.
const gainStep = 0.1

// Smoothstep returns the smoothstep interpolation for t in [0,1]: 3t^2-2t^3.
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// LiveFeed ticks the Session Coordinator's mixed master bus output out as
// interleaved int16 PCM frames for internal/stream's Broadcaster. Muting
// (spec.md's AUTO_MUTE_MONITOR_ON_OVERDUB) ramps gain with a smoothstep
// curve across a handful of frames instead of cutting it instantly.
type LiveFeed struct {
	sampleRate int
	channels   int
	duration   time.Duration
	frameCh    chan []int16

	mu         sync.Mutex
	gain       float64
	targetGain float64
}

// NewLiveFeed creates a feed at sampleRate/channels, ticking frames of
// duration length. Starts unmuted.
func NewLiveFeed(sampleRate, channels int, duration time.Duration) *LiveFeed {
	if duration <= 0 {
		duration = DefaultFrameDuration
	}
	return &LiveFeed{
		sampleRate: sampleRate,
		channels:   channels,
		duration:   duration,
		frameCh:    make(chan []int16, 8),
		gain:       1,
		targetGain: 1,
	}
}

// Frames returns the outgoing PCM frame channel, closed when Run returns.
func (f *LiveFeed) Frames() <-chan []int16 {
	return f.frameCh
}

// FrameSamples returns the number of interleaved int16 samples per frame.
func (f *LiveFeed) FrameSamples() int {
	perChannel := int(f.duration.Milliseconds()) * f.sampleRate / 1000
	return perChannel * f.channels
}

// SetMuted ramps the monitor gain toward 0 (muted) or 1 (open).
func (f *LiveFeed) SetMuted(muted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if muted {
		f.targetGain = 0
	} else {
		f.targetGain = 1
	}
}

// Run pulls one frame's worth of interleaved float32 samples from pull every
// tick and ticks them out as gain-ramped int16 PCM until ctx is done.
func (f *LiveFeed) Run(ctx context.Context, pull func(frameSamples int) []float32) {
	defer close(f.frameCh)

	frameSamples := f.FrameSamples()
	ticker := time.NewTicker(f.duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		raw := pull(frameSamples)
		out := make([]int16, len(raw))
		g := f.stepGain()
		for i, s := range raw {
			v := float64(s) * g
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			out[i] = int16(v * 32767)
		}

		select {
		case f.frameCh <- out:
		case <-ctx.Done():
			return
		}
	}
}

func (f *LiveFeed) stepGain() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gain < f.targetGain {
		f.gain += gainStep
		if f.gain > f.targetGain {
			f.gain = f.targetGain
		}
	} else if f.gain > f.targetGain {
		f.gain -= gainStep
		if f.gain < f.targetGain {
			f.gain = f.targetGain
		}
	}
	return Smoothstep(f.gain)
}
