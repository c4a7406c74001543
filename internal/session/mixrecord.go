package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jstrand/loopdeck/internal/audio"
)

// mixRecordFrame is how often StartMixRecord pulls a MixDown frame, matching
// the Remote monitor's default frame cadence (internal/audio.LiveFeed).
const mixRecordFrame = 20 * time.Millisecond

// mixRecording accumulates MixDown output while a mix-record capture is
// in flight (spec.md §6 "a separate master-mix capture sink produces an
// Audio Buffer on demand").
type mixRecording struct {
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
	channels [][]float32
}

// ToggleMonitor flips a manual mute override on the monitor feed,
// independent of the automatic overdub mute (spec.md §6 global command
// "ToggleMonitor"). The effective mute state (manual OR overdub-active) is
// reported to whatever hook SetMonitorMuteHook registered.
func (c *Coordinator) ToggleMonitor() bool {
	c.mu.Lock()
	c.monitorMutedManual = !c.monitorMutedManual
	autoMuted := c.cfg.AutoMuteMonitorOnOverdub && c.overdubActive > 0
	muted := c.monitorMutedManual || autoMuted
	c.mu.Unlock()

	if c.onMonitorMute != nil {
		c.onMonitorMute(muted)
	}
	return muted
}

// StartMixRecord begins capturing the master bus's mixdown into an Audio
// Buffer, sampled every mixRecordFrame, until StopMixRecord is called.
func (c *Coordinator) StartMixRecord(ctx context.Context, outputChannels int) error {
	if outputChannels <= 0 {
		outputChannels = 2
	}

	c.mu.Lock()
	if c.mixRec != nil {
		c.mu.Unlock()
		return fmt.Errorf("session: mix-record already in progress")
	}
	recCtx, cancel := context.WithCancel(ctx)
	rec := &mixRecording{
		cancel:   cancel,
		done:     make(chan struct{}),
		channels: make([][]float32, outputChannels),
	}
	c.mixRec = rec
	c.mu.Unlock()

	sampleRate := c.cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	perChannel := int(mixRecordFrame.Seconds() * float64(sampleRate))
	frameSamples := perChannel * outputChannels

	go func() {
		defer close(rec.done)
		ticker := time.NewTicker(mixRecordFrame)
		defer ticker.Stop()
		for {
			select {
			case <-recCtx.Done():
				return
			case <-ticker.C:
			}
			frame := c.MixDown(outputChannels, frameSamples)
			rec.mu.Lock()
			for ch := 0; ch < outputChannels; ch++ {
				for i := 0; i < perChannel; i++ {
					rec.channels[ch] = append(rec.channels[ch], frame[i*outputChannels+ch])
				}
			}
			rec.mu.Unlock()
		}
	}()

	return nil
}

// StopMixRecord ends the in-flight mix-record capture and returns the
// accumulated Audio Buffer.
func (c *Coordinator) StopMixRecord() (*audio.Buffer, error) {
	c.mu.Lock()
	rec := c.mixRec
	c.mixRec = nil
	c.mu.Unlock()

	if rec == nil {
		return nil, fmt.Errorf("session: no mix-record in progress")
	}
	rec.cancel()
	<-rec.done

	rec.mu.Lock()
	defer rec.mu.Unlock()
	sampleRate := c.cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	return audio.NewBuffer(sampleRate, rec.channels)
}
