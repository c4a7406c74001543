// Package audio implements the core PCM data model: an owned multichannel
// buffer with a sample rate, plus offline sample-rate conversion and WAV
// export. It has no notion of tracks, effects, or transport -- those live
// in the packages that consume a Buffer.
package audio

import (
	"errors"
	"fmt"
)

// ErrMismatchedChannelLength is returned by NewBuffer when channels disagree
// on sample count.
var ErrMismatchedChannelLength = errors.New("audio: channels have mismatched lengths")

// Buffer is an immutable-by-convention multichannel PCM sample store.
// Channel data is float32 in [-1, 1]. Callers that need to mutate a Buffer
// should Clone it first -- Loop Track, Overdub Mixer, and the Pitch Engine
// all follow that rule.
type Buffer struct {
	sampleRate int
	channels   [][]float32
}

// NewBuffer builds a Buffer from per-channel sample slices. All channels
// must have equal length and sampleRate must be positive.
func NewBuffer(sampleRate int, channels [][]float32) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("audio: sample rate must be positive, got %d", sampleRate)
	}
	if len(channels) == 0 {
		return &Buffer{sampleRate: sampleRate}, nil
	}
	n := len(channels[0])
	for _, ch := range channels {
		if len(ch) != n {
			return nil, ErrMismatchedChannelLength
		}
	}
	return &Buffer{sampleRate: sampleRate, channels: channels}, nil
}

// Silence returns a zeroed Buffer with the given channel count and length.
func Silence(sampleRate, numChannels, length int) *Buffer {
	channels := make([][]float32, numChannels)
	for i := range channels {
		channels[i] = make([]float32, length)
	}
	return &Buffer{sampleRate: sampleRate, channels: channels}
}

// SampleRate returns the buffer's sample rate in Hz.
func (b *Buffer) SampleRate() int { return b.sampleRate }

// NumChannels returns the channel count.
func (b *Buffer) NumChannels() int { return len(b.channels) }

// Len returns the number of samples per channel (N in spec terms).
func (b *Buffer) Len() int {
	if len(b.channels) == 0 {
		return 0
	}
	return len(b.channels[0])
}

// Duration returns N/R in seconds.
func (b *Buffer) Duration() float64 {
	if b.sampleRate == 0 {
		return 0
	}
	return float64(b.Len()) / float64(b.sampleRate)
}

// Channel returns the raw sample slice for channel i. The caller must not
// mutate the returned slice; Clone first.
func (b *Buffer) Channel(i int) []float32 {
	if i < 0 || i >= len(b.channels) {
		return nil
	}
	return b.channels[i]
}

// Clone deep-copies the buffer. Used for undo snapshots and before any
// in-place mutation.
func (b *Buffer) Clone() *Buffer {
	channels := make([][]float32, len(b.channels))
	for i, ch := range b.channels {
		channels[i] = append([]float32(nil), ch...)
	}
	return &Buffer{sampleRate: b.sampleRate, channels: channels}
}

// Equal reports whether two buffers have identical sample rate, shape, and
// content. Used by tests that check undo idempotence byte-for-byte.
func (b *Buffer) Equal(other *Buffer) bool {
	if other == nil || b.sampleRate != other.sampleRate || len(b.channels) != len(other.channels) {
		return false
	}
	for i, ch := range b.channels {
		och := other.channels[i]
		if len(ch) != len(och) {
			return false
		}
		for j, v := range ch {
			if v != och[j] {
				return false
			}
		}
	}
	return true
}
