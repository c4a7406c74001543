// Package device defines the microphone and output-device collaborators
// spec.md §1 scopes out as pure interfaces, plus (in device/portaudio) one
// concrete backend for them.
package device

import "context"

// MicSource is a live, continuously-open microphone capture the recorder.
// Source adaptor wraps into per-take streams (spec.md §4.2's "fresh copy
// of the raw microphone tracks", never the mixed bus).
type MicSource interface {
	SampleRate() int
	NumChannels() int
	// ReadInto blocks until it has filled frame with one buffer's worth of
	// interleaved samples, or ctx is done.
	ReadInto(ctx context.Context, frame []float32) error
	Close() error
}

// OutputSink is the live playback destination the Session Coordinator's
// master bus writes its mixed frames to.
type OutputSink interface {
	SampleRate() int
	NumChannels() int
	// WriteFrom writes one buffer's worth of interleaved samples.
	WriteFrom(ctx context.Context, frame []float32) error
	Close() error
}
