package recorder

import "context"

// Stream is a live capture in progress: interleaved float32 frames plus an
// Ended signal, mirroring spec.md §6's "live stream with an ended signal".
// internal/device/portaudio supplies a real microphone-backed Stream; tests
// use synthetic generators.
type Stream interface {
	Frames() <-chan []float32
	Ended() <-chan struct{}
	Close()
}

// Source opens fresh capture streams. Per spec.md §4.2, the Recorder must
// always open a fresh copy of the raw microphone tracks -- never the mixed
// playback bus -- to avoid feedback.
type Source interface {
	SampleRate() int
	NumChannels() int
	Open(ctx context.Context) (Stream, error)
}
