//go:build live

// Package portaudio implements the live device.MicSource and
// device.OutputSink backends over github.com/gordonklaus/portaudio. It is
// built only under the "live" tag so the core module (and its tests) stay
// free of the cgo-backed PortAudio dependency.
package portaudio

import (
	"context"
	"fmt"

	pa "github.com/gordonklaus/portaudio"
)

// Mic is a device.MicSource backed by the default PortAudio input device.
type Mic struct {
	stream     *pa.Stream
	sampleRate int
	channels   int
	buf        []float32
}

// OpenMic initializes PortAudio and opens the default input device at
// sampleRate with the given channel count and per-call frame size.
func OpenMic(sampleRate, channels, framesPerBuffer int) (*Mic, error) {
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}
	buf := make([]float32, framesPerBuffer*channels)
	stream, err := pa.OpenDefaultStream(channels, 0, float64(sampleRate), framesPerBuffer, buf)
	if err != nil {
		pa.Terminate()
		return nil, fmt.Errorf("portaudio: open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		pa.Terminate()
		return nil, fmt.Errorf("portaudio: start input stream: %w", err)
	}
	return &Mic{stream: stream, sampleRate: sampleRate, channels: channels, buf: buf}, nil
}

func (m *Mic) SampleRate() int  { return m.sampleRate }
func (m *Mic) NumChannels() int { return m.channels }

// ReadInto blocks on the PortAudio stream until a buffer is ready, then
// copies it into frame. frame must be len(m.buf) long.
func (m *Mic) ReadInto(ctx context.Context, frame []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.stream.Read(); err != nil {
		return fmt.Errorf("portaudio: read: %w", err)
	}
	copy(frame, m.buf)
	return nil
}

func (m *Mic) Close() error {
	if err := m.stream.Stop(); err != nil {
		m.stream.Close()
		pa.Terminate()
		return fmt.Errorf("portaudio: stop input stream: %w", err)
	}
	if err := m.stream.Close(); err != nil {
		pa.Terminate()
		return fmt.Errorf("portaudio: close input stream: %w", err)
	}
	return pa.Terminate()
}

// Output is a device.OutputSink backed by the default PortAudio output
// device, feeding the Session Coordinator's mixed master bus to speakers.
type Output struct {
	stream     *pa.Stream
	sampleRate int
	channels   int
	buf        []float32
}

// OpenOutput initializes PortAudio and opens the default output device.
func OpenOutput(sampleRate, channels, framesPerBuffer int) (*Output, error) {
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}
	buf := make([]float32, framesPerBuffer*channels)
	stream, err := pa.OpenDefaultStream(0, channels, float64(sampleRate), framesPerBuffer, buf)
	if err != nil {
		pa.Terminate()
		return nil, fmt.Errorf("portaudio: open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		pa.Terminate()
		return nil, fmt.Errorf("portaudio: start output stream: %w", err)
	}
	return &Output{stream: stream, sampleRate: sampleRate, channels: channels, buf: buf}, nil
}

func (o *Output) SampleRate() int  { return o.sampleRate }
func (o *Output) NumChannels() int { return o.channels }

// WriteFrom copies frame into the PortAudio write buffer and blocks until
// the stream has consumed it. frame must be len(o.buf) long.
func (o *Output) WriteFrom(ctx context.Context, frame []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	copy(o.buf, frame)
	if err := o.stream.Write(); err != nil {
		return fmt.Errorf("portaudio: write: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	if err := o.stream.Stop(); err != nil {
		o.stream.Close()
		pa.Terminate()
		return fmt.Errorf("portaudio: stop output stream: %w", err)
	}
	if err := o.stream.Close(); err != nil {
		pa.Terminate()
		return fmt.Errorf("portaudio: close output stream: %w", err)
	}
	return pa.Terminate()
}
