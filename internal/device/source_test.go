package device

import (
	"context"
	"testing"
	"time"
)

type fakeMic struct {
	sampleRate int
	channels   int
	fill       float32
}

func (m *fakeMic) SampleRate() int  { return m.sampleRate }
func (m *fakeMic) NumChannels() int { return m.channels }

func (m *fakeMic) ReadInto(ctx context.Context, frame []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i := range frame {
		frame[i] = m.fill
	}
	return nil
}

func (m *fakeMic) Close() error { return nil }

func TestMicSourceAdapterDeliversFrames(t *testing.T) {
	mic := &fakeMic{sampleRate: 48000, channels: 2, fill: 0.25}
	src := NewMicSourceAdapter(mic, 256)

	if got := src.SampleRate(); got != 48000 {
		t.Errorf("SampleRate() = %d, want 48000", got)
	}
	if got := src.NumChannels(); got != 2 {
		t.Errorf("NumChannels() = %d, want 2", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := src.Open(ctx)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	select {
	case frame := <-stream.Frames():
		if len(frame) != 256*2 {
			t.Errorf("frame length = %d, want %d", len(frame), 256*2)
		}
		if frame[0] != 0.25 {
			t.Errorf("frame[0] = %v, want 0.25", frame[0])
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a frame")
	}

	stream.Close()
	select {
	case <-stream.Ended():
	case <-time.After(time.Second):
		t.Fatal("stream did not signal Ended after Close")
	}
}

func TestMicSourceAdapterStopsOnContextCancel(t *testing.T) {
	mic := &fakeMic{sampleRate: 48000, channels: 1, fill: 0.1}
	src := NewMicSourceAdapter(mic, 64)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := src.Open(ctx)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	cancel()

	select {
	case <-stream.Ended():
	case <-time.After(time.Second):
		t.Fatal("stream did not end after context cancellation")
	}
}
