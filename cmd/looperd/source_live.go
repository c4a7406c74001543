//go:build live

package main

import (
	"log"

	"github.com/jstrand/loopdeck/internal/config"
	"github.com/jstrand/loopdeck/internal/device"
	"github.com/jstrand/loopdeck/internal/device/portaudio"
	"github.com/jstrand/loopdeck/internal/recorder"
)

// newMicSource opens the default PortAudio input device and wraps it as a
// recorder.Source. Built only under the "live" tag (see internal/device).
func newMicSource(cfg config.Config) recorder.Source {
	const framesPerBuffer = 960
	mic, err := portaudio.OpenMic(cfg.SampleRate, 1, framesPerBuffer)
	if err != nil {
		log.Fatalf("looperd: open PortAudio input: %v", err)
	}
	return device.NewMicSourceAdapter(mic, framesPerBuffer)
}
