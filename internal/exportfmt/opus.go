// Package exportfmt implements the compressed fallback export path: Opus
// encoding of an audio.Buffer, for callers that want a smaller artifact than
// the canonical WAV export (spec.md §6, "Export").
package exportfmt

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jstrand/loopdeck/internal/audio"
	"gopkg.in/hraban/opus.v2"
)

// frameSamplesPerChannel is the Opus frame length (20ms at 48kHz); buffers
// at other sample rates are still encoded frame-by-frame at this many
// samples per channel, matching the ratio Opus expects for its frame sizes.
const frameSamplesPerChannel = 960

// WriteOpus encodes buf as a sequence of length-prefixed Opus packets: each
// entry is a uint32 big-endian byte count followed by that many bytes. This
// mirrors the WebRTC monitor path's encoder settings so a recorded loop and
// its live-monitored counterpart compress the same way.
func WriteOpus(w io.Writer, buf *audio.Buffer, bitrate int) error {
	numChannels := buf.NumChannels()
	if numChannels == 0 {
		return fmt.Errorf("exportfmt: buffer has no channels")
	}
	if numChannels > 2 {
		return fmt.Errorf("exportfmt: opus export supports mono or stereo, got %d channels", numChannels)
	}

	enc, err := opus.NewEncoder(buf.SampleRate(), numChannels, opus.AppAudio)
	if err != nil {
		return fmt.Errorf("exportfmt: create encoder: %w", err)
	}
	if bitrate > 0 {
		enc.SetBitrate(bitrate)
	}

	n := buf.Len()
	pcm := make([]int16, frameSamplesPerChannel*numChannels)
	opusBuf := make([]byte, 4000)
	lenPrefix := make([]byte, 4)

	for start := 0; start < n; start += frameSamplesPerChannel {
		end := start + frameSamplesPerChannel
		if end > n {
			end = n
		}
		frameLen := end - start

		for i := range pcm {
			pcm[i] = 0
		}
		for c := 0; c < numChannels; c++ {
			ch := buf.Channel(c)
			for i := 0; i < frameLen; i++ {
				pcm[i*numChannels+c] = int16FromFloat(ch[start+i])
			}
		}

		encoded, err := enc.Encode(pcm, opusBuf)
		if err != nil {
			return fmt.Errorf("exportfmt: encode frame at %d: %w", start, err)
		}

		binary.BigEndian.PutUint32(lenPrefix, uint32(encoded))
		if _, err := w.Write(lenPrefix); err != nil {
			return err
		}
		if _, err := w.Write(opusBuf[:encoded]); err != nil {
			return err
		}
	}

	return nil
}

func int16FromFloat(v float32) int16 {
	scaled := float64(v) * 32767.0
	if scaled > 32767 {
		scaled = 32767
	}
	if scaled < -32768 {
		scaled = -32768
	}
	return int16(scaled)
}
