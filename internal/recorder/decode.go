package recorder

import (
	"fmt"

	"github.com/jstrand/loopdeck/internal/audio"
)

// decodeInterleaved de-interleaves captured raw frames into a channel-major
// audio.Buffer. Spec.md §4.2 calls this step "decode" because a real
// microphone backend hands back container-encoded bytes; the synthetic and
// PortAudio sources in this module already produce float32 PCM, so this is
// the de-interleave + shape-check step rather than a codec.
func decodeInterleaved(raw []float32, numChannels, sampleRate int) (*audio.Buffer, error) {
	if numChannels <= 0 {
		return nil, fmt.Errorf("%w: invalid channel count %d", ErrDecodeFailed, numChannels)
	}
	if len(raw)%numChannels != 0 {
		return nil, fmt.Errorf("%w: %d samples not divisible by %d channels", ErrDecodeFailed, len(raw), numChannels)
	}

	frames := len(raw) / numChannels
	channels := make([][]float32, numChannels)
	for c := range channels {
		channels[c] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for c := 0; c < numChannels; c++ {
			channels[c][i] = raw[i*numChannels+c]
		}
	}

	return audio.NewBuffer(sampleRate, channels)
}
