// Package mixer implements the Overdub Mixer (spec.md §4.5): reconciling an
// overdub capture against the track's existing loop buffer by sample rate
// and length, summing the two, and clipping the result back into [-1, 1].
package mixer

import "github.com/jstrand/loopdeck/internal/audio"

// Policy controls length reconciliation when an overdub capture doesn't
// land exactly on the base loop's sample count.
type Policy struct {
	// AllowWrap: when the overlay is longer than the base loop, wrap the
	// excess around to the start and add it in rather than truncating it
	// (spec.md §4.5, gated by the ALLOW_WRAP_OVERDUB config flag).
AllowWrap bool
}

// Mix reconciles overlay onto base and returns a new Buffer the length of
// base. base and overlay are never mutated.
func Mix(base, overlay *audio.Buffer, policy Policy) *audio.Buffer {
	if overlay.SampleRate() != base.SampleRate() {
		overlay = audio.Resample(overlay, base.SampleRate())
	}

	n := base.Len()
	numCh := max(base.NumChannels(), overlay.NumChannels())
	channels := make([][]float32, numCh)

	for c := 0; c < numCh; c++ {
		out := make([]float32, n)
		if c < base.NumChannels() {
			copy(out, base.Channel(c))
		}

		var overlayCh []float32
		if c < overlay.NumChannels() {
			overlayCh = overlay.Channel(c)
		}

		m := len(overlayCh)
		switch {
		case m <= n:
			for i := 0; i < m; i++ {
				out[i] = clip(out[i] + overlayCh[i])
			}
		case policy.AllowWrap:
			for i := 0; i < m; i++ {
				out[i%n] = clip(out[i%n] + overlayCh[i])
			}
		default:
			for i := 0; i < n; i++ {
				out[i] = clip(out[i] + overlayCh[i])
			}
		}

		channels[c] = out
	}

	mixed, _ := audio.NewBuffer(base.SampleRate(), channels)
	return mixed
}

func clip(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
