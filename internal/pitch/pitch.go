// Package pitch implements the granular (overlap-add) offline pitch
// shifter: given a channel of samples and a semitone offset, it produces a
// same-length channel whose perceived pitch has shifted by 2^(s/12), using
// short windowed grains read from the source at a different rate than they
// are written to the output.
package pitch

import (
	"math"

	"gonum.org/v1/gonum/dsp/window"
)

const (
	defaultGrainSize = 2048
	smallGrainSize   = 1024
	largeGrainSize   = 4096
	smallBufferLen   = 22050
	largeShiftSemis  = 8
	hopRatio         = 0.25
	envFloor         = 1e-8
)

// Ratio converts a semitone offset to a playback-rate ratio.
func Ratio(semitones float64) float64 {
	return math.Pow(2, semitones/12)
}

// GrainSize picks G per spec.md §4.3 step 1: smaller grains for short
// buffers (less smearing), larger grains for extreme shifts (more stable
// pitch at the cost of time resolution).
func GrainSize(bufferLen int, semitones float64) int {
	switch {
	case bufferLen < smallBufferLen:
		return smallGrainSize
	case math.Abs(semitones) > largeShiftSemis:
		return largeGrainSize
	default:
		return defaultGrainSize
	}
}

// hannWindow returns a length-G Hann window, generated with gonum's
// dsp/window package rather than a hand-rolled cosine loop.
func hannWindow(g int) []float64 {
	w := make([]float64, g)
	for i := range w {
		w[i] = 1
	}
	return window.Hann(w)
}

// ShiftChannel applies the overlap-add granular pitch shift to a single
// channel of samples, preserving length. progress, if non-nil, is invoked
// with a pct in [0,1] roughly every 32 hops; it may be called from any
// goroutine that owns this call. cancel, if non-nil, is polled at the same
// cadence; when it returns true, ShiftChannel returns the zero-length
// result immediately.
func ShiftChannel(input []float32, semitones float64, progress func(pct float64), cancel func() bool) []float32 {
	n := len(input)
	if n == 0 {
		return nil
	}

	r := Ratio(semitones)
	g := GrainSize(n, semitones)
	h := int(float64(g) * hopRatio)
	if h < 1 {
		h = 1
	}

	win := hannWindow(g)

	out := make([]float64, n)
	env := make([]float64, n)

	half := g / 2
	p := 0.0
	hopCount := 0

	for k := 0; k < n+h; k += h {
		if cancel != nil && hopCount%32 == 0 && cancel() {
			return nil
		}

		base := int(math.Floor(p)) - half
		for i := 0; i < g; i++ {
			srcIdx := base + i
			var x float64
			if srcIdx >= 0 && srcIdx < n {
				x = float64(input[srcIdx])
			}
			target := k + i - half
			if target >= 0 && target < n {
				w := win[i]
				out[target] += x * w
				env[target] += w
			}
		}

		p += r * float64(h)
		if p > float64(n)+float64(g) {
			p = math.Mod(p, float64(n))
		}

		hopCount++
		if progress != nil && hopCount%32 == 0 {
			progress(math.Min(1, float64(k)/float64(n+h)))
		}
	}

	result := make([]float32, n)
	for i, v := range out {
		e := env[i]
		if e < envFloor {
			e = envFloor
		}
		result[i] = float32(v / e)
	}

	if progress != nil {
		progress(1)
	}
	return result
}

// ShiftBuffer applies ShiftChannel to every channel of a multichannel
// buffer independently, preserving sample rate and length. It has no
// dependency on internal/audio.Buffer so it can be unit tested against raw
// slices; the adaptor lives in internal/pitch/job.go.
func ShiftBuffer(channels [][]float32, semitones float64, progress func(pct float64), cancel func() bool) [][]float32 {
	out := make([][]float32, len(channels))
	for i, ch := range channels {
		chProgress := func(pct float64) {
			if progress == nil {
				return
			}
			// Report progress across the whole buffer, not just this channel.
			overall := (float64(i) + pct) / float64(len(channels))
			progress(overall)
		}
		shifted := ShiftChannel(ch, semitones, chProgress, cancel)
		if shifted == nil && len(ch) > 0 {
			return nil // cancelled
		}
		out[i] = shifted
	}
	return out
}
