package pitch

import (
	"math"
	"testing"
)

func sineWave(freqHz float64, sampleRate, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * freqHz * float64(i) / float64(sampleRate)))
	}
	return out
}

func dominantFrequency(samples []float32, sampleRate int) float64 {
	// Zero-crossing rate estimate -- good enough for a pure sine, and avoids
	// pulling in an FFT just for a test.
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] < 0) != (samples[i] < 0) {
			crossings++
		}
	}
	seconds := float64(len(samples)) / float64(sampleRate)
	return float64(crossings) / 2 / seconds
}

func TestRatioMatchesEqualTemperament(t *testing.T) {
	if r := Ratio(12); math.Abs(r-2) > 1e-9 {
		t.Errorf("Ratio(12) = %v, want 2", r)
	}
	if r := Ratio(0); r != 1 {
		t.Errorf("Ratio(0) = %v, want 1", r)
	}
	if r := Ratio(-12); math.Abs(r-0.5) > 1e-9 {
		t.Errorf("Ratio(-12) = %v, want 0.5", r)
	}
}

func TestGrainSizeSelection(t *testing.T) {
	if g := GrainSize(10000, 0); g != smallGrainSize {
		t.Errorf("short buffer: grain = %d, want %d", g, smallGrainSize)
	}
	if g := GrainSize(100000, 9); g != largeGrainSize {
		t.Errorf("large shift: grain = %d, want %d", g, largeGrainSize)
	}
	if g := GrainSize(100000, 3); g != defaultGrainSize {
		t.Errorf("default case: grain = %d, want %d", g, defaultGrainSize)
	}
}

func TestShiftChannelPreservesLength(t *testing.T) {
	in := sineWave(440, 44100, 44100)
	for _, semis := range []float64{-12, -5, 0, 5, 12} {
		out := ShiftChannel(in, semis, nil, nil)
		if len(out) != len(in) {
			t.Errorf("semis=%v: len(out) = %d, want %d", semis, len(out), len(in))
		}
	}
}

func TestShiftChannelZeroSemitonesApproximatesIdentity(t *testing.T) {
	in := sineWave(440, 44100, 44100)
	out := ShiftChannel(in, 0, nil, nil)

	var sumSq float64
	for i := range in {
		d := float64(out[i] - in[i])
		sumSq += d * d
	}
	rms := math.Sqrt(sumSq / float64(len(in)))
	if rms > 1e-3 {
		t.Errorf("RMS difference at 0 semitones = %v, want <= 1e-3 (windowing noise only)", rms)
	}
}

func TestShiftChannelUpOneOctaveDoublesFrequency(t *testing.T) {
	in := sineWave(440, 44100, 44100)
	out := ShiftChannel(in, 12, nil, nil)

	// Ignore the first and last grain where the overlap-add envelope is
	// still ramping up/down.
	trimmed := out[4096 : len(out)-4096]
	got := dominantFrequency(trimmed, 44100)
	if math.Abs(got-880) > 2 {
		t.Errorf("dominant frequency after +12 semis = %v, want ~880", got)
	}
}

func TestShiftChannelCancellationReturnsNil(t *testing.T) {
	in := sineWave(440, 44100, 44100)
	calls := 0
	cancel := func() bool {
		calls++
		return calls > 1
	}
	out := ShiftChannel(in, 5, nil, cancel)
	if out != nil {
		t.Fatal("expected nil result on cancellation")
	}
}

func TestShiftBufferAppliesPerChannel(t *testing.T) {
	left := sineWave(440, 44100, 44100)
	right := sineWave(220, 44100, 44100)
	out := ShiftBuffer([][]float32{left, right}, 0, nil, nil)
	if len(out) != 2 || len(out[0]) != len(left) || len(out[1]) != len(right) {
		t.Fatal("ShiftBuffer did not preserve per-channel shape")
	}
}
