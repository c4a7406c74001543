package audio

import (
	"math"
	"testing"
)

func TestResampleSameRateClones(t *testing.T) {
	buf, _ := NewBuffer(44100, [][]float32{{1, 2, 3}})
	out := Resample(buf, 44100)
	if !out.Equal(buf) {
		t.Fatal("resampling to same rate should yield equal content")
	}
	out.Channel(0)[0] = 99
	if buf.Channel(0)[0] == 99 {
		t.Fatal("Resample at same rate should not alias the source")
	}
}

func TestResampleChangesLengthProportionally(t *testing.T) {
	buf := Silence(44100, 1, 44100)
	out := Resample(buf, 22050)
	want := 22050
	if diff := math.Abs(float64(out.Len() - want)); diff > 1 {
		t.Errorf("Resample length = %d, want ~%d", out.Len(), want)
	}
	if out.SampleRate() != 22050 {
		t.Errorf("SampleRate = %d, want 22050", out.SampleRate())
	}
}

func TestResampleInterpolatesLinearRamp(t *testing.T) {
	ramp := make([]float32, 100)
	for i := range ramp {
		ramp[i] = float32(i) / 100
	}
	buf, _ := NewBuffer(100, [][]float32{ramp})
	out := Resample(buf, 50)
	for i, v := range out.Channel(0) {
		expected := float32(i*2) / 100
		if diff := math.Abs(float64(v - expected)); diff > 0.02 {
			t.Errorf("sample %d = %v, want ~%v", i, v, expected)
		}
	}
}
