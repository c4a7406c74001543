package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestWriteWAVHeader(t *testing.T) {
	buf := Silence(44100, 2, 10)
	var out bytes.Buffer
	if err := buf.WriteWAV(&out); err != nil {
		t.Fatal(err)
	}
	data := out.Bytes()

	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE markers")
	}
	if string(data[12:16]) != "fmt " || string(data[36:40]) != "data" {
		t.Fatal("missing fmt /data chunk markers")
	}
	if ch := binary.LittleEndian.Uint16(data[22:24]); ch != 2 {
		t.Errorf("channel count = %d, want 2", ch)
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 44100 {
		t.Errorf("sample rate = %d, want 44100", rate)
	}
	wantDataSize := 10 * 2 * 2
	if ds := binary.LittleEndian.Uint32(data[40:44]); int(ds) != wantDataSize {
		t.Errorf("data size = %d, want %d", ds, wantDataSize)
	}
	if len(data) != 44+wantDataSize {
		t.Errorf("total length = %d, want %d", len(data), 44+wantDataSize)
	}
}

func TestWriteWAVClipsOutOfRange(t *testing.T) {
	buf, _ := NewBuffer(8000, [][]float32{{2.0, -2.0, 0.0}})
	var out bytes.Buffer
	if err := buf.WriteWAV(&out); err != nil {
		t.Fatal(err)
	}
	data := out.Bytes()[44:]
	s0 := int16(binary.LittleEndian.Uint16(data[0:2]))
	s1 := int16(binary.LittleEndian.Uint16(data[2:4]))
	if s0 != 32767 {
		t.Errorf("clipped positive sample = %d, want 32767", s0)
	}
	if s1 != -32768 {
		t.Errorf("clipped negative sample = %d, want -32768", s1)
	}
}
