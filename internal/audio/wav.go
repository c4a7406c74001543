package audio

import (
	"encoding/binary"
	"io"
)

const (
	bitDepth    = 16
	maxPCM16    = 32767
	minPCM16    = -32768
)

// WriteWAV writes the buffer as canonical PCM16 little-endian WAV: the RIFF
// header spec.md describes (RIFF|size|WAVE|fmt |16|1|channels|rate|
// byterate|blockalign|16|data|size), interleaved across channels.
func (b *Buffer) WriteWAV(w io.Writer) error {
	numChannels := b.NumChannels()
	if numChannels == 0 {
		numChannels = 1
	}
	numFrames := b.Len()
	blockAlign := numChannels * (bitDepth / 8)
	byteRate := b.sampleRate * blockAlign
	dataSize := numFrames * blockAlign
	riffSize := 36 + dataSize

	hdr := make([]byte, 44)
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(riffSize))
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], uint16(numChannels))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(b.sampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(hdr[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(hdr[34:36], bitDepth)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], uint32(dataSize))

	if _, err := w.Write(hdr); err != nil {
		return err
	}

	frame := make([]byte, blockAlign)
	for i := 0; i < numFrames; i++ {
		for c := 0; c < numChannels; c++ {
			sample := sampleAt(b, c, i)
			binary.LittleEndian.PutUint16(frame[c*2:c*2+2], uint16(int16(sample)))
		}
		if _, err := w.Write(frame); err != nil {
			return err
		}
	}
	return nil
}

func sampleAt(b *Buffer, channel, index int) int32 {
	var v float32
	if channel < len(b.channels) {
		v = b.channels[channel][index]
	}
	scaled := float64(v) * 32767.0
	if scaled > maxPCM16 {
		scaled = maxPCM16
	}
	if scaled < minPCM16 {
		scaled = minPCM16
	}
	return int32(scaled)
}
