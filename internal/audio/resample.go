package audio

// Resample performs offline linear-interpolation sample-rate conversion of
// buf to targetRate. If buf is already at targetRate, Resample returns a
// clone rather than re-deriving identical samples.
func Resample(buf *Buffer, targetRate int) *Buffer {
	if buf.sampleRate == targetRate {
		return buf.Clone()
	}

	ratio := float64(buf.sampleRate) / float64(targetRate)
	srcLen := buf.Len()
	dstLen := int(float64(srcLen) / ratio)

	channels := make([][]float32, len(buf.channels))
	for c, src := range buf.channels {
		dst := make([]float32, dstLen)
		for i := range dst {
			srcPos := float64(i) * ratio
			i0 := int(srcPos)
			frac := float32(srcPos - float64(i0))
			i1 := i0 + 1
			var s0, s1 float32
			if i0 < srcLen {
				s0 = src[i0]
			}
			if i1 < srcLen {
				s1 = src[i1]
			} else {
				s1 = s0
			}
			dst[i] = s0 + (s1-s0)*frac
		}
		channels[c] = dst
	}

	return &Buffer{sampleRate: targetRate, channels: channels}
}
