package audiocapture

import (
	"math"
)

// bitDepth is the sample format of every artifact, independent of the device.
const bitDepth = 16

// toPCM16 clamps float samples to [-1, 1] and scales them to signed 16-bit.
// The result is appended to dst.
func toPCM16(dst []int, src []float32) []int {
	for _, s := range src {
		dst = append(dst, int(math.Round(float64(clamp(s))*math.MaxInt16)))
	}
	return dst
}

// clamp limits s to [-1, 1] and maps NaN to silence.
func clamp(s float32) float32 {
	switch {
	case s > 1:
		return 1
	case s < -1:
		return -1
	case math.IsNaN(float64(s)):
		return 0
	}
	return s
}

// levelMeter accumulates the RMS level of a recording.
type levelMeter struct {
	sum   float64
	count int64
}

func (m *levelMeter) add(samples []float32) {
	for _, s := range samples {
		v := float64(clamp(s))
		m.sum += v * v
	}
	m.count += int64(len(samples))
}

func (m *levelMeter) rms() float32 {
	if m.count == 0 {
		return 0
	}
	return float32(math.Sqrt(m.sum / float64(m.count)))
}
