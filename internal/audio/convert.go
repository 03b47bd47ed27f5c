// SPDX-License-Identifier: MIT
package audio

import "math"

// fixedScale maps 32-bit fixed-point samples onto [-1, 1).
const fixedScale = 1 << 31

// Deinterleave converts frames of interleaved 32-bit fixed-point samples into
// per-channel floats. src holds frames*channels samples, dst at least
// channels slices of frames samples. This and Interleave are the only places
// that see the hardware sample layout.
func Deinterleave(dst [][]float64, src []int32, channels, frames int) {
	for ch := 0; ch < channels; ch++ {
		out := dst[ch][:frames]
		for i := range out {
			out[i] = float64(src[i*channels+ch]) / fixedScale
		}
	}
}

// Interleave converts per-channel floats back to interleaved 32-bit
// fixed-point samples, clamping values outside [-1, 1).
func Interleave(dst []int32, src [][]float64, channels, frames int) {
	for ch := 0; ch < channels; ch++ {
		in := src[ch][:frames]
		for i, x := range in {
			dst[i*channels+ch] = toFixed(x)
		}
	}
}

func toFixed(x float64) int32 {
	v := x * fixedScale
	if v >= math.MaxInt32 {
		return math.MaxInt32
	}
	if v <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}
