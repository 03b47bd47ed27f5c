// SPDX-License-Identifier: MIT
package dsp

import "math/cmplx"

// NormalizedAmplitude converts a full length-n spectrum into n/2+1 single-sided
// amplitudes scaled so a unit sinusoid reads 1.0. DC and Nyquist are scaled by
// 1/n, the remaining bins by 2/n. dst is reused when it has enough capacity.
func NormalizedAmplitude(spectrum []complex128, dst []float64) []float64 {
	n := len(spectrum)
	if n == 0 {
		return dst[:0]
	}
	half := n/2 + 1
	if cap(dst) < half {
		dst = make([]float64, half)
	}
	dst = dst[:half]

	scale := 1.0 / float64(n)
	dst[0] = cmplx.Abs(spectrum[0]) * scale
	for k := 1; k < half; k++ {
		dst[k] = 2 * cmplx.Abs(spectrum[k]) * scale
	}
	if n%2 == 0 && n > 1 {
		dst[n/2] = cmplx.Abs(spectrum[n/2]) * scale
	}
	return dst
}

// Mirror rebuilds the redundant half of a conjugate-symmetric spectrum from
// bins [1, n/2): bin n-k becomes the conjugate of bin k. Bin 0 and, for even
// n, bin n/2 are left untouched.
func Mirror(spectrum []complex128) {
	n := len(spectrum)
	for k := 1; k < (n+1)/2; k++ {
		spectrum[n-k] = cmplx.Conj(spectrum[k])
	}
}
