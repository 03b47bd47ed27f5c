// SPDX-License-Identifier: MIT

/*
Package bitint provides the integer helpers used to size STFT frames and
ring buffers. Every function is O(1), allocation free and safe to call
from the real-time path.

Usage:

	// Frame length covering two intervals
	frame := bitint.NextPowerOfTwo(2 * interval)

	// Verify an FFT frame length
	isValid := bitint.IsPowerOfTwo(frame)

	// Ring entries needed to hold bufferLength samples
	entries := bitint.CeilDiv(bufferLength, interval)

----------------------------------------------------------------------

NextPowerOfTwo subtracts one before taking the bit length. Without the
subtraction powers of two would be doubled:

	size = 8, size-1 = 7 (0111), bits.Len(7) = 3, 1 << 3 = 8
	size = 8,                    bits.Len(8) = 4, 1 << 4 = 16
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo checks if n is a power of 2. Powers of two have exactly one
// bit set, so n&(n-1) clears it.
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false   Not positive
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns the exponent of a power of two and -1 for anything else.
func Log2(n int) int {
	if !IsPowerOfTwo(n) {
		return -1
	}
	return bits.TrailingZeros(uint(n))
}

// CeilDiv returns ceil(a/b) for a >= 0 and b > 0.
func CeilDiv(a, b int) int {
	return (a + b - 1) / b
}
