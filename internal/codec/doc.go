// SPDX-License-Identifier: MIT

// Package codec reads and writes audio files in fixed-size per-channel
// blocks. Readers exist for WAV, AIFF, MP3 and Ogg Vorbis, selected by file
// extension; writers produce 16-bit PCM WAV.
//
// Samples are float64 in [-1, 1). Integer PCM maps through a fixed 2^(bits-1)
// scale, so 16-bit data uses 2^15; writing clamps to the integer range.
package codec
