// SPDX-License-Identifier: MIT
package dsp

import "audiostream/internal/fault"

// FrameFunc receives a frame together with the absolute stream position of its
// first sample. The frame is owned by the caller and only valid for the call.
type FrameFunc func(position int64, frame [][]float64)

// Framing converts a per-channel sample stream into frames of length samples,
// emitting one frame every shift samples.
type Framing struct {
	channels int
	length   int
	shift    int

	history   [][]float64 // per-channel circular buffer of the last length samples
	frame     [][]float64 // chronological frame handed to fn
	cursor    int         // next write index in history, also the oldest sample
	hop       int         // samples since the last frame
	processed int64

	fn FrameFunc
}

func validateGeometry(channels, length, shift int) error {
	if channels < 1 {
		return fault.Configf("channel count must be at least 1, got %d", channels)
	}
	if length <= 0 {
		return fault.Configf("frame length must be positive, got %d", length)
	}
	if shift <= 0 || shift > length {
		return fault.Configf("frame shift must be in (0, %d], got %d", length, shift)
	}
	return nil
}

// NewFraming validates the geometry and pre-allocates every buffer.
func NewFraming(channels, length, shift int, fn FrameFunc) (*Framing, error) {
	if err := validateGeometry(channels, length, shift); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fault.Configf("frame callback must not be nil")
	}
	return &Framing{
		channels: channels,
		length:   length,
		shift:    shift,
		history:  makeChannels(channels, length),
		frame:    makeChannels(channels, length),
		fn:       fn,
	}, nil
}

// Process consumes the first n samples of every channel in input.
func (f *Framing) Process(input [][]float64, n int) {
	for i := 0; i < n; i++ {
		for ch := 0; ch < f.channels; ch++ {
			f.history[ch][f.cursor] = input[ch][i]
		}
		f.advance()
	}
}

// Flush feeds zeros until the pending hop completes, so a finite stream whose
// length is not a multiple of the shift still produces its final frame.
func (f *Framing) Flush() {
	for f.hop != 0 {
		for ch := 0; ch < f.channels; ch++ {
			f.history[ch][f.cursor] = 0
		}
		f.advance()
	}
}

// Reset clears history and counters.
func (f *Framing) Reset() {
	for ch := range f.history {
		clear(f.history[ch])
	}
	f.cursor, f.hop, f.processed = 0, 0, 0
}

// Processed returns the number of samples consumed per channel.
func (f *Framing) Processed() int64 { return f.processed }

func (f *Framing) Length() int { return f.length }
func (f *Framing) Shift() int  { return f.shift }

func (f *Framing) advance() {
	f.cursor++
	if f.cursor == f.length {
		f.cursor = 0
	}
	f.processed++
	f.hop++
	if f.hop == f.shift {
		f.hop = 0
		for ch := range f.history {
			chronological(f.frame[ch], f.history[ch], f.cursor)
		}
		f.fn(f.processed-int64(f.length), f.frame)
	}
}

// chronological copies ring into dst starting at the oldest index.
func chronological(dst, ring []float64, oldest int) {
	n := copy(dst, ring[oldest:])
	copy(dst[n:], ring[:oldest])
}

func makeChannels(channels, length int) [][]float64 {
	backing := make([]float64, channels*length)
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = backing[ch*length : (ch+1)*length : (ch+1)*length]
	}
	return out
}
