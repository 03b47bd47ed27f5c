// SPDX-License-Identifier: MIT
package dsp

import "audiostream/internal/fault"

// TransformFunc maps one input frame to one output frame. output is zeroed
// before every call.
type TransformFunc func(position int64, input, output [][]float64)

// OverlapAdd turns a stream into frames, transforms each frame and
// reconstructs a stream by accumulating the transformed frames.
//
// Accumulation rule, applied every shift samples: the first length-shift
// samples of the new frame are added to the accumulator (they overlap frames
// whose output is still pending), the last shift samples overwrite it (that
// region has already been streamed out). The overwrite doubles as the clear
// step, so no separate zeroing pass is needed.
type OverlapAdd struct {
	inChannels  int
	outChannels int
	length      int
	shift       int

	history  [][]float64
	accum    [][]float64
	inFrame  [][]float64
	outFrame [][]float64

	cursor    int
	hop       int
	processed int64

	fn TransformFunc
}

// NewOverlapAdd validates the geometry and pre-allocates every buffer.
func NewOverlapAdd(inChannels, outChannels, length, shift int, fn TransformFunc) (*OverlapAdd, error) {
	if err := validateGeometry(inChannels, length, shift); err != nil {
		return nil, err
	}
	if outChannels < 1 {
		return nil, fault.Configf("output channel count must be at least 1, got %d", outChannels)
	}
	if fn == nil {
		return nil, fault.Configf("transform callback must not be nil")
	}
	return &OverlapAdd{
		inChannels:  inChannels,
		outChannels: outChannels,
		length:      length,
		shift:       shift,
		history:     makeChannels(inChannels, length),
		accum:       makeChannels(outChannels, length),
		inFrame:     makeChannels(inChannels, length),
		outFrame:    makeChannels(outChannels, length),
		fn:          fn,
	}, nil
}

// Process consumes n samples per input channel and writes n reconstructed
// samples per output channel. input and output may alias.
func (o *OverlapAdd) Process(input, output [][]float64, n int) {
	for i := 0; i < n; i++ {
		for ch := 0; ch < o.inChannels; ch++ {
			o.history[ch][o.cursor] = input[ch][i]
		}
		for ch := 0; ch < o.outChannels; ch++ {
			output[ch][i] = o.accum[ch][o.cursor]
		}
		o.advance()
	}
}

// Drain feeds n zero samples and writes the corresponding output. Draining
// Length() samples flushes every pending frame contribution.
func (o *OverlapAdd) Drain(output [][]float64, n int) {
	for i := 0; i < n; i++ {
		for ch := 0; ch < o.inChannels; ch++ {
			o.history[ch][o.cursor] = 0
		}
		for ch := 0; ch < o.outChannels; ch++ {
			output[ch][i] = o.accum[ch][o.cursor]
		}
		o.advance()
	}
}

// Reset clears history, accumulator and counters.
func (o *OverlapAdd) Reset() {
	for ch := range o.history {
		clear(o.history[ch])
	}
	for ch := range o.accum {
		clear(o.accum[ch])
	}
	o.cursor, o.hop, o.processed = 0, 0, 0
}

func (o *OverlapAdd) Processed() int64 { return o.processed }
func (o *OverlapAdd) Length() int      { return o.length }
func (o *OverlapAdd) Shift() int       { return o.shift }

func (o *OverlapAdd) advance() {
	o.cursor++
	if o.cursor == o.length {
		o.cursor = 0
	}
	o.processed++
	o.hop++
	if o.hop != o.shift {
		return
	}
	o.hop = 0

	for ch := range o.history {
		chronological(o.inFrame[ch], o.history[ch], o.cursor)
	}
	for ch := range o.outFrame {
		clear(o.outFrame[ch])
	}
	o.fn(o.processed-int64(o.length), o.inFrame, o.outFrame)

	overlap := o.length - o.shift
	for ch := range o.accum {
		acc, frame := o.accum[ch], o.outFrame[ch]
		j := o.cursor
		for i := 0; i < o.length; i++ {
			if i < overlap {
				acc[j] += frame[i]
			} else {
				acc[j] = frame[i]
			}
			j++
			if j == o.length {
				j = 0
			}
		}
	}
}
