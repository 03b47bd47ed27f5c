// SPDX-License-Identifier: MIT

// Package analysis holds stages built on the DSP primitives: spectrum
// analysis, band energy, beat detection and spectral gating.
package analysis

import "audiostream/internal/engine"

// SpectrumProvider exposes the latest magnitude spectrum of an analyzer.
// Implementations are safe for concurrent use.
type SpectrumProvider interface {
	GetMagnitudes() []float64                // GetMagnitudes returns a copy of the latest magnitude spectrum.
	GetMagnitudesInto(dst []float64) error   // GetMagnitudesInto copies without allocating.
	GetFrequencyForBin(binIndex int) float64 // GetFrequencyForBin returns the centre frequency (Hz) of a bin.
	GetFFTSize() int
	GetSampleRate() float64
}

// SpectrumListener is fed every analysed frame on the analyzer's consumer
// goroutine. magnitudes is only valid during the call.
type SpectrumListener interface {
	OnSpectrum(ctx *engine.Context, position int64, magnitudes []float64) error
}

// SpectrumListenerFunc adapts a function to SpectrumListener.
type SpectrumListenerFunc func(ctx *engine.Context, position int64, magnitudes []float64) error

func (f SpectrumListenerFunc) OnSpectrum(ctx *engine.Context, position int64, magnitudes []float64) error {
	return f(ctx, position, magnitudes)
}
