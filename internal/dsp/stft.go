// SPDX-License-Identifier: MIT
package dsp

import (
	"audiostream/internal/fault"

	"gonum.org/v1/gonum/dsp/fourier"
)

// SpectrumFunc receives one full-length complex spectrum per channel.
type SpectrumFunc func(position int64, spectra [][]complex128)

// SpectralTransformFunc maps the spectra of an input frame to output spectra.
// output is zeroed before every call. When only bins [0, n/2] are written,
// call Mirror on each output spectrum to restore conjugate symmetry.
type SpectralTransformFunc func(position int64, input, output [][]complex128)

// Forward transform is unscaled, the inverse applies 1/n.
type spectralCore struct {
	window  []float64
	fft     *fourier.CmplxFFT
	scratch []complex128
}

func newSpectralCore(window []float64) (spectralCore, error) {
	if len(window) == 0 {
		return spectralCore{}, fault.Configf("window must not be empty")
	}
	w := make([]float64, len(window))
	copy(w, window)
	return spectralCore{
		window:  w,
		fft:     fourier.NewCmplxFFT(len(w)),
		scratch: make([]complex128, len(w)),
	}, nil
}

func (c *spectralCore) forward(dst []complex128, frame []float64) {
	for i, x := range frame {
		c.scratch[i] = complex(x*c.window[i], 0)
	}
	c.fft.Coefficients(dst, c.scratch)
}

func (c *spectralCore) inverse(dst []float64, spectrum []complex128) {
	c.fft.Sequence(c.scratch, spectrum)
	scale := 1.0 / float64(len(c.window))
	for i := range dst {
		dst[i] = real(c.scratch[i]) * scale * c.window[i]
	}
}

// StftAnalysis windows every frame produced by Framing and hands its spectra
// to the callback. Frame length equals len(window).
type StftAnalysis struct {
	core    spectralCore
	framing *Framing
	spectra [][]complex128
	fn      SpectrumFunc
}

func NewStftAnalysis(channels int, window []float64, shift int, fn SpectrumFunc) (*StftAnalysis, error) {
	core, err := newSpectralCore(window)
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fault.Configf("spectrum callback must not be nil")
	}
	a := &StftAnalysis{
		core:    core,
		spectra: makeSpectra(channels, len(window)),
		fn:      fn,
	}
	a.framing, err = NewFraming(channels, len(window), shift, a.onFrame)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *StftAnalysis) onFrame(position int64, frame [][]float64) {
	for ch, samples := range frame {
		a.core.forward(a.spectra[ch], samples)
	}
	a.fn(position, a.spectra)
}

// Process consumes n samples per channel.
func (a *StftAnalysis) Process(input [][]float64, n int) { a.framing.Process(input, n) }

// Flush emits the final partial-hop frame, zero padded.
func (a *StftAnalysis) Flush() { a.framing.Flush() }

// Reset discards buffered samples so the next Process starts a new stream.
func (a *StftAnalysis) Reset() { a.framing.Reset() }

func (a *StftAnalysis) Length() int { return a.framing.Length() }
func (a *StftAnalysis) Shift() int  { return a.framing.Shift() }

// StftSynthesis runs a spectral transform inside OverlapAdd: each input frame
// is windowed and transformed, the callback fills output spectra, which are
// inverse transformed, windowed again and overlap-added.
type StftSynthesis struct {
	core   spectralCore
	ola    *OverlapAdd
	inSpec [][]complex128
	outSpc [][]complex128
	fn     SpectralTransformFunc
}

func NewStftSynthesis(inChannels, outChannels int, window []float64, shift int, fn SpectralTransformFunc) (*StftSynthesis, error) {
	core, err := newSpectralCore(window)
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fault.Configf("spectral transform callback must not be nil")
	}
	s := &StftSynthesis{
		core:   core,
		inSpec: makeSpectra(inChannels, len(window)),
		outSpc: makeSpectra(outChannels, len(window)),
		fn:     fn,
	}
	s.ola, err = NewOverlapAdd(inChannels, outChannels, len(window), shift, s.transform)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *StftSynthesis) transform(position int64, input, output [][]float64) {
	for ch, frame := range input {
		s.core.forward(s.inSpec[ch], frame)
	}
	for ch := range s.outSpc {
		clear(s.outSpc[ch])
	}
	s.fn(position, s.inSpec, s.outSpc)
	for ch, frame := range output {
		s.core.inverse(frame, s.outSpc[ch])
	}
}

// Process consumes n samples per input channel and writes n output samples.
func (s *StftSynthesis) Process(input, output [][]float64, n int) { s.ola.Process(input, output, n) }

// Drain feeds n zero samples, flushing pending output.
func (s *StftSynthesis) Drain(output [][]float64, n int) { s.ola.Drain(output, n) }

func (s *StftSynthesis) Reset() { s.ola.Reset() }

func (s *StftSynthesis) Length() int { return s.ola.Length() }
func (s *StftSynthesis) Shift() int  { return s.ola.Shift() }

func makeSpectra(channels, length int) [][]complex128 {
	if channels < 1 {
		return nil
	}
	backing := make([]complex128, channels*length)
	out := make([][]complex128, channels)
	for ch := range out {
		out[ch] = backing[ch*length : (ch+1)*length : (ch+1)*length]
	}
	return out
}
