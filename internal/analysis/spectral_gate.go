// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"math/cmplx"
	"sync/atomic"

	"audiostream/internal/dsp"
	"audiostream/internal/fault"
	"audiostream/pkg/bitint"
)

// SpectralGate is a realtime stage that removes every frequency bin whose
// single-sided amplitude within the windowed frame is below the threshold. It resynthesises the input
// with a square-root Hann window at 50% overlap, so its output is the input
// delayed by the FFT size. Output channels beyond the input wrap around the
// input channels. The stage replaces whatever earlier stages wrote.
type SpectralGate struct {
	stft      *dsp.StftSynthesis
	size      int
	threshold atomic.Uint64
}

func NewSpectralGate(inChannels, outChannels, fftSize int, threshold float64) (*SpectralGate, error) {
	if !bitint.IsPowerOfTwo(fftSize) || fftSize < 2 {
		return nil, fault.Configf("fft size must be a power of 2, got %d", fftSize)
	}
	g := &SpectralGate{size: fftSize}
	g.SetThreshold(threshold)

	window := dsp.NewWindow(dsp.SqrtHann, fftSize, true)
	stft, err := dsp.NewStftSynthesis(inChannels, outChannels, window, fftSize/2, g.transform)
	if err != nil {
		return nil, err
	}
	g.stft = stft
	return g, nil
}

func (g *SpectralGate) Name() string { return "spectral-gate" }

// SetThreshold sets the amplitude below which bins are removed, clamped to
// [0, 1]. Safe to call while running.
func (g *SpectralGate) SetThreshold(threshold float64) {
	if math.IsNaN(threshold) || threshold < 0 {
		threshold = 0
	}
	g.threshold.Store(math.Float64bits(min(threshold, 1)))
}

func (g *SpectralGate) Threshold() float64 {
	return math.Float64frombits(g.threshold.Load())
}

// Latency is the delay between input and output in samples.
func (g *SpectralGate) Latency() int { return g.size }

func (g *SpectralGate) Process(input, output [][]float64, length int) error {
	g.stft.Process(input, output, length)
	return nil
}

// Reset drops the frame history and pending output. Drivers call it before
// every run.
func (g *SpectralGate) Reset() { g.stft.Reset() }

func (g *SpectralGate) transform(_ int64, input, output [][]complex128) {
	threshold := g.Threshold()
	n := float64(g.size)
	for ch, out := range output {
		in := input[ch%len(input)]
		for k := 0; k <= g.size/2; k++ {
			amp := 2 * cmplx.Abs(in[k]) / n
			if k == 0 || k == g.size/2 {
				amp /= 2
			}
			if amp >= threshold {
				out[k] = in[k]
			}
		}
		dsp.Mirror(out)
	}
}
