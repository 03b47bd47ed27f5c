// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"
)

// Passthrough copies input channels to the output. Output channels beyond
// the input wrap around the input channels.
type Passthrough struct{}

func (Passthrough) Name() string { return "passthrough" }

func (Passthrough) Process(input, output [][]float64, length int) error {
	for ch := range output {
		copy(output[ch][:length], input[ch%len(input)][:length])
	}
	return nil
}

// NoiseGate silences an interval whose output peak stays below the
// threshold. It reads what earlier stages wrote, so register it after the
// stage producing the signal.
type NoiseGate struct {
	enabled   atomic.Bool
	threshold atomic.Uint64
}

// NewNoiseGate returns an enabled gate.
func NewNoiseGate(threshold float64) *NoiseGate {
	g := &NoiseGate{}
	g.SetGateThreshold(threshold)
	g.enabled.Store(true)
	return g
}

func (g *NoiseGate) Name() string { return "noise-gate" }

func (g *NoiseGate) EnableGate()  { g.enabled.Store(true) }
func (g *NoiseGate) DisableGate() { g.enabled.Store(false) }
func (g *NoiseGate) Enabled() bool {
	return g.enabled.Load()
}

// SetGateThreshold adjusts the noise gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (g *NoiseGate) SetGateThreshold(threshold float64) {
	if math.IsNaN(threshold) || threshold < 0.0 {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}
	g.threshold.Store(math.Float64bits(threshold))
}

// GetGateThreshold returns the current noise gate threshold.
func (g *NoiseGate) GetGateThreshold() float64 {
	return math.Float64frombits(g.threshold.Load())
}

func (g *NoiseGate) Process(_, output [][]float64, length int) error {
	if !g.enabled.Load() {
		return nil
	}
	threshold := g.GetGateThreshold()
	if threshold == 0 {
		return nil
	}

	var peak float64
	for ch := range output {
		for _, v := range output[ch][:length] {
			peak = max(peak, math.Abs(v))
		}
	}
	if peak < threshold {
		for ch := range output {
			clear(output[ch][:length])
		}
	}
	return nil
}
