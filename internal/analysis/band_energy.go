// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"sync"

	"audiostream/internal/engine"
	"audiostream/internal/log"
	"audiostream/internal/transport"
)

// FrequencyBand defines the name and frequency range for an energy band.
type FrequencyBand struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// DefaultBands covers the audible range up to the Nyquist frequency.
func DefaultBands(sampleRate float64) []FrequencyBand {
	return []FrequencyBand{
		{Name: "sub", LowHz: 20, HighHz: 60},
		{Name: "bass", LowHz: 60, HighHz: 250},
		{Name: "lowMid", LowHz: 250, HighHz: 500},
		{Name: "mid", LowHz: 500, HighHz: 2000},
		{Name: "highMid", LowHz: 2000, HighHz: 4000},
		{Name: "treble", LowHz: 4000, HighHz: sampleRate/2 + 1},
	}
}

// BandEnergy is a SpectrumListener that reduces each spectrum to the RMS
// magnitude per frequency band and sends the result to a transport.
type BandEnergy struct {
	transport transport.Transport
	provider  SpectrumProvider
	bands     []FrequencyBand
	scale     float64

	// bandOf maps every spectrum bin to its band index, or -1.
	bandOf []int
	sums   []float64
	counts []int

	mu     sync.RWMutex
	latest []float64
}

// NewBandEnergy creates a listener for the analyzer's spectrum. scale
// multiplies the per-band RMS before it is clamped to 1; zero means 1.
func NewBandEnergy(t transport.Transport, provider SpectrumProvider, bands []FrequencyBand, scale float64) *BandEnergy {
	if len(bands) == 0 {
		bands = DefaultBands(provider.GetSampleRate())
	}
	if scale == 0 {
		scale = 1
	}
	bins := provider.GetFFTSize()/2 + 1
	p := &BandEnergy{
		transport: t,
		provider:  provider,
		bands:     bands,
		scale:     scale,
		bandOf:    make([]int, bins),
		sums:      make([]float64, len(bands)),
		counts:    make([]int, len(bands)),
		latest:    make([]float64, len(bands)),
	}
	for i := range p.bandOf {
		p.bandOf[i] = -1
		freq := provider.GetFrequencyForBin(i)
		for b, band := range bands {
			if freq >= band.LowHz && freq < band.HighHz {
				p.bandOf[i] = b
				break
			}
		}
	}
	log.Debugf("Analysis: BandEnergy with %d bands", len(bands))
	return p
}

func (p *BandEnergy) OnSpectrum(_ *engine.Context, position int64, magnitudes []float64) error {
	clear(p.sums)
	clear(p.counts)
	for i, m := range magnitudes {
		if i >= len(p.bandOf) {
			break
		}
		if b := p.bandOf[i]; b >= 0 {
			p.sums[b] += m * m
			p.counts[b]++
		}
	}

	bandData := map[string]any{"type": "band_energy", "position": position}
	p.mu.Lock()
	for b, band := range p.bands {
		value := 0.0
		if p.counts[b] > 0 {
			value = math.Min(1.0, math.Sqrt(p.sums[b]/float64(p.counts[b]))*p.scale)
		}
		p.latest[b] = value
		bandData[band.Name] = value
	}
	p.mu.Unlock()

	if p.transport == nil {
		return nil
	}
	if err := p.transport.Send(bandData); err != nil {
		log.Warnf("BandEnergy: error sending band energy data: %v", err)
	}
	return nil
}

// Energies returns the latest per-band values in band order.
func (p *BandEnergy) Energies() []float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]float64, len(p.latest))
	copy(out, p.latest)
	return out
}

func (p *BandEnergy) Bands() []FrequencyBand { return p.bands }
