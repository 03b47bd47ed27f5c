// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"sync"
	"sync/atomic"

	"audiostream/internal/dsp"
	"audiostream/internal/engine"
	"audiostream/internal/fault"
	"audiostream/internal/log"
	"audiostream/pkg/bitint"
)

// SpectrumConfig configures a SpectrumAnalyzer.
type SpectrumConfig struct {
	Channels   int
	SampleRate float64
	FFTSize    int // power of two
	Shift      int // frame shift, FFTSize/2 when zero
	Window     dsp.WindowFunc
}

// SpectrumAnalyzer is a consumer stage running an STFT over the input of
// every interval. The single-sided amplitude spectrum, averaged over
// channels, is published through SpectrumProvider and handed to listeners.
type SpectrumAnalyzer struct {
	engine.NopHandler

	stft       *dsp.StftAnalysis
	fftSize    int
	sampleRate float64
	listeners  []SpectrumListener

	// Consumer goroutine only.
	amplitude []float64
	mix       []float64
	ctx       *engine.Context
	err       error

	mu        sync.RWMutex // Protects magnitude.
	magnitude []float64
	frames    atomic.Int64
}

var _ SpectrumProvider = (*SpectrumAnalyzer)(nil)
var _ engine.ConsumerStage = (*SpectrumAnalyzer)(nil)

func NewSpectrumAnalyzer(cfg SpectrumConfig) (*SpectrumAnalyzer, error) {
	if !bitint.IsPowerOfTwo(cfg.FFTSize) {
		return nil, fault.Configf("fft size must be a power of 2, got %d", cfg.FFTSize)
	}
	if cfg.SampleRate <= 0 {
		return nil, fault.Configf("sample rate must be positive, got %f", cfg.SampleRate)
	}
	if cfg.Shift == 0 {
		cfg.Shift = cfg.FFTSize / 2
	}

	bins := cfg.FFTSize/2 + 1
	a := &SpectrumAnalyzer{
		fftSize:    cfg.FFTSize,
		sampleRate: cfg.SampleRate,
		amplitude:  make([]float64, bins),
		mix:        make([]float64, bins),
		magnitude:  make([]float64, bins),
	}
	window := dsp.NewWindow(cfg.Window, cfg.FFTSize, true)
	stft, err := dsp.NewStftAnalysis(cfg.Channels, window, cfg.Shift, a.onSpectrum)
	if err != nil {
		return nil, err
	}
	a.stft = stft

	log.Debugf("Analysis: SpectrumAnalyzer (size %d, shift %d, %.1f Hz, window %s)",
		cfg.FFTSize, cfg.Shift, cfg.SampleRate, cfg.Window)
	return a, nil
}

func (a *SpectrumAnalyzer) Name() string { return "spectrum" }

// AddListener registers l. Listeners must be added before the first run.
func (a *SpectrumAnalyzer) AddListener(l SpectrumListener) {
	a.listeners = append(a.listeners, l)
}

func (a *SpectrumAnalyzer) Process(ctx *engine.Context, cmd engine.Command) error {
	return engine.Dispatch(ctx, cmd, a)
}

func (a *SpectrumAnalyzer) OnInterval(ctx *engine.Context, cmd engine.Interval) error {
	a.ctx = ctx
	a.stft.Process(cmd.Entry.Input, cmd.Length)
	return a.takeErr()
}

// OnStop analyses the zero-padded tail and rewinds for the next run.
func (a *SpectrumAnalyzer) OnStop(ctx *engine.Context, _ engine.Stop) error {
	a.ctx = ctx
	a.stft.Flush()
	a.stft.Reset()
	return a.takeErr()
}

func (a *SpectrumAnalyzer) takeErr() error {
	err := a.err
	a.err = nil
	return err
}

func (a *SpectrumAnalyzer) onSpectrum(position int64, spectra [][]complex128) {
	clear(a.mix)
	for _, spectrum := range spectra {
		a.amplitude = dsp.NormalizedAmplitude(spectrum, a.amplitude)
		for k, v := range a.amplitude {
			a.mix[k] += v
		}
	}
	scale := 1 / float64(len(spectra))
	for k := range a.mix {
		a.mix[k] *= scale
	}

	a.mu.Lock()
	copy(a.magnitude, a.mix)
	a.mu.Unlock()
	a.frames.Add(1)

	for _, l := range a.listeners {
		if err := l.OnSpectrum(a.ctx, position, a.mix); err != nil && a.err == nil {
			a.err = err
		}
	}
}

// Frames returns the number of spectra analysed.
func (a *SpectrumAnalyzer) Frames() int64 { return a.frames.Load() }

// GetMagnitudes returns a copy of the latest magnitudes. Use
// GetMagnitudesInto to avoid the allocation.
func (a *SpectrumAnalyzer) GetMagnitudes() []float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]float64, len(a.magnitude))
	copy(out, a.magnitude)
	return out
}

// GetMagnitudesInto copies the latest magnitudes into dst, which must hold
// exactly fftSize/2+1 values.
func (a *SpectrumAnalyzer) GetMagnitudesInto(dst []float64) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(dst) != len(a.magnitude) {
		return fmt.Errorf("destination slice length %d does not match required length %d", len(dst), len(a.magnitude))
	}
	copy(dst, a.magnitude)
	return nil
}

// GetFrequencyForBin returns 0 for bins outside [0, fftSize/2].
func (a *SpectrumAnalyzer) GetFrequencyForBin(binIndex int) float64 {
	if binIndex < 0 || binIndex > a.fftSize/2 {
		return 0.0
	}
	return float64(binIndex) * (a.sampleRate / float64(a.fftSize))
}

func (a *SpectrumAnalyzer) GetFFTSize() int        { return a.fftSize }
func (a *SpectrumAnalyzer) GetSampleRate() float64 { return a.sampleRate }
