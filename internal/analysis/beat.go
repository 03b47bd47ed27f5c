// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"sync/atomic"

	"audiostream/internal/engine"
	"audiostream/internal/fault"
	"audiostream/internal/log"
	"audiostream/internal/transport"
)

// Beat is posted as the value of a Message command when an onset is found.
type Beat struct {
	Position int64
	Energy   float64
}

// BeatConfig configures a BeatDetector.
type BeatConfig struct {
	Threshold      float64 // minimum RMS energy of an onset interval
	MinEnergyRatio float64 // minimum energy increase over the previous interval
	Cooldown       int64   // minimum distance in samples between beats
}

// BeatDetector is a consumer stage detecting onsets from interval energy. It
// posts a Message carrying a Beat back into the run, so every stage sees
// the beat in order with the intervals, and sends a kick event to the
// transport.
type BeatDetector struct {
	engine.NopHandler

	cfg        BeatConfig
	transport  transport.Transport
	lastEnergy float64
	lastBeat   int64
	beats      atomic.Int64
}

func NewBeatDetector(cfg BeatConfig, t transport.Transport) (*BeatDetector, error) {
	if cfg.Threshold < 0 || cfg.MinEnergyRatio < 0 || cfg.Cooldown < 0 {
		return nil, fault.Configf("beat detector parameters must not be negative: %+v", cfg)
	}
	log.Debugf("Analysis: BeatDetector (threshold %.2f, min ratio %.2f, cooldown %d)",
		cfg.Threshold, cfg.MinEnergyRatio, cfg.Cooldown)
	d := &BeatDetector{cfg: cfg, transport: t}
	d.reset()
	return d, nil
}

func (d *BeatDetector) Name() string { return "beat" }

// Beats returns the number of beats detected.
func (d *BeatDetector) Beats() int64 { return d.beats.Load() }

func (d *BeatDetector) Process(ctx *engine.Context, cmd engine.Command) error {
	return engine.Dispatch(ctx, cmd, d)
}

func (d *BeatDetector) OnInterval(ctx *engine.Context, cmd engine.Interval) error {
	energy := calculateRMS(cmd.Entry.Input, cmd.Length)
	last := d.lastEnergy
	d.lastEnergy = energy

	if energy <= d.cfg.Threshold {
		return nil
	}
	if last != 0 && energy/last <= d.cfg.MinEnergyRatio {
		return nil
	}
	pos := cmd.Entry.Position
	if pos-d.lastBeat < d.cfg.Cooldown {
		return nil
	}
	d.lastBeat = pos
	d.beats.Add(1)

	if err := ctx.Post(engine.Message{Value: Beat{Position: pos, Energy: energy}}); err != nil {
		log.Debugf("BeatDetector: beat at %d not posted: %v", pos, err)
	}
	if d.transport != nil {
		event := map[string]any{"type": "event", "name": "kick", "position": pos, "energy": energy}
		if err := d.transport.Send(event); err != nil {
			log.Warnf("BeatDetector: error sending kick event: %v", err)
		}
	}
	return nil
}

func (d *BeatDetector) OnStop(*engine.Context, engine.Stop) error {
	d.reset()
	return nil
}

func (d *BeatDetector) reset() {
	d.lastEnergy = 0
	d.lastBeat = math.MinInt64 / 2
}

// calculateRMS returns the RMS over the first n samples of every channel.
func calculateRMS(channels [][]float64, n int) float64 {
	if n == 0 || len(channels) == 0 {
		return 0.0
	}
	var sumSquare float64
	for _, ch := range channels {
		for _, v := range ch[:n] {
			sumSquare += v * v
		}
	}
	return math.Sqrt(sumSquare / float64(n*len(channels)))
}
