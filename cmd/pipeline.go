// SPDX-License-Identifier: MIT
package cmd

import (
	"errors"

	"audiostream/internal/analysis"
	"audiostream/internal/audio"
	"audiostream/internal/config"
	"audiostream/internal/engine"
	"audiostream/internal/log"
	"audiostream/internal/transport"
	"audiostream/internal/transport/udp"
	"audiostream/internal/tui"
)

// driver is the part of every backend driver the pipeline needs.
type driver interface {
	AddDsp(stage any) error
	Config() engine.Config
}

// pipeline is the set of stages and transports a command runs. cfg must
// describe the driver's resolved stream.
type pipeline struct {
	spectrum *analysis.SpectrumAnalyzer
	bands    *analysis.BandEnergy
	beats    *analysis.BeatDetector
	recorder *audio.Recorder // live runs only

	transport transport.Multi
	sender    *udp.UDPSender
	publisher *udp.UDPPublisher
}

func newPipeline(cfg *config.Config, d driver, live bool) (_ *pipeline, err error) {
	ec := d.Config()
	p := &pipeline{transport: transport.Multi{transport.NewLoggingTransport()}}
	defer func() {
		if err != nil {
			err = errors.Join(err, p.Close())
		}
	}()

	if cfg.Transport.WSEnabled {
		ws, err := transport.NewWebSocketTransport(cfg.Transport.WSAddress)
		if err != nil {
			return nil, err
		}
		p.transport = append(p.transport, ws)
	}

	frame := cfg.AnalysisFrameLength()
	var stages []any

	// Realtime chain: only runs that produce output need one.
	if ec.OutputChannels > 0 {
		if thr := cfg.Analysis.SpectralGateThreshold; thr > 0 {
			gate, err := analysis.NewSpectralGate(ec.InputChannels, ec.OutputChannels, frame, thr)
			if err != nil {
				return nil, err
			}
			log.Infof("Pipeline: Spectral gate adds %d samples of latency", gate.Latency())
			stages = append(stages, gate)
		} else {
			stages = append(stages, audio.Passthrough{})
		}
		if thr := cfg.Analysis.NoiseGateThreshold; thr > 0 {
			stages = append(stages, audio.NewNoiseGate(thr))
		}
	}

	p.spectrum, err = analysis.NewSpectrumAnalyzer(analysis.SpectrumConfig{
		Channels:   ec.InputChannels,
		SampleRate: ec.SampleRate,
		FFTSize:    frame,
		Shift:      cfg.Analysis.FrameShift,
		Window:     cfg.WindowFunc(),
	})
	if err != nil {
		return nil, err
	}
	p.bands = analysis.NewBandEnergy(p.transport, p.spectrum, analysis.DefaultBands(ec.SampleRate), 1)
	p.spectrum.AddListener(p.bands)

	p.beats, err = analysis.NewBeatDetector(analysis.BeatConfig{
		Threshold:      cfg.Analysis.BeatThreshold,
		MinEnergyRatio: cfg.Analysis.BeatRatio,
		Cooldown:       cfg.BeatCooldownSamples(),
	}, p.transport)
	if err != nil {
		return nil, err
	}
	stages = append(stages, p.spectrum, p.beats)

	if live {
		p.recorder = audio.NewRecorder(ec)
		stages = append(stages, tui.NewControls(cfg.Recording.OutputDir, cfg.MaxRecordingSamples()), p.recorder)
	}

	if cfg.Transport.UDPEnabled {
		p.sender, err = udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return nil, err
		}
		p.publisher, err = udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, p.sender, p.spectrum)
		if err != nil {
			return nil, err
		}
	}

	for _, st := range stages {
		if err := d.AddDsp(st); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// start begins publishing once the run was launched.
func (p *pipeline) start() {
	if p.publisher != nil {
		p.publisher.Start()
	}
}

// Close stops publishing and closes every transport.
func (p *pipeline) Close() error {
	var errs []error
	if p.publisher != nil {
		errs = append(errs, p.publisher.Stop())
	}
	if p.sender != nil {
		errs = append(errs, p.sender.Close())
	}
	errs = append(errs, p.transport.Close())
	return errors.Join(errs...)
}
