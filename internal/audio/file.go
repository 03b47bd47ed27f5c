// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"

	"audiostream/internal/codec"
	"audiostream/internal/engine"
	"audiostream/internal/fault"
)

var openCodec = codec.Open

// FileConfig configures a FileDriver. Zero SampleRate and InputChannels are
// taken from the input file; a zero OutputChannels defaults to the input
// channel count when OutputPath is set.
type FileConfig struct {
	engine.Config
	InputPath  string
	OutputPath string
}

// FileDriver streams an audio file through the stages as fast as they
// consume it, optionally writing the processed output to a WAV file.
type FileDriver struct {
	*engine.Driver

	inputPath  string
	outputPath string
	source     codec.Format
}

func NewFileDriver(cfg FileConfig) (*FileDriver, error) {
	if cfg.InputPath == "" {
		return nil, fault.Configf("input path is required")
	}
	r, err := openCodec(cfg.InputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrConfiguration, err)
	}
	format := r.Format()
	if err := r.Close(); err != nil {
		return nil, fmt.Errorf("failed to close %s: %w", cfg.InputPath, err)
	}

	ec := cfg.Config
	switch {
	case ec.SampleRate == 0:
		ec.SampleRate = float64(format.SampleRate)
	case ec.SampleRate != float64(format.SampleRate):
		return nil, fault.Configf("%s is sampled at %d Hz, config requests %g Hz",
			cfg.InputPath, format.SampleRate, ec.SampleRate)
	}
	if ec.InputChannels == 0 {
		ec.InputChannels = format.Channels
	}
	if ec.OutputChannels == 0 && cfg.OutputPath != "" {
		ec.OutputChannels = ec.InputChannels
	}

	d, err := engine.NewDriver(ec, false)
	if err != nil {
		return nil, err
	}
	return &FileDriver{
		Driver:     d,
		inputPath:  cfg.InputPath,
		outputPath: cfg.OutputPath,
		source:     format,
	}, nil
}

// SourceFormat is the format of the input file.
func (f *FileDriver) SourceFormat() codec.Format { return f.source }

// Run opens the files and starts a run. The output file is finalized once
// the run completes.
func (f *FileDriver) Run() (*engine.Context, error) {
	if f.Running() {
		return nil, fault.Operationf("file driver is already running")
	}
	r, err := openCodec(f.inputPath)
	if err != nil {
		return nil, err
	}

	backend := &engine.OfflineBackend{Source: r}
	var w codec.Writer
	if f.outputPath != "" && f.Config().OutputChannels > 0 {
		cfg := f.Config()
		w, err = codec.Create(f.outputPath, codec.Format{
			SampleRate: int(cfg.SampleRate),
			Channels:   cfg.OutputChannels,
		})
		if err != nil {
			return nil, errors.Join(err, r.Close())
		}
		backend.Sink = w
	}
	backend.Close = func() error {
		err := r.Close()
		if w != nil {
			err = errors.Join(err, w.Close())
		}
		return err
	}

	ctx, err := f.Launch(backend, engine.DefaultOfflineRingEntries)
	if err != nil {
		return nil, errors.Join(err, backend.Close())
	}
	return ctx, nil
}
