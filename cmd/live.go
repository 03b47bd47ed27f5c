// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"audiostream/internal/audio"
	"audiostream/internal/config"
	"audiostream/internal/engine"
	"audiostream/internal/log"
	"audiostream/internal/tui"
)

type liveFlags struct {
	device         string
	outputDevice   string
	sampleRate     float64
	interval       int
	channels       int
	outputChannels int
	lowLatency     bool
	record         bool
	headless       bool
}

func newLiveCommand(opts *rootOptions) *cobra.Command {
	var f liveFlags
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Process an audio input device in real time",
		Long: `Process an audio input device in real time.

Keys: r starts a recording, a aborts it, q quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.apply(cmd, opts.cfg)
			if err := opts.cfg.Validate(); err != nil {
				return err
			}
			return runLive(cmd.Context(), opts.cfg, f)
		},
	}

	flags := cmd.Flags()
	def := config.Default()
	flags.StringVarP(&f.device, "device", "d", def.Audio.Device,
		"Input device: 'default', an ID from the devices command, or part of its name")
	flags.StringVar(&f.outputDevice, "output-device", def.Audio.OutputDevice,
		"Output device, same forms as --device")
	flags.Float64VarP(&f.sampleRate, "sample-rate", "s", def.Audio.SampleRate,
		"Sample rate, measured in Hertz (Hz)")
	flags.IntVarP(&f.interval, "interval", "b", def.Audio.Interval,
		"Samples per channel per processing interval (affects latency)")
	flags.IntVarP(&f.channels, "channels", "c", def.Audio.InputChannels,
		"Number of input channels (1=mono, 2=stereo)")
	flags.IntVar(&f.outputChannels, "output-channels", def.Audio.OutputChannels,
		"Number of output channels, 0 for capture only")
	flags.BoolVarP(&f.lowLatency, "low-latency", "l", def.Audio.LowLatency,
		"Use low latency mode for real-time processing")
	flags.BoolVarP(&f.record, "record", "r", false,
		"Start recording as soon as the stream runs")
	flags.BoolVar(&f.headless, "headless", false,
		"Run without the terminal UI until interrupted")
	return cmd
}

// apply copies explicitly set flags over the loaded configuration.
func (f *liveFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("device") {
		cfg.Audio.Device = f.device
	}
	if flags.Changed("output-device") {
		cfg.Audio.OutputDevice = f.outputDevice
	}
	if flags.Changed("sample-rate") {
		cfg.Audio.SampleRate = f.sampleRate
	}
	if flags.Changed("interval") {
		cfg.Audio.Interval = f.interval
	}
	if flags.Changed("channels") {
		cfg.Audio.InputChannels = f.channels
	}
	if flags.Changed("output-channels") {
		cfg.Audio.OutputChannels = f.outputChannels
	}
	if flags.Changed("low-latency") {
		cfg.Audio.LowLatency = f.lowLatency
	}
}

func runLive(parent context.Context, cfg *config.Config, f liveFlags) (err error) {
	hw, err := audio.NewHardwareDriver(audio.HardwareConfig{
		Config:           cfg.EngineConfig(),
		DeviceName:       cfg.Audio.Device,
		OutputDeviceName: cfg.Audio.OutputDevice,
		BufferLength:     cfg.Audio.BufferLength,
		LowLatency:       cfg.Audio.LowLatency,
	})
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg, hw, true)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, p.Close()) }()

	if !f.headless {
		// The terminal belongs to the UI while it runs.
		logPath := filepath.Join(os.TempDir(), "audiostream.log")
		logFile, err := os.Create(logPath)
		if err != nil {
			return err
		}
		log.SetOutput(logFile)
		defer func() {
			log.SetOutput(os.Stderr)
			logFile.Close()
			fmt.Fprintf(os.Stderr, "Log written to %s\n", logPath)
		}()
	}

	run, err := hw.Run()
	if err != nil {
		return err
	}
	defer run.Dispose()
	p.start()
	log.Infof("Live: Run %s started", run.ID())

	if f.record {
		if err := run.Post(engine.KeyDown{Value: tui.KeyRecord}); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		select {
		case <-ctx.Done():
			_ = run.Stop()
		case <-run.Done():
		}
	}()

	if f.headless {
		return run.Wait(context.Background())
	}

	uiErr := tui.RunLive(run, tui.LiveOptions{
		Title:      fmt.Sprintf("Live • %s @ %.0f Hz", cfg.Audio.Device, cfg.Audio.SampleRate),
		SampleRate: cfg.Audio.SampleRate,
		Recording:  p.recorder.Recording,
		Beats:      p.beats.Beats,
	}, tea.WithContext(ctx))
	if errors.Is(uiErr, tea.ErrProgramKilled) {
		uiErr = nil
	}
	run.Dispose()
	return errors.Join(uiErr, run.Err())
}
