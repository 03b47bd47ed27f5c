// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"audiostream/internal/audio"
	"audiostream/internal/config"
	"audiostream/internal/engine"
	"audiostream/internal/log"
)

func newProcessCommand(opts *rootOptions) *cobra.Command {
	var (
		interval int
		channels int
	)
	cmd := &cobra.Command{
		Use:   "process <input> [output.wav]",
		Short: "Run an audio file through the analysis stages",
		Long: `Run an audio file (WAV, AIFF, MP3 or Ogg Vorbis) through the analysis
stages as fast as they consume it. When an output path is given the
processed audio is written to it as 16-bit PCM WAV.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("interval") {
				cfg.Audio.Interval = interval
			}
			fc := audio.FileConfig{Config: cfg.EngineConfig(), InputPath: args[0]}
			if len(args) == 2 {
				fc.OutputPath = args[1]
			}
			// Stream format follows the file unless asked otherwise.
			fc.SampleRate = 0
			fc.InputChannels = 0
			fc.OutputChannels = 0
			if cmd.Flags().Changed("channels") {
				fc.InputChannels = channels
			}
			return runProcess(cmd.OutOrStdout(), cfg, fc)
		},
	}
	def := config.Default()
	cmd.Flags().IntVarP(&interval, "interval", "b", def.Audio.Interval,
		"Samples per channel per processing interval")
	cmd.Flags().IntVarP(&channels, "channels", "c", 0,
		"Number of channels to process, default all channels of the file")
	return cmd
}

func runProcess(w io.Writer, cfg *config.Config, fc audio.FileConfig) error {
	fd, err := audio.NewFileDriver(fc)
	if err != nil {
		return err
	}
	ec := fd.Config()
	cfg.Audio.SampleRate = ec.SampleRate
	cfg.Audio.InputChannels = ec.InputChannels
	cfg.Audio.OutputChannels = ec.OutputChannels
	if err := cfg.Validate(); err != nil {
		return err
	}

	p, err := newPipeline(cfg, fd, false)
	if err != nil {
		return err
	}
	defer p.Close()

	started := time.Now()
	run, err := fd.Run()
	if err != nil {
		return err
	}
	defer run.Dispose()
	p.start()
	log.Infof("Process: Run %s reading %s (%d Hz, %d channels)",
		run.ID(), fc.InputPath, fd.SourceFormat().SampleRate, fd.SourceFormat().Channels)

	<-run.Done()
	printSummary(w, run, p, ec, time.Since(started))
	return run.Err()
}

func printSummary(w io.Writer, run *engine.Context, p *pipeline, ec engine.Config, elapsed time.Duration) {
	samples := run.ProcessedSampleCount()
	audioLen := time.Duration(float64(samples) / ec.SampleRate * float64(time.Second))
	fmt.Fprintf(w, "Processed %d samples (%s of audio) in %s, run %s %s\n",
		samples, audioLen.Truncate(time.Millisecond), elapsed.Truncate(time.Millisecond), run.ID(), run.State())
	fmt.Fprintf(w, "Spectrum frames: %d, beats: %d\n", p.spectrum.Frames(), p.beats.Beats())

	energies := p.bands.Energies()
	for i, band := range p.bands.Bands() {
		fmt.Fprintf(w, "  %-8s %6.0f-%-6.0f Hz  %.3f\n", band.Name, band.LowHz, band.HighHz, energies[i])
	}
	for _, st := range run.Stages() {
		status := "ok"
		if st.Halted {
			status = "halted"
		}
		fmt.Fprintf(w, "  stage %-14s %8d commands  %s\n", st.Name, st.Processed, status)
	}
}
