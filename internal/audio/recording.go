// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"sync/atomic"

	"audiostream/internal/codec"
	"audiostream/internal/engine"
	"audiostream/internal/fault"
	"audiostream/internal/log"
)

// Recorder is a consumer stage writing intervals to a WAV file between
// RecordingStart and the sample limit, RecordingAbort or Stop. It records
// the processed output, or the input when the stream has no outputs.
type Recorder struct {
	engine.NopHandler

	format    codec.Format
	fromInput bool
	create    func(path string, f codec.Format) (codec.Writer, error)

	writer    codec.Writer
	path      string
	limit     int64
	captured  int64
	recording atomic.Bool
}

func NewRecorder(cfg engine.Config) *Recorder {
	channels := cfg.OutputChannels
	fromInput := channels == 0
	if fromInput {
		channels = cfg.InputChannels
	}
	return &Recorder{
		format:    codec.Format{SampleRate: int(cfg.SampleRate), Channels: channels, BitDepth: 16},
		fromInput: fromInput,
		create:    codec.Create,
	}
}

func (r *Recorder) Name() string { return "recorder" }

// Recording reports whether a file is open. Safe to call from any goroutine.
func (r *Recorder) Recording() bool { return r.recording.Load() }

func (r *Recorder) Process(ctx *engine.Context, cmd engine.Command) error {
	return engine.Dispatch(ctx, cmd, r)
}

func (r *Recorder) OnRecordingStart(_ *engine.Context, cmd engine.RecordingStart) error {
	if r.writer != nil {
		log.Warnf("Recorder: already recording to %s, ignoring start for %s", r.path, cmd.Path)
		return nil
	}
	if cmd.MaxSamples < 0 {
		return fault.Configf("negative recording limit %d", cmd.MaxSamples)
	}
	w, err := r.create(cmd.Path, r.format)
	if err != nil {
		return err
	}
	r.writer = w
	r.path = cmd.Path
	r.limit = cmd.MaxSamples
	r.captured = 0
	r.recording.Store(true)
	log.Infof("Recorder: recording to %s", cmd.Path)
	return nil
}

func (r *Recorder) OnInterval(ctx *engine.Context, cmd engine.Interval) error {
	if r.writer == nil {
		return nil
	}
	n := cmd.Length
	if r.limit > 0 {
		n = int(min(int64(n), r.limit-r.captured))
	}
	if n > 0 {
		src := cmd.Entry.Output
		if r.fromInput {
			src = cmd.Entry.Input
		}
		if err := r.writer.Drain(src, n); err != nil {
			return errors.Join(err, r.finish())
		}
		r.captured += int64(n)
	}

	if r.limit > 0 && r.captured >= r.limit {
		path, samples := r.path, r.captured
		if err := r.finish(); err != nil {
			return err
		}
		if err := ctx.Post(engine.RecordingComplete{Path: path, Samples: samples}); err != nil {
			log.Debugf("Recorder: completion not posted: %v", err)
		}
	}
	return nil
}

func (r *Recorder) OnRecordingComplete(_ *engine.Context, cmd engine.RecordingComplete) error {
	log.Infof("Recorder: %s complete (%d samples)", cmd.Path, cmd.Samples)
	return nil
}

func (r *Recorder) OnRecordingAbort(*engine.Context, engine.RecordingAbort) error {
	if r.writer == nil {
		return nil
	}
	log.Infof("Recorder: aborted %s after %d samples", r.path, r.captured)
	return r.finish()
}

func (r *Recorder) OnStop(*engine.Context, engine.Stop) error {
	return r.finish()
}

func (r *Recorder) OnJumpingWarning(_ *engine.Context, cmd engine.JumpingWarning) error {
	if r.writer != nil {
		log.Warnf("Recorder: input discontinuity at sample %d in %s", cmd.Position, r.path)
	}
	return nil
}

// finish closes the current file, keeping what was written.
func (r *Recorder) finish() error {
	if r.writer == nil {
		return nil
	}
	err := r.writer.Close()
	r.writer = nil
	r.recording.Store(false)
	return err
}
