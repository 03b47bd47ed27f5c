// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode"

	"audiostream/internal/engine"
	"audiostream/internal/fault"
	"audiostream/internal/log"
)

// Key bindings understood by Controls.
const (
	KeyRecord = 'r'
	KeyAbort  = 'a'
	KeyQuit   = 'q'
)

// Controls is a consumer stage turning KeyDown commands into recording and
// stop commands. Keys arrive in stream order, so a recording started with
// KeyRecord begins at the interval following the key press.
type Controls struct {
	engine.NopHandler

	outputDir  string
	maxSamples int64
	now        func() time.Time
}

// NewControls records into outputDir. maxSamples <= 0 records until
// aborted or stopped.
func NewControls(outputDir string, maxSamples int64) *Controls {
	return &Controls{outputDir: outputDir, maxSamples: maxSamples, now: time.Now}
}

func (c *Controls) Name() string { return "controls" }

func (c *Controls) Process(ctx *engine.Context, cmd engine.Command) error {
	return engine.Dispatch(ctx, cmd, c)
}

func (c *Controls) OnKeyDown(ctx *engine.Context, cmd engine.KeyDown) error {
	var err error
	switch unicode.ToLower(cmd.Value) {
	case KeyRecord:
		if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create recording directory %s: %w", c.outputDir, err)
		}
		path := filepath.Join(c.outputDir, c.recordingName())
		log.Infof("Controls: Recording to %s", path)
		err = ctx.Post(engine.RecordingStart{Path: path, MaxSamples: c.maxSamples})
	case KeyAbort:
		err = ctx.Post(engine.RecordingAbort{})
	case KeyQuit:
		err = ctx.Stop()
	default:
		log.Debugf("Controls: Ignoring key %q", cmd.Value)
	}
	// Keys pressed after the run began stopping have nothing to act on.
	if errors.Is(err, fault.ErrOperation) {
		return nil
	}
	return err
}

func (c *Controls) recordingName() string {
	return fmt.Sprintf("recording-%s.wav", c.now().UTC().Format("02-01-2006-150405"))
}
