// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"io"
	"math"
	"path/filepath"
	"testing"

	"audiostream/internal/codec"
	"audiostream/internal/engine"
	"audiostream/internal/fault"
)

const rampStep = 1.0 / 4096

func readWAV(t *testing.T, path string) []float64 {
	t.Helper()
	r, err := codec.Open(path)
	if err != nil {
		t.Fatalf("Open(%s): %v", path, err)
	}
	defer r.Close()

	block := [][]float64{make([]float64, 256)}
	var out []float64
	for {
		n, err := r.Fill(block)
		out = append(out, block[0][:n]...)
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Fill: %v", err)
		}
	}
}

// assertContiguous checks that samples form an unbroken slice of the ramp.
func assertContiguous(t *testing.T, samples []float64) {
	t.Helper()
	for i := 1; i < len(samples); i++ {
		if d := samples[i] - samples[i-1]; math.Abs(d-rampStep) > 1e-9 {
			t.Fatalf("discontinuity at %d: %v -> %v", i, samples[i-1], samples[i])
		}
	}
}

// newRecordingRun builds a memory run whose trigger stage reacts to
// intervals at the given positions.
func newRecordingRun(t *testing.T, out int, triggers map[int64]engine.Command) (*MemoryDriver, *Recorder, *traceConsumer) {
	t.Helper()
	input := [][]float64{ramp(4000, rampStep)}
	var output [][]float64
	for range out {
		output = append(output, make([]float64, 4000))
	}
	cfg := testConfig(1, out)
	d, err := NewMemoryDriver(cfg, input, output)
	if err != nil {
		t.Fatal(err)
	}
	rec := NewRecorder(cfg)
	trace := &traceConsumer{hook: func(ctx *engine.Context, cmd engine.Command) error {
		if iv, ok := cmd.(engine.Interval); ok {
			if next, ok := triggers[iv.Entry.Position]; ok {
				return ctx.Post(next)
			}
		}
		return nil
	}}
	for _, st := range []any{Passthrough{}, trace, rec} {
		if err := d.AddDsp(st); err != nil {
			t.Fatal(err)
		}
	}
	return d, rec, trace
}

func TestRecorderStopsAtLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limit.wav")
	d, rec, trace := newRecordingRun(t, 1, map[int64]engine.Command{
		0: engine.RecordingStart{Path: path, MaxSamples: 300},
	})

	ctx, err := d.Run()
	if err != nil {
		t.Fatal(err)
	}
	if err := waitRun(t, ctx); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if got := trace.count('C'); got != 1 {
		t.Fatalf("RecordingComplete posted %d times, trace %v", got, trace.snapshot())
	}
	samples := readWAV(t, path)
	if len(samples) != 300 {
		t.Fatalf("recorded %d samples, want 300", len(samples))
	}
	assertContiguous(t, samples)
	if samples[0] == 0 {
		t.Error("capture began before RecordingStart was dispatched")
	}
	if rec.Recording() {
		t.Error("recorder still recording after limit")
	}
}

func TestRecorderAbortKeepsPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abort.wav")
	d, rec, trace := newRecordingRun(t, 1, map[int64]engine.Command{
		0:    engine.RecordingStart{Path: path},
		1920: engine.RecordingAbort{},
	})

	ctx, err := d.Run()
	if err != nil {
		t.Fatal(err)
	}
	if err := waitRun(t, ctx); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	samples := readWAV(t, path)
	if len(samples) == 0 || len(samples)%64 != 0 {
		t.Fatalf("recorded %d samples, want a positive multiple of 64", len(samples))
	}
	assertContiguous(t, samples)
	if last := samples[len(samples)-1]; last >= 4000*rampStep-rampStep {
		t.Errorf("abort did not stop capture, last sample %v", last)
	}
	if trace.count('C') != 0 {
		t.Error("aborted recording reported completion")
	}
	if rec.Recording() {
		t.Error("recorder still recording after abort")
	}
}

func TestRecorderStopFinalizesInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.wav")
	d, rec, _ := newRecordingRun(t, 0, map[int64]engine.Command{
		0:  engine.RecordingStart{Path: path},
		64: engine.RecordingStart{Path: filepath.Join(t.TempDir(), "ignored.wav")},
	})

	ctx, err := d.Run()
	if err != nil {
		t.Fatal(err)
	}
	if err := waitRun(t, ctx); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	samples := readWAV(t, path)
	if len(samples) == 0 {
		t.Fatal("nothing recorded")
	}
	assertContiguous(t, samples)
	if got, want := samples[len(samples)-1], 3999*rampStep; math.Abs(got-want) > 1e-9 {
		t.Errorf("last sample = %v, want %v", got, want)
	}
	if rec.Recording() {
		t.Error("recorder still recording after stop")
	}
}

func TestRecorderCreateFailureHaltsStage(t *testing.T) {
	d, _, trace := newRecordingRun(t, 1, map[int64]engine.Command{
		0: engine.RecordingStart{Path: filepath.Join(t.TempDir(), "out.mp3")},
	})

	ctx, err := d.Run()
	if err != nil {
		t.Fatal(err)
	}
	err = waitRun(t, ctx)

	var failure *fault.RuntimeFailure
	if !errors.As(err, &failure) || len(failure.Errors) != 1 {
		t.Fatalf("error = %v, want one runtime failure", err)
	}
	if !errors.Is(err, codec.ErrUnsupportedFormat) {
		t.Errorf("error = %v, want ErrUnsupportedFormat", err)
	}
	var stageErr *fault.StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != "recorder" {
		t.Errorf("failing stage = %v, want recorder", stageErr)
	}
	if trace.count('S') != 1 {
		t.Error("healthy stage did not see Stop")
	}
	for _, st := range ctx.Stages() {
		if st.Halted != (st.Name == "recorder") {
			t.Errorf("stage %s halted = %v", st.Name, st.Halted)
		}
	}
}

func TestRecorderRejectsNegativeLimit(t *testing.T) {
	rec := NewRecorder(testConfig(1, 1))
	err := rec.OnRecordingStart(nil, engine.RecordingStart{Path: "x.wav", MaxSamples: -1})
	if !errors.Is(err, fault.ErrConfiguration) {
		t.Errorf("error = %v, want ErrConfiguration", err)
	}
}
