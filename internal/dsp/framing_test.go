// SPDX-License-Identifier: MIT
package dsp

import (
	"errors"
	"fmt"
	"testing"

	"audiostream/internal/fault"
)

type capturedFrame struct {
	position int64
	samples  [][]float64
}

func captureFrames(frames *[]capturedFrame) FrameFunc {
	return func(position int64, frame [][]float64) {
		cp := make([][]float64, len(frame))
		for ch := range frame {
			cp[ch] = append([]float64(nil), frame[ch]...)
		}
		*frames = append(*frames, capturedFrame{position, cp})
	}
}

func ramp(n int, offset float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) + offset
	}
	return out
}

func TestFramingPositionsAndContent(t *testing.T) {
	tests := []struct {
		length, shift, total int
	}{
		{4, 2, 10},
		{4, 4, 12},
		{5, 1, 9},
		{8, 3, 24},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("F=%d/S=%d/L=%d", tt.length, tt.shift, tt.total), func(t *testing.T) {
			var frames []capturedFrame
			f, err := NewFraming(1, tt.length, tt.shift, captureFrames(&frames))
			if err != nil {
				t.Fatalf("NewFraming: %v", err)
			}
			input := ramp(tt.total, 1)
			f.Process([][]float64{input}, len(input))

			if want := tt.total / tt.shift; len(frames) != want {
				t.Fatalf("got %d frames, want %d", len(frames), want)
			}
			for k, fr := range frames {
				wantPos := int64((k+1)*tt.shift - tt.length)
				if fr.position != wantPos {
					t.Errorf("frame %d position = %d, want %d", k, fr.position, wantPos)
				}
				for i, got := range fr.samples[0] {
					idx := wantPos + int64(i)
					want := 0.0
					if idx >= 0 {
						want = input[idx]
					}
					if got != want {
						t.Errorf("frame %d sample %d = %v, want %v", k, i, got, want)
					}
				}
			}
		})
	}
}

func TestFramingFirstFrameZeroPadded(t *testing.T) {
	var frames []capturedFrame
	f, _ := NewFraming(1, 4, 1, captureFrames(&frames))
	f.Process([][]float64{{7}}, 1)

	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if frames[0].position != -3 {
		t.Errorf("position = %d, want -3", frames[0].position)
	}
	want := []float64{0, 0, 0, 7}
	for i := range want {
		if frames[0].samples[0][i] != want[i] {
			t.Errorf("frame = %v, want %v", frames[0].samples[0], want)
			break
		}
	}
}

func TestFramingFlushCount(t *testing.T) {
	tests := []struct {
		length, shift, total int
	}{
		{5, 3, 7},
		{4, 2, 9},
		{6, 6, 13},
		{4, 2, 8},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("F=%d/S=%d/L=%d", tt.length, tt.shift, tt.total), func(t *testing.T) {
			var frames []capturedFrame
			f, _ := NewFraming(1, tt.length, tt.shift, captureFrames(&frames))
			in := ramp(tt.total, 1)
			f.Process([][]float64{in}, len(in))
			f.Flush()

			want := (tt.total + tt.shift - 1) / tt.shift
			if len(frames) != want {
				t.Errorf("got %d frames after Flush, want %d", len(frames), want)
			}
		})
	}
}

func TestFramingChunkingInvariance(t *testing.T) {
	input := [][]float64{ramp(50, 0), ramp(50, 100)}

	var whole []capturedFrame
	fw, _ := NewFraming(2, 8, 3, captureFrames(&whole))
	fw.Process(input, 50)

	var chunked []capturedFrame
	fc, _ := NewFraming(2, 8, 3, captureFrames(&chunked))
	offset := 0
	for _, size := range []int{1, 7, 2, 13, 5, 22} {
		part := [][]float64{input[0][offset : offset+size], input[1][offset : offset+size]}
		fc.Process(part, size)
		offset += size
	}

	if len(whole) != len(chunked) {
		t.Fatalf("frame count differs: whole=%d chunked=%d", len(whole), len(chunked))
	}
	for k := range whole {
		if whole[k].position != chunked[k].position {
			t.Fatalf("frame %d position differs", k)
		}
		for ch := range whole[k].samples {
			for i := range whole[k].samples[ch] {
				if whole[k].samples[ch][i] != chunked[k].samples[ch][i] {
					t.Fatalf("frame %d ch %d sample %d differs", k, ch, i)
				}
			}
		}
	}
}

func TestFramingConfigurationErrors(t *testing.T) {
	noop := func(int64, [][]float64) {}
	tests := []struct {
		name                    string
		channels, length, shift int
		fn                      FrameFunc
	}{
		{"Zero channels", 0, 4, 2, noop},
		{"Zero length", 1, 0, 1, noop},
		{"Negative length", 1, -4, 1, noop},
		{"Zero shift", 1, 4, 0, noop},
		{"Shift exceeds length", 1, 4, 5, noop},
		{"Nil callback", 1, 4, 2, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFraming(tt.channels, tt.length, tt.shift, tt.fn)
			if !errors.Is(err, fault.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestFramingProcessZeroAllocs(t *testing.T) {
	f, _ := NewFraming(2, 256, 64, func(int64, [][]float64) {})
	input := [][]float64{ramp(512, 0), ramp(512, 1)}
	f.Process(input, 512)

	allocs := testing.AllocsPerRun(50, func() {
		f.Process(input, 512)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Framing.Process, got %.1f", allocs)
	}
}

func BenchmarkFramingProcess(b *testing.B) {
	f, _ := NewFraming(2, 1024, 256, func(int64, [][]float64) {})
	input := [][]float64{ramp(512, 0), ramp(512, 1)}

	b.ReportAllocs()
	for b.Loop() {
		f.Process(input, 512)
	}
}
