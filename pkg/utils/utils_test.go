// SPDX-License-Identifier: MIT
package utils

import (
	"errors"
	"math"
	"os"
	"testing"
)

const (
	testSize       = 1024
	testSampleRate = 44100
	testFrequency  = 440.0 // A4 note
)

var testMagnitudes []float64

func TestMain(m *testing.M) {
	testMagnitudes = make([]float64, testSize)

	// Creates a "hill" with peak at position testSize/4.
	for i := range testMagnitudes {
		testMagnitudes[i] = math.Exp(-0.01 * math.Pow(float64(i-testSize/4), 2))
	}

	os.Exit(m.Run())
}

func TestMockTransport(t *testing.T) {
	tests := []struct {
		name string
		data any
	}{
		{"Magnitudes", []float64{0.1, 0.2, 0.3}},
		{"Event", map[string]any{"type": "event", "name": "kick"}},
		{"Scalar", 42},
	}

	mt := &MockTransport{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := mt.Send(tt.data); err != nil {
				t.Fatalf("Send() error = %v", err)
			}
			if mt.Last() == nil {
				t.Fatal("Last() = nil after Send")
			}
		})
	}
	if got := len(mt.Messages()); got != len(tests) {
		t.Errorf("Messages() holds %d entries, want %d", got, len(tests))
	}
}

func TestMockTransportCopies(t *testing.T) {
	mt := &MockTransport{}
	data := []float64{1, 2, 3}
	event := map[string]any{"name": "kick"}
	_ = mt.Send(data)
	_ = mt.Send(event)
	data[0] = 999.999
	event["name"] = "snare"

	msgs := mt.Messages()
	if msgs[0].([]float64)[0] != 1 {
		t.Error("Send() stored reference instead of copy")
	}
	if msgs[1].(map[string]any)["name"] != "kick" {
		t.Error("Send() stored map reference instead of copy")
	}
}

func TestMockTransportClose(t *testing.T) {
	mt := &MockTransport{}
	if err := mt.Close(); err != nil {
		t.Fatal(err)
	}
	if !mt.Closed() {
		t.Error("Closed() = false after Close")
	}
	if err := mt.Send(1); !errors.Is(err, ErrTransportClosed) {
		t.Errorf("Send after Close = %v, want ErrTransportClosed", err)
	}
	if mt.Last() != nil {
		t.Error("closed transport recorded a message")
	}
}

func TestGenerateComplexWave(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		sampleRate float64
	}{
		{"Standard", 1024, 44100},
		{"Small", 16, 8000},
		{"Large", 8192, 96000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GenerateComplexWave(tt.size, tt.sampleRate)

			if len(result) != tt.size {
				t.Errorf("GenerateComplexWave() buffer size = %d, want %d", len(result), tt.size)
			}

			hasNonZero := false
			for _, v := range result {
				if math.Abs(v) > 0.9 {
					t.Fatalf("sample %v exceeds 0.9", v)
				}
				if v != 0 {
					hasNonZero = true
				}
			}
			if !hasNonZero {
				t.Errorf("GenerateComplexWave() produced all zeros")
			}
		})
	}
}

func TestGenerateSineWave(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		sampleRate float64
		frequency  float64
	}{
		{"A4 Note", 1024, 44100, 440.0},
		{"Middle C", 1024, 44100, 261.63},
		{"High Sample Rate", 1024, 192000, 440.0},
		{"Low Sample Rate", 1024, 8000, 440.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GenerateSineWave(tt.size, tt.sampleRate, tt.frequency)

			if len(result) != tt.size {
				t.Errorf("GenerateSineWave() buffer size = %d, want %d", len(result), tt.size)
			}

			samplesPerCycle := tt.sampleRate / tt.frequency
			if samplesPerCycle > 2 && float64(tt.size) > samplesPerCycle {
				crossCount := 0
				for i := 1; i < tt.size; i++ {
					if (result[i-1] < 0 && result[i] >= 0) ||
						(result[i-1] >= 0 && result[i] < 0) {
						crossCount++
					}
				}

				// Two crossings per cycle, 20% margin for phase alignment.
				expectedCrossings := float64(tt.size) / (samplesPerCycle / 2)
				tolerance := 0.2 * expectedCrossings

				if math.Abs(float64(crossCount)-expectedCrossings) > tolerance {
					t.Errorf("GenerateSineWave() zero crossings = %d, expected approximately %.1f±%.1f",
						crossCount, expectedCrossings, tolerance)
				}
			}
		})
	}
}

func TestGenerateBursts(t *testing.T) {
	b := GenerateBursts(100, 40, 4)
	for i, v := range b {
		loud := i%40 < 4
		if loud != (v != 0) {
			t.Fatalf("sample %d = %v, loud = %v", i, v, loud)
		}
	}
	if got := GenerateBursts(10, 0, 4); got[0] != 0 {
		t.Error("zero period should produce silence")
	}
}

func TestFindPeakBin(t *testing.T) {
	tests := []struct {
		name     string
		mags     []float64
		start    int
		end      int
		expected int
	}{
		{"Full Range", testMagnitudes, 0, testSize - 1, testSize / 4},
		{"Partial Range Start", testMagnitudes, testSize / 8, testSize - 1, testSize / 4},
		{"Partial Range End", testMagnitudes, 0, testSize / 3, testSize / 4},
		{"Negative Start", testMagnitudes, -10, testSize - 1, testSize / 4},
		{"Out of Range End", testMagnitudes, 0, testSize * 2, testSize / 4},
		{"Empty Slice", []float64{}, 0, 10, 0},
		{"Single Value", []float64{1.0}, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := FindPeakBin(tt.mags, tt.start, tt.end); result != tt.expected {
				t.Errorf("FindPeakBin() = %d, want %d", result, tt.expected)
			}
		})
	}

	allocs := testing.AllocsPerRun(100, func() {
		FindPeakBin(testMagnitudes, 0, len(testMagnitudes)-1)
	})
	if allocs > 0 {
		t.Errorf("FindPeakBin allocated memory: got %.1f allocs, want 0", allocs)
	}
}

func BenchmarkGenerateSineWave(b *testing.B) {
	benchmarks := []struct {
		name string
		size int
	}{
		{"Small", 64},
		{"Standard", 1024},
		{"Large", 8192},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				GenerateSineWave(bm.size, testSampleRate, testFrequency)
			}
		})
	}
}

func BenchmarkFindPeakBin(b *testing.B) {
	mags := make([]float64, 1024)
	for i := range mags {
		mags[i] = math.Exp(-0.01 * math.Pow(float64(i-512), 2))
	}
	b.ReportAllocs()
	for b.Loop() {
		FindPeakBin(mags, 0, len(mags)-1)
	}
}
