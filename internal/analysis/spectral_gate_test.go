// SPDX-License-Identifier: MIT
package analysis

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"audiostream/internal/audio"
	"audiostream/internal/engine"
	"audiostream/internal/fault"
	"audiostream/pkg/utils"
)

func runGate(t *testing.T, g *SpectralGate, input []float64, outChannels int) [][]float64 {
	t.Helper()
	output := make([][]float64, outChannels)
	for ch := range output {
		output[ch] = make([]float64, len(input))
	}
	for pos := 0; pos < len(input); pos += testInterval {
		n := min(testInterval, len(input)-pos)
		in := [][]float64{input[pos : pos+n]}
		out := make([][]float64, outChannels)
		for ch := range out {
			out[ch] = output[ch][pos : pos+n]
		}
		if err := g.Process(in, out, n); err != nil {
			t.Fatal(err)
		}
	}
	return output
}

func TestSpectralGateOpenReconstructs(t *testing.T) {
	g, err := NewSpectralGate(1, 2, 32, 0)
	if err != nil {
		t.Fatal(err)
	}
	input := utils.GenerateComplexWave(1024, testRate)
	output := runGate(t, g, input, 2)

	delay := g.Latency()
	for ch := range output {
		for i := delay; i < len(input); i++ {
			if diff := math.Abs(output[ch][i] - input[i-delay]); diff > 1e-9 {
				t.Fatalf("channel %d sample %d = %v, want %v", ch, i, output[ch][i], input[i-delay])
			}
		}
	}
}

func TestSpectralGateRerunIsReproducible(t *testing.T) {
	input := utils.GenerateSineWave(2048, testRate, 440)
	output := make([]float64, len(input))
	d, err := audio.NewMemoryDriver(engine.Config{
		SampleRate:     testRate,
		Interval:       testInterval,
		InputChannels:  1,
		OutputChannels: 1,
	}, [][]float64{input}, [][]float64{output})
	if err != nil {
		t.Fatal(err)
	}
	g, err := NewSpectralGate(1, 1, 256, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.AddDsp(g); err != nil {
		t.Fatal(err)
	}

	var runs [2][]float64
	for i := range runs {
		ctx, err := d.Run()
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		wctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = ctx.Wait(wctx)
		cancel()
		if err != nil {
			t.Fatalf("run %d failed: %v", i, err)
		}
		ctx.Dispose()
		runs[i] = slices.Clone(output)
	}

	for i, v := range runs[1][:g.Latency()] {
		if v != 0 {
			t.Fatalf("second run sample %d = %v, want silence before the gate latency", i, v)
		}
	}
	if !slices.Equal(runs[0], runs[1]) {
		t.Error("second run output differs from the first")
	}
}

func TestSpectralGateClosedSilences(t *testing.T) {
	g, err := NewSpectralGate(1, 1, 32, 1)
	if err != nil {
		t.Fatal(err)
	}
	output := runGate(t, g, utils.GenerateSineWave(512, testRate, 1000), 1)
	for i, v := range output[0] {
		if v != 0 {
			t.Fatalf("sample %d = %v, want silence", i, v)
		}
	}
}

func TestSpectralGateThreshold(t *testing.T) {
	g, err := NewSpectralGate(1, 1, 16, 0.2)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		in, want float64
	}{
		{-1, 0}, {0.3, 0.3}, {2, 1}, {math.NaN(), 0},
	}
	for _, tt := range tests {
		g.SetThreshold(tt.in)
		if got := g.Threshold(); got != tt.want {
			t.Errorf("SetThreshold(%v) -> %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, size := range []int{0, 1, 24} {
		if _, err := NewSpectralGate(1, 1, size, 0); !errors.Is(err, fault.ErrConfiguration) {
			t.Errorf("NewSpectralGate(size %d) = %v, want ErrConfiguration", size, err)
		}
	}
}

func TestSpectralGateZeroAllocs(t *testing.T) {
	g, _ := NewSpectralGate(1, 1, 256, 0.01)
	in := [][]float64{utils.GenerateSineWave(testInterval, testRate, 440)}
	out := [][]float64{make([]float64, testInterval)}

	allocs := testing.AllocsPerRun(200, func() {
		_ = g.Process(in, out, testInterval)
	})
	if allocs > 0 {
		t.Errorf("Process allocates %.1f times per run, want 0", allocs)
	}
}
