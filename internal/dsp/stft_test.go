// SPDX-License-Identifier: MIT
package dsp

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"audiostream/internal/fault"

	"gonum.org/v1/gonum/dsp/fourier"
)

const tolerance = 1e-9

func testSignal(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(0.3*float64(i)) + 0.01*float64(i)
	}
	return out
}

func copySpectra(_ int64, in, out [][]complex128) {
	for ch := range out {
		copy(out[ch], in[ch%len(in)])
	}
}

func TestStftSynthesisRoundTrip(t *testing.T) {
	const length, shift = 16, 8
	win := NewWindow(SqrtHann, length, true)
	s, err := NewStftSynthesis(1, 1, win, shift, copySpectra)
	if err != nil {
		t.Fatalf("NewStftSynthesis: %v", err)
	}

	input := testSignal(160)
	output := make([]float64, len(input))
	s.Process([][]float64{input}, [][]float64{output}, len(input))

	for i := 0; i < length; i++ {
		if math.Abs(output[i]) > tolerance {
			t.Fatalf("sample %d = %v before the first full frame, want 0", i, output[i])
		}
	}
	for i := length; i < len(output); i++ {
		if diff := math.Abs(output[i] - input[i-length]); diff > tolerance {
			t.Fatalf("sample %d = %v, want %v (diff %g)", i, output[i], input[i-length], diff)
		}
	}
}

func TestStftSynthesisHalfSpectrumWithMirror(t *testing.T) {
	const length, shift = 32, 16
	win := NewWindow(SqrtHann, length, true)

	// Only bins [0, n/2] are written; Mirror restores the upper half so the
	// inverse stays real and the round trip still holds.
	s, _ := NewStftSynthesis(1, 1, win, shift, func(_ int64, in, out [][]complex128) {
		copy(out[0][:length/2+1], in[0][:length/2+1])
		Mirror(out[0])
	})

	input := testSignal(256)
	output := make([]float64, len(input))
	s.Process([][]float64{input}, [][]float64{output}, len(input))

	for i := length; i < len(output); i++ {
		if diff := math.Abs(output[i] - input[i-length]); diff > tolerance {
			t.Fatalf("sample %d = %v, want %v", i, output[i], input[i-length])
		}
	}
}

func TestStftSynthesisChannelMapping(t *testing.T) {
	const length, shift = 8, 4
	win := NewWindow(SqrtHann, length, true)
	s, err := NewStftSynthesis(1, 2, win, shift, copySpectra)
	if err != nil {
		t.Fatalf("NewStftSynthesis: %v", err)
	}

	input := testSignal(64)
	left := make([]float64, 64)
	right := make([]float64, 64)
	s.Process([][]float64{input}, [][]float64{left, right}, 64)

	for i := range left {
		if left[i] != right[i] {
			t.Fatalf("sample %d: left %v != right %v", i, left[i], right[i])
		}
	}
}

func TestStftAnalysisSinusoidAmplitude(t *testing.T) {
	const length = 64
	const bin = 5
	win := NewWindow(Rectangular, length, true)

	var amplitudes []float64
	a, err := NewStftAnalysis(1, win, length, func(_ int64, spectra [][]complex128) {
		amplitudes = NormalizedAmplitude(spectra[0], amplitudes)
	})
	if err != nil {
		t.Fatalf("NewStftAnalysis: %v", err)
	}

	input := make([]float64, length)
	for i := range input {
		input[i] = 0.5 + math.Cos(2*math.Pi*bin*float64(i)/length)
	}
	a.Process([][]float64{input}, length)

	if len(amplitudes) != length/2+1 {
		t.Fatalf("got %d amplitudes, want %d", len(amplitudes), length/2+1)
	}
	if math.Abs(amplitudes[0]-0.5) > tolerance {
		t.Errorf("DC amplitude = %v, want 0.5", amplitudes[0])
	}
	if math.Abs(amplitudes[bin]-1) > tolerance {
		t.Errorf("bin %d amplitude = %v, want 1", bin, amplitudes[bin])
	}
	for k, v := range amplitudes {
		if k != 0 && k != bin && v > tolerance {
			t.Errorf("bin %d amplitude = %v, want 0", k, v)
		}
	}
}

func TestStftAnalysisFramePositions(t *testing.T) {
	win := NewWindow(Hann, 8, true)
	var positions []int64
	a, _ := NewStftAnalysis(2, win, 4, func(pos int64, spectra [][]complex128) {
		if len(spectra) != 2 || len(spectra[0]) != 8 {
			t.Fatalf("unexpected spectra shape %dx%d", len(spectra), len(spectra[0]))
		}
		positions = append(positions, pos)
	})

	in := testSignal(18)
	a.Process([][]float64{in, in}, len(in))
	a.Flush()

	want := []int64{-4, 0, 4, 8, 12}
	if len(positions) != len(want) {
		t.Fatalf("positions = %v, want %v", positions, want)
	}
	for i := range want {
		if positions[i] != want[i] {
			t.Fatalf("positions = %v, want %v", positions, want)
		}
	}
}

func TestStftConfigurationErrors(t *testing.T) {
	win := NewWindow(Hann, 8, true)
	tests := []struct {
		name string
		run  func() error
	}{
		{"Analysis empty window", func() error {
			_, err := NewStftAnalysis(1, nil, 4, func(int64, [][]complex128) {})
			return err
		}},
		{"Analysis nil callback", func() error {
			_, err := NewStftAnalysis(1, win, 4, nil)
			return err
		}},
		{"Analysis shift too large", func() error {
			_, err := NewStftAnalysis(1, win, 9, func(int64, [][]complex128) {})
			return err
		}},
		{"Synthesis zero channels", func() error {
			_, err := NewStftSynthesis(0, 1, win, 4, copySpectra)
			return err
		}},
		{"Synthesis nil callback", func() error {
			_, err := NewStftSynthesis(1, 1, win, 4, nil)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, fault.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestStftSynthesisZeroAllocs(t *testing.T) {
	win := NewWindow(SqrtHann, 256, true)
	s, _ := NewStftSynthesis(2, 2, win, 128, copySpectra)
	in := [][]float64{testSignal(512), testSignal(512)}
	out := [][]float64{make([]float64, 512), make([]float64, 512)}
	s.Process(in, out, 512)

	allocs := testing.AllocsPerRun(20, func() {
		s.Process(in, out, 512)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in StftSynthesis.Process, got %.1f", allocs)
	}
}

func TestMirrorRestoresConjugateSymmetry(t *testing.T) {
	for _, n := range []int{8, 9} {
		seq := make([]complex128, n)
		for i := range seq {
			seq[i] = complex(testSignal(n)[i], 0)
		}
		full := fourier.NewCmplxFFT(n).Coefficients(nil, seq)

		half := make([]complex128, n)
		copy(half[:n/2+1], full[:n/2+1])
		Mirror(half)

		for k := range full {
			if cmplx.Abs(full[k]-half[k]) > tolerance {
				t.Errorf("n=%d bin %d = %v, want %v", n, k, half[k], full[k])
			}
		}
	}
}

func TestNormalizedAmplitudeReusesDst(t *testing.T) {
	spectrum := make([]complex128, 16)
	spectrum[0] = 16
	dst := make([]float64, 0, 32)
	got := NormalizedAmplitude(spectrum, dst)
	if len(got) != 9 {
		t.Fatalf("len = %d, want 9", len(got))
	}
	if &got[0] != &dst[:1][0] {
		t.Error("expected dst backing array to be reused")
	}
	if got[0] != 1 {
		t.Errorf("DC = %v, want 1", got[0])
	}
	if out := NormalizedAmplitude(nil, nil); len(out) != 0 {
		t.Errorf("empty spectrum produced %d values", len(out))
	}
}

func BenchmarkStftSynthesis(b *testing.B) {
	win := NewWindow(SqrtHann, 1024, true)
	s, _ := NewStftSynthesis(2, 2, win, 512, copySpectra)
	in := [][]float64{testSignal(512), testSignal(512)}
	out := [][]float64{make([]float64, 512), make([]float64, 512)}

	b.ReportAllocs()
	for b.Loop() {
		s.Process(in, out, 512)
	}
}
