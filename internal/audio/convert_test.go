// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"testing"
)

func TestDeinterleave(t *testing.T) {
	src := []int32{0, math.MinInt32, 1 << 30, -(1 << 30), math.MaxInt32, 0}
	dst := [][]float64{make([]float64, 3), make([]float64, 3)}
	Deinterleave(dst, src, 2, 3)

	wantL := []float64{0, 0.5, float64(math.MaxInt32) / fixedScale}
	wantR := []float64{-1, -0.5, 0}
	for i := range wantL {
		if dst[0][i] != wantL[i] || dst[1][i] != wantR[i] {
			t.Errorf("frame %d = (%v, %v), want (%v, %v)", i, dst[0][i], dst[1][i], wantL[i], wantR[i])
		}
	}
	if dst[0][2] >= 1 {
		t.Error("full-scale positive sample must stay below 1")
	}
}

func TestInterleaveClamps(t *testing.T) {
	tests := []struct {
		in   float64
		want int32
	}{
		{0, 0},
		{0.5, 1 << 30},
		{-1, math.MinInt32},
		{1, math.MaxInt32},
		{3.7, math.MaxInt32},
		{-12, math.MinInt32},
	}

	src := [][]float64{make([]float64, len(tests))}
	for i, tt := range tests {
		src[0][i] = tt.in
	}
	dst := make([]int32, len(tests))
	Interleave(dst, src, 1, len(tests))

	for i, tt := range tests {
		if dst[i] != tt.want {
			t.Errorf("Interleave(%v) = %d, want %d", tt.in, dst[i], tt.want)
		}
	}
}

func TestConvertRoundTrip(t *testing.T) {
	const channels, frames = 2, 256
	src := make([]int32, channels*frames)
	for i := range src {
		src[i] = int32((i*7919)%65536-32768) << 16
	}
	mid := [][]float64{make([]float64, frames), make([]float64, frames)}
	back := make([]int32, len(src))

	Deinterleave(mid, src, channels, frames)
	Interleave(back, mid, channels, frames)

	for i := range src {
		if back[i] != src[i] {
			t.Fatalf("sample %d: got %d, want %d", i, back[i], src[i])
		}
	}
}

func TestConvertZeroAllocs(t *testing.T) {
	src := make([]int32, 2*512)
	dst := [][]float64{make([]float64, 512), make([]float64, 512)}
	allocs := testing.AllocsPerRun(100, func() {
		Deinterleave(dst, src, 2, 512)
		Interleave(src, dst, 2, 512)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in sample conversion, got %.1f", allocs)
	}
}

func BenchmarkDeinterleave(b *testing.B) {
	src := make([]int32, 2*512)
	dst := [][]float64{make([]float64, 512), make([]float64, 512)}
	b.ReportAllocs()
	for b.Loop() {
		Deinterleave(dst, src, 2, 512)
	}
}
