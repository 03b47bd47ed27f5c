// SPDX-License-Identifier: MIT
package utils

import "math"

// GenerateComplexWave returns a 440 Hz tone with its second and third
// harmonics, peaking at 0.9.
func GenerateComplexWave(size int, sampleRate float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2 // 440Hz fundamental + harmonics
		buffer[i] = signal * 0.9
	}
	return buffer
}

func GenerateSineWave(size int, sampleRate, frequency float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*frequency*t) * 0.9
	}
	return buffer
}

// GenerateBursts returns silence interrupted every period samples by a
// full-scale square burst of length samples.
func GenerateBursts(size, period, length int) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		if period > 0 && i%period < length {
			if i%2 == 0 {
				buffer[i] = 0.9
			} else {
				buffer[i] = -0.9
			}
		}
	}
	return buffer
}

func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
