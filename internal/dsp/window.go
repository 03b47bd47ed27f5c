// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"math"
	"strings"

	"audiostream/internal/fault"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects a window shape.
type WindowFunc int

const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
	Rectangular
	SqrtHann
)

var windowNames = map[WindowFunc]string{
	BartlettHann:    "bartletthann",
	Blackman:        "blackman",
	BlackmanNuttall: "blackmannuttall",
	Hann:            "hann",
	Hamming:         "hamming",
	Lanczos:         "lanczos",
	Nuttall:         "nuttall",
	Rectangular:     "rectangular",
	SqrtHann:        "sqrthann",
}

func (w WindowFunc) String() string {
	if name, ok := windowNames[w]; ok {
		return name
	}
	return fmt.Sprintf("window(%d)", int(w))
}

// ParseWindowFunc converts a name (case-insensitive) to a WindowFunc. Unknown
// names return Hann together with an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	case "rectangular", "rect", "none":
		return Rectangular, nil
	case "sqrthann", "sqrt-hann":
		return SqrtHann, nil
	default:
		return Hann, fault.Configf("unknown window function name: '%s'", name)
	}
}

// NewWindow returns n coefficients of the selected window. A periodic window
// is the first n points of the symmetric window of length n+1, which is the
// form that satisfies the overlap-add condition.
func NewWindow(kind WindowFunc, n int, periodic bool) []float64 {
	if n <= 0 {
		return nil
	}
	size := n
	if periodic {
		size = n + 1
	}
	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	if size > 1 {
		applyWindow(coeffs, kind)
	}
	return coeffs[:n]
}

func applyWindow(coeffs []float64, kind WindowFunc) {
	switch kind {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	case Rectangular:
		window.Rectangular(coeffs)
	case SqrtHann:
		window.Hann(coeffs)
		for i, c := range coeffs {
			coeffs[i] = math.Sqrt(math.Max(c, 0))
		}
	default:
		window.Hann(coeffs)
	}
}
