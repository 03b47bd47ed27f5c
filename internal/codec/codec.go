// SPDX-License-Identifier: MIT
package codec

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Format describes an audio stream.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

func (f Format) validate() error {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return fmt.Errorf("%w: %d Hz, %d channels", ErrInvalidFormat, f.SampleRate, f.Channels)
	}
	return nil
}

// Source yields interleaved samples in [-1, 1). ReadSamples returns whole
// frames only and io.EOF once the stream is exhausted.
type Source interface {
	Format() Format
	ReadSamples(dst []float64) (int, error)
}

// Reader fills per-channel blocks.
type Reader interface {
	Format() Format
	// Fill writes up to len(dst[0]) samples into every channel and returns
	// the count. Channels beyond the source's wrap around its channels,
	// surplus source channels are dropped. The final block is returned
	// together with io.EOF.
	Fill(dst [][]float64) (int, error)
	Close() error
}

// Writer drains per-channel blocks.
type Writer interface {
	Format() Format
	Drain(src [][]float64, n int) error
	Close() error
}

// Opener decodes a file into a Source.
type Opener func(rs io.ReadSeeker) (Source, error)

var openers = map[string]Opener{
	".wav":  openWAV,
	".wave": openWAV,
	".aif":  openAIFF,
	".aiff": openAIFF,
	".mp3":  openMP3,
	".ogg":  openVorbis,
	".oga":  openVorbis,
}

// Register adds or replaces the opener for a file extension.
func Register(ext string, o Opener) {
	openers[strings.ToLower(ext)] = o
}

// Extensions lists the readable file extensions.
func Extensions() []string {
	exts := make([]string, 0, len(openers))
	for ext := range openers {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Open decodes the file at path according to its extension.
func Open(path string) (Reader, error) {
	ext := strings.ToLower(filepath.Ext(path))
	open, ok := openers[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	src, err := open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if err := src.Format().validate(); err != nil {
		f.Close()
		return nil, err
	}
	return NewReader(src, f), nil
}

// NewReader wraps src in a block Reader. closer may be nil.
func NewReader(src Source, closer io.Closer) Reader {
	return &blockReader{src: src, closer: closer}
}

type blockReader struct {
	src    Source
	closer io.Closer
	buf    []float64
	eof    bool
}

func (r *blockReader) Format() Format { return r.src.Format() }

func (r *blockReader) Fill(dst [][]float64) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if r.eof {
		return 0, io.EOF
	}
	channels := r.src.Format().Channels
	frames := len(dst[0])
	need := frames * channels
	if cap(r.buf) < need {
		r.buf = make([]float64, need)
	}
	buf := r.buf[:need]

	total := 0
	var readErr error
	for total < need {
		n, err := r.src.ReadSamples(buf[total:])
		total += n
		if err != nil {
			readErr = err
			break
		}
		if n == 0 {
			readErr = io.EOF
			break
		}
	}
	if readErr != nil && !errors.Is(readErr, io.EOF) {
		return 0, readErr
	}

	got := total / channels
	for ch := range dst {
		src := ch % channels
		out := dst[ch]
		for i := 0; i < got; i++ {
			out[i] = buf[i*channels+src]
		}
	}

	if readErr != nil {
		r.eof = true
		return got, io.EOF
	}
	return got, nil
}

func (r *blockReader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Create opens a 16-bit PCM WAV writer at path.
func Create(path string, f Format) (Writer, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".wav" && ext != ".wave" {
		return nil, fmt.Errorf("%w: cannot write %q", ErrUnsupportedFormat, ext)
	}
	f.BitDepth = 16
	if err := f.validate(); err != nil {
		return nil, err
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return newWAVWriter(file, f), nil
}

// intScale returns the full-scale value for signed PCM of the given depth.
func intScale(bitDepth int) float64 {
	switch bitDepth {
	case 8:
		return 1 << 7
	case 24:
		return 1 << 23
	case 32:
		return 1 << 31
	default:
		return 1 << 15
	}
}

// ToPCM16 maps a sample onto the 16-bit range, clamping overflow.
func ToPCM16(x float64) int {
	v := math.Round(x * (1 << 15))
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int(v)
}

// FromPCM16 maps a 16-bit sample into [-1, 1).
func FromPCM16(v int) float64 {
	return float64(v) / (1 << 15)
}
