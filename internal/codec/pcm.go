// SPDX-License-Identifier: MIT
package codec

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// pcmDecoder is the part of the go-audio WAV and AIFF decoders used here.
type pcmDecoder interface {
	PCMBuffer(buf *audio.IntBuffer) (int, error)
}

type pcmSource struct {
	dec    pcmDecoder
	format Format
	ints   *audio.IntBuffer
	offset int
	scale  float64
}

func newPCMSource(dec pcmDecoder, format Format, unsigned8 bool) *pcmSource {
	s := &pcmSource{
		dec:    dec,
		format: format,
		ints: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
			SourceBitDepth: format.BitDepth,
		},
		scale: intScale(format.BitDepth),
	}
	if unsigned8 && format.BitDepth == 8 {
		s.offset = 128
	}
	return s
}

func (s *pcmSource) Format() Format { return s.format }

func (s *pcmSource) ReadSamples(dst []float64) (int, error) {
	n := len(dst) - len(dst)%s.format.Channels
	if n == 0 {
		return 0, nil
	}
	if cap(s.ints.Data) < n {
		s.ints.Data = make([]int, n)
	}
	s.ints.Data = s.ints.Data[:n]

	got, err := s.dec.PCMBuffer(s.ints)
	if got == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}
	got -= got % s.format.Channels
	for i := 0; i < got; i++ {
		dst[i] = float64(s.ints.Data[i]-s.offset) / s.scale
	}
	return got, err
}

func checkBitDepth(depth int) error {
	switch depth {
	case 8, 16, 24, 32:
		return nil
	}
	return fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, depth)
}

func openWAV(rs io.ReadSeeker) (Source, error) {
	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotWAV
	}
	if dec.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: WAV format tag %d", ErrUnsupportedFormat, dec.WavAudioFormat)
	}
	depth := int(dec.BitDepth)
	if err := checkBitDepth(depth); err != nil {
		return nil, err
	}
	format := Format{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   depth,
	}
	// 8-bit WAV samples are unsigned.
	return newPCMSource(dec, format, true), nil
}

func openAIFF(rs io.ReadSeeker) (Source, error) {
	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotAIFF
	}
	dec.ReadInfo()
	af := dec.Format()
	if af == nil {
		return nil, fmt.Errorf("%w: missing AIFF COMM chunk", ErrNotAIFF)
	}
	depth := int(dec.BitDepth)
	if err := checkBitDepth(depth); err != nil {
		return nil, err
	}
	format := Format{
		SampleRate: af.SampleRate,
		Channels:   af.NumChannels,
		BitDepth:   depth,
	}
	return newPCMSource(dec, format, false), nil
}

type wavWriter struct {
	file   *os.File
	enc    *wav.Encoder
	format Format
	ints   *audio.IntBuffer
}

func newWAVWriter(file *os.File, format Format) *wavWriter {
	return &wavWriter{
		file:   file,
		enc:    wav.NewEncoder(file, format.SampleRate, 16, format.Channels, 1),
		format: format,
		ints: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
			SourceBitDepth: 16,
		},
	}
}

func (w *wavWriter) Format() Format { return w.format }

// Drain interleaves the first n samples of src. File channels beyond
// len(src) repeat src channels cyclically.
func (w *wavWriter) Drain(src [][]float64, n int) error {
	if len(src) == 0 {
		return fmt.Errorf("%w: no channels to write", ErrInvalidFormat)
	}
	channels := w.format.Channels
	need := n * channels
	if cap(w.ints.Data) < need {
		w.ints.Data = make([]int, need)
	}
	data := w.ints.Data[:need]
	for i := 0; i < n; i++ {
		for ch := 0; ch < channels; ch++ {
			data[i*channels+ch] = ToPCM16(src[ch%len(src)][i])
		}
	}
	w.ints.Data = data
	if err := w.enc.Write(w.ints); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	return nil
}

func (w *wavWriter) Close() error {
	if err := w.enc.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to finalize WAV: %w", err)
	}
	return w.file.Close()
}
