// SPDX-License-Identifier: MIT
package codec

import (
	"errors"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// mp3Reader is the part of gomp3.Decoder used here.
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

// go-mp3 always decodes to interleaved 16-bit little-endian stereo.
type mp3Source struct {
	dec    mp3Reader
	format Format
	buf    []byte
}

func newMP3Source(dec mp3Reader) *mp3Source {
	return &mp3Source{
		dec:    dec,
		format: Format{SampleRate: dec.SampleRate(), Channels: 2, BitDepth: 16},
	}
}

func openMP3(rs io.ReadSeeker) (Source, error) {
	dec, err := gomp3.NewDecoder(rs)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}
	return newMP3Source(dec), nil
}

func (s *mp3Source) Format() Format { return s.format }

func (s *mp3Source) ReadSamples(dst []float64) (int, error) {
	n := len(dst) - len(dst)%2
	if n == 0 {
		return 0, nil
	}
	if cap(s.buf) < n*2 {
		s.buf = make([]byte, n*2)
	}
	buf := s.buf[:n*2]

	read, err := io.ReadFull(s.dec, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	samples := read / 4 * 2
	for i := 0; i < samples; i++ {
		v := int16(uint16(buf[2*i]) | uint16(buf[2*i+1])<<8)
		dst[i] = FromPCM16(int(v))
	}
	return samples, err
}

// oggReader is the part of oggvorbis.Reader used here.
type oggReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

type vorbisSource struct {
	dec    oggReader
	format Format
	buf    []float32
}

func newVorbisSource(dec oggReader) *vorbisSource {
	return &vorbisSource{
		dec:    dec,
		format: Format{SampleRate: dec.SampleRate(), Channels: dec.Channels(), BitDepth: 32},
	}
}

func openVorbis(rs io.ReadSeeker) (Source, error) {
	dec, err := oggvorbis.NewReader(rs)
	if err != nil {
		return nil, fmt.Errorf("vorbis: %w", err)
	}
	return newVorbisSource(dec), nil
}

func (s *vorbisSource) Format() Format { return s.format }

// ReadSamples reads interleaved float32 values; oggvorbis counts values, not
// frames.
func (s *vorbisSource) ReadSamples(dst []float64) (int, error) {
	ch := s.format.Channels
	n := len(dst) - len(dst)%ch
	if n == 0 {
		return 0, nil
	}
	if cap(s.buf) < n {
		s.buf = make([]float32, n)
	}
	buf := s.buf[:n]

	read, err := s.dec.Read(buf)
	read -= read % ch
	for i := 0; i < read; i++ {
		dst[i] = float64(buf[i])
	}
	return read, err
}
