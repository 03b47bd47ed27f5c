// SPDX-License-Identifier: MIT
package audio

import (
	"io"

	"audiostream/internal/engine"
	"audiostream/internal/fault"
)

// MemoryDriver runs stages over caller-owned sample arrays. Output may be
// nil when cfg.OutputChannels is zero.
type MemoryDriver struct {
	*engine.Driver

	input  [][]float64
	output [][]float64
	offset int
	count  int
}

func NewMemoryDriver(cfg engine.Config, input, output [][]float64) (*MemoryDriver, error) {
	if len(input) != cfg.InputChannels {
		return nil, fault.Configf("got %d input channels, config declares %d", len(input), cfg.InputChannels)
	}
	if len(output) != cfg.OutputChannels {
		return nil, fault.Configf("got %d output channels, config declares %d", len(output), cfg.OutputChannels)
	}
	length := -1
	for _, chans := range [][][]float64{input, output} {
		for ch, buf := range chans {
			if length < 0 {
				length = len(buf)
			}
			if len(buf) != length {
				return nil, fault.Configf("channel %d holds %d samples, expected %d", ch, len(buf), length)
			}
		}
	}

	d, err := engine.NewDriver(cfg, false)
	if err != nil {
		return nil, err
	}
	return &MemoryDriver{
		Driver: d,
		input:  input,
		output: output,
		count:  length,
	}, nil
}

// Length is the number of samples per channel in the caller's arrays.
func (m *MemoryDriver) Length() int { return len(m.input[0]) }

// Span returns the range processed by Run.
func (m *MemoryDriver) Span() (offset, count int) { return m.offset, m.count }

// SetSpan restricts later runs to count samples starting at offset.
func (m *MemoryDriver) SetSpan(offset, count int) error {
	if m.Running() {
		return fault.Operationf("span cannot change while running")
	}
	if offset < 0 || count < 0 || offset+count > m.Length() {
		return fault.Configf("span [%d, %d) exceeds buffer length %d", offset, offset+count, m.Length())
	}
	m.offset, m.count = offset, count
	return nil
}

// Run starts a run over the current span.
func (m *MemoryDriver) Run() (*engine.Context, error) {
	buf := &memoryIO{
		input:  m.input,
		output: m.output,
		read:   m.offset,
		write:  m.offset,
		end:    m.offset + m.count,
	}
	return m.Launch(&engine.OfflineBackend{Source: buf, Sink: buf}, engine.DefaultOfflineRingEntries)
}

type memoryIO struct {
	input, output [][]float64
	read, write   int
	end           int
}

func (m *memoryIO) Fill(dst [][]float64) (int, error) {
	n := min(len(dst[0]), m.end-m.read)
	for ch := range dst {
		copy(dst[ch][:n], m.input[ch][m.read:m.read+n])
	}
	m.read += n
	if m.read >= m.end {
		return n, io.EOF
	}
	return n, nil
}

func (m *memoryIO) Drain(src [][]float64, n int) error {
	for ch := range m.output {
		copy(m.output[ch][m.write:m.write+n], src[ch][:n])
	}
	m.write += n
	return nil
}
