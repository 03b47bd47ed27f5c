// SPDX-License-Identifier: MIT
package engine

import (
	"sync/atomic"
	"time"

	"audiostream/internal/fault"
	"audiostream/pkg/bitint"
)

// Entry holds one interval of per-channel samples. Input is written by the
// producer, Output by the realtime chain; both are read-only once the entry
// is published.
type Entry struct {
	Input  [][]float64
	Output [][]float64

	// Position is the absolute stream position of the first sample.
	Position int64
	Length   int
	// Time is when the producer published the entry.
	Time time.Time
	// Overflow is set when the backend reported lost input before this
	// interval.
	Overflow bool

	refs atomic.Int32
	ring *RingBuffer
}

// Release drops one reference. The slot becomes writable again once every
// reference is released.
func (e *Entry) Release() {
	if e.refs.Add(-1) == 0 {
		e.ring.signalFree()
	}
}

// Refs returns the number of outstanding references.
func (e *Entry) Refs() int32 { return e.refs.Load() }

// RingBuffer is a fixed set of entries shared by one producer and one reader
// (the scheduler). The cursors only grow; slot = cursor % capacity.
type RingBuffer struct {
	entries   []*Entry
	consumers int32

	write atomic.Uint64
	read  atomic.Uint64

	overrun atomic.Bool
	freed   chan struct{}
}

// NewRingBuffer allocates capacity entries, each with interval samples for
// every input and output channel.
func NewRingBuffer(capacity, inChannels, outChannels, interval int) (*RingBuffer, error) {
	if capacity < 1 {
		return nil, fault.Configf("ring capacity must be at least 1, got %d", capacity)
	}
	if inChannels < 0 || outChannels < 0 {
		return nil, fault.Configf("channel counts must not be negative")
	}
	if interval < 1 {
		return nil, fault.Configf("interval length must be positive, got %d", interval)
	}

	r := &RingBuffer{
		entries: make([]*Entry, capacity),
		freed:   make(chan struct{}, 1),
	}
	for i := range r.entries {
		r.entries[i] = &Entry{
			Input:  allocChannels(inChannels, interval),
			Output: allocChannels(outChannels, interval),
			ring:   r,
		}
	}
	return r, nil
}

func allocChannels(channels, length int) [][]float64 {
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, length)
	}
	return out
}

// SetConsumers sets how many stages reference each entry read from now on.
func (r *RingBuffer) SetConsumers(n int) { r.consumers = int32(n) }

func (r *RingBuffer) Capacity() int { return len(r.entries) }

// StartWrite returns the next slot to fill, or nil when the ring is full or
// the slot is still referenced.
func (r *RingBuffer) StartWrite() *Entry {
	w := r.write.Load()
	if w-r.read.Load() >= uint64(len(r.entries)) {
		return nil
	}
	e := r.entries[w%uint64(len(r.entries))]
	if e.refs.Load() != 0 {
		return nil
	}
	return e
}

// EndWrite publishes the slot returned by the last StartWrite.
func (r *RingBuffer) EndWrite() {
	r.write.Add(1)
}

// Read returns the oldest unread entry with its reference count set to the
// number of consumers plus one for the reader, or nil if nothing is pending.
func (r *RingBuffer) Read() *Entry {
	rd := r.read.Load()
	if rd == r.write.Load() {
		return nil
	}
	e := r.entries[rd%uint64(len(r.entries))]
	e.refs.Store(r.consumers + 1)
	r.read.Add(1)
	return e
}

// Written returns the number of entries published so far.
func (r *RingBuffer) Written() uint64 { return r.write.Load() }

// Consumed returns the number of entries handed out by Read.
func (r *RingBuffer) Consumed() uint64 { return r.read.Load() }

// MarkOverrun records that the producer found the ring full.
func (r *RingBuffer) MarkOverrun() { r.overrun.Store(true) }

// Overrun reports whether MarkOverrun was called.
func (r *RingBuffer) Overrun() bool { return r.overrun.Load() }

// Freed is signalled whenever an entry's last reference is released.
func (r *RingBuffer) Freed() <-chan struct{} { return r.freed }

func (r *RingBuffer) signalFree() {
	select {
	case r.freed <- struct{}{}:
	default:
	}
}

// RingCapacity sizes a ring so it covers bufferLength samples of history at
// the given interval: ceil(bufferLength / interval), at least 2.
func RingCapacity(bufferLength, interval int) int {
	if interval <= 0 {
		return 2
	}
	return max(bitint.CeilDiv(bufferLength, interval), 2)
}
