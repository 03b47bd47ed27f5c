// SPDX-License-Identifier: MIT
package engine

import (
	"errors"
	"fmt"
	"io"
	"time"

	"audiostream/internal/fault"
)

// Source fills up to len(dst[ch]) samples per channel and returns how many
// were written. It returns io.EOF, possibly together with a final partial
// block, once the input is exhausted.
type Source interface {
	Fill(dst [][]float64) (int, error)
}

// Sink consumes the first n output samples of every channel.
type Sink interface {
	Drain(src [][]float64, n int) error
}

// Backend drives a Producer. Start must not block; Halt stops production and
// returns once the backend no longer touches the producer.
type Backend interface {
	Start(p *Producer) error
	Halt() error
}

// Producer is the write side of a run. Exactly one goroutine (or audio
// callback) may use it at a time.
type Producer struct {
	ctx      *Context
	ring     *RingBuffer
	stages   []RealtimeStage
	names    []string
	cfg      Config
	live     bool
	position int64
	notify   func()
}

func newProducer(ctx *Context, ring *RingBuffer, stages []RealtimeStage, cfg Config, live bool, notify func()) *Producer {
	names := make([]string, len(stages))
	for i, st := range stages {
		names[i] = stageName(st, i)
	}
	return &Producer{
		ctx:    ctx,
		ring:   ring,
		stages: stages,
		names:  names,
		cfg:    cfg,
		live:   live,
		notify: notify,
	}
}

func (p *Producer) Context() *Context { return p.ctx }
func (p *Producer) Config() Config    { return p.cfg }

// Stopping is closed once a Stop command was posted.
func (p *Producer) Stopping() <-chan struct{} { return p.ctx.stopping }

// Acquire returns the next free entry or nil when the ring is full. A live
// producer records the overrun so the scheduler can fail the run.
func (p *Producer) Acquire() *Entry {
	e := p.ring.StartWrite()
	if e == nil {
		if p.live {
			p.ring.MarkOverrun()
		}
		return nil
	}
	e.Overflow = false
	return e
}

// AcquireWait waits for a free entry. It returns nil once the run is
// stopping.
func (p *Producer) AcquireWait() *Entry {
	for {
		select {
		case <-p.ctx.stopping:
			return nil
		default:
		}
		if e := p.Acquire(); e != nil {
			return e
		}
		select {
		case <-p.ring.Freed():
		case <-p.ctx.stopping:
			return nil
		}
	}
}

// Process zeroes the entry's output and runs the realtime chain over the
// first n samples.
func (p *Producer) Process(e *Entry, n int) error {
	for ch := range e.Output {
		clear(e.Output[ch][:n])
	}
	for i, st := range p.stages {
		if err := runRealtime(st, e.Input, e.Output, n); err != nil {
			return &fault.StageError{Stage: p.names[i], Err: err}
		}
	}
	return nil
}

func runRealtime(st RealtimeStage, input, output [][]float64, n int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &fault.PanicError{Value: r}
		}
	}()
	return st.Process(input, output, n)
}

// Commit publishes the entry. The processed count advances only after the
// entry is visible to the scheduler.
func (p *Producer) Commit(e *Entry, n int) {
	e.Length = n
	e.Position = p.position
	e.Time = time.Now()
	p.ring.EndWrite()
	p.position += int64(n)
	p.ctx.processed.Add(int64(n))
	if p.notify != nil {
		p.notify()
	}
}

// Fail stops the run with err.
func (p *Producer) Fail(err error) {
	_ = p.ctx.StopWithError(err)
}

// Pump runs the offline produce loop until src is exhausted, the run stops
// or an error occurs. On exhaustion it posts Stop. sink may be nil.
func (p *Producer) Pump(src Source, sink Sink) error {
	for {
		e := p.AcquireWait()
		if e == nil {
			return nil
		}

		n, err := src.Fill(e.Input)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("source fill: %w", err)
		}
		if n > 0 {
			if perr := p.Process(e, n); perr != nil {
				return perr
			}
			if sink != nil {
				if derr := sink.Drain(e.Output, n); derr != nil {
					return fmt.Errorf("sink drain: %w", derr)
				}
			}
			p.Commit(e, n)
		}
		if err != nil {
			return p.ctx.Stop()
		}
	}
}

// OfflineBackend runs Pump on its own goroutine. It serves every backend
// whose input is not paced by hardware.
type OfflineBackend struct {
	Source Source
	Sink   Sink
	// Close is called after the pump exits, e.g. to flush a file.
	Close func() error

	done chan struct{}
}

func (b *OfflineBackend) Start(p *Producer) error {
	b.done = make(chan struct{})
	go func() {
		defer close(b.done)
		if err := p.Pump(b.Source, b.Sink); err != nil {
			p.Fail(err)
		}
	}()
	return nil
}

func (b *OfflineBackend) Halt() error {
	if b.done != nil {
		<-b.done
	}
	if b.Close != nil {
		return b.Close()
	}
	return nil
}
