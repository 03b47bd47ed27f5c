// SPDX-License-Identifier: MIT
package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"audiostream/internal/fault"

	"github.com/google/uuid"
)

// State is the lifecycle of a run.
type State int32

const (
	StateInitialized State = iota
	StateRunning
	StateStopped
	StateFaulted
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateFaulted:
		return "faulted"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Context is one run of a driver. It is created by Launch and completes
// exactly once, either cleanly or with a *fault.RuntimeFailure.
type Context struct {
	id        uuid.UUID
	state     atomic.Int32
	processed atomic.Int64

	sched *Scheduler

	stopOnce sync.Once
	stopping chan struct{}

	done       chan struct{}
	err        error
	onComplete func(*Context)
}

func newContext() *Context {
	return &Context{
		id:       uuid.New(),
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// ID returns the run identifier used in logs and failures.
func (c *Context) ID() string { return c.id.String() }

func (c *Context) State() State { return State(c.state.Load()) }

// ProcessedSampleCount returns the number of samples per channel that went
// through the realtime chain and were published.
func (c *Context) ProcessedSampleCount() int64 { return c.processed.Load() }

// Post enqueues cmd behind every entry published so far. Interval commands
// are produced by the ring and cannot be posted. Once a Stop was posted,
// further commands are rejected with fault.ErrOperation; further Stop
// commands are accepted and only contribute their error.
func (c *Context) Post(cmd Command) error {
	if cmd == nil {
		return fault.Operationf("nil command")
	}
	if cmd.Kind() == KindInterval {
		return fault.Operationf("interval commands are produced by the ring buffer")
	}
	return c.sched.post(cmd)
}

// Stop requests a clean stop.
func (c *Context) Stop() error { return c.Post(Stop{}) }

// StopWithError requests a stop that faults the run with err.
func (c *Context) StopWithError(err error) error { return c.Post(Stop{Err: err}) }

// Done is closed once the run completed and every stage drained.
func (c *Context) Done() <-chan struct{} { return c.done }

// Err returns the run's failure after Done is closed, nil otherwise.
func (c *Context) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Wait blocks until the run completes or ctx is cancelled.
func (c *Context) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispose stops a running context, waits for it to quiesce and marks it
// disposed. It is safe to call more than once.
func (c *Context) Dispose() {
	if c.State() == StateRunning {
		_ = c.Stop()
	}
	<-c.done
	c.state.Store(int32(StateDisposed))
}

// Dispatched returns how many commands the scheduler has fanned out.
func (c *Context) Dispatched() uint64 { return c.sched.dispatched.Load() }

// Stages reports the status of every consumer stage.
func (c *Context) Stages() []StageStatus { return c.sched.status() }

func (c *Context) signalStop() {
	c.stopOnce.Do(func() { close(c.stopping) })
}

func (c *Context) complete(failures []error) {
	if len(failures) > 0 {
		c.err = &fault.RuntimeFailure{RunID: c.ID(), Errors: failures}
		c.state.Store(int32(StateFaulted))
	} else {
		c.state.Store(int32(StateStopped))
	}
	if c.onComplete != nil {
		c.onComplete(c)
	}
	close(c.done)
}
