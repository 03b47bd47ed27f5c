// SPDX-License-Identifier: MIT
package engine

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"audiostream/internal/fault"
	"audiostream/internal/log"

	"golang.org/x/sync/errgroup"
)

// StageStatus is a snapshot of one consumer stage.
type StageStatus struct {
	Name      string
	Halted    bool
	Processed uint64
}

type pendingCommand struct {
	cmd Command
	// after is the number of entries published when cmd was posted. They
	// are dispatched before cmd.
	after uint64
}

// Scheduler fans ring entries and posted commands out to consumer stages.
type Scheduler struct {
	ctx     *Context
	ring    *RingBuffer
	backend Backend
	workers []*worker
	group   errgroup.Group

	live         bool
	stallTimeout time.Duration
	pollInterval time.Duration

	mu         sync.Mutex
	pending    []pendingCommand
	stopPosted bool
	failures   []error

	wake       chan struct{}
	dispatched atomic.Uint64
	lastEntry  time.Time
}

type worker struct {
	name      string
	stage     ConsumerStage
	queue     chan Command
	halted    atomic.Bool
	processed atomic.Uint64
}

func newScheduler(ctx *Context, ring *RingBuffer, backend Backend, stages []ConsumerStage, cfg Config, live bool) *Scheduler {
	s := &Scheduler{
		ctx:          ctx,
		ring:         ring,
		backend:      backend,
		live:         live,
		stallTimeout: cfg.stallTimeout(),
		pollInterval: cfg.pollInterval(),
		wake:         make(chan struct{}, 1),
	}
	depth := ring.Capacity() + cfg.queueSlack()
	for i, st := range stages {
		s.workers = append(s.workers, &worker{
			name:  stageName(st, i),
			stage: st,
			queue: make(chan Command, depth),
		})
	}
	ctx.sched = s
	return s
}

func (s *Scheduler) start() {
	for _, w := range s.workers {
		s.group.Go(func() error {
			w.run(s)
			return nil
		})
	}
	go s.run()
}

// notify wakes the dispatch loop. It never blocks.
func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) post(cmd Command) error {
	stop, isStop := cmd.(Stop)

	s.mu.Lock()
	if s.stopPosted {
		if isStop && stop.Err != nil {
			s.failures = append(s.failures, stop.Err)
		}
		s.mu.Unlock()
		if isStop {
			return nil
		}
		return fault.Operationf("run %s is stopping, %s dropped", s.ctx.ID(), cmd.Kind())
	}
	s.pending = append(s.pending, pendingCommand{cmd: cmd, after: s.ring.Written()})
	if isStop {
		s.stopPosted = true
		if stop.Err != nil {
			s.failures = append(s.failures, stop.Err)
		}
	}
	s.mu.Unlock()

	if isStop {
		s.ctx.signalStop()
	}
	s.notify()
	return nil
}

func (s *Scheduler) fail(err error) {
	s.mu.Lock()
	s.failures = append(s.failures, err)
	s.mu.Unlock()
}

func (s *Scheduler) stopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopPosted
}

func (s *Scheduler) run() {
	var tick <-chan time.Time
	if s.live {
		t := time.NewTicker(s.pollInterval)
		defer t.Stop()
		tick = t.C
	}
	s.lastEntry = time.Now()

	for !s.pump() {
		select {
		case <-s.wake:
		case <-tick:
			s.watch()
		}
	}
	s.finish()
}

// pump dispatches everything that is ready and reports whether Stop was
// dispatched.
func (s *Scheduler) pump() bool {
	for {
		s.mu.Lock()
		var next pendingCommand
		hasNext := len(s.pending) > 0
		if hasNext {
			next = s.pending[0]
			s.pending[0] = pendingCommand{}
			s.pending = s.pending[1:]
		}
		s.mu.Unlock()

		limit := s.ring.Written()
		if hasNext {
			limit = next.after
		}
		for s.ring.Consumed() < limit {
			e := s.ring.Read()
			if e == nil {
				break
			}
			s.dispatchEntry(e)
		}

		if !hasNext {
			return false
		}
		s.dispatch(next.cmd)
		if next.cmd.Kind() == KindStop {
			return true
		}
	}
}

// watch runs on the live poll tick.
func (s *Scheduler) watch() {
	if s.stopping() {
		return
	}
	if s.ring.Overrun() {
		log.Errorf("Scheduler: run %s overran its ring buffer (%d entries)", s.ctx.ID(), s.ring.Capacity())
		_ = s.ctx.StopWithError(fmt.Errorf("%w: producer found no free entry among %d", fault.ErrRingFull, s.ring.Capacity()))
		return
	}
	if idle := time.Since(s.lastEntry); idle > s.stallTimeout {
		log.Errorf("Scheduler: run %s received no interval for %s", s.ctx.ID(), idle.Round(time.Millisecond))
		_ = s.ctx.StopWithError(fmt.Errorf("%w: no interval for %s", fault.ErrStall, s.stallTimeout))
	}
}

func (s *Scheduler) dispatchEntry(e *Entry) {
	s.lastEntry = time.Now()
	if e.Overflow {
		s.dispatch(JumpingWarning{Position: e.Position})
	}
	s.dispatch(Interval{Entry: e, Length: e.Length})
	e.Release()
}

func (s *Scheduler) dispatch(cmd Command) {
	s.dispatched.Add(1)
	for _, w := range s.workers {
		w.queue <- cmd
	}
}

func (s *Scheduler) finish() {
	if s.backend != nil {
		if err := s.backend.Halt(); err != nil {
			s.fail(fmt.Errorf("backend halt: %w", err))
		}
	}
	for _, w := range s.workers {
		close(w.queue)
	}
	_ = s.group.Wait()

	s.mu.Lock()
	failures := slices.Clone(s.failures)
	s.mu.Unlock()

	if len(failures) > 0 {
		log.Warnf("Scheduler: run %s faulted with %d error(s)", s.ctx.ID(), len(failures))
	} else {
		log.Debugf("Scheduler: run %s stopped after %d samples", s.ctx.ID(), s.ctx.ProcessedSampleCount())
	}
	s.ctx.complete(failures)
}

func (s *Scheduler) status() []StageStatus {
	out := make([]StageStatus, len(s.workers))
	for i, w := range s.workers {
		out[i] = StageStatus{
			Name:      w.name,
			Halted:    w.halted.Load(),
			Processed: w.processed.Load(),
		}
	}
	return out
}

func (w *worker) run(s *Scheduler) {
	for cmd := range w.queue {
		if !w.halted.Load() {
			if err := w.process(s.ctx, cmd); err != nil {
				w.halted.Store(true)
				log.Errorf("Scheduler: stage %s halted: %v", w.name, err)
				s.fail(&fault.StageError{Stage: w.name, Err: err})
			}
			w.processed.Add(1)
		}
		if iv, ok := cmd.(Interval); ok {
			iv.Entry.Release()
		}
	}
}

func (w *worker) process(ctx *Context, cmd Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &fault.PanicError{Value: r}
		}
	}()
	return w.stage.Process(ctx, cmd)
}
