// SPDX-License-Identifier: MIT
package engine

import (
	"slices"
	"sync"

	"audiostream/internal/fault"
	"audiostream/internal/log"
)

// Driver owns the stage topology and starts runs against a Backend. The
// hardware, file and memory drivers embed it.
type Driver struct {
	cfg  Config
	live bool

	mu        sync.Mutex
	realtime  []RealtimeStage
	consumers []ConsumerStage
	launched  bool
	active    *Context
	last      *Context
}

// NewDriver validates cfg. A live driver polls its ring and fails runs that
// stall or overrun; an offline driver lets the producer wait for free slots.
func NewDriver(cfg Config, live bool) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Driver{cfg: cfg, live: live}, nil
}

func (d *Driver) Config() Config { return d.cfg }

// AddDsp registers a realtime or consumer stage. A value implementing both
// is registered as realtime.
func (d *Driver) AddDsp(stage any) error {
	switch st := stage.(type) {
	case RealtimeStage:
		return d.AddRealtime(st)
	case ConsumerStage:
		return d.AddConsumer(st)
	case nil:
		return fault.Configf("stage must not be nil")
	default:
		return fault.Configf("%T is neither a realtime nor a consumer stage", stage)
	}
}

func (d *Driver) AddRealtime(stage RealtimeStage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkTopologyLocked(); err != nil {
		return err
	}
	if stage == nil {
		return fault.Configf("realtime stage must not be nil")
	}
	d.realtime = append(d.realtime, stage)
	return nil
}

func (d *Driver) AddConsumer(stage ConsumerStage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkTopologyLocked(); err != nil {
		return err
	}
	if stage == nil {
		return fault.Configf("consumer stage must not be nil")
	}
	d.consumers = append(d.consumers, stage)
	return nil
}

func (d *Driver) checkTopologyLocked() error {
	if d.launched {
		return fault.Operationf("stages cannot be added after the first run")
	}
	return nil
}

// Launch starts a run with a ring of ringEntries slots, unless the config
// overrides the count. It fails with fault.ErrOperation while another run of
// this driver is active. Realtime stages implementing Resetter are reset
// first. A backend that fails to start faults the returned context.
func (d *Driver) Launch(backend Backend, ringEntries int) (*Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active != nil {
		return nil, fault.Operationf("run %s is still active", d.active.ID())
	}
	if d.cfg.RingEntries > 0 {
		ringEntries = d.cfg.RingEntries
	}
	ring, err := NewRingBuffer(ringEntries, d.cfg.InputChannels, d.cfg.OutputChannels, d.cfg.Interval)
	if err != nil {
		return nil, err
	}
	ring.SetConsumers(len(d.consumers))

	for _, st := range d.realtime {
		if r, ok := st.(Resetter); ok {
			r.Reset()
		}
	}

	ctx := newContext()
	ctx.onComplete = d.release
	sched := newScheduler(ctx, ring, backend, slices.Clone(d.consumers), d.cfg, d.live)

	var notify func()
	if !d.live {
		notify = sched.notify
	}
	producer := newProducer(ctx, ring, slices.Clone(d.realtime), d.cfg, d.live, notify)

	d.active = ctx
	d.last = ctx
	d.launched = true
	ctx.state.Store(int32(StateRunning))
	sched.start()

	log.Debugf("Driver: run %s started (%d realtime, %d consumer stages, %d ring entries)",
		ctx.ID(), len(d.realtime), len(d.consumers), ring.Capacity())

	if err := backend.Start(producer); err != nil {
		log.Errorf("Driver: backend failed to start: %v", err)
		_ = ctx.StopWithError(err)
	}
	return ctx, nil
}

func (d *Driver) release(ctx *Context) {
	d.mu.Lock()
	if d.active == ctx {
		d.active = nil
	}
	d.mu.Unlock()
}

// Running reports whether a run is active.
func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active != nil
}

// State returns the state of the most recent run, or StateInitialized.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.last == nil {
		return StateInitialized
	}
	return d.last.State()
}
