// SPDX-License-Identifier: MIT
package engine

import (
	"time"

	"audiostream/internal/fault"
)

const (
	// DefaultStallTimeout is how long a live run may go without a new
	// interval before it is failed with fault.ErrStall.
	DefaultStallTimeout = 3 * time.Second
	// DefaultOfflineRingEntries sizes the ring of file and memory runs.
	DefaultOfflineRingEntries = 16
	// DefaultQueueSlack is added to the ring capacity to size stage queues,
	// leaving room for out-of-band commands.
	DefaultQueueSlack = 64
	// DefaultPollInterval is how often a live scheduler checks the ring.
	DefaultPollInterval = 5 * time.Millisecond
)

// Config describes the stream shared by every backend. It is copied when a
// driver is created and cannot change afterwards.
type Config struct {
	SampleRate     float64
	Interval       int
	InputChannels  int
	OutputChannels int

	// RingEntries overrides the backend's ring sizing when positive.
	RingEntries int
	// StallTimeout overrides DefaultStallTimeout when positive.
	StallTimeout time.Duration
	// QueueSlack overrides DefaultQueueSlack when positive.
	QueueSlack int
	// PollInterval overrides DefaultPollInterval when positive.
	PollInterval time.Duration
}

func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fault.Configf("sample rate must be positive, got %g", c.SampleRate)
	}
	if c.Interval <= 0 {
		return fault.Configf("interval length must be positive, got %d", c.Interval)
	}
	if c.InputChannels < 1 {
		return fault.Configf("at least one input channel is required, got %d", c.InputChannels)
	}
	if c.OutputChannels < 0 {
		return fault.Configf("output channel count must not be negative, got %d", c.OutputChannels)
	}
	if c.RingEntries < 0 {
		return fault.Configf("ring entries must not be negative, got %d", c.RingEntries)
	}
	if c.StallTimeout < 0 {
		return fault.Configf("stall timeout must not be negative, got %s", c.StallTimeout)
	}
	if c.QueueSlack < 0 {
		return fault.Configf("queue slack must not be negative, got %d", c.QueueSlack)
	}
	return nil
}

func (c Config) stallTimeout() time.Duration {
	if c.StallTimeout > 0 {
		return c.StallTimeout
	}
	return DefaultStallTimeout
}

func (c Config) queueSlack() int {
	if c.QueueSlack > 0 {
		return c.QueueSlack
	}
	return DefaultQueueSlack
}

func (c Config) pollInterval() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return DefaultPollInterval
}

// IntervalDuration is the wall-clock length of one interval.
func (c Config) IntervalDuration() time.Duration {
	return time.Duration(float64(c.Interval) / c.SampleRate * float64(time.Second))
}
