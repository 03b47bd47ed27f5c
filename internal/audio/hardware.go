// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"audiostream/internal/engine"
	"audiostream/internal/fault"
	"audiostream/internal/log"
)

// paStream is the part of *portaudio.Stream the backend drives.
type paStream interface {
	Start() error
	Stop() error
	Close() error
}

var paOpenStream = func(p portaudio.StreamParameters, callback any) (paStream, error) {
	s, err := portaudio.OpenStream(p, callback)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// HardwareConfig configures a HardwareDriver.
type HardwareConfig struct {
	engine.Config

	// DeviceName selects the capture device: empty or "default", a numeric
	// device ID, or a case-insensitive part of the device name.
	DeviceName string
	// OutputDeviceName selects the playback device when OutputChannels > 0.
	OutputDeviceName string
	// BufferLength is the number of samples the ring may hold before the
	// producer overruns. Zero means one second.
	BufferLength int
	LowLatency   bool
}

// HardwareDriver runs stages against a PortAudio stream. The stream is opened
// on Run and closed when the run completes.
type HardwareDriver struct {
	*engine.Driver
	cfg HardwareConfig
}

func NewHardwareDriver(cfg HardwareConfig) (*HardwareDriver, error) {
	if cfg.BufferLength < 0 {
		return nil, fault.Configf("buffer length must not be negative, got %d", cfg.BufferLength)
	}
	d, err := engine.NewDriver(cfg.Config, true)
	if err != nil {
		return nil, err
	}
	return &HardwareDriver{Driver: d, cfg: cfg}, nil
}

// RingEntries is the ring size derived from the buffer length.
func (h *HardwareDriver) RingEntries() int {
	length := h.cfg.BufferLength
	if length == 0 {
		length = int(h.cfg.SampleRate)
	}
	return engine.RingCapacity(length, h.cfg.Interval)
}

// Run opens the devices and starts streaming. A device that cannot be opened
// faults the returned context.
func (h *HardwareDriver) Run() (*engine.Context, error) {
	return h.Launch(&hardwareBackend{cfg: h.cfg}, h.RingEntries())
}

type hardwareBackend struct {
	cfg         HardwareConfig
	producer    *engine.Producer
	stream      paStream
	initialized bool
	failed      atomic.Bool
}

func (b *hardwareBackend) Start(p *engine.Producer) error {
	b.producer = p
	if err := Initialize(); err != nil {
		return err
	}
	b.initialized = true

	params, err := b.streamParameters()
	if err != nil {
		return err
	}

	var callback any = b.capture
	if b.cfg.OutputChannels > 0 {
		callback = b.duplex
	}
	stream, err := paOpenStream(params, callback)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	b.stream = stream

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start stream: %w", err)
	}
	log.Infof("Hardware: streaming %d in / %d out channels at %.0f Hz, %d samples per interval",
		b.cfg.InputChannels, b.cfg.OutputChannels, b.cfg.SampleRate, b.cfg.Interval)
	return nil
}

func (b *hardwareBackend) streamParameters() (portaudio.StreamParameters, error) {
	in, err := InputDevice(b.cfg.DeviceName)
	if err != nil {
		return portaudio.StreamParameters{}, err
	}
	if in.MaxInputChannels < b.cfg.InputChannels {
		return portaudio.StreamParameters{}, fault.Configf("%s has %d input channels, %d requested",
			in.Name, in.MaxInputChannels, b.cfg.InputChannels)
	}
	latency := in.DefaultHighInputLatency
	if b.cfg.LowLatency {
		latency = in.DefaultLowInputLatency
	}
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   in,
			Channels: b.cfg.InputChannels,
			Latency:  latency,
		},
		FramesPerBuffer: b.cfg.Interval,
		SampleRate:      b.cfg.SampleRate,
	}

	if b.cfg.OutputChannels > 0 {
		out, err := OutputDevice(b.cfg.OutputDeviceName)
		if err != nil {
			return portaudio.StreamParameters{}, err
		}
		latency := out.DefaultHighOutputLatency
		if b.cfg.LowLatency {
			latency = out.DefaultLowOutputLatency
		}
		params.Output = portaudio.StreamDeviceParameters{
			Device:   out,
			Channels: b.cfg.OutputChannels,
			Latency:  latency,
		}
	}
	return params, nil
}

func (b *hardwareBackend) capture(in []int32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	b.duplex(in, nil, portaudio.StreamCallbackTimeInfo{}, flags)
}

// duplex is the stream callback. It must not block or allocate.
func (b *hardwareBackend) duplex(in, out []int32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if b.failed.Load() {
		clear(out)
		return
	}
	e := b.producer.Acquire()
	if e == nil {
		clear(out)
		return
	}

	n := min(len(in)/b.cfg.InputChannels, b.cfg.Interval)
	e.Overflow = flags&portaudio.InputOverflow != 0
	Deinterleave(e.Input, in, b.cfg.InputChannels, n)

	if err := b.producer.Process(e, n); err != nil {
		clear(out)
		if b.failed.CompareAndSwap(false, true) {
			b.producer.Fail(err)
		}
		return
	}
	if b.cfg.OutputChannels > 0 {
		Interleave(out, e.Output, b.cfg.OutputChannels, n)
	}
	b.producer.Commit(e, n)
}

func (b *hardwareBackend) Halt() error {
	var errs []error
	if b.stream != nil {
		if err := b.stream.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop stream: %w", err))
		}
		if err := b.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close stream: %w", err))
		}
		b.stream = nil
	}
	if b.initialized {
		if err := Terminate(); err != nil {
			errs = append(errs, err)
		}
		b.initialized = false
	}
	return errors.Join(errs...)
}
