// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// PortAudio entry points, replaceable in tests.
var (
	paLibInitialize              = portaudio.Initialize
	paLibTerminate               = portaudio.Terminate
	paLibDevicesFunc             = portaudio.Devices
	paLibDefaultInputDeviceFunc  = portaudio.DefaultInputDevice
	paLibDefaultOutputDeviceFunc = portaudio.DefaultOutputDevice
	paDevicesFunc                = paDevices
)

// Device represents an audio device.
type Device struct {
	ID                int
	Name              string
	HostAPI           string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
}

// Initialize sets up the PortAudio subsystem.
// This must be called before any audio operations and paired with a Terminate() call.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// HostDevices returns all devices known to PortAudio. PortAudio must be
// initialized.
func HostDevices() ([]Device, error) {
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}
	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
		}
		if info.HostApi != nil {
			devices[i].HostAPI = info.HostApi.Name
		}
	}
	return devices, nil
}

// InputDevice resolves a device selector to an input-capable device. The
// selector is empty or "default" for the system default, a numeric device
// ID, or a case-insensitive substring of the device name.
func InputDevice(selector string) (*portaudio.DeviceInfo, error) {
	return resolveDevice(selector, true)
}

// OutputDevice is InputDevice for playback devices.
func OutputDevice(selector string) (*portaudio.DeviceInfo, error) {
	return resolveDevice(selector, false)
}

func resolveDevice(selector string, input bool) (*portaudio.DeviceInfo, error) {
	devices, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}
	kind := "output"
	if input {
		kind = "input"
	}
	channels := func(d *portaudio.DeviceInfo) int {
		if input {
			return d.MaxInputChannels
		}
		return d.MaxOutputChannels
	}

	selector = strings.TrimSpace(selector)
	if selector == "" || strings.EqualFold(selector, "default") {
		if input {
			return paLibDefaultInputDeviceFunc()
		}
		return paLibDefaultOutputDeviceFunc()
	}

	if id, err := strconv.Atoi(selector); err == nil {
		if id < 0 || id >= len(devices) {
			return nil, fmt.Errorf("invalid device ID: %d", id)
		}
		if channels(devices[id]) == 0 {
			return nil, fmt.Errorf("device %d (%s) does not support %s", id, devices[id].Name, kind)
		}
		return devices[id], nil
	}

	needle := strings.ToLower(selector)
	for _, d := range devices {
		if channels(d) > 0 && strings.Contains(strings.ToLower(d.Name), needle) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no %s device matches %q", kind, selector)
}

// DefaultDeviceIDs returns the IDs of the default input and output devices,
// -1 for a direction without a default.
func DefaultDeviceIDs() (input, output int) {
	input, output = -1, -1
	devices, err := paDevicesFunc()
	if err != nil {
		return input, output
	}
	indexOf := func(d *portaudio.DeviceInfo, err error) int {
		if err != nil || d == nil {
			return -1
		}
		for i, candidate := range devices {
			if candidate == d {
				return i
			}
		}
		return -1
	}
	return indexOf(paLibDefaultInputDeviceFunc()), indexOf(paLibDefaultOutputDeviceFunc())
}

// ListDevices writes information about all available audio devices to w.
func ListDevices(w io.Writer) error {
	devices, err := paDevicesFunc()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAvailable Audio Devices\n\n")

	for i, device := range devices {
		inputChannels := device.MaxInputChannels
		outputChannels := device.MaxOutputChannels

		deviceType := ""
		if inputChannels > 0 && outputChannels > 0 {
			deviceType = "Input/Output"
		} else if inputChannels > 0 {
			deviceType = "Input"
		} else if outputChannels > 0 {
			deviceType = "Output"
		}

		fmt.Fprintf(w, "[%d] %s (%s)\n", i, device.Name, deviceType)
		fmt.Fprintf(w, "    Input channels: %d, Output channels: %d\n", inputChannels, outputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)
		fmt.Fprintf(w, "    Latency: Low=%.2fms, High=%.2fms\n",
			device.DefaultLowInputLatency.Seconds()*1000,
			device.DefaultHighInputLatency.Seconds()*1000)
		fmt.Fprintln(w)
	}

	return nil
}

// paDevices returns all PortAudio devices, never a nil slice on success.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paLibDevicesFunc()
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}
