// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/gordonklaus/portaudio"
)

func fakeDevices(t *testing.T) []*portaudio.DeviceInfo {
	t.Helper()
	api := &portaudio.HostApiInfo{Name: "Core Audio"}
	devices := []*portaudio.DeviceInfo{
		{Name: "Built-in Microphone", HostApi: api, MaxInputChannels: 1, DefaultSampleRate: 48000},
		{Name: "Built-in Speakers", HostApi: api, MaxOutputChannels: 2, DefaultSampleRate: 48000},
		{Name: "Scarlett 2i2 USB", HostApi: api, MaxInputChannels: 2, MaxOutputChannels: 2, DefaultSampleRate: 44100},
	}

	origDevices := paLibDevicesFunc
	origIn := paLibDefaultInputDeviceFunc
	origOut := paLibDefaultOutputDeviceFunc
	t.Cleanup(func() {
		paLibDevicesFunc = origDevices
		paLibDefaultInputDeviceFunc = origIn
		paLibDefaultOutputDeviceFunc = origOut
	})
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) { return devices, nil }
	paLibDefaultInputDeviceFunc = func() (*portaudio.DeviceInfo, error) { return devices[0], nil }
	paLibDefaultOutputDeviceFunc = func() (*portaudio.DeviceInfo, error) { return devices[1], nil }
	return devices
}

func TestHostDevices(t *testing.T) {
	fakeDevices(t)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("got %d devices, want 3", len(devices))
	}
	for i, d := range devices {
		if d.ID != i {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, i)
		}
		if d.HostAPI != "Core Audio" {
			t.Errorf("Device %d host API = %q", i, d.HostAPI)
		}
	}
	if devices[2].DefaultSampleRate != 44100 {
		t.Errorf("sample rate = %v, want 44100", devices[2].DefaultSampleRate)
	}
}

func TestDefaultDeviceIDs(t *testing.T) {
	fakeDevices(t)
	in, out := DefaultDeviceIDs()
	if in != 0 || out != 1 {
		t.Errorf("DefaultDeviceIDs() = (%d, %d), want (0, 1)", in, out)
	}

	paLibDefaultOutputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
		return nil, errors.New("no default output")
	}
	if _, out := DefaultDeviceIDs(); out != -1 {
		t.Errorf("output without default = %d, want -1", out)
	}
}

func TestHostDevices_paDevicesError(t *testing.T) {
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock error")
	}

	_, err := HostDevices()
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestPaDevicesNilSlice(t *testing.T) {
	orig := paLibDevicesFunc
	defer func() { paLibDevicesFunc = orig }()
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) { return nil, nil }

	devices, err := paDevices()
	if err != nil {
		t.Fatalf("paDevices error: %v", err)
	}
	if devices == nil {
		t.Error("expected empty slice, got nil")
	}
}

func TestInputDevice(t *testing.T) {
	devices := fakeDevices(t)

	tests := []struct {
		name     string
		selector string
		want     *portaudio.DeviceInfo
		substr   string
	}{
		{"Empty selects default", "", devices[0], ""},
		{"Default keyword", "Default", devices[0], ""},
		{"Numeric ID", "2", devices[2], ""},
		{"Name substring", "scarlett", devices[2], ""},
		{"Name skips output-only", "speakers", nil, "no input device"},
		{"Negative ID", "-2", nil, "invalid device ID"},
		{"Too high ID", "13", nil, "invalid device ID"},
		{"Non-input device", "1", nil, "does not support input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InputDevice(tt.selector)
			if tt.substr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.substr) {
					t.Fatalf("InputDevice(%q) error = %v, want substring %q", tt.selector, err, tt.substr)
				}
				return
			}
			if err != nil {
				t.Fatalf("InputDevice(%q) error: %v", tt.selector, err)
			}
			if got != tt.want {
				t.Errorf("InputDevice(%q) = %q, want %q", tt.selector, got.Name, tt.want.Name)
			}
		})
	}
}

func TestOutputDevice(t *testing.T) {
	devices := fakeDevices(t)

	if got, err := OutputDevice(""); err != nil || got != devices[1] {
		t.Errorf("OutputDevice default = %v, %v", got, err)
	}
	if got, err := OutputDevice("usb"); err != nil || got != devices[2] {
		t.Errorf("OutputDevice(usb) = %v, %v", got, err)
	}
	if _, err := OutputDevice("0"); err == nil || !strings.Contains(err.Error(), "does not support output") {
		t.Errorf("expected output support error, got %v", err)
	}
}

func TestInputDevice_paDefaultInputDeviceError(t *testing.T) {
	fakeDevices(t)
	paLibDefaultInputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock default input error")
	}

	_, err := InputDevice("")
	if err == nil || !strings.Contains(err.Error(), "mock default input error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestListDevices(t *testing.T) {
	fakeDevices(t)

	var buf bytes.Buffer
	if err := ListDevices(&buf); err != nil {
		t.Fatalf("ListDevices error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"[0] Built-in Microphone (Input)",
		"[1] Built-in Speakers (Output)",
		"[2] Scarlett 2i2 USB (Input/Output)",
		"Default sample rate: 44100 Hz",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestInitializeTerminateErrors(t *testing.T) {
	origInit, origTerm := paLibInitialize, paLibTerminate
	defer func() { paLibInitialize, paLibTerminate = origInit, origTerm }()

	boom := errors.New("boom")
	paLibInitialize = func() error { return boom }
	paLibTerminate = func() error { return boom }

	if err := Initialize(); !errors.Is(err, boom) || !strings.Contains(err.Error(), "failed to initialize PortAudio") {
		t.Errorf("Initialize error = %v", err)
	}
	if err := Terminate(); !errors.Is(err, boom) {
		t.Errorf("Terminate error = %v", err)
	}
}
