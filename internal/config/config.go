// SPDX-License-Identifier: MIT
package config

import (
	"time"

	"audiostream/internal/dsp"
	"audiostream/internal/engine"
	"audiostream/internal/fault"
	"audiostream/pkg/bitint"
)

// Hardware and processing limits.
const (
	MinSampleRate  = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate  = 192000 // Maximum supported sample rate (Hz)
	MaxInterval    = 8192   // Maximum interval length in samples
	MaxFrameLength = 1 << 16
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug logging.
	LogLevel  string          `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Audio     AudioConfig     `yaml:"audio"`
	Engine    EngineConfig    `yaml:"engine"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig holds settings related to audio input/output.
type AudioConfig struct {
	Device         string  `yaml:"device"`          // Input device: "default", an index, or part of its name.
	OutputDevice   string  `yaml:"output_device"`   // Output device, same forms as Device.
	SampleRate     float64 `yaml:"sample_rate"`     // Sample rate in Hz (e.g., 44100, 48000).
	Interval       int     `yaml:"interval"`        // Samples per channel delivered to stages at once.
	InputChannels  int     `yaml:"input_channels"`  // Channels captured from the input device.
	OutputChannels int     `yaml:"output_channels"` // Channels played back, 0 for capture only.
	BufferLength   int     `yaml:"buffer_length"`   // Samples of history kept by the ring, 0 for one second.
	LowLatency     bool    `yaml:"low_latency"`     // Request low latency settings from PortAudio.
}

// EngineConfig tunes the scheduler.
type EngineConfig struct {
	StallTimeout time.Duration `yaml:"stall_timeout"` // Fail a live run after this long without input.
	RingEntries  int           `yaml:"ring_entries"`  // Ring capacity override, 0 derives it from the buffer length.
	QueueSlack   int           `yaml:"queue_slack"`   // Extra stage queue room for out-of-band commands.
}

// AnalysisConfig configures the analysis stages.
type AnalysisConfig struct {
	FrameLength           int           `yaml:"frame_length"`            // STFT frame length, a power of two, 0 for two intervals.
	FrameShift            int           `yaml:"frame_shift"`             // STFT hop, 0 for half a frame.
	Window                string        `yaml:"window"`                  // Analysis window name (e.g., "Hann", "Hamming").
	NoiseGateThreshold    float64       `yaml:"noise_gate_threshold"`    // Peak below which output is muted, 0 disables.
	SpectralGateThreshold float64       `yaml:"spectral_gate_threshold"` // Bin amplitude below which bins are cleared, 0 disables.
	BeatThreshold         float64       `yaml:"beat_threshold"`          // Minimum RMS energy of a beat.
	BeatRatio             float64       `yaml:"beat_ratio"`              // Minimum energy increase over the previous interval.
	BeatCooldown          time.Duration `yaml:"beat_cooldown"`           // Minimum time between beats.
}

// RecordingConfig holds settings related to audio recording functionality.
type RecordingConfig struct {
	OutputDir   string        `yaml:"output_dir"`   // Directory to save recorded audio files.
	MaxDuration time.Duration `yaml:"max_duration"` // Maximum length of one recording, 0 for unlimited.
}

// TransportConfig holds settings related to sending analysis results over the network.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Enable sending spectrum packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between UDP packets.
	WSEnabled        bool          `yaml:"ws_enabled"`         // Enable the WebSocket broadcast server.
	WSAddress        string        `yaml:"ws_address"`         // Listen address of the WebSocket server.
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Audio: AudioConfig{
			Device:         "default",
			OutputDevice:   "default",
			SampleRate:     44100,
			Interval:       512,
			InputChannels:  1,
			OutputChannels: 0,
		},
		Engine: EngineConfig{
			StallTimeout: engine.DefaultStallTimeout,
		},
		Analysis: AnalysisConfig{
			FrameLength:   1024,
			Window:        "Hann",
			BeatThreshold: 0.1,
			BeatRatio:     1.5,
			BeatCooldown:  100 * time.Millisecond,
		},
		Recording: RecordingConfig{
			OutputDir: "./recordings",
		},
		Transport: TransportConfig{
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond, // ~30Hz
			WSAddress:        "127.0.0.1:8080",
		},
	}
}

// Validate rejects values no backend or stage could run with.
func (c *Config) Validate() error {
	a := c.Audio
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return fault.Configf("audio.sample_rate %g outside [%d, %d]", a.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if a.Interval <= 0 || a.Interval > MaxInterval {
		return fault.Configf("audio.interval %d outside [1, %d]", a.Interval, MaxInterval)
	}
	if a.InputChannels < 1 {
		return fault.Configf("audio.input_channels must be positive, got %d", a.InputChannels)
	}
	if a.OutputChannels < 0 {
		return fault.Configf("audio.output_channels must not be negative, got %d", a.OutputChannels)
	}
	if a.BufferLength < 0 {
		return fault.Configf("audio.buffer_length must not be negative, got %d", a.BufferLength)
	}

	e := c.Engine
	if e.StallTimeout < 0 {
		return fault.Configf("engine.stall_timeout must not be negative, got %s", e.StallTimeout)
	}
	if e.RingEntries < 0 || e.QueueSlack < 0 {
		return fault.Configf("engine ring_entries and queue_slack must not be negative")
	}

	an := c.Analysis
	if an.FrameLength != 0 && (an.FrameLength < 2 || an.FrameLength > MaxFrameLength || !bitint.IsPowerOfTwo(an.FrameLength)) {
		return fault.Configf("analysis.frame_length %d must be a power of two in [2, %d]", an.FrameLength, MaxFrameLength)
	}
	if frame := c.AnalysisFrameLength(); an.FrameShift < 0 || an.FrameShift > frame {
		return fault.Configf("analysis.frame_shift %d outside [0, %d]", an.FrameShift, frame)
	}
	if _, err := dsp.ParseWindowFunc(an.Window); err != nil {
		return fault.Configf("analysis.window: %v", err)
	}
	for name, v := range map[string]float64{
		"noise_gate_threshold":    an.NoiseGateThreshold,
		"spectral_gate_threshold": an.SpectralGateThreshold,
	} {
		if v < 0 || v > 1 {
			return fault.Configf("analysis.%s %g outside [0, 1]", name, v)
		}
	}
	if an.BeatThreshold < 0 || an.BeatRatio < 0 || an.BeatCooldown < 0 {
		return fault.Configf("analysis beat parameters must not be negative")
	}

	if c.Recording.MaxDuration < 0 {
		return fault.Configf("recording.max_duration must not be negative, got %s", c.Recording.MaxDuration)
	}

	t := c.Transport
	if t.UDPEnabled {
		if t.UDPTargetAddress == "" {
			return fault.Configf("transport.udp_target_address must be set when UDP is enabled")
		}
		if t.UDPSendInterval <= 0 {
			return fault.Configf("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	if t.WSEnabled && t.WSAddress == "" {
		return fault.Configf("transport.ws_address must be set when WebSocket is enabled")
	}
	return nil
}

// EngineConfig converts the audio and engine sections into the stream
// description shared by every backend.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		SampleRate:     c.Audio.SampleRate,
		Interval:       c.Audio.Interval,
		InputChannels:  c.Audio.InputChannels,
		OutputChannels: c.Audio.OutputChannels,
		RingEntries:    c.Engine.RingEntries,
		StallTimeout:   c.Engine.StallTimeout,
		QueueSlack:     c.Engine.QueueSlack,
	}
}

// AnalysisFrameLength returns analysis.frame_length, or the smallest power
// of two covering two intervals when it is 0.
func (c *Config) AnalysisFrameLength() int {
	if c.Analysis.FrameLength > 0 {
		return c.Analysis.FrameLength
	}
	return min(max(bitint.NextPowerOfTwo(2*c.Audio.Interval), 2), MaxFrameLength)
}

// WindowFunc returns the parsed analysis window. Validate reports unknown names.
func (c *Config) WindowFunc() dsp.WindowFunc {
	w, _ := dsp.ParseWindowFunc(c.Analysis.Window)
	return w
}

// MaxRecordingSamples converts recording.max_duration to samples per
// channel, 0 meaning unbounded.
func (c *Config) MaxRecordingSamples() int64 {
	return int64(c.Recording.MaxDuration.Seconds() * c.Audio.SampleRate)
}

// BeatCooldownSamples converts analysis.beat_cooldown to samples.
func (c *Config) BeatCooldownSamples() int64 {
	return int64(c.Analysis.BeatCooldown.Seconds() * c.Audio.SampleRate)
}
