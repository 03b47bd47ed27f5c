// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"audiostream/internal/log"
)

// Candidates searched when LoadConfig is given an empty path.
var searchPaths = []string{"config.yaml", "config.yml"}

// Files read by godotenv before environment overrides are applied. Values
// already present in the environment win.
var envFiles = []string{".env"}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it loads .env, applies environment
// variable overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range searchPaths {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		log.Debugf("Config: Loaded %s", path)
	}

	if err := loadEnvFiles(); err != nil {
		return nil, err
	}
	// Apply environment variable overrides AFTER loading from file.
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFiles() error {
	for _, name := range envFiles {
		if err := godotenv.Load(name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
		log.Debugf("Config: Loaded environment from %s", name)
	}
	return nil
}

// applyEnvOverrides copies ENV_* variables over the loaded values. A variable
// that is set but does not parse is an error.
func (cfg *Config) applyEnvOverrides() error {
	var errs []error
	boolVar := func(key string, dst *bool) {
		if val, ok := os.LookupEnv(key); ok {
			b, err := strconv.ParseBool(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
			log.Debugf("Config: Overriding from %s: %v", key, b)
		}
	}
	intVar := func(key string, dst *int) {
		if val, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
			log.Debugf("Config: Overriding from %s: %d", key, n)
		}
	}
	floatVar := func(key string, dst *float64) {
		if val, ok := os.LookupEnv(key); ok {
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
			log.Debugf("Config: Overriding from %s: %g", key, f)
		}
	}
	durationVar := func(key string, dst *time.Duration) {
		if val, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
			log.Debugf("Config: Overriding from %s: %s", key, d)
		}
	}
	stringVar := func(key string, dst *string) {
		if val, ok := os.LookupEnv(key); ok {
			*dst = val
			log.Debugf("Config: Overriding from %s: %s", key, val)
		}
	}

	// ENV_{...}
	// These are general overrides.
	boolVar("ENV_DEBUG", &cfg.Debug)
	stringVar("ENV_LOG_LEVEL", &cfg.LogLevel)

	// ENV_AUDIO_{...} and ENV_ENGINE_{...}
	stringVar("ENV_AUDIO_DEVICE", &cfg.Audio.Device)
	floatVar("ENV_AUDIO_SAMPLE_RATE", &cfg.Audio.SampleRate)
	intVar("ENV_AUDIO_INTERVAL", &cfg.Audio.Interval)
	durationVar("ENV_ENGINE_STALL_TIMEOUT", &cfg.Engine.StallTimeout)
	intVar("ENV_ENGINE_RING_ENTRIES", &cfg.Engine.RingEntries)

	// ENV_UDP_{...} and ENV_WS_{...}
	// These are specific to the transport layer.
	boolVar("ENV_UDP_ENABLED", &cfg.Transport.UDPEnabled)
	stringVar("ENV_UDP_TARGET_ADDRESS", &cfg.Transport.UDPTargetAddress)
	durationVar("ENV_UDP_SEND_INTERVAL", &cfg.Transport.UDPSendInterval)
	boolVar("ENV_WS_ENABLED", &cfg.Transport.WSEnabled)
	stringVar("ENV_WS_ADDRESS", &cfg.Transport.WSAddress)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid environment override: %w", err)
	}
	return nil
}
