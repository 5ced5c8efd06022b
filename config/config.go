// Package config loads the small set of ambient knobs SDI4FS needs from the
// environment. There is no config file and no CLI surface here (the host
// program is out of scope); embedders call Load once and pass the
// result into fs.Mount.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds ambient settings, read from SDI4FS_-prefixed environment
// variables.
type Config struct {
	// LogLevel controls the verbosity of the structured logger (A.1):
	// one of "debug", "info", "warn", "error". Defaults to "info".
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// ForcePseudoClock makes the filesystem use the persisted monotonic
	// counter for block timestamps even when a real clock is available.
	// Intended for deterministic recovery tests (§9 time source note).
	ForcePseudoClock bool `envconfig:"FORCE_PSEUDO_CLOCK" default:"false"`

	// DeviceReadOnly opens the backing device read-only, rejecting any
	// mutating operation at the device layer rather than the FS layer.
	DeviceReadOnly bool `envconfig:"DEVICE_READONLY" default:"false"`
}

const envPrefix = "SDI4FS"

// Load reads Config from the environment, applying defaults for anything
// unset.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process(envPrefix, &c); err != nil {
		return Config{}, fmt.Errorf("sdi4fs: parsing environment: %w", err)
	}
	return c, nil
}
