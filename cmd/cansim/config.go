package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// cansim.toml key mapping to simulator runtime settings.
type fileConfig struct {
	BitTimeMS      int    `toml:"bit_time_ms"`
	PollIntervalMS int    `toml:"poll_interval_ms"`
	StopTimeoutMS  int    `toml:"stop_timeout_ms"`
	LogLevel       string `toml:"log_level"`
	Trace          bool   `toml:"trace"`
}

// runtimeConfig is the resolved simulator configuration.
type runtimeConfig struct {
	BitTime      time.Duration
	PollInterval time.Duration
	StopTimeout  time.Duration
	LogLevel     string
	Trace        bool
}

func defaultRuntimeConfig() runtimeConfig {
	return runtimeConfig{
		BitTime:      20 * time.Millisecond,
		PollInterval: 100 * time.Millisecond,
		StopTimeout:  time.Second,
		LogLevel:     "info",
		Trace:        true,
	}
}

// loadRuntimeConfig overlays keys present in the TOML file onto the
// defaults. Keys absent from the file keep their default values.
func loadRuntimeConfig(path string) (runtimeConfig, error) {
	cfg := defaultRuntimeConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return runtimeConfig{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("bit_time_ms") {
		if raw.BitTimeMS < 0 {
			return runtimeConfig{}, fmt.Errorf("load config: bit_time_ms must be >= 0")
		}
		cfg.BitTime = time.Duration(raw.BitTimeMS) * time.Millisecond
	}
	if meta.IsDefined("poll_interval_ms") {
		if raw.PollIntervalMS <= 0 {
			return runtimeConfig{}, fmt.Errorf("load config: poll_interval_ms must be > 0")
		}
		cfg.PollInterval = time.Duration(raw.PollIntervalMS) * time.Millisecond
	}
	if meta.IsDefined("stop_timeout_ms") {
		if raw.StopTimeoutMS <= 0 {
			return runtimeConfig{}, fmt.Errorf("load config: stop_timeout_ms must be > 0")
		}
		cfg.StopTimeout = time.Duration(raw.StopTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = raw.LogLevel
	}
	if meta.IsDefined("trace") {
		cfg.Trace = raw.Trace
	}
	return cfg, nil
}
