// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

// Package config loads the driver configuration from a TOML file.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/teknel/smart3ctl/pkg/smart3"
)

// WebSocketConfig points the driver at a remote serial gateway instead of
// a local port.
type WebSocketConfig struct {
	URL             string `toml:"url"`
	Username        string `toml:"username"`
	InsecureSkipTLS bool   `toml:"insecure_skip_tls"`
}

// Config is the driver configuration.
type Config struct {
	Port          string `toml:"port"`
	Baud          int    `toml:"baud"`
	PhysicalLayer string `toml:"physical_layer"` // "rs232" or "rs485"
	Unit          int    `toml:"unit"`           // RS-485 unit number, 1..16

	ReceiveTimeoutMs int `toml:"receive_timeout_ms"`
	SendTimeoutMs    int `toml:"send_timeout_ms"`

	TranscriptPath string `toml:"transcript_path"`
	SnapshotDir    string `toml:"snapshot_dir"`

	WebSocket WebSocketConfig `toml:"websocket"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Baud:             9600,
		PhysicalLayer:    "rs232",
		Unit:             1,
		ReceiveTimeoutMs: 5000,
		SendTimeoutMs:    5000,
	}
}

// Load reads and validates a TOML configuration file.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration invariants.
func Validate(cfg Config) error {
	if cfg.Port == "" && cfg.WebSocket.URL == "" {
		return fmt.Errorf("config needs a serial port or a websocket url")
	}
	switch cfg.Baud {
	case 9600, 19200, 38400:
	default:
		return fmt.Errorf("baud %d is not 9600, 19200 or 38400", cfg.Baud)
	}
	if _, err := ParseLayer(cfg.PhysicalLayer); err != nil {
		return err
	}
	if cfg.Unit < 1 || cfg.Unit > smart3.MaxUnitAddress {
		return fmt.Errorf("unit %d outside [1, %d]", cfg.Unit, smart3.MaxUnitAddress)
	}
	if cfg.ReceiveTimeoutMs <= 0 || cfg.SendTimeoutMs <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// ParseLayer maps the configured layer name onto the protocol constant.
func ParseLayer(name string) (smart3.PhysicalLayer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "rs232":
		return smart3.RS232, nil
	case "rs485":
		return smart3.RS485, nil
	}
	return smart3.RS232, fmt.Errorf("physical layer %q is not rs232 or rs485", name)
}
