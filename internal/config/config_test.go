// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/teknel/smart3ctl/pkg/smart3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smart3.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
port = "/dev/ttyUSB0"
baud = 19200
physical_layer = "rs485"
unit = 3
receive_timeout_ms = 2500

[websocket]
url = ""
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Port != "/dev/ttyUSB0" || cfg.Baud != 19200 {
		t.Errorf("port/baud: %s/%d", cfg.Port, cfg.Baud)
	}
	if cfg.Unit != 3 {
		t.Errorf("unit: %d", cfg.Unit)
	}
	if cfg.ReceiveTimeoutMs != 2500 {
		t.Errorf("receive timeout: %d", cfg.ReceiveTimeoutMs)
	}
	// Unset fields keep their defaults.
	if cfg.SendTimeoutMs != 5000 {
		t.Errorf("send timeout default lost: %d", cfg.SendTimeoutMs)
	}
	layer, err := ParseLayer(cfg.PhysicalLayer)
	if err != nil || layer != smart3.RS485 {
		t.Errorf("layer: %v %v", layer, err)
	}
}

func TestValidate(t *testing.T) {
	base := Default()
	base.Port = "/dev/ttyUSB0"

	if err := Validate(base); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := base
	bad.Baud = 4800
	if err := Validate(bad); err == nil {
		t.Error("bad baud accepted")
	}

	bad = base
	bad.PhysicalLayer = "rs999"
	if err := Validate(bad); err == nil {
		t.Error("bad layer accepted")
	}

	bad = base
	bad.Unit = 17
	if err := Validate(bad); err == nil {
		t.Error("bad unit accepted")
	}

	bad = base
	bad.Port = ""
	if err := Validate(bad); err == nil {
		t.Error("config with no transport accepted")
	}
}
