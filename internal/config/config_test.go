// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "rtctl.yaml", `
socket: /srv/rt/rpc.sock
log:
  level: debug
bridge:
  listen: ":9000"
  origins: ["http://localhost:3000"]
  probe_interval: 5s
backup:
  remote: "gdrive:seed"
`)
	t.Setenv(EnvSocket, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Socket != "/srv/rt/rpc.sock" {
		t.Errorf("Socket = %q", cfg.Socket)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "console" {
		t.Errorf("Log = %+v, want debug level and the default format", cfg.Log)
	}
	if cfg.Bridge.Listen != ":9000" || !reflect.DeepEqual(cfg.Bridge.Origins, []string{"http://localhost:3000"}) {
		t.Errorf("Bridge = %+v", cfg.Bridge)
	}
	if d, _ := cfg.Interval(); d != 5*time.Second {
		t.Errorf("Interval = %s, want 5s", d)
	}
	if cfg.Backup.Rclone != "rclone" || cfg.Backup.Remote != "gdrive:seed" {
		t.Errorf("Backup = %+v", cfg.Backup)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "rtctl.toml", `
socket = "tcp://seedbox:5000"

[log]
format = "json"

[bridge]
grpc_listen = ":9001"
probe_interval = "1m"
`)
	t.Setenv(EnvSocket, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Socket != "tcp://seedbox:5000" {
		t.Errorf("Socket = %q", cfg.Socket)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "info" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Bridge.GRPCListen != ":9001" || cfg.Bridge.Listen != "127.0.0.1:8090" {
		t.Errorf("Bridge = %+v", cfg.Bridge)
	}
	if d, _ := cfg.Interval(); d != time.Minute {
		t.Errorf("Interval = %s, want 1m", d)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		want error
	}{
		{name: "unknown extension", path: writeFile(t, "rtctl.ini", "socket=x"), want: ErrUnknownFormat},
		{name: "empty socket", path: writeFile(t, "rtctl.yaml", "socket: \"\"\n"), want: ErrNoSocket},
		{name: "missing file", path: filepath.Join(t.TempDir(), "absent.yaml"), want: os.ErrNotExist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvSocket, "")
			_, err := Load(tt.path)
			if !errors.Is(err, tt.want) {
				t.Errorf("Load error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadBadSyntax(t *testing.T) {
	path := writeFile(t, "rtctl.toml", "socket = [unterminated\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted malformed TOML")
	}
}

func TestValidateInterval(t *testing.T) {
	for _, interval := range []string{"", "soon", "0s", "-5s"} {
		cfg := Default()
		cfg.Bridge.ProbeInterval = interval
		if err := cfg.Validate(); err == nil {
			t.Errorf("Validate accepted probe_interval %q", interval)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvSocket:       "/tmp/other.sock",
		EnvLogLevel:     "warn",
		EnvLogFormat:    "",
		EnvBridgeListen: ":7000",
		EnvRclone:       "/opt/bin/rclone",
	}
	cfg := Default()
	cfg.ApplyEnv(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})

	if cfg.Socket != "/tmp/other.sock" || cfg.Log.Level != "warn" || cfg.Bridge.Listen != ":7000" || cfg.Backup.Rclone != "/opt/bin/rclone" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Log.Format != "console" {
		t.Errorf("empty variable overrode Log.Format to %q", cfg.Log.Format)
	}
	if cfg.Bridge.GRPCListen != "" {
		t.Errorf("unset variable changed GRPCListen to %q", cfg.Bridge.GRPCListen)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "rtctl.yml", "socket: /from/file.sock\n")
	t.Setenv(EnvSocket, "/from/env.sock")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Socket != "/from/env.sock" {
		t.Errorf("Socket = %q, want the environment value", cfg.Socket)
	}
}
