// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads rtctl settings from a YAML or TOML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Environment overrides, applied after the file.
const (
	EnvSocket       = "RTORRENT_SOCKET"
	EnvLogLevel     = "RTCTL_LOG_LEVEL"
	EnvLogFormat    = "RTCTL_LOG_FORMAT"
	EnvBridgeListen = "RTCTL_BRIDGE_LISTEN"
	EnvGRPCListen   = "RTCTL_GRPC_LISTEN"
	EnvRclone       = "RTCTL_RCLONE"
)

var (
	ErrNoSocket      = errors.New("config: socket is required")
	ErrUnknownFormat = errors.New("config: unknown file format")
)

// Config is the rtctl configuration file.
type Config struct {
	// Socket is a daemon endpoint: a Unix socket path, unix://path or
	// tcp://host:port.
	Socket string       `yaml:"socket" toml:"socket"`
	Log    LogConfig    `yaml:"log" toml:"log"`
	Bridge BridgeConfig `yaml:"bridge" toml:"bridge"`
	Backup BackupConfig `yaml:"backup" toml:"backup"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	Output string `yaml:"output,omitempty" toml:"output,omitempty"`
}

type BridgeConfig struct {
	Listen     string   `yaml:"listen" toml:"listen"`
	GRPCListen string   `yaml:"grpc_listen,omitempty" toml:"grpc_listen,omitempty"`
	Origins    []string `yaml:"origins,omitempty" toml:"origins,omitempty"`
	// ProbeInterval is a time.ParseDuration string.
	ProbeInterval string `yaml:"probe_interval" toml:"probe_interval"`
}

type BackupConfig struct {
	Rclone string `yaml:"rclone" toml:"rclone"`
	Remote string `yaml:"remote,omitempty" toml:"remote,omitempty"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Socket: "/run/rtorrent/rpc.sock",
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Bridge: BridgeConfig{
			Listen:        "127.0.0.1:8090",
			ProbeInterval: "30s",
		},
		Backup: BackupConfig{
			Rclone: "rclone",
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
	if err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from the environment. lookup is os.LookupEnv
// outside tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	for key, field := range map[string]*string{
		EnvSocket:       &c.Socket,
		EnvLogLevel:     &c.Log.Level,
		EnvLogFormat:    &c.Log.Format,
		EnvBridgeListen: &c.Bridge.Listen,
		EnvGRPCListen:   &c.Bridge.GRPCListen,
		EnvRclone:       &c.Backup.Rclone,
	} {
		if v, ok := lookup(key); ok && v != "" {
			*field = v
		}
	}
}

// Validate checks the fields every command depends on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Socket) == "" {
		return ErrNoSocket
	}
	if _, err := c.Interval(); err != nil {
		return err
	}
	return nil
}

// Interval parses Bridge.ProbeInterval.
func (c *Config) Interval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Bridge.ProbeInterval)
	if err != nil {
		return 0, fmt.Errorf("config: probe_interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: probe_interval must be positive, got %s", d)
	}
	return d, nil
}
