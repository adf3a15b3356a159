// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/rtorrent"
	"github.com/luxfi/rtorrent/internal/bridge"
	"github.com/luxfi/rtorrent/internal/config"
	"github.com/luxfi/rtorrent/internal/logging"
	"github.com/luxfi/rtorrent/internal/version"
)

// app carries the persistent flags and what is built from them.
type app struct {
	configPath string
	socket     string
	bridgeURL  string
	logLevel   string

	cfg *config.Config
	log *zap.Logger
}

// newRootCmd creates the root rtctl command with all subcommands attached.
func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "rtctl",
		Short:         "rTorrent control over its SCGI socket",
		Long:          "rtctl talks XML-RPC to an rTorrent daemon over its SCGI socket, either\ndirectly or through an rtctl bridge.",
		Version:       fmt.Sprintf("rtctl %s", version.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("{{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (.yaml, .yml or .toml)")
	flags.StringVarP(&a.socket, "socket", "s", "", "daemon endpoint: socket path, unix://path or tcp://host:port")
	flags.StringVar(&a.bridgeURL, "bridge", "", "use the rtctl bridge at this URL instead of the socket")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")

	cmd.AddCommand(
		newHashesCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newFilesCmd(a),
		newLabelCmd(a),
		newSpeedsCmd(a),
		newMessageCmd(a),
		newServeCmd(a),
		newBackupCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// setup loads the config and logger once. Flags override the file and the
// environment.
func (a *app) setup() error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.socket != "" {
		cfg.Socket = a.socket
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	log, err := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.Output,
	})
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

// client dials the daemon directly.
func (a *app) client(ctx context.Context, opts ...rtorrent.Option) (*rtorrent.Client, error) {
	if err := a.setup(); err != nil {
		return nil, err
	}
	opts = append([]rtorrent.Option{rtorrent.WithLogger(a.log)}, opts...)
	return rtorrent.Dial(ctx, a.cfg.Socket, opts...)
}

// torrents returns the bridge client when --bridge is set, otherwise a
// direct client.
func (a *app) torrents(ctx context.Context) (bridge.Torrents, error) {
	if a.bridgeURL == "" {
		c, err := a.client(ctx)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	if err := a.setup(); err != nil {
		return nil, err
	}
	return bridge.NewRemote(a.bridgeURL, nil, a.log)
}

// metricsOption registers client metrics on reg.
func metricsOption(reg prometheus.Registerer) rtorrent.Option {
	return rtorrent.WithMetrics(rtorrent.NewMetrics(reg))
}
