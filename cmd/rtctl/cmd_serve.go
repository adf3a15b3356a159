// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/rtorrent/internal/bridge"
)

const shutdownTimeout = 5 * time.Second

// newServeCmd creates the "rtctl serve" subcommand.
func newServeCmd(a *app) *cobra.Command {
	var listen, grpcListen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the daemon as JSON-RPC over HTTP",
		Long: "Serves Torrents.* JSON-RPC 2.0 methods on /rpc, Prometheus metrics on\n" +
			"/metrics and a reachability check on /healthz. With --grpc-listen the\n" +
			"standard gRPC health service reports the same reachability.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.bridgeURL != "" {
				return errors.New("serve talks to the daemon directly; drop --bridge")
			}
			if err := a.setup(); err != nil {
				return err
			}
			if listen == "" {
				listen = a.cfg.Bridge.Listen
			}
			if grpcListen == "" {
				grpcListen = a.cfg.Bridge.GRPCListen
			}
			interval, err := a.cfg.Interval()
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			client, err := a.client(cmd.Context(), metricsOption(reg))
			if err != nil {
				return err
			}
			handler, err := bridge.NewHandler(client, reg, a.log, a.cfg.Bridge.Origins)
			if err != nil {
				return err
			}

			ln, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("listen %s: %w", listen, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "bridge listening on http://%s\n", ln.Addr())

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			health := bridge.NewHealth(client, a.log)
			go health.Run(ctx, interval)

			errc := make(chan error, 2)
			if grpcListen != "" {
				gln, err := net.Listen("tcp", grpcListen)
				if err != nil {
					ln.Close()
					return fmt.Errorf("listen %s: %w", grpcListen, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "grpc health listening on %s\n", gln.Addr())
				go func() { errc <- health.Serve(ctx, gln) }()
			}

			srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
			}()

			select {
			case <-ctx.Done():
			case err := <-errc:
				if err != nil {
					a.log.Error("server failed", zap.Error(err))
					cancel()
					return err
				}
			}

			shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
			defer done()
			a.log.Info("shutting down bridge")
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (default from config)")
	cmd.Flags().StringVar(&grpcListen, "grpc-listen", "", "gRPC health listen address")
	return cmd
}
