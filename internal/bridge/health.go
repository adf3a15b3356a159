// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the gRPC health service name reporting the daemon.
// The empty service name mirrors it.
const HealthService = "rtorrent"

// Health reports daemon reachability through the standard gRPC health
// protocol.
type Health struct {
	server   *health.Server
	torrents Torrents
	log      *zap.Logger
}

// NewHealth starts out NOT_SERVING until the first Probe.
func NewHealth(torrents Torrents, log *zap.Logger) *Health {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Health{server: health.NewServer(), torrents: torrents, log: log}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Server returns the health server for registration on a grpc.Server.
func (h *Health) Server() *health.Server { return h.server }

// Probe lists torrent hashes and records the outcome.
func (h *Health) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if _, err := h.torrents.TorrentHashes(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		h.log.Warn("daemon probe failed", zap.Error(err))
	}
	h.set(status)
	return status
}

func (h *Health) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(HealthService, status)
}

// Run probes immediately and then every interval until ctx is done.
func (h *Health) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := h.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := h.Probe(ctx)
			if status != last {
				h.log.Info("daemon health changed", zap.Stringer("status", status))
				last = status
			}
		}
	}
}

// Serve runs a gRPC server with only the health service on lis until ctx is
// done.
func (h *Health) Serve(ctx context.Context, lis net.Listener) error {
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, h.server)

	stop := context.AfterFunc(ctx, func() {
		h.server.Shutdown()
		gs.GracefulStop()
	})
	defer stop()

	h.log.Info("grpc health listening", zap.Stringer("addr", lis.Addr()))
	if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
