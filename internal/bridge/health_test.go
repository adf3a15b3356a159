// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/luxfi/rtorrent"
)

func check(t *testing.T, h *Health, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := h.Server().Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q): %v", service, err)
	}
	return resp.GetStatus()
}

func TestHealthProbe(t *testing.T) {
	fake := newFakeTorrents()
	h := NewHealth(fake, nil)

	if got := check(t, h, HealthService); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("initial status = %s, want NOT_SERVING", got)
	}

	if got := h.Probe(context.Background()); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("Probe = %s, want SERVING", got)
	}
	for _, service := range []string{"", HealthService} {
		if got := check(t, h, service); got != healthpb.HealthCheckResponse_SERVING {
			t.Errorf("status of %q = %s, want SERVING", service, got)
		}
	}

	fake.err = &rtorrent.ConnectionError{Op: "dial", Err: errors.New("down")}
	if got := h.Probe(context.Background()); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("Probe with daemon down = %s, want NOT_SERVING", got)
	}
}

func TestHealthRun(t *testing.T) {
	fake := newFakeTorrents()
	h := NewHealth(fake, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(fake.called()) < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("Run probed %d times in 2s", len(fake.called()))
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	if got := check(t, h, HealthService); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %s, want SERVING", got)
	}
}

func TestHealthServe(t *testing.T) {
	h := NewHealth(newFakeTorrents(), nil)
	h.Probe(context.Background())

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- h.Serve(ctx, lis) }()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc client: %v", err)
	}
	defer conn.Close()

	callCtx, callCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer callCancel()
	resp, err := healthpb.NewHealthClient(conn).Check(callCtx, &healthpb.HealthCheckRequest{Service: HealthService})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %s, want SERVING", resp.GetStatus())
	}

	cancel()
	select {
	case err := <-served:
		if err != nil {
			t.Errorf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
