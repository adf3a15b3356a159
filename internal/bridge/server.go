// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/luxfi/rtorrent/internal/logging"
)

// Routes
const (
	PathRPC     = "/rpc"
	PathMetrics = "/metrics"
	PathHealth  = "/healthz"
)

// NewHandler serves torrents as JSON-RPC 2.0 on /rpc, gatherer on /metrics
// and a daemon reachability check on /healthz. Requests from origins are
// allowed cross-origin; an empty list allows none.
func NewHandler(torrents Torrents, gatherer prometheus.Gatherer, log *zap.Logger, origins []string) (http.Handler, error) {
	if log == nil {
		log = zap.NewNop()
	}

	server := rpc.NewServer()
	server.RegisterCodec(json2.NewCustomCodecWithErrorMapper(rpc.DefaultEncoderSelector, mapError), "application/json")
	if err := server.RegisterService(NewService(torrents, log), ServiceName); err != nil {
		return nil, fmt.Errorf("register %s service: %w", ServiceName, err)
	}

	r := mux.NewRouter()
	r.Use(logging.Middleware(log))
	r.Handle(PathRPC, server).Methods(http.MethodPost)
	r.Handle(PathMetrics, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc(PathHealth, healthz(torrents, log)).Methods(http.MethodGet)

	opts := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", logging.RequestIDHeader},
		ExposedHeaders: []string{logging.RequestIDHeader},
	}
	if len(origins) == 0 {
		// rs/cors treats an empty AllowedOrigins as "*".
		opts.AllowOriginFunc = func(string) bool { return false }
	}
	return cors.New(opts).Handler(r), nil
}

func healthz(torrents Torrents, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if _, err := torrents.TorrentHashes(r.Context()); err != nil {
			logging.FromContext(r.Context(), log).Warn("health probe failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintln(w, "unreachable")
			return
		}
		fmt.Fprintln(w, "ok")
	}
}
