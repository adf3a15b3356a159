// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rtorrent

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects RPC and cache statistics. A nil *Metrics records nothing.
type Metrics struct {
	calls        *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
}

// NewMetrics registers the client collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rtorrent_rpc_calls_total",
				Help: "Total number of RPC round trips to the daemon",
			},
			[]string{"method", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rtorrent_rpc_duration_seconds",
				Help:    "RPC round trip duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rtorrent_file_cache_lookups_total",
				Help: "File list cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) observeCall(method string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(method, outcome(err)).Inc()
	m.duration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
	}
}

func outcome(err error) string {
	var (
		connErr  *ConnectionError
		badResp  *MalformedResponseError
		faultErr *RemoteFaultError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &connErr):
		return "connection"
	case errors.As(err, &faultErr):
		return "fault"
	case errors.As(err, &badResp):
		return "malformed"
	default:
		return "error"
	}
}
