// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rtorrent

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Option configures a Client
type Option func(*options)

type options struct {
	log       *zap.Logger
	metrics   *Metrics
	cache     *FileCache
	transport Transport
}

// WithLogger sets the logger used for round trip and cache diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records RPC and cache metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithFileCache injects the file list cache. Each client gets its own empty
// cache by default.
func WithFileCache(c *FileCache) Option {
	return func(o *options) { o.cache = c }
}

// WithTransport bypasses endpoint resolution in Dial.
func WithTransport(t Transport) Option {
	return func(o *options) { o.transport = t }
}

// Dial connects to the daemon at endpoint and verifies it answers by
// listing torrent hashes. There is no offline mode: if the probe fails the
// client is not returned.
func Dial(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	transport := o.transport
	if transport == nil {
		t, err := NewTransport(endpoint)
		if err != nil {
			return nil, err
		}
		transport = t
	}

	c := newClient(transport, o)
	if _, err := c.TorrentHashes(ctx); err != nil {
		return nil, fmt.Errorf("rtorrent: probe %s: %w", endpoint, err)
	}
	c.log.Info("connected to rtorrent", zap.String("endpoint", endpoint))
	return c, nil
}

// New builds a client on transport without probing the daemon.
func New(transport Transport, opts ...Option) *Client {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return newClient(transport, o)
}

func newClient(transport Transport, o *options) *Client {
	log := o.log
	if log == nil {
		log = zap.NewNop()
	}
	cache := o.cache
	if cache == nil {
		cache = NewFileCache()
	}
	return &Client{
		conn:    NewConn(transport, log, o.metrics),
		schema:  TorrentFields,
		files:   cache,
		log:     log,
		metrics: o.metrics,
	}
}
