// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rtorrent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Transport moves one framed request to the daemon and returns the raw
// response. It does not interpret either side.
type Transport interface {
	Send(ctx context.Context, frame []byte) ([]byte, error)
}

// Transport schemes
const (
	TransportUnix = "unix" // Unix domain socket, default
	TransportTCP  = "tcp"  // scgi_port listeners
)

// DefaultTransport is used for endpoints without a scheme.
const DefaultTransport = TransportUnix

// TransportFunc builds a transport for an address of its scheme.
type TransportFunc func(address string) Transport

var (
	transportsMu sync.RWMutex
	transports   = map[string]TransportFunc{
		TransportUnix: func(address string) Transport { return NewSocketTransport("unix", address) },
		TransportTCP:  func(address string) Transport { return NewSocketTransport("tcp", address) },
	}
)

// RegisterTransport installs or replaces the transport for scheme, e.g. a
// connection-reusing variant.
func RegisterTransport(scheme string, fn TransportFunc) {
	transportsMu.Lock()
	defer transportsMu.Unlock()
	transports[scheme] = fn
}

// AvailableTransports returns the registered schemes in sorted order.
func AvailableTransports() []string {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	result := make([]string, 0, len(transports))
	for name := range transports {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// HasTransport checks if a scheme is registered
func HasTransport(scheme string) bool {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	_, ok := transports[scheme]
	return ok
}

// ParseEndpoint splits "scheme://address". A bare path is a Unix socket.
func ParseEndpoint(endpoint string) (scheme, address string, err error) {
	if endpoint == "" {
		return "", "", fmt.Errorf("rtorrent: empty endpoint")
	}
	scheme, address, ok := strings.Cut(endpoint, "://")
	if !ok {
		return DefaultTransport, endpoint, nil
	}
	if address == "" {
		return "", "", fmt.Errorf("rtorrent: endpoint %q has no address", endpoint)
	}
	return scheme, address, nil
}

// NewTransport resolves endpoint through the registry.
func NewTransport(endpoint string) (Transport, error) {
	scheme, address, err := ParseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	transportsMu.RLock()
	fn, ok := transports[scheme]
	transportsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransport, scheme)
	}
	return fn(address), nil
}
