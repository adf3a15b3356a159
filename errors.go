// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rtorrent

import (
	"errors"
	"fmt"
)

var (
	ErrNoDelimiter      = errors.New("rtorrent: response has no header delimiter")
	ErrUnknownTransport = errors.New("rtorrent: unknown transport")
)

// ConnectionError reports a failure to reach the daemon or to move bytes
// over the socket.
type ConnectionError struct {
	Op       string // e.g. "dial", "write", "read"
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("rtorrent: %s %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// MalformedResponseError reports a response that could not be demarcated or
// decoded.
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err == nil {
		return "rtorrent: malformed response: " + e.Reason
	}
	return fmt.Sprintf("rtorrent: malformed response: %s: %v", e.Reason, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// RemoteFaultError is an XML-RPC fault returned by the daemon.
type RemoteFaultError struct {
	Code    int
	Message string
}

func (e *RemoteFaultError) Error() string {
	return fmt.Sprintf("rtorrent: fault %d: %s", e.Code, e.Message)
}

// SchemaMismatchError means a decoded row does not have one value per
// requested field. It indicates a programming error, never a daemon state.
type SchemaMismatchError struct {
	Row  int
	Want int
	Got  int
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("rtorrent: row %d has %d fields, schema has %d", e.Row, e.Got, e.Want)
}

// MulticallError locates a fault inside a system.multicall batch.
type MulticallError struct {
	Index  int
	Method string
	Err    error
}

func (e *MulticallError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("rtorrent: multicall entry %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("rtorrent: multicall entry %d (%s): %v", e.Index, e.Method, e.Err)
}

func (e *MulticallError) Unwrap() error { return e.Err }

func malformed(reason string, err error) error {
	return &MalformedResponseError{Reason: reason, Err: err}
}
