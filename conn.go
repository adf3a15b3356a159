// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rtorrent

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Conn issues XML-RPC calls over a Transport. It holds no socket between
// calls and never retries.
type Conn struct {
	transport Transport
	log       *zap.Logger
	metrics   *Metrics
}

// NewConn wraps transport. A nil logger discards output.
func NewConn(transport Transport, log *zap.Logger, metrics *Metrics) *Conn {
	if log == nil {
		log = zap.NewNop()
	}
	return &Conn{transport: transport, log: log, metrics: metrics}
}

// Call makes a single XML-RPC call and returns its decoded result.
func (c *Conn) Call(ctx context.Context, method string, params ...interface{}) (interface{}, error) {
	req, err := Encode(method, params...)
	if err != nil {
		return nil, err
	}
	return c.roundTrip(ctx, method, req, Decode)
}

// Multicall submits calls as one system.multicall and returns their results
// in the same order.
func (c *Conn) Multicall(ctx context.Context, calls ...Call) ([]interface{}, error) {
	req, err := EncodeMulticall(calls)
	if err != nil {
		return nil, err
	}
	v, err := c.roundTrip(ctx, MethodMulticall, req, func(resp []byte) (interface{}, error) {
		return DecodeMulticall(resp)
	})
	if err != nil {
		var mcErr *MulticallError
		if errors.As(err, &mcErr) && mcErr.Index < len(calls) {
			mcErr.Method = calls[mcErr.Index].Method
		}
		return nil, err
	}
	results := v.([]interface{})
	if len(results) != len(calls) {
		return nil, malformed("multicall result count differs from call count", nil)
	}
	return results, nil
}

func (c *Conn) roundTrip(ctx context.Context, method string, req []byte, decode func([]byte) (interface{}, error)) (result interface{}, err error) {
	start := time.Now()
	defer func() {
		c.metrics.observeCall(method, start, err)
		c.log.Debug("rpc call",
			zap.String("method", method),
			zap.Int("request_bytes", len(req)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
	}()

	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	return decode(resp)
}
