// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rtorrent

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
)

// responseDelimiter separates the SCGI status header from the XML body.
var responseDelimiter = []byte("\r\n\r\n")

// scgiHeader returns the NUL-separated header block for a payload of n bytes.
func scgiHeader(n int) string {
	return "CONTENT_LENGTH\x00" + strconv.Itoa(n) + "\x00SCGI\x001\x00"
}

// frameSCGI wraps payload as "<len(header)>:<header>,<payload>".
func frameSCGI(payload []byte) []byte {
	header := scgiHeader(len(payload))
	prefix := strconv.Itoa(len(header))

	buf := make([]byte, 0, len(prefix)+1+len(header)+1+len(payload))
	buf = append(buf, prefix...)
	buf = append(buf, ':')
	buf = append(buf, header...)
	buf = append(buf, ',')
	buf = append(buf, payload...)
	return buf
}

// splitResponse cuts a raw response at the first CRLFCRLF.
func splitResponse(resp []byte) (header, body []byte, err error) {
	i := bytes.Index(resp, responseDelimiter)
	if i < 0 {
		return nil, nil, malformed("split header", ErrNoDelimiter)
	}
	return resp[:i], resp[i+len(responseDelimiter):], nil
}

// SocketTransport opens one stream connection per Send. It never reuses a
// connection and imposes no deadline of its own; a stalled daemon blocks the
// caller until ctx is done.
type SocketTransport struct {
	network string
	address string
	dialer  net.Dialer
}

// NewSocketTransport returns a transport for network ("unix" or "tcp") and
// address.
func NewSocketTransport(network, address string) *SocketTransport {
	return &SocketTransport{network: network, address: address}
}

func (t *SocketTransport) String() string {
	return t.network + "://" + t.address
}

// Send writes frame to a fresh connection and returns everything the peer
// sends back before closing.
func (t *SocketTransport) Send(ctx context.Context, frame []byte) ([]byte, error) {
	conn, err := t.dialer.DialContext(ctx, t.network, t.address)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Endpoint: t.String(), Err: err}
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if _, err := conn.Write(frame); err != nil {
		return nil, &ConnectionError{Op: "write", Endpoint: t.String(), Err: ctxErr(ctx, err)}
	}

	// io.ReadAll accumulates partial reads and treats EOF as completion.
	resp, err := io.ReadAll(conn)
	if err != nil {
		return nil, &ConnectionError{Op: "read", Endpoint: t.String(), Err: ctxErr(ctx, err)}
	}
	return resp, nil
}

// ctxErr prefers the context error when a close was caused by cancellation.
func ctxErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil && errors.Is(err, net.ErrClosed) {
		return cerr
	}
	return err
}
