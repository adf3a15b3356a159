// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rtorrenttest provides an in-process rTorrent stand-in that speaks
// SCGI-framed XML-RPC on a Unix socket, for use in tests.
package rtorrenttest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kolo/xmlrpc"
)

// HandlerFunc answers one method call.
type HandlerFunc func(params []interface{}) (interface{}, error)

// Fault makes a handler answer with an XML-RPC fault.
type Fault struct {
	Code    int
	Message string
}

func (f *Fault) Error() string { return fmt.Sprintf("fault %d: %s", f.Code, f.Message) }

// Request is one call seen by the server. Calls inside a system.multicall
// are recorded individually after the multicall itself.
type Request struct {
	Method string
	Params []interface{}
	Header map[string]string
}

// Server is a stub daemon listening on a Unix socket.
type Server struct {
	Path string

	listener net.Listener
	dir      string
	closed   atomic.Bool
	wg       sync.WaitGroup

	mu       sync.Mutex
	handlers map[string]HandlerFunc
	raw      map[string][]byte
	requests []Request
}

// NewServer starts a server and stops it when the test ends.
func NewServer(tb testing.TB) *Server {
	tb.Helper()

	// Socket paths are limited to ~104 bytes, too short for t.TempDir names.
	dir, err := os.MkdirTemp("", "rtt")
	if err != nil {
		tb.Fatalf("temp dir: %v", err)
	}
	path := filepath.Join(dir, "rpc.sock")
	listener, err := net.Listen("unix", path)
	if err != nil {
		os.RemoveAll(dir)
		tb.Fatalf("listen %s: %v", path, err)
	}

	s := &Server{
		Path:     path,
		listener: listener,
		dir:      dir,
		handlers: make(map[string]HandlerFunc),
		raw:      make(map[string][]byte),
	}
	s.wg.Add(1)
	go s.serve()
	tb.Cleanup(s.Close)
	return s
}

// Handle registers fn for method.
func (s *Server) Handle(method string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = fn
}

// Respond answers method with a fixed value.
func (s *Server) Respond(method string, v interface{}) {
	s.Handle(method, func([]interface{}) (interface{}, error) { return v, nil })
}

// RespondFault answers method with a fault.
func (s *Server) RespondFault(method string, code int, message string) {
	s.Handle(method, func([]interface{}) (interface{}, error) {
		return nil, &Fault{Code: code, Message: message}
	})
}

// RespondRaw writes resp verbatim, without status header, for method.
func (s *Server) RespondRaw(method string, resp []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[method] = resp
}

// Echo answers method with its parameters as an array.
func (s *Server) Echo(method string) {
	s.Handle(method, func(params []interface{}) (interface{}, error) {
		if params == nil {
			params = []interface{}{}
		}
		return params, nil
	})
}

// Calls counts requests for method.
func (s *Server) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method {
			n++
		}
	}
	return n
}

// Requests returns every recorded request in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Close stops the listener and waits for in-flight connections.
func (s *Server) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.listener.Close()
	s.wg.Wait()
	os.RemoveAll(s.dir)
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return
			}
			continue
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	header, body, err := readRequest(bufio.NewReader(conn))
	if err != nil {
		return
	}
	method, params, err := parseCall(body)
	if err != nil {
		writeResponse(conn, faultBody(-501, err.Error()))
		return
	}
	s.record(Request{Method: method, Params: params, Header: header})

	s.mu.Lock()
	raw, ok := s.raw[method]
	s.mu.Unlock()
	if ok {
		conn.Write(raw)
		return
	}

	result, err := s.dispatch(method, params)
	if err != nil {
		var fault *Fault
		if !errors.As(err, &fault) {
			fault = &Fault{Code: -500, Message: err.Error()}
		}
		writeResponse(conn, faultBody(fault.Code, fault.Message))
		return
	}
	resp, err := resultBody(result)
	if err != nil {
		writeResponse(conn, faultBody(-500, err.Error()))
		return
	}
	writeResponse(conn, resp)
}

func (s *Server) record(r Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r)
}

func (s *Server) dispatch(method string, params []interface{}) (interface{}, error) {
	if method == "system.multicall" {
		return s.multicall(params)
	}

	s.mu.Lock()
	fn, ok := s.handlers[method]
	s.mu.Unlock()
	if !ok {
		return nil, &Fault{Code: -506, Message: fmt.Sprintf("method '%s' not defined", method)}
	}
	v, err := fn(params)
	if err != nil {
		return nil, err
	}
	if v == nil {
		// Setters answer with integer zero.
		v = int64(0)
	}
	return v, nil
}

func (s *Server) multicall(params []interface{}) (interface{}, error) {
	if len(params) != 1 {
		return nil, &Fault{Code: -500, Message: "system.multicall takes one array"}
	}
	entries, ok := params[0].([]interface{})
	if !ok {
		return nil, &Fault{Code: -500, Message: "system.multicall takes one array"}
	}

	results := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		entry, _ := e.(map[string]interface{})
		name, _ := entry["methodName"].(string)
		args, _ := entry["params"].([]interface{})
		s.record(Request{Method: name, Params: args})

		v, err := s.dispatch(name, args)
		if err != nil {
			var fault *Fault
			if !errors.As(err, &fault) {
				fault = &Fault{Code: -500, Message: err.Error()}
			}
			results = append(results, map[string]interface{}{
				"faultCode":   fault.Code,
				"faultString": fault.Message,
			})
			continue
		}
		results = append(results, []interface{}{v})
	}
	return results, nil
}

// readRequest parses "<n>:<header>,<body>".
func readRequest(r *bufio.Reader) (map[string]string, []byte, error) {
	prefix, err := r.ReadString(':')
	if err != nil {
		return nil, nil, err
	}
	n, err := strconv.Atoi(strings.TrimSuffix(prefix, ":"))
	if err != nil {
		return nil, nil, fmt.Errorf("header length: %w", err)
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, nil, err
	}
	if c, err := r.ReadByte(); err != nil || c != ',' {
		return nil, nil, errors.New("missing ',' after header")
	}

	fields := strings.Split(strings.TrimSuffix(string(raw), "\x00"), "\x00")
	if len(fields)%2 != 0 {
		return nil, nil, errors.New("odd header field count")
	}
	header := make(map[string]string, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		header[fields[i]] = fields[i+1]
	}

	length, err := strconv.Atoi(header["CONTENT_LENGTH"])
	if err != nil {
		return nil, nil, fmt.Errorf("content length: %w", err)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, nil, err
	}
	return header, body, nil
}

// parseCall reads the method name and parameters of a methodCall. The
// params are re-wrapped as one array value so the xmlrpc decoder, which
// only reads the first value of a document, sees all of them.
func parseCall(body []byte) (string, []interface{}, error) {
	doc := string(body)
	method, ok := between(doc, "<methodName>", "</methodName>")
	if !ok {
		return "", nil, errors.New("no methodName")
	}
	inner, ok := between(doc, "<params>", "</params>")
	if !ok {
		return method, nil, nil
	}
	inner = strings.ReplaceAll(inner, "<param>", "")
	inner = strings.ReplaceAll(inner, "</param>", "")

	wrapped := "<methodResponse><params><param><value><array><data>" + inner +
		"</data></array></value></param></params></methodResponse>"
	var params []interface{}
	if err := xmlrpc.Response(wrapped).Unmarshal(&params); err != nil {
		return "", nil, fmt.Errorf("params: %w", err)
	}
	// Empty <string></string> params decode to nil; record them as sent.
	return method, normalize(params).([]interface{}), nil
}

func resultBody(v interface{}) ([]byte, error) {
	value, err := encodeValue(normalize(v))
	if err != nil {
		return nil, err
	}
	return []byte(`<?xml version="1.0" encoding="UTF-8"?><methodResponse><params><param>` +
		value + `</param></params></methodResponse>`), nil
}

func faultBody(code int, message string) []byte {
	value, err := encodeValue(map[string]interface{}{"faultCode": code, "faultString": message})
	if err != nil {
		value = "<value><struct></struct></value>"
	}
	return []byte(`<?xml version="1.0" encoding="UTF-8"?><methodResponse><fault>` +
		value + `</fault></methodResponse>`)
}

// normalize replaces nested nils with empty strings. The xmlrpc decoder
// yields nil for an empty string, and the encoder cannot write a nil.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return ""
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[k] = normalize(item)
		}
		return out
	default:
		return v
	}
}

// encodeValue marshals v through the xmlrpc call encoder and cuts out the
// single <value> element.
func encodeValue(v interface{}) (string, error) {
	call, err := xmlrpc.EncodeMethodCall("value", v)
	if err != nil {
		return "", err
	}
	value, ok := between(string(call), "<param>", "</param>")
	if !ok {
		return "", errors.New("encode value")
	}
	return value, nil
}

func writeResponse(w io.Writer, body []byte) {
	fmt.Fprintf(w, "Status: 200 OK\r\nContent-Type: text/xml\r\nContent-Length: %d\r\n\r\n", len(body))
	w.Write(body)
}

func between(s, open, close string) (string, bool) {
	i := strings.Index(s, open)
	if i < 0 {
		return "", false
	}
	rest := s[i+len(open):]
	j := strings.LastIndex(rest, close)
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}
