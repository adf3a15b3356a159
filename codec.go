// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rtorrent

import (
	"errors"
	"fmt"

	"github.com/kolo/xmlrpc"
)

// Encode serializes an XML-RPC method call and wraps it in an SCGI frame.
// Each element of params becomes one <param>: a single scalar is sent as one
// scalar parameter, a single slice as one array parameter.
func Encode(method string, params ...interface{}) ([]byte, error) {
	payload, err := xmlrpc.EncodeMethodCall(method, params...)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}
	return frameSCGI(payload), nil
}

// Decode extracts the XML body of a raw SCGI response and returns its
// result value.
func Decode(resp []byte) (interface{}, error) {
	_, body, err := splitResponse(resp)
	if err != nil {
		return nil, err
	}
	return decodeBody(body)
}

func decodeBody(body []byte) (interface{}, error) {
	r := xmlrpc.Response(body)
	if err := r.Err(); err != nil {
		var fault xmlrpc.FaultError
		if errors.As(err, &fault) {
			return nil, &RemoteFaultError{Code: fault.Code, Message: fault.String}
		}
		return nil, malformed("decode fault", err)
	}

	var result interface{}
	if err := r.Unmarshal(&result); err != nil {
		return nil, malformed("decode body", err)
	}
	return emptyStrings(result), nil
}

// emptyStrings restores the "" that the xmlrpc decoder turns into nil for
// an empty <string></string>, at any depth.
func emptyStrings(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return ""
	case []interface{}:
		for i, item := range t {
			t[i] = emptyStrings(item)
		}
		return t
	case map[string]interface{}:
		for k, item := range t {
			t[k] = emptyStrings(item)
		}
		return t
	default:
		return v
	}
}

// Decoded XML-RPC values arrive as string, int64, bool, float64,
// []interface{} or map[string]interface{}.

func asString(v interface{}) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case nil:
		return "", nil
	default:
		return "", malformed(fmt.Sprintf("want string, got %T", v), nil)
	}
}

func asInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case nil:
		return 0, nil
	default:
		return 0, malformed(fmt.Sprintf("want integer, got %T", v), nil)
	}
}

func asSlice(v interface{}) ([]interface{}, error) {
	switch s := v.(type) {
	case []interface{}:
		return s, nil
	case nil:
		return nil, nil
	default:
		return nil, malformed(fmt.Sprintf("want array, got %T", v), nil)
	}
}

func asStrings(v interface{}) ([]string, error) {
	items, err := asSlice(v)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, err := asString(item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// asRows converts an array of arrays, as returned by d.multicall2.
func asRows(v interface{}) ([][]interface{}, error) {
	items, err := asSlice(v)
	if err != nil {
		return nil, err
	}
	rows := make([][]interface{}, 0, len(items))
	for _, item := range items {
		row, err := asSlice(item)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
