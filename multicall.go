// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rtorrent

import (
	"fmt"
)

// MethodMulticall is the reserved batching method.
const MethodMulticall = "system.multicall"

// Call is one entry of a system.multicall batch.
type Call struct {
	Method string
	Params []interface{}
}

// NewCall is shorthand for a Call literal.
func NewCall(method string, params ...interface{}) Call {
	return Call{Method: method, Params: params}
}

type multicallEntry struct {
	MethodName string        `xmlrpc:"methodName"`
	Params     []interface{} `xmlrpc:"params"`
}

// EncodeMulticall submits all calls as the single array parameter of
// system.multicall.
func EncodeMulticall(calls []Call) ([]byte, error) {
	entries := make([]multicallEntry, len(calls))
	for i, c := range calls {
		params := c.Params
		if params == nil {
			params = []interface{}{}
		}
		entries[i] = multicallEntry{MethodName: c.Method, Params: params}
	}
	return Encode(MethodMulticall, entries)
}

// DecodeMulticall returns one result per submitted call, in submission
// order. A faulted entry yields a *MulticallError wrapping the
// *RemoteFaultError.
func DecodeMulticall(resp []byte) ([]interface{}, error) {
	v, err := Decode(resp)
	if err != nil {
		return nil, err
	}
	items, err := asSlice(v)
	if err != nil {
		return nil, err
	}

	results := make([]interface{}, len(items))
	for i, item := range items {
		switch entry := item.(type) {
		case []interface{}:
			// Successful entries are wrapped in a one-element array.
			if len(entry) != 1 {
				return nil, malformed(fmt.Sprintf("multicall entry %d has %d values", i, len(entry)), nil)
			}
			results[i] = entry[0]
		case map[string]interface{}:
			fault, err := faultFromStruct(entry)
			if err != nil {
				return nil, err
			}
			return nil, &MulticallError{Index: i, Err: fault}
		default:
			return nil, malformed(fmt.Sprintf("multicall entry %d is %T", i, item), nil)
		}
	}
	return results, nil
}

func faultFromStruct(m map[string]interface{}) (*RemoteFaultError, error) {
	code, err := asInt64(m["faultCode"])
	if err != nil {
		return nil, err
	}
	msg, err := asString(m["faultString"])
	if err != nil {
		return nil, err
	}
	return &RemoteFaultError{Code: int(code), Message: msg}, nil
}
