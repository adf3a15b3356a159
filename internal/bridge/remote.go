// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/rpc/v2/json2"
	"go.uber.org/zap"

	"github.com/luxfi/rtorrent"
	"github.com/luxfi/rtorrent/internal/logging"
)

// Remote implements Torrents against a bridge's /rpc endpoint. Like the
// direct client it never retries.
type Remote struct {
	uri    *url.URL
	client *http.Client
	log    *zap.Logger
}

// NewRemote accepts the bridge base URL ("http://host:8090") or its /rpc URL.
func NewRemote(base string, client *http.Client, log *zap.Logger) (*Remote, error) {
	uri, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("bridge url: %w", err)
	}
	if uri.Scheme == "" || uri.Host == "" {
		return nil, fmt.Errorf("bridge url %q needs a scheme and host", base)
	}
	if !strings.HasSuffix(uri.Path, PathRPC) {
		uri.Path = strings.TrimSuffix(uri.Path, "/") + PathRPC
	}
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Remote{uri: uri, client: client, log: log}, nil
}

// CleanlyCloseBody drains and closes an HTTP response body so the
// connection can be reused.
func CleanlyCloseBody(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

// SendJSONRequest posts one JSON-RPC 2.0 call to uri and decodes its result
// into reply.
func SendJSONRequest(ctx context.Context, client *http.Client, uri *url.URL, method string, params, reply interface{}) error {
	body, err := json2.EncodeClientRequest(method, params)
	if err != nil {
		return fmt.Errorf("failed to encode client params: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, uri.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if id := logging.RequestID(ctx); id != "" {
		request.Header.Set(logging.RequestIDHeader, id)
	}

	resp, err := client.Do(request)
	if err != nil {
		return &rtorrent.ConnectionError{Op: "post", Endpoint: uri.String(), Err: err}
	}
	defer CleanlyCloseBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: received status code: %d", method, resp.StatusCode)
	}
	if err := json2.DecodeClientResponse(resp.Body, reply); err != nil {
		return remoteError(uri, err)
	}
	return nil
}

// remoteError maps the bridge's JSON-RPC error codes back to client errors.
func remoteError(uri *url.URL, err error) error {
	var jsonErr *json2.Error
	if !errors.As(err, &jsonErr) {
		return fmt.Errorf("failed to decode client response: %w", err)
	}
	switch jsonErr.Code {
	case CodeUnreachable:
		return &rtorrent.ConnectionError{Op: "bridge", Endpoint: uri.String(), Err: errors.New(jsonErr.Message)}
	case CodeFault:
		fault := &rtorrent.RemoteFaultError{Message: jsonErr.Message}
		var data faultData
		if raw, mErr := json.Marshal(jsonErr.Data); mErr == nil && json.Unmarshal(raw, &data) == nil {
			fault.Code = data.FaultCode
		}
		return fault
	case CodeMalformed:
		return &rtorrent.MalformedResponseError{Reason: "bridge", Err: errors.New(jsonErr.Message)}
	default:
		return jsonErr
	}
}

func (r *Remote) call(ctx context.Context, method string, params, reply interface{}) error {
	method = ServiceName + "." + method
	err := SendJSONRequest(ctx, r.client, r.uri, method, params, reply)
	r.log.Debug("bridge call", zap.String("method", method), zap.Error(err))
	return err
}

func (r *Remote) TorrentHashes(ctx context.Context) ([]string, error) {
	var reply HashesReply
	if err := r.call(ctx, "Hashes", NoArgs{}, &reply); err != nil {
		return nil, err
	}
	return reply.Hashes, nil
}

func (r *Remote) Torrents(ctx context.Context) ([]rtorrent.Torrent, error) {
	var reply ListReply
	if err := r.call(ctx, "List", NoArgs{}, &reply); err != nil {
		return nil, err
	}
	return reply.Torrents, nil
}

func (r *Remote) Torrent(ctx context.Context, hash string) (rtorrent.Torrent, error) {
	var reply TorrentReply
	if err := r.call(ctx, "Get", HashArgs{Hash: hash}, &reply); err != nil {
		return rtorrent.Torrent{}, err
	}
	return reply.Torrent, nil
}

func (r *Remote) TorrentFiles(ctx context.Context, hash string) ([]string, error) {
	return r.files(ctx, hash, false)
}

// CachedTorrentFiles uses the cache of the client behind the bridge.
func (r *Remote) CachedTorrentFiles(ctx context.Context, hash string) ([]string, error) {
	return r.files(ctx, hash, true)
}

func (r *Remote) files(ctx context.Context, hash string, cached bool) ([]string, error) {
	var reply FilesReply
	if err := r.call(ctx, "Files", FilesArgs{Hash: hash, Cached: cached}, &reply); err != nil {
		return nil, err
	}
	return reply.Files, nil
}

func (r *Remote) FilesForAllTorrents(ctx context.Context) (map[string][]string, error) {
	var reply AllFilesReply
	if err := r.call(ctx, "AllFiles", NoArgs{}, &reply); err != nil {
		return nil, err
	}
	return reply.Files, nil
}

func (r *Remote) Label(ctx context.Context, hash string) (string, error) {
	var reply LabelReply
	if err := r.call(ctx, "Label", HashArgs{Hash: hash}, &reply); err != nil {
		return "", err
	}
	return reply.Label, nil
}

func (r *Remote) SetLabel(ctx context.Context, hash, label string) error {
	var reply json2.EmptyResponse
	return r.call(ctx, "SetLabel", SetLabelArgs{Hash: hash, Label: label}, &reply)
}

func (r *Remote) CurrentSpeeds(ctx context.Context) (rtorrent.Speeds, error) {
	var reply SpeedsReply
	if err := r.call(ctx, "Speeds", NoArgs{}, &reply); err != nil {
		return rtorrent.Speeds{}, err
	}
	return reply.Speeds, nil
}

func (r *Remote) TorrentMessage(ctx context.Context, hash string) (string, error) {
	var reply MessageReply
	if err := r.call(ctx, "Message", HashArgs{Hash: hash}, &reply); err != nil {
		return "", err
	}
	return reply.Message, nil
}

func (r *Remote) TorrentMessages(ctx context.Context, hashes ...string) (map[string]string, error) {
	var reply MessagesReply
	if err := r.call(ctx, "Messages", MessagesArgs{Hashes: hashes}, &reply); err != nil {
		return nil, err
	}
	return reply.Messages, nil
}
