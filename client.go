// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rtorrent

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Daemon methods
const (
	MethodDownloadList = "download_list"
	MethodMulticall2   = "d.multicall2"
	MethodHash         = "d.hash"
	MethodLabel        = "d.custom1"
	MethodSetLabel     = "d.custom1.set"
	MethodMessage      = "d.message"
	MethodFilePath     = "f.path"
	MethodDownRate     = "get_down_rate"
	MethodUpRate       = "get_up_rate"
)

// mainView is the daemon's view containing every torrent.
const mainView = "main"

// Client exposes torrent operations on one daemon. It owns its file list
// cache; calls are otherwise stateless and safe for concurrent use.
type Client struct {
	conn    *Conn
	schema  FieldSchema
	files   *FileCache
	log     *zap.Logger
	metrics *Metrics
}

// Conn returns the underlying RPC connection for calls the client does not
// wrap.
func (c *Client) Conn() *Conn { return c.conn }

// Multicall submits calls as one batch.
func (c *Client) Multicall(ctx context.Context, calls ...Call) ([]interface{}, error) {
	return c.conn.Multicall(ctx, calls...)
}

// TorrentHashes lists the hash of every torrent in the main view.
func (c *Client) TorrentHashes(ctx context.Context) ([]string, error) {
	v, err := c.conn.Call(ctx, MethodDownloadList, "", mainView)
	if err != nil {
		return nil, err
	}
	return asStrings(v)
}

// Torrent fetches one torrent with one call per schema field. The hash is
// known and is not requested.
func (c *Client) Torrent(ctx context.Context, hash string) (Torrent, error) {
	row := make([]interface{}, len(c.schema))
	for i, field := range c.schema {
		if field.Remote == MethodHash {
			row[i] = hash
			continue
		}
		v, err := c.conn.Call(ctx, field.Remote, hash)
		if err != nil {
			return Torrent{}, fmt.Errorf("%s %s: %w", field.Remote, hash, err)
		}
		row[i] = v
	}

	torrents, err := Project(c.schema, [][]interface{}{row})
	if err != nil {
		return Torrent{}, err
	}
	return torrents[0], nil
}

// Torrents fetches every torrent in the main view with one d.multicall2.
func (c *Client) Torrents(ctx context.Context) ([]Torrent, error) {
	params := append([]interface{}{"", mainView}, c.schema.Commands()...)
	v, err := c.conn.Call(ctx, MethodMulticall2, params...)
	if err != nil {
		return nil, err
	}
	rows, err := asRows(v)
	if err != nil {
		return nil, err
	}
	return Project(c.schema, rows)
}

// TorrentFiles asks the daemon for the file paths of hash. The cache is
// neither read nor written.
func (c *Client) TorrentFiles(ctx context.Context, hash string) ([]string, error) {
	v, err := c.conn.Call(ctx, MethodMulticall2, hash, "", MethodFilePath+"=")
	if err != nil {
		return nil, err
	}
	rows, err := asRows(v)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(rows))
	for i, row := range rows {
		if len(row) != 1 {
			return nil, &SchemaMismatchError{Row: i, Want: 1, Got: len(row)}
		}
		path, err := asString(row[0])
		if err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

// CachedTorrentFiles returns the cached file list for hash, loading it on
// first use.
func (c *Client) CachedTorrentFiles(ctx context.Context, hash string) ([]string, error) {
	files, hit, err := c.files.getOrLoad(hash, func() ([]string, error) {
		return c.TorrentFiles(ctx, hash)
	})
	if err != nil {
		return nil, err
	}
	c.metrics.observeCache(hit)
	c.log.Debug("file cache lookup", zap.String("hash", hash), zap.Bool("hit", hit))
	return files, nil
}

// FilesForAllTorrents reloads the file list of every torrent, overwriting
// the cache, and returns a copy of the whole cache.
func (c *Client) FilesForAllTorrents(ctx context.Context) (map[string][]string, error) {
	hashes, err := c.TorrentHashes(ctx)
	if err != nil {
		return nil, err
	}
	for _, hash := range hashes {
		files, err := c.TorrentFiles(ctx, hash)
		if err != nil {
			return nil, fmt.Errorf("files of %s: %w", hash, err)
		}
		c.files.Put(hash, files)
	}
	return c.files.Snapshot(), nil
}

// Label returns the user-assigned label of hash.
func (c *Client) Label(ctx context.Context, hash string) (string, error) {
	v, err := c.conn.Call(ctx, MethodLabel, hash)
	if err != nil {
		return "", err
	}
	return asString(v)
}

// SetLabel changes the label of hash. Nothing is written when the label
// already matches.
func (c *Client) SetLabel(ctx context.Context, hash, label string) error {
	current, err := c.Label(ctx, hash)
	if err != nil {
		return err
	}
	if current == label {
		c.log.Debug("label unchanged", zap.String("hash", hash), zap.String("label", label))
		return nil
	}
	if _, err := c.conn.Call(ctx, MethodSetLabel, hash, label); err != nil {
		return err
	}
	c.log.Debug("label set", zap.String("hash", hash), zap.String("from", current), zap.String("to", label))
	return nil
}

// CurrentSpeeds reads the global download and upload rates.
func (c *Client) CurrentSpeeds(ctx context.Context) (Speeds, error) {
	down, err := c.rate(ctx, MethodDownRate)
	if err != nil {
		return Speeds{}, err
	}
	up, err := c.rate(ctx, MethodUpRate)
	if err != nil {
		return Speeds{}, err
	}
	return Speeds{Download: down, Upload: up}, nil
}

func (c *Client) rate(ctx context.Context, method string) (int64, error) {
	v, err := c.conn.Call(ctx, method)
	if err != nil {
		return 0, err
	}
	return asInt64(v)
}

// TorrentMessage returns the daemon's last status or failure message for
// hash.
func (c *Client) TorrentMessage(ctx context.Context, hash string) (string, error) {
	v, err := c.conn.Call(ctx, MethodMessage, hash)
	if err != nil {
		return "", err
	}
	return asString(v)
}

// TorrentMessages fetches the message of several torrents in one batch.
func (c *Client) TorrentMessages(ctx context.Context, hashes ...string) (map[string]string, error) {
	if len(hashes) == 0 {
		return map[string]string{}, nil
	}
	calls := make([]Call, len(hashes))
	for i, hash := range hashes {
		calls[i] = NewCall(MethodMessage, hash)
	}
	results, err := c.conn.Multicall(ctx, calls...)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(hashes))
	for i, v := range results {
		msg, err := asString(v)
		if err != nil {
			return nil, err
		}
		out[hashes[i]] = msg
	}
	return out, nil
}
