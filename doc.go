// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rtorrent is a client for the rTorrent daemon's XML-RPC interface,
// which the daemon serves with SCGI framing on a Unix domain socket (or a TCP
// scgi_port) instead of HTTP.
//
// # Usage
//
//	client, err := rtorrent.Dial(ctx, "/run/rtorrent/rpc.sock",
//	    rtorrent.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	torrents, err := client.Torrents(ctx)
//	files, err := client.CachedTorrentFiles(ctx, torrents[0].Hash)
//	err = client.SetLabel(ctx, torrents[0].Hash, "movies")
//
// Dial probes the daemon with download_list and fails if it does not answer.
//
// # Wire format
//
// Every call opens a new connection, writes
//
//	<len(header)>:CONTENT_LENGTH\x00<len(body)>\x00SCGI\x001\x00,<body>
//
// and reads until the daemon closes the socket. The response is a status
// header, CRLFCRLF, and an XML-RPC methodResponse.
//
// # Architecture
//
//   - transport.go: Transport interface and the scheme registry
//   - scgi.go: SCGI framing and the socket-per-call transport
//   - codec.go: XML-RPC encode/decode and value conversion
//   - multicall.go: system.multicall batching
//   - schema.go: Torrent record and the field schema projector
//   - conn.go: Call/Multicall with logging and metrics
//   - client.go, dial.go: the torrent facade and its options
//   - cache.go: per-client file list cache
//
// No call is retried and the client sets no timeouts; pass a context with a
// deadline to bound a call against a stalled daemon.
package rtorrent
