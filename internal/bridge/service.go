// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bridge exposes a torrent client over JSON-RPC 2.0 on HTTP, with a
// matching remote client and a gRPC health service.
package bridge

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/rpc/v2/json2"
	"go.uber.org/zap"

	"github.com/luxfi/rtorrent"
	"github.com/luxfi/rtorrent/internal/logging"
)

// ServiceName is the JSON-RPC service prefix, as in "Torrents.List".
const ServiceName = "Torrents"

// Torrents is the torrent facade. *rtorrent.Client talks to the daemon
// directly and *Remote goes through a bridge.
type Torrents interface {
	TorrentHashes(ctx context.Context) ([]string, error)
	Torrents(ctx context.Context) ([]rtorrent.Torrent, error)
	Torrent(ctx context.Context, hash string) (rtorrent.Torrent, error)
	TorrentFiles(ctx context.Context, hash string) ([]string, error)
	CachedTorrentFiles(ctx context.Context, hash string) ([]string, error)
	FilesForAllTorrents(ctx context.Context) (map[string][]string, error)
	Label(ctx context.Context, hash string) (string, error)
	SetLabel(ctx context.Context, hash, label string) error
	CurrentSpeeds(ctx context.Context) (rtorrent.Speeds, error)
	TorrentMessage(ctx context.Context, hash string) (string, error)
	TorrentMessages(ctx context.Context, hashes ...string) (map[string]string, error)
}

var (
	_ Torrents = (*rtorrent.Client)(nil)
	_ Torrents = (*Remote)(nil)
)

// Error codes in the JSON-RPC server error range
const (
	CodeUnreachable json2.ErrorCode = -32001
	CodeFault       json2.ErrorCode = -32002
	CodeMalformed   json2.ErrorCode = -32003
)

type (
	NoArgs struct{}

	HashArgs struct {
		Hash string `json:"hash"`
	}

	FilesArgs struct {
		Hash   string `json:"hash"`
		Cached bool   `json:"cached"`
	}

	SetLabelArgs struct {
		Hash  string `json:"hash"`
		Label string `json:"label"`
	}

	MessagesArgs struct {
		Hashes []string `json:"hashes"`
	}

	HashesReply struct {
		Hashes []string `json:"hashes"`
	}

	ListReply struct {
		Torrents []rtorrent.Torrent `json:"torrents"`
	}

	TorrentReply struct {
		Torrent rtorrent.Torrent `json:"torrent"`
	}

	FilesReply struct {
		Files []string `json:"files"`
	}

	AllFilesReply struct {
		Files map[string][]string `json:"files"`
	}

	LabelReply struct {
		Label string `json:"label"`
	}

	SpeedsReply struct {
		Speeds rtorrent.Speeds `json:"speeds"`
	}

	MessageReply struct {
		Message string `json:"message"`
	}

	MessagesReply struct {
		Messages map[string]string `json:"messages"`
	}
)

// Service is the gorilla/rpc receiver registered as "Torrents".
type Service struct {
	torrents Torrents
	log      *zap.Logger
}

// NewService wraps torrents.
func NewService(torrents Torrents, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{torrents: torrents, log: log}
}

func (s *Service) Hashes(r *http.Request, _ *NoArgs, reply *HashesReply) error {
	hashes, err := s.torrents.TorrentHashes(r.Context())
	if err != nil {
		return s.fail(r, "Hashes", err)
	}
	reply.Hashes = hashes
	return nil
}

func (s *Service) List(r *http.Request, _ *NoArgs, reply *ListReply) error {
	torrents, err := s.torrents.Torrents(r.Context())
	if err != nil {
		return s.fail(r, "List", err)
	}
	reply.Torrents = torrents
	return nil
}

func (s *Service) Get(r *http.Request, args *HashArgs, reply *TorrentReply) error {
	t, err := s.torrents.Torrent(r.Context(), args.Hash)
	if err != nil {
		return s.fail(r, "Get", err)
	}
	reply.Torrent = t
	return nil
}

// Files lists one torrent's files, through the client cache when Cached is
// set.
func (s *Service) Files(r *http.Request, args *FilesArgs, reply *FilesReply) error {
	load := s.torrents.TorrentFiles
	if args.Cached {
		load = s.torrents.CachedTorrentFiles
	}
	files, err := load(r.Context(), args.Hash)
	if err != nil {
		return s.fail(r, "Files", err)
	}
	reply.Files = files
	return nil
}

func (s *Service) AllFiles(r *http.Request, _ *NoArgs, reply *AllFilesReply) error {
	files, err := s.torrents.FilesForAllTorrents(r.Context())
	if err != nil {
		return s.fail(r, "AllFiles", err)
	}
	reply.Files = files
	return nil
}

func (s *Service) Label(r *http.Request, args *HashArgs, reply *LabelReply) error {
	label, err := s.torrents.Label(r.Context(), args.Hash)
	if err != nil {
		return s.fail(r, "Label", err)
	}
	reply.Label = label
	return nil
}

func (s *Service) SetLabel(r *http.Request, args *SetLabelArgs, _ *json2.EmptyResponse) error {
	if err := s.torrents.SetLabel(r.Context(), args.Hash, args.Label); err != nil {
		return s.fail(r, "SetLabel", err)
	}
	return nil
}

func (s *Service) Speeds(r *http.Request, _ *NoArgs, reply *SpeedsReply) error {
	speeds, err := s.torrents.CurrentSpeeds(r.Context())
	if err != nil {
		return s.fail(r, "Speeds", err)
	}
	reply.Speeds = speeds
	return nil
}

func (s *Service) Message(r *http.Request, args *HashArgs, reply *MessageReply) error {
	msg, err := s.torrents.TorrentMessage(r.Context(), args.Hash)
	if err != nil {
		return s.fail(r, "Message", err)
	}
	reply.Message = msg
	return nil
}

func (s *Service) Messages(r *http.Request, args *MessagesArgs, reply *MessagesReply) error {
	msgs, err := s.torrents.TorrentMessages(r.Context(), args.Hashes...)
	if err != nil {
		return s.fail(r, "Messages", err)
	}
	reply.Messages = msgs
	return nil
}

func (s *Service) fail(r *http.Request, method string, err error) error {
	logging.FromContext(r.Context(), s.log).Warn("bridge call failed",
		zap.String("method", ServiceName+"."+method),
		zap.Error(err),
	)
	return err
}

// faultData travels in the Data member of a CodeFault error.
type faultData struct {
	FaultCode int `json:"faultCode"`
}

// mapError turns client errors into JSON-RPC errors the Remote can map back.
func mapError(err error) error {
	var (
		connErr  *rtorrent.ConnectionError
		faultErr *rtorrent.RemoteFaultError
		badResp  *rtorrent.MalformedResponseError
	)
	switch {
	case errors.As(err, &connErr):
		return &json2.Error{Code: CodeUnreachable, Message: err.Error()}
	case errors.As(err, &faultErr):
		return &json2.Error{
			Code:    CodeFault,
			Message: faultErr.Message,
			Data:    faultData{FaultCode: faultErr.Code},
		}
	case errors.As(err, &badResp):
		return &json2.Error{Code: CodeMalformed, Message: err.Error()}
	default:
		return &json2.Error{Code: json2.E_INTERNAL, Message: err.Error()}
	}
}
