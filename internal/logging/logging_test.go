// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package logging

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: Config{OutputPath: filepath.Join(t.TempDir(), "a.log")}},
		{name: "console debug", cfg: Config{Level: "debug", Format: FormatConsole, OutputPath: filepath.Join(t.TempDir(), "b.log")}},
		{name: "bad level", cfg: Config{Level: "loud"}, wantErr: true},
		{name: "bad format", cfg: Config{Format: "xml"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer log.Sync()
			wantDebug := tt.cfg.Level == "debug"
			if got := log.Core().Enabled(zapcore.DebugLevel); got != wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, wantDebug)
			}
		})
	}
}

func TestMiddlewareGeneratesRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	var seen string
	h := Middleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		if FromContext(r.Context(), nil) == nil {
			t.Error("no request logger in context")
		}
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Errorf("request id %q is not a UUID: %v", seen, err)
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("response header %q, want %q", rec.Header().Get(RequestIDHeader), seen)
	}

	entries := logs.FilterMessage("request completed").All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) || fields["size"] != int64(5) || fields["request_id"] != seen {
		t.Errorf("fields = %v", fields)
	}
}

func TestMiddlewareKeepsRequestID(t *testing.T) {
	var seen string
	h := Middleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "abc-123" {
		t.Errorf("request id = %q, want abc-123", seen)
	}
}
