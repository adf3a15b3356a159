// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/rtorrent"
	"github.com/luxfi/rtorrent/internal/bridge"
	"github.com/luxfi/rtorrent/internal/config"
	"github.com/luxfi/rtorrent/internal/rtorrenttest"
)

// newDaemon serves two torrents: A1 complete and labelled, B2 incomplete.
func newDaemon(t *testing.T) *rtorrenttest.Server {
	t.Helper()
	d := rtorrenttest.NewServer(t)

	var mu sync.Mutex
	labels := map[string]string{"A1": "linux", "B2": ""}

	d.Respond(rtorrent.MethodDownloadList, []interface{}{"A1", "B2"})
	d.Handle(rtorrent.MethodMulticall2, func(params []interface{}) (interface{}, error) {
		switch params[0] {
		case "A1":
			return []interface{}{[]interface{}{"ubuntu.iso"}}, nil
		case "B2":
			return []interface{}{[]interface{}{"Show S01/e01.mkv"}, []interface{}{"Show S01/e02.mkv"}}, nil
		}
		mu.Lock()
		defer mu.Unlock()
		return []interface{}{
			[]interface{}{"A1", "ubuntu.iso", labels["A1"], int64(0)},
			[]interface{}{"B2", "Show S01", labels["B2"], int64(1)},
		}, nil
	})
	d.Handle(rtorrent.MethodLabel, func(params []interface{}) (interface{}, error) {
		mu.Lock()
		defer mu.Unlock()
		return labels[params[0].(string)], nil
	})
	d.Handle(rtorrent.MethodSetLabel, func(params []interface{}) (interface{}, error) {
		mu.Lock()
		defer mu.Unlock()
		labels[params[0].(string)] = params[1].(string)
		return nil, nil
	})
	d.Handle("d.name", func(params []interface{}) (interface{}, error) {
		return map[string]string{"A1": "ubuntu.iso", "B2": "Show S01"}[params[0].(string)], nil
	})
	d.Respond("d.incomplete", int64(0))
	d.Handle(rtorrent.MethodMessage, func(params []interface{}) (interface{}, error) {
		if params[0] == "B2" {
			return "Tracker: timed out", nil
		}
		return "", nil
	})
	d.Respond(rtorrent.MethodDownRate, int64(300))
	d.Respond(rtorrent.MethodUpRate, int64(20))
	return d
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestHashesCmd(t *testing.T) {
	d := newDaemon(t)
	out, err := run(t, "--socket", d.Path, "hashes")
	if err != nil {
		t.Fatalf("hashes: %v", err)
	}
	if out != "A1\nB2\n" {
		t.Errorf("output = %q", out)
	}
}

func TestListCmd(t *testing.T) {
	d := newDaemon(t)
	out, err := run(t, "--socket", d.Path, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header and 2 rows:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "HASH") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "ubuntu.iso") || !strings.Contains(lines[1], "linux") || !strings.HasSuffix(lines[1], "complete") {
		t.Errorf("row A1 = %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], "incomplete") {
		t.Errorf("row B2 = %q", lines[2])
	}
}

func TestListJSON(t *testing.T) {
	d := newDaemon(t)
	out, err := run(t, "--socket", d.Path, "list", "--json")
	if err != nil {
		t.Fatalf("list --json: %v", err)
	}
	var torrents []rtorrent.Torrent
	if err := json.Unmarshal([]byte(out), &torrents); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	want := []rtorrent.Torrent{
		{Hash: "A1", Name: "ubuntu.iso", Label: "linux"},
		{Hash: "B2", Name: "Show S01", Incomplete: true},
	}
	if !reflect.DeepEqual(torrents, want) {
		t.Errorf("torrents = %+v", torrents)
	}
}

func TestShowCmd(t *testing.T) {
	d := newDaemon(t)
	out, err := run(t, "--socket", d.Path, "show", "B2")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{"B2", "Show S01", "Tracker: timed out"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestFilesCmd(t *testing.T) {
	d := newDaemon(t)

	out, err := run(t, "--socket", d.Path, "files", "B2", "--cached")
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	if out != "Show S01/e01.mkv\nShow S01/e02.mkv\n" {
		t.Errorf("output = %q", out)
	}

	out, err = run(t, "--socket", d.Path, "files", "--all")
	if err != nil {
		t.Fatalf("files --all: %v", err)
	}
	want := "A1\tubuntu.iso\nB2\tShow S01/e01.mkv\nB2\tShow S01/e02.mkv\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}

	if _, err := run(t, "--socket", d.Path, "files"); err == nil {
		t.Error("files without a hash succeeded")
	}
	if _, err := run(t, "--socket", d.Path, "files", "A1", "--all"); err == nil {
		t.Error("files with a hash and --all succeeded")
	}
}

func TestLabelCmd(t *testing.T) {
	d := newDaemon(t)

	out, err := run(t, "--socket", d.Path, "label", "A1")
	if err != nil || out != "linux\n" {
		t.Fatalf("label A1 = %q, %v", out, err)
	}

	if _, err := run(t, "--socket", d.Path, "label", "A1", "linux"); err != nil {
		t.Fatalf("label A1 linux: %v", err)
	}
	if n := d.Calls(rtorrent.MethodSetLabel); n != 0 {
		t.Errorf("unchanged label issued %d set calls", n)
	}

	if _, err := run(t, "--socket", d.Path, "label", "A1", "isos"); err != nil {
		t.Fatalf("label A1 isos: %v", err)
	}
	if n := d.Calls(rtorrent.MethodSetLabel); n != 1 {
		t.Errorf("set calls = %d, want 1", n)
	}
}

func TestSpeedsAndMessages(t *testing.T) {
	d := newDaemon(t)

	out, err := run(t, "--socket", d.Path, "speeds")
	if err != nil {
		t.Fatalf("speeds: %v", err)
	}
	if out != "down: 300 B/s\nup: 20 B/s\n" {
		t.Errorf("speeds output = %q", out)
	}

	out, err = run(t, "--socket", d.Path, "message", "A1", "B2")
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	if !strings.Contains(out, "B2  Tracker: timed out") {
		t.Errorf("message output = %q", out)
	}
	if n := d.Calls(rtorrent.MethodMulticall); n != 1 {
		t.Errorf("system.multicall sent %d times, want 1", n)
	}
}

func TestNoDaemon(t *testing.T) {
	_, err := run(t, "--socket", filepath.Join(t.TempDir(), "none.sock"), "hashes")
	var connErr *rtorrent.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("error = %v, want ConnectionError", err)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "rtctl ") {
		t.Errorf("output = %q", out)
	}
}

func TestBridgeFlag(t *testing.T) {
	d := newDaemon(t)
	client := rtorrent.New(rtorrent.NewSocketTransport("unix", d.Path))
	h, err := bridge.NewHandler(client, prometheus.NewRegistry(), nil, nil)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	out, err := run(t, "--bridge", srv.URL, "label", "B2", "tv")
	if err != nil {
		t.Fatalf("label through bridge: %v", err)
	}
	out, err = run(t, "--bridge", srv.URL, "label", "B2")
	if err != nil || out != "tv\n" {
		t.Errorf("label B2 through bridge = %q, %v", out, err)
	}
	if n := d.Calls(rtorrent.MethodSetLabel); n != 1 {
		t.Errorf("set calls = %d, want 1", n)
	}
}

func TestBackupMissing(t *testing.T) {
	d := newDaemon(t)

	dir := t.TempDir()
	script := "#!/bin/sh\nprintf 'other.iso\\nShow S01/\\n'\n"
	binary := filepath.Join(dir, "rclone")
	if err := os.WriteFile(binary, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvRclone, binary)

	out, err := run(t, "--socket", d.Path, "backup", "missing", "gdrive:seed")
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	// B2 is incomplete, so only the completed A1 is compared.
	if out != "ubuntu.iso\n" {
		t.Errorf("output = %q", out)
	}

	if _, err := run(t, "--socket", d.Path, "backup", "ls"); err == nil {
		t.Error("backup ls without a remote succeeded")
	}
}

// lockedBuffer is written by the serve goroutine and read by the test.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServeCmd(t *testing.T) {
	d := newDaemon(t)

	root := newRootCmd()
	out := &lockedBuffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs([]string{"--log-level", "error", "--socket", d.Path, "serve", "--listen", "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	const prefix = "bridge listening on "
	var url string
	deadline := time.Now().Add(5 * time.Second)
	for url == "" {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("serve did not start: %q", out.String())
		}
		for _, line := range strings.Split(out.String(), "\n") {
			if strings.HasPrefix(line, prefix) {
				url = strings.TrimPrefix(line, prefix)
			}
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, err := http.Get(url + bridge.PathHealth)
	if err != nil {
		cancel()
		t.Fatalf("GET healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}

	remote, err := bridge.NewRemote(url, nil, nil)
	if err != nil {
		cancel()
		t.Fatalf("NewRemote: %v", err)
	}
	hashes, err := remote.TorrentHashes(context.Background())
	if err != nil || !reflect.DeepEqual(hashes, []string{"A1", "B2"}) {
		t.Errorf("hashes through serve = %q, %v", hashes, err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}
