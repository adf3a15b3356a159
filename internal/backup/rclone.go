// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package backup drives rclone to copy torrent data to a remote and to
// compare the remote against the daemon's torrents.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// DefaultBinary is looked up on PATH.
const DefaultBinary = "rclone"

// Rclone runs the rclone binary.
type Rclone struct {
	Binary string
	// Stdout and Stderr receive copy progress. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer

	log *zap.Logger
}

// New returns a runner for binary, or DefaultBinary when empty.
func New(binary string, log *zap.Logger) *Rclone {
	if binary == "" {
		binary = DefaultBinary
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Rclone{Binary: binary, log: log}
}

// Copy runs `rclone copy src dst --progress`.
func (r *Rclone) Copy(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, r.Binary, "copy", src, dst, "--progress") //nolint:gosec // binary is operator configured
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	r.log.Info("rclone copy", zap.String("src", src), zap.String("dst", dst))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("rclone copy %s %s: %w", src, dst, err)
	}
	return nil
}

// List returns the top-level entries of remote as printed by `rclone lsf`,
// with the trailing slash removed from directories.
func (r *Rclone) List(ctx context.Context, remote string) ([]string, error) {
	cmd := exec.CommandContext(ctx, r.Binary, "lsf", remote) //nolint:gosec // binary is operator configured
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("rclone lsf %s: %w: %s", remote, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("rclone lsf %s: %w", remote, err)
	}

	var entries []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		entries = append(entries, strings.TrimSuffix(line, "/"))
	}
	r.log.Debug("rclone lsf", zap.String("remote", remote), zap.Int("entries", len(entries)))
	return entries, nil
}

// Missing returns the names absent from listing, in their original order.
func Missing(names, listing []string) []string {
	present := make(map[string]struct{}, len(listing))
	for _, entry := range listing {
		present[entry] = struct{}{}
	}
	var out []string
	for _, name := range names {
		if _, ok := present[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}
