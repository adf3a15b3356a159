// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luxfi/rtorrent/internal/backup"
)

// newBackupCmd creates the "rtctl backup" command group.
func newBackupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Copy torrent data with rclone and compare remotes",
	}
	cmd.AddCommand(
		newBackupCopyCmd(a),
		newBackupListCmd(a),
		newBackupMissingCmd(a),
	)
	return cmd
}

func (a *app) rclone(cmd *cobra.Command) (*backup.Rclone, error) {
	if err := a.setup(); err != nil {
		return nil, err
	}
	r := backup.New(a.cfg.Backup.Rclone, a.log)
	r.Stdout = cmd.OutOrStdout()
	r.Stderr = cmd.ErrOrStderr()
	return r, nil
}

// remoteArg falls back to backup.remote from the config.
func (a *app) remoteArg(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if a.cfg.Backup.Remote == "" {
		return "", errors.New("no remote given and backup.remote is not configured")
	}
	return a.cfg.Backup.Remote, nil
}

func newBackupCopyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <src> <dst>",
		Short: "rclone copy src to dst",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.rclone(cmd)
			if err != nil {
				return err
			}
			return r.Copy(cmd.Context(), args[0], args[1])
		},
	}
}

func newBackupListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [remote]",
		Short: "List the top level of a remote",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.rclone(cmd)
			if err != nil {
				return err
			}
			remote, err := a.remoteArg(args)
			if err != nil {
				return err
			}
			entries, err := r.List(cmd.Context(), remote)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintln(cmd.OutOrStdout(), e)
			}
			return nil
		},
	}
}

func newBackupMissingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "missing [remote]",
		Short: "List completed torrents not present on a remote",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.rclone(cmd)
			if err != nil {
				return err
			}
			remote, err := a.remoteArg(args)
			if err != nil {
				return err
			}
			t, err := a.torrents(cmd.Context())
			if err != nil {
				return err
			}
			torrents, err := t.Torrents(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := r.List(cmd.Context(), remote)
			if err != nil {
				return err
			}

			var complete []string
			for _, tr := range torrents {
				if !tr.Incomplete {
					complete = append(complete, tr.Name)
				}
			}
			for _, name := range backup.Missing(complete, entries) {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
