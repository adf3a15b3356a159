// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// newFilesCmd creates the "rtctl files" subcommand.
func newFilesCmd(a *app) *cobra.Command {
	var cached, all bool
	cmd := &cobra.Command{
		Use:   "files [<hash>]",
		Short: "List the files of a torrent, or of every torrent with --all",
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) != 0 {
				return errors.New("--all takes no hash")
			}
			if !all && len(args) != 1 {
				return errors.New("files needs a hash or --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.torrents(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if all {
				files, err := t.FilesForAllTorrents(cmd.Context())
				if err != nil {
					return err
				}
				hashes := make([]string, 0, len(files))
				for h := range files {
					hashes = append(hashes, h)
				}
				sort.Strings(hashes)
				for _, h := range hashes {
					for _, f := range files[h] {
						fmt.Fprintf(out, "%s\t%s\n", h, f)
					}
				}
				return nil
			}

			load := t.TorrentFiles
			if cached {
				load = t.CachedTorrentFiles
			}
			files, err := load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(out, f)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&cached, "cached", false, "read through the client file cache")
	cmd.Flags().BoolVar(&all, "all", false, "refresh and print the files of every torrent")
	cmd.MarkFlagsMutuallyExclusive("cached", "all")
	return cmd
}

// newLabelCmd creates the "rtctl label" subcommand.
func newLabelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "label <hash> [label]",
		Short: "Show or set a torrent's label",
		Long:  "With one argument prints the label. With two sets it; nothing is written\nwhen the label already matches.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.torrents(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				label, err := t.Label(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), label)
				return nil
			}
			return t.SetLabel(cmd.Context(), args[0], args[1])
		},
	}
}

// newVersionCmd creates the "rtctl version" subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the rtctl version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), cmd.Root().Version)
			return nil
		},
	}
}
