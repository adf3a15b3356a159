// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/luxfi/rtorrent"
)

// newHashesCmd creates the "rtctl hashes" subcommand.
func newHashesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hashes",
		Short: "List torrent hashes in the main view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := a.torrents(cmd.Context())
			if err != nil {
				return err
			}
			hashes, err := t.TorrentHashes(cmd.Context())
			if err != nil {
				return err
			}
			for _, h := range hashes {
				fmt.Fprintln(cmd.OutOrStdout(), h)
			}
			return nil
		},
	}
}

// newListCmd creates the "rtctl list" subcommand.
func newListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List torrents with name, label and state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := a.torrents(cmd.Context())
			if err != nil {
				return err
			}
			torrents, err := t.Torrents(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), torrents)
			}
			return writeTorrents(cmd.OutOrStdout(), torrents)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// newShowCmd creates the "rtctl show" subcommand.
func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <hash>",
		Short: "Show one torrent and its daemon message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.torrents(cmd.Context())
			if err != nil {
				return err
			}
			torrent, err := t.Torrent(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			msg, err := t.TorrentMessage(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "hash:\t%s\n", torrent.Hash)
			fmt.Fprintf(w, "name:\t%s\n", torrent.Name)
			fmt.Fprintf(w, "label:\t%s\n", torrent.Label)
			fmt.Fprintf(w, "state:\t%s\n", state(torrent))
			fmt.Fprintf(w, "message:\t%s\n", msg)
			return w.Flush()
		},
	}
}

// newSpeedsCmd creates the "rtctl speeds" subcommand.
func newSpeedsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "speeds",
		Short: "Show global download and upload rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := a.torrents(cmd.Context())
			if err != nil {
				return err
			}
			speeds, err := t.CurrentSpeeds(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "down: %d B/s\nup: %d B/s\n", speeds.Download, speeds.Upload)
			return nil
		},
	}
}

// newMessageCmd creates the "rtctl message" subcommand.
func newMessageCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "message <hash>...",
		Short: "Show the daemon's last message for torrents",
		Long:  "Prints the daemon's last status or failure message. Several hashes are\nfetched in one system.multicall.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.torrents(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				msg, err := t.TorrentMessage(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return nil
			}

			msgs, err := t.TorrentMessages(cmd.Context(), args...)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, hash := range args {
				fmt.Fprintf(w, "%s\t%s\n", hash, msgs[hash])
			}
			return w.Flush()
		},
	}
}

func state(t rtorrent.Torrent) string {
	if t.Incomplete {
		return "incomplete"
	}
	return "complete"
}

func writeTorrents(out io.Writer, torrents []rtorrent.Torrent) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "HASH\tNAME\tLABEL\tSTATE")
	for _, t := range torrents {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Hash, t.Name, t.Label, state(t))
	}
	return w.Flush()
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
