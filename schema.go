// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rtorrent

import (
	"fmt"
)

// Torrent is one download as reported by the daemon.
type Torrent struct {
	Hash       string `json:"hash"`
	Name       string `json:"name"`
	Label      string `json:"label"`
	Incomplete bool   `json:"incomplete"`
}

// Speeds are the daemon's current global transfer rates in bytes/sec.
type Speeds struct {
	Download int64 `json:"download"`
	Upload   int64 `json:"upload"`
}

// Field maps one daemon command onto one Torrent attribute.
type Field struct {
	Remote string // daemon getter, e.g. "d.name"
	Attr   string // Torrent attribute, matches its json tag

	assign func(t *Torrent, v interface{}) error
}

// Command is the multicall form of the getter, e.g. "d.name=".
func (f Field) Command() string { return f.Remote + "=" }

// FieldSchema is ordered: position i of a requested row holds field i.
type FieldSchema []Field

// Commands lists the getters in schema order for d.multicall2.
func (s FieldSchema) Commands() []interface{} {
	out := make([]interface{}, len(s))
	for i, f := range s {
		out[i] = f.Command()
	}
	return out
}

// Index returns the position of remote in the schema, or -1.
func (s FieldSchema) Index(remote string) int {
	for i, f := range s {
		if f.Remote == remote {
			return i
		}
	}
	return -1
}

// TorrentFields is the only declaration of which fields make up a Torrent.
// Requests and projections both iterate it, so their order cannot drift.
var TorrentFields = FieldSchema{
	stringField("d.hash", "hash", func(t *Torrent) *string { return &t.Hash }),
	stringField("d.name", "name", func(t *Torrent) *string { return &t.Name }),
	stringField("d.custom1", "label", func(t *Torrent) *string { return &t.Label }),
	flagField("d.incomplete", "incomplete", func(t *Torrent) *bool { return &t.Incomplete }),
}

func stringField(remote, attr string, ref func(*Torrent) *string) Field {
	return Field{Remote: remote, Attr: attr, assign: func(t *Torrent, v interface{}) error {
		s, err := asString(v)
		if err != nil {
			return err
		}
		*ref(t) = s
		return nil
	}}
}

// flagField treats any nonzero integer as true.
func flagField(remote, attr string, ref func(*Torrent) *bool) Field {
	return Field{Remote: remote, Attr: attr, assign: func(t *Torrent, v interface{}) error {
		n, err := asInt64(v)
		if err != nil {
			return err
		}
		*ref(t) = n != 0
		return nil
	}}
}

// Project builds one Torrent per row. Row widths are checked before any
// record is built, so a mismatch returns no records.
func Project(schema FieldSchema, rows [][]interface{}) ([]Torrent, error) {
	for i, row := range rows {
		if len(row) != len(schema) {
			return nil, &SchemaMismatchError{Row: i, Want: len(schema), Got: len(row)}
		}
	}

	torrents := make([]Torrent, len(rows))
	for i, row := range rows {
		for j, field := range schema {
			if err := field.assign(&torrents[i], row[j]); err != nil {
				return nil, fmt.Errorf("row %d field %s: %w", i, field.Attr, err)
			}
		}
	}
	return torrents, nil
}
