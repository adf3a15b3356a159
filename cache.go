// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rtorrent

import (
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"
)

// FileCache maps torrent hash to file paths for the life of the process.
// Entries are never expired. Loads for one hash are collapsed into a single
// daemon call; loads for different hashes run independently. Slices handed
// out are copies.
type FileCache struct {
	mu      sync.Mutex
	entries map[string][]string
	loads   singleflight.Group
}

// NewFileCache creates an empty cache.
func NewFileCache() *FileCache {
	return &FileCache{entries: make(map[string][]string)}
}

// Get returns the cached files for hash.
func (c *FileCache) Get(hash string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	files, ok := c.entries[hash]
	return slices.Clone(files), ok
}

// Put stores files for hash, replacing any previous entry.
func (c *FileCache) Put(hash string, files []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[hash] = slices.Clone(files)
}

// getOrLoad returns the entry for hash, calling load at most once per hash
// across concurrent callers. A failed load stores nothing.
func (c *FileCache) getOrLoad(hash string, load func() ([]string, error)) (files []string, hit bool, err error) {
	if files, ok := c.Get(hash); ok {
		return files, true, nil
	}

	v, err, _ := c.loads.Do(hash, func() (interface{}, error) {
		// A load that finished after the miss above has already stored.
		if files, ok := c.Get(hash); ok {
			return files, nil
		}
		files, err := load()
		if err != nil {
			return nil, err
		}
		c.Put(hash, files)
		return files, nil
	})
	if err != nil {
		return nil, false, err
	}
	return slices.Clone(v.([]string)), false, nil
}

// Len returns the number of cached torrents.
func (c *FileCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Snapshot copies the current mapping and its file lists.
func (c *FileCache) Snapshot() map[string][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]string, len(c.entries))
	for hash, files := range c.entries {
		out[hash] = slices.Clone(files)
	}
	return out
}
