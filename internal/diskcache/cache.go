// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package diskcache is a process-local, size-bounded cache of decoded
// upstream artifacts. Values are JSON-encoded into uuid-named files under a
// base directory; the index lives in memory only, so the directory is
// scrubbed on startup.
package diskcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrNoSpace means the value does not fit the size budget even after
// evicting every live entry.
var ErrNoSpace = errors.New("diskcache: value exceeds cache size")

type cacheKey struct {
	url   string
	query string
}

type cacheEntry struct {
	uuid       string
	expiration time.Time
	size       uint64
}

// Cache is safe for concurrent use. A single mutex covers the index, the
// running total and the file operations that depend on them.
type Cache struct {
	mu        sync.Mutex
	dir       string
	maxSize   uint64
	totalSize uint64
	entries   map[cacheKey]cacheEntry
}

// New ensures dir exists, scrubs any stray files left by a previous run and
// returns an empty cache bounded by maxSize bytes.
func New(dir string, maxSize uint64) (*Cache, error) {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("stat cache dir: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("cache dir %q is not a directory", dir)
	}

	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read cache dir: %w", err)
	}
	for _, de := range dirents {
		if !de.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, de.Name())); err != nil {
			log.Warn().Err(err).Str("file", de.Name()).Msg("failed to scrub stale cache file")
		}
	}

	return &Cache{
		dir:     dir,
		maxSize: maxSize,
		entries: make(map[cacheKey]cacheEntry),
	}, nil
}

// Put stores v under (url, query) for lifetime. Expired entries are cleaned
// first, then entries are evicted oldest-expiration-first until v fits;
// ErrNoSpace if it never does.
func (c *Cache) Put(url, query string, lifetime time.Duration, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	size := uint64(len(data))

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.cleanupLocked(now)

	for c.totalSize+size > c.maxSize && len(c.entries) > 0 {
		c.evictOldestLocked()
	}
	if c.totalSize+size > c.maxSize {
		return ErrNoSpace
	}

	id := uuid.NewString()
	path := filepath.Join(c.dir, id)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			log.Warn().Err(rmErr).Str("file", id).Msg("failed to remove partial cache file")
		}
		return fmt.Errorf("write cache file: %w", err)
	}

	key := cacheKey{url: url, query: query}
	if old, ok := c.entries[key]; ok {
		c.removeLocked(key, old)
	}
	c.entries[key] = cacheEntry{uuid: id, expiration: now.Add(lifetime), size: size}
	c.totalSize += size
	return nil
}

// Get decodes the live entry under (url, query) into v and reports whether
// it was found. An expired entry is removed and counts as a miss; file read
// or decode failures count as a miss without evicting.
func (c *Cache) Get(url, query string, v any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.cleanupLocked(now)

	key := cacheKey{url: url, query: query}
	entry, ok := c.entries[key]
	if !ok {
		return false
	}
	if !entry.expiration.After(now) {
		c.removeLocked(key, entry)
		return false
	}

	data, err := os.ReadFile(filepath.Join(c.dir, entry.uuid))
	if err != nil {
		log.Warn().Err(err).Str("file", entry.uuid).Msg("failed to read cache file")
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Warn().Err(err).Str("file", entry.uuid).Msg("failed to decode cache file")
		return false
	}
	return true
}

// Remove drops the entry under (url, query) if present.
func (c *Cache) Remove(url, query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{url: url, query: query}
	if entry, ok := c.entries[key]; ok {
		c.removeLocked(key, entry)
	}
}

// Cleanup drops every entry whose expiration has passed.
func (c *Cache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupLocked(time.Now())
}

// TotalSize returns the byte total of live entries.
func (c *Cache) TotalSize() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalSize
}

// Len returns the live entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) cleanupLocked(now time.Time) {
	for key, entry := range c.entries {
		if !entry.expiration.After(now) {
			c.removeLocked(key, entry)
		}
	}
}

// evictOldestLocked removes the entry with the earliest expiration. Ties
// break on the uuid so repeated runs behave the same.
func (c *Cache) evictOldestLocked() {
	var oldestKey cacheKey
	var oldest cacheEntry
	found := false
	for key, entry := range c.entries {
		if !found || entry.expiration.Before(oldest.expiration) ||
			(entry.expiration.Equal(oldest.expiration) && entry.uuid < oldest.uuid) {
			oldestKey, oldest = key, entry
			found = true
		}
	}
	if found {
		c.removeLocked(oldestKey, oldest)
	}
}

func (c *Cache) removeLocked(key cacheKey, entry cacheEntry) {
	if err := os.Remove(filepath.Join(c.dir, entry.uuid)); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("file", entry.uuid).Msg("failed to remove cache file")
	}
	delete(c.entries, key)
	if entry.size > c.totalSize {
		c.totalSize = 0
	} else {
		c.totalSize -= entry.size
	}
}
