// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package diskcache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// payload40 marshals to exactly 40 bytes of JSON (38 chars + quotes).
func payload40(fill string) string {
	return strings.Repeat(fill, 38)
}

func TestCacheEviction(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir(), 100)
	require.NoError(t, err)

	require.NoError(t, c.Put("u", "a", 10*time.Second, payload40("a")))
	require.NoError(t, c.Put("u", "b", 20*time.Second, payload40("b")))
	require.NoError(t, c.Put("u", "c", 30*time.Second, payload40("c")))

	assert.Equal(t, uint64(80), c.TotalSize())
	assert.Equal(t, 2, c.Len())

	var got string
	assert.False(t, c.Get("u", "a", &got), "earliest expiration should be evicted")
	require.True(t, c.Get("u", "b", &got))
	assert.Equal(t, payload40("b"), got)
	require.True(t, c.Get("u", "c", &got))
	assert.Equal(t, payload40("c"), got)
}

func TestCacheTTL(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir(), 1<<20)
	require.NoError(t, err)

	require.NoError(t, c.Put("u", "x", 100*time.Millisecond, "value"))
	require.NotZero(t, c.TotalSize())

	var got string
	require.True(t, c.Get("u", "x", &got))

	time.Sleep(150 * time.Millisecond)

	assert.False(t, c.Get("u", "x", &got))
	assert.Zero(t, c.TotalSize())
	assert.Zero(t, c.Len())
}

func TestCacheKeyIsolation(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir(), 1<<20)
	require.NoError(t, err)

	require.NoError(t, c.Put("url", "q=1", time.Minute, "one"))

	var got string
	assert.False(t, c.Get("url", "q=2", &got))
	assert.False(t, c.Get("other", "q=1", &got))
	require.True(t, c.Get("url", "q=1", &got))
	assert.Equal(t, "one", got)
}

func TestCacheTotalSizeAccounting(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := New(dir, 1<<20)
	require.NoError(t, err)

	values := map[string]string{
		"a": "short",
		"b": strings.Repeat("x", 100),
		"c": strings.Repeat("y", 1000),
	}
	var want uint64
	for q, v := range values {
		require.NoError(t, c.Put("u", q, time.Minute, v))
		want += uint64(len(v) + 2) // JSON string quoting
	}
	assert.Equal(t, want, c.TotalSize())

	// Overwriting a key must not double-count.
	require.NoError(t, c.Put("u", "a", time.Minute, "short"))
	assert.Equal(t, want, c.TotalSize())

	c.Remove("u", "b")
	assert.Equal(t, want-102, c.TotalSize())

	// One uuid file per live entry, nothing stray.
	dirents, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, dirents, c.Len())
}

func TestCacheNoSpace(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir(), 10)
	require.NoError(t, err)

	err = c.Put("u", "big", time.Minute, strings.Repeat("z", 50))
	require.ErrorIs(t, err, ErrNoSpace)
	assert.Zero(t, c.TotalSize())

	// A fitting value still works after the refusal.
	require.NoError(t, c.Put("u", "ok", time.Minute, "abc"))
}

func TestCacheStartupScrub(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	stray := filepath.Join(dir, "leftover")
	require.NoError(t, os.WriteFile(stray, []byte("junk"), 0o644))

	c, err := New(dir, 1<<20)
	require.NoError(t, err)
	assert.Zero(t, c.TotalSize())

	_, err = os.Stat(stray)
	assert.True(t, os.IsNotExist(err))
}

func TestCacheStructValues(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir(), 1<<20)
	require.NoError(t, err)

	type record struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, c.Put("u", "r", time.Minute, record{Name: "x", Count: 3}))

	var got record
	require.True(t, c.Get("u", "r", &got))
	assert.Equal(t, record{Name: "x", Count: 3}, got)
}

func TestCacheRejectsNonDirectory(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := New(file, 1<<20)
	require.Error(t, err)
}
