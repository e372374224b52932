// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package store

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/autobrr/nyaproxy/internal/domain"
)

func newTestStore(t *testing.T) *ItemStore {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := NewItemStore(db)
	require.NoError(t, err)
	return s
}

func testItem(id int64) domain.ListItem {
	return domain.ListItem{
		GUID:         fmt.Sprintf("https://nyaa.si/view/%d", id),
		ID:           id,
		Title:        fmt.Sprintf("release %d", id),
		Link:         fmt.Sprintf("https://nyaa.si/download/%d.torrent", id),
		PubDate:      time.Date(2025, time.March, 29, 6, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Hour),
		Seeders:      int(id * 2),
		Leechers:     int(id),
		Downloads:    int(id * 10),
		Category:     domain.CategoryAnimeEnglish,
		Size:         uint64(id) * 1000,
		Comments:     0,
		DownloadLink: fmt.Sprintf("https://nyaa.si/download/%d.torrent", id),
	}
}

func TestUpsertOverwritesAllColumns(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	item := testItem(1)
	item.InfoHash = "aaaa"
	item.Description = "first"
	require.NoError(t, s.Upsert(ctx, item))

	updated := testItem(1)
	updated.Title = "renamed"
	updated.Seeders = 99
	updated.Trusted = true
	// InfoHash and Description deliberately empty: conflict resolution
	// overwrites rather than merges.
	require.NoError(t, s.Upsert(ctx, updated))

	total, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, _, items, err := s.Items(ctx, ItemsParams{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "renamed", items[0].Title)
	assert.Equal(t, 99, items[0].Seeders)
	assert.True(t, items[0].Trusted)
	assert.Empty(t, items[0].InfoHash)
	assert.Empty(t, items[0].Description)
}

func TestItemsRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	item := testItem(42)
	item.Trusted = true
	item.MagnetLink = "magnet:?xt=urn:btih:42"
	require.NoError(t, s.Upsert(ctx, item))

	_, _, items, err := s.Items(ctx, ItemsParams{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, item, items[0])
}

func TestItemsPagingAndAlignment(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	for i := int64(1); i <= 25; i++ {
		require.NoError(t, s.Upsert(ctx, testItem(i)))
	}

	t.Run("defaults", func(t *testing.T) {
		offset, count, items, err := s.Items(ctx, ItemsParams{})
		require.NoError(t, err)
		assert.Equal(t, 0, offset)
		assert.Equal(t, 75, count)
		assert.Len(t, items, 25)
		// Default order is date descending.
		assert.Equal(t, int64(25), items[0].ID)
	})

	t.Run("offset aligns down to a page multiple", func(t *testing.T) {
		offset, count, items, err := s.Items(ctx, ItemsParams{Offset: 13, Count: 10})
		require.NoError(t, err)
		assert.Equal(t, 10, offset)
		assert.Equal(t, 10, count)
		require.Len(t, items, 10)
		assert.Equal(t, int64(15), items[0].ID)
	})

	t.Run("count clamps to at least one", func(t *testing.T) {
		_, count, _, err := s.Items(ctx, ItemsParams{Count: -5})
		require.NoError(t, err)
		assert.Equal(t, 75, count)
	})
}

func TestItemsFilters(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	a := testItem(1)
	a.Category = domain.CategoryAnimeEnglish
	a.Trusted = true
	b := testItem(2)
	b.Category = domain.CategoryAudio
	b.Remake = true
	c := testItem(3)
	c.Category = domain.CategoryAudio
	require.NoError(t, s.UpsertAll(ctx, []domain.ListItem{a, b, c}))

	t.Run("category", func(t *testing.T) {
		_, _, items, err := s.Items(ctx, ItemsParams{Category: domain.CategoryAudio})
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})

	t.Run("category all is no filter", func(t *testing.T) {
		_, _, items, err := s.Items(ctx, ItemsParams{Category: domain.CategoryAll})
		require.NoError(t, err)
		assert.Len(t, items, 3)
	})

	t.Run("no remake", func(t *testing.T) {
		_, _, items, err := s.Items(ctx, ItemsParams{Filter: domain.FilterNoRemake})
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})

	t.Run("trusted", func(t *testing.T) {
		_, _, items, err := s.Items(ctx, ItemsParams{Filter: domain.FilterTrusted})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, int64(1), items[0].ID)
	})

	t.Run("since", func(t *testing.T) {
		cutoff := testItem(2).PubDate.Unix()
		_, _, items, err := s.Items(ctx, ItemsParams{Since: cutoff})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, int64(3), items[0].ID)
	})

	t.Run("sort by seeders ascending", func(t *testing.T) {
		_, _, items, err := s.Items(ctx, ItemsParams{Sort: domain.SortSeeders, Order: domain.OrderAscending})
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, int64(1), items[0].ID)
		assert.Equal(t, int64(3), items[2].ID)
	})
}

func TestTorrentsPerDay(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	base := time.Date(2025, time.March, 20, 12, 0, 0, 0, time.UTC)
	id := int64(1)
	for day := 0; day < 3; day++ {
		for n := 0; n <= day; n++ {
			item := testItem(id)
			item.PubDate = base.AddDate(0, 0, day)
			require.NoError(t, s.Upsert(ctx, item))
			id++
		}
	}

	days, err := s.TorrentsPerDay(ctx)
	require.NoError(t, err)
	require.Len(t, days, 3)

	assert.Equal(t, DayCount{Date: "2025-03-20", Count: 1}, days[0])
	assert.Equal(t, DayCount{Date: "2025-03-21", Count: 2}, days[1])
	assert.Equal(t, DayCount{Date: "2025-03-22", Count: 3}, days[2])
}

func TestEvents(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	s.AppendEvent(ctx, EventFetchList, map[string]any{"url": "https://nyaa.si", "status": 200})
	s.AppendEvent(ctx, EventRateLimit, map[string]any{"url": "https://nyaa.si"})

	events, err := s.RecentEvents(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, EventRateLimit, events[0].Type)
	assert.Equal(t, EventFetchList, events[1].Type)
	assert.JSONEq(t, `{"url":"https://nyaa.si","status":200}`, string(events[1].Data))
}

func TestEventsLimit(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	for i := 0; i < 120; i++ {
		s.AppendEvent(ctx, EventDownload, map[string]int{"id": i})
	}

	events, err := s.RecentEvents(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, events, 100, "default limit")

	events, err = s.RecentEvents(ctx, 5)
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.JSONEq(t, `{"id":119}`, string(events[0].Data))
}
