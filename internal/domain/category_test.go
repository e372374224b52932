// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	t.Parallel()

	t.Run("valid codes", func(t *testing.T) {
		t.Parallel()

		for _, code := range []string{
			"0_0", "1_0", "1_1", "1_2", "1_3", "1_4",
			"2_0", "2_1", "2_2",
			"3_0", "3_1", "3_2", "3_3",
			"4_0", "4_1", "4_2", "4_3", "4_4",
			"5_0", "5_1", "5_2",
			"6_0", "6_1", "6_2",
		} {
			c, err := ParseCategory(code)
			require.NoError(t, err, code)
			assert.Equal(t, code, c.String())
		}
	})

	t.Run("unknown codes fail", func(t *testing.T) {
		t.Parallel()

		for _, code := range []string{"", "7_0", "1_5", "0_1", "1-2", "anime"} {
			_, err := ParseCategory(code)
			assert.Error(t, err, code)
		}
	})

	t.Run("display names", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "All", CategoryAll.English())
		assert.Equal(t, "Anime - English", CategoryAnimeEnglish.English())
		assert.Equal(t, "Live Action - Idol/PV", CategoryLiveActionIdol.English())
		assert.Equal(t, "Software - Games", CategorySoftwareGames.English())
	})
}

func TestListQueryEncode(t *testing.T) {
	t.Parallel()

	t.Run("defaults are omitted", func(t *testing.T) {
		t.Parallel()

		q := ListQuery{
			Page:     1,
			Category: CategoryAll,
			Filter:   FilterNone,
			Sort:     "id",
			Order:    OrderDescending,
		}
		assert.Empty(t, q.Encode())
	})

	t.Run("non-defaults are encoded with wire keys", func(t *testing.T) {
		t.Parallel()

		q := ListQuery{
			Page:     3,
			Term:     "super cube",
			Category: CategoryAnimeEnglish,
			Filter:   FilterTrusted,
			Sort:     "seeders",
			Order:    OrderAscending,
		}
		assert.Equal(t, "c=1_2&f=2&o=asc&p=3&q=super+cube&s=seeders", q.Encode())
	})

	t.Run("encoding is stable", func(t *testing.T) {
		t.Parallel()

		q := ListQuery{Term: "x", Category: CategoryAudio}
		assert.Equal(t, q.Encode(), q.Encode())
	})
}
