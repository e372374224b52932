// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package mirror

import (
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/autobrr/nyaproxy/internal/domain"
	"github.com/autobrr/nyaproxy/internal/tracker"
)

const feedFixture = `<?xml version="1.0" encoding="utf-8"?>
<rss version="2.0" xmlns:nyaa="https://nyaa.si/xmlns/nyaa">
	<channel>
		<item>
			<title>Example Torrent</title>
			<link>https://nyaa.si/download/1953465.torrent</link>
			<guid isPermaLink="true">https://nyaa.si/view/1953465</guid>
			<pubDate>Sat, 29 Mar 2025 06:01:10 -0000</pubDate>
			<nyaa:seeders>12</nyaa:seeders>
			<nyaa:leechers>2</nyaa:leechers>
			<nyaa:downloads>33</nyaa:downloads>
			<nyaa:infoHash>84e04c9e6e0e4b7e8f8e1a2b3c4d5e6f70819203</nyaa:infoHash>
			<nyaa:categoryId>1_2</nyaa:categoryId>
			<nyaa:category>Anime - English-translated</nyaa:category>
			<nyaa:size>205.9 MiB</nyaa:size>
			<nyaa:comments>0</nyaa:comments>
			<nyaa:trusted>No</nyaa:trusted>
			<nyaa:remake>No</nyaa:remake>
			<description><![CDATA[example]]></description>
		</item>
	</channel>
</rss>`

const viewFixture = `<html><body>
<div class="panel panel-default">
	<h3 class="panel-title">Example Torrent</h3>
	<div class="panel-body">
		<div class="row">
			<div class="col-md-1">Category:</div>
			<div class="col-md-5"><a href="/?c=1_0">Anime</a> - <a href="/?c=1_2">English-translated</a></div>
			<div class="col-md-1">Date:</div>
			<div class="col-md-5" data-timestamp="1743228070">2025-03-29 06:01</div>
		</div>
		<div class="row">
			<div class="col-md-1">Submitter:</div>
			<div class="col-md-5">uploader</div>
			<div class="col-md-1">Seeders:</div>
			<div class="col-md-5">12</div>
		</div>
		<div class="row">
			<div class="col-md-1">Information:</div>
			<div class="col-md-5">No information.</div>
			<div class="col-md-1">Leechers:</div>
			<div class="col-md-5">2</div>
		</div>
		<div class="row">
			<div class="col-md-1">File size:</div>
			<div class="col-md-5">205.9 MiB</div>
			<div class="col-md-1">Completed:</div>
			<div class="col-md-5">33</div>
		</div>
		<div class="row">
			<div class="col-md-1">Info Hash:</div>
			<div class="col-md-5">84e04c9e6e0e4b7e8f8e1a2b3c4d5e6f70819203</div>
		</div>
	</div>
	<div class="panel-footer">
		<a href="/download/1953465.torrent">Download</a>
		<a href="magnet:?xt=urn:btih:84e04c9e6e0e4b7e8f8e1a2b3c4d5e6f70819203">Magnet</a>
	</div>
</div>
<div id="torrent-description">example description</div>
</body></html>`

func newTestRegistry(t *testing.T, mirrors []domain.MirrorConfig) *Registry {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tr, err := tracker.New(db)
	require.NoError(t, err)

	cfg := &domain.Config{
		URL:            "https://nyaa.si",
		UserAgent:      "test-agent",
		WindowRequests: 100,
		WindowSeconds:  1,
		ConnectTimeout: 5,
		Timeout:        5,
		CacheDir:       t.TempDir(),
		CacheSize:      1 << 20,
		Mirrors:        mirrors,
	}

	registry, err := NewRegistry(cfg, tr, nil)
	require.NoError(t, err)
	return registry
}

func TestRegistryListAndLookup(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t, []domain.MirrorConfig{
		{ID: "nyaa", Name: "Nyaa", URL: "https://nyaa.si", Type: "normal"},
		{ID: "sukebei", Name: "Sukebei", URL: "https://sukebei.nyaa.si", Type: "adult", Hidden: true},
	})

	infos := registry.List()
	require.Len(t, infos, 2)
	assert.Equal(t, Info{ID: "nyaa", Name: "Nyaa", Type: "normal"}, infos[0])
	assert.Equal(t, Info{ID: "sukebei", Name: "Sukebei", Type: "adult", Hidden: true}, infos[1])

	_, ok := registry.Get("nyaa")
	assert.True(t, ok)
	_, ok = registry.Get("missing")
	assert.False(t, ok)
}

func TestMirrorListGoesThroughOwnUpstream(t *testing.T) {
	t.Parallel()

	var hits int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, feedFixture)
	}))
	t.Cleanup(upstream.Close)

	registry := newTestRegistry(t, []domain.MirrorConfig{
		{ID: "nyaa", Name: "Nyaa", URL: upstream.URL},
	})

	m, ok := registry.Get("nyaa")
	require.True(t, ok)

	items, cached, err := m.List(t.Context(), domain.ListQuery{})
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1953465), items[0].ID)

	// Second call is served from the mirror's own cache.
	_, cached, err = m.List(t.Context(), domain.ListQuery{})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, hits)
}

func TestMirrorMagnet(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, viewFixture)
	}))
	t.Cleanup(upstream.Close)

	registry := newTestRegistry(t, []domain.MirrorConfig{
		{ID: "nyaa", Name: "Nyaa", URL: upstream.URL},
	})

	m, ok := registry.Get("nyaa")
	require.True(t, ok)

	magnet, err := m.Magnet(t.Context(), 1953465)
	require.NoError(t, err)
	assert.Contains(t, magnet, "magnet:?xt=urn:btih:84e04c9e")
}

func TestHealthReportKeyedByMirror(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, feedFixture)
	}))
	t.Cleanup(upstream.Close)

	registry := newTestRegistry(t, []domain.MirrorConfig{
		{ID: "one", Name: "One", URL: upstream.URL},
		{ID: "two", Name: "Two", URL: upstream.URL},
	})

	m, ok := registry.Get("one")
	require.True(t, ok)
	_, _, err := m.List(t.Context(), domain.ListQuery{})
	require.NoError(t, err)

	report, err := registry.HealthReport(t.Context())
	require.NoError(t, err)
	require.Len(t, report, 2)

	assert.Equal(t, "one", report[0].ID)
	require.Len(t, report[0].Requests, 1)
	assert.True(t, report[0].Requests[0].Success)

	assert.Equal(t, "two", report[1].ID)
	assert.Empty(t, report[1].Requests)
}
