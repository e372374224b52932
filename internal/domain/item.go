// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package domain holds the canonical data model shared by the parsers, the
// fetch coordinator, the item store and the HTTP API. Everything here is
// independent of the upstream wire format (XML feed vs rendered HTML).
package domain

import "time"

// ListItem is one torrent listing row, normalized from either wire format.
type ListItem struct {
	GUID         string    `json:"guid"`
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Link         string    `json:"link"`
	PubDate      time.Time `json:"pub_date"`
	Seeders      int       `json:"seeders"`
	Leechers     int       `json:"leechers"`
	Downloads    int       `json:"downloads"`
	Category     Category  `json:"category"`
	Size         uint64    `json:"size"`
	Comments     int       `json:"comments"`
	Trusted      bool      `json:"trusted"`
	Remake       bool      `json:"remake"`
	InfoHash     string    `json:"info_hash,omitempty"`
	Description  string    `json:"description,omitempty"`
	DownloadLink string    `json:"download_link,omitempty"`
	MagnetLink   string    `json:"magnet_link,omitempty"`
}

// ViewFile is one file inside a torrent on the detail page. The ID is the
// zero-based position in the file list.
type ViewFile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Size uint64 `json:"size"`
}

// ViewComment is one comment on the detail page.
type ViewComment struct {
	ID         int64      `json:"id"`
	User       string     `json:"user"`
	Date       time.Time  `json:"date"`
	EditedDate *time.Time `json:"edited_date,omitempty"`
	Content    string     `json:"content"`
	Avatar     string     `json:"avatar,omitempty"`
}

// View is the canonical detail record for a single torrent.
type View struct {
	GUID          string        `json:"guid"`
	ID            int64         `json:"id"`
	Title         string        `json:"title"`
	Link          string        `json:"link"`
	PubDate       time.Time     `json:"pub_date"`
	Seeders       int           `json:"seeders"`
	Leechers      int           `json:"leechers"`
	Downloads     int           `json:"downloads"`
	Category      Category      `json:"category"`
	Size          uint64        `json:"size"`
	Trusted       bool          `json:"trusted"`
	Remake        bool          `json:"remake"`
	DescriptionMD string        `json:"description_md"`
	Submitter     string        `json:"submitter"`
	InfoHash      string        `json:"info_hash"`
	InfoLink      string        `json:"info_link,omitempty"`
	DownloadLink  string        `json:"download_link,omitempty"`
	MagnetLink    string        `json:"magnet_link,omitempty"`
	Files         []ViewFile    `json:"files"`
	Comments      []ViewComment `json:"comments"`
}

// Payload carries an opaque downloaded artifact together with the upstream
// Content-Type, so the cache layer can persist and return both.
type Payload struct {
	Data        []byte `json:"data"`
	ContentType string `json:"content_type"`
}
