// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package parser

import (
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/autobrr/nyaproxy/internal/domain"
)

// The feed's torrent fields live in a vendor namespace; encoding/xml matches
// them by local name, so no namespace plumbing is needed here.
type feedDoc struct {
	Channel feedChannel `xml:"channel"`
}

type feedChannel struct {
	Items []feedItem `xml:"item"`
}

type feedItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate"`
	Seeders     int    `xml:"seeders"`
	Leechers    int    `xml:"leechers"`
	Downloads   int    `xml:"downloads"`
	InfoHash    string `xml:"infoHash"`
	CategoryID  string `xml:"categoryId"`
	Size        string `xml:"size"`
	Comments    int    `xml:"comments"`
	Trusted     string `xml:"trusted"`
	Remake      string `xml:"remake"`
	Description string `xml:"description"`
}

// ParseFeed decodes an RSS listing feed. Structural XML errors fail the
// whole document; the first field-level error inside any item aborts the
// parse.
func ParseFeed(data []byte) ([]domain.ListItem, error) {
	var doc feedDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &Error{Kind: KindXML, Value: "rss document", Err: err}
	}

	items := make([]domain.ListItem, 0, len(doc.Channel.Items))
	for _, it := range doc.Channel.Items {
		item, err := feedToItem(it)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func feedToItem(it feedItem) (domain.ListItem, error) {
	pubDate, err := parseRFC2822(it.PubDate)
	if err != nil {
		return domain.ListItem{}, err
	}

	category, err := domain.ParseCategory(it.CategoryID)
	if err != nil {
		return domain.ListItem{}, &Error{Kind: KindCategory, Value: it.CategoryID, Err: err}
	}

	trusted, err := ParseBool(it.Trusted)
	if err != nil {
		return domain.ListItem{}, err
	}
	remake, err := ParseBool(it.Remake)
	if err != nil {
		return domain.ListItem{}, err
	}
	size, err := ParseSize(it.Size)
	if err != nil {
		return domain.ListItem{}, err
	}

	id, err := idFromPath(it.GUID)
	if err != nil {
		return domain.ListItem{}, err
	}

	return domain.ListItem{
		GUID:         it.GUID,
		ID:           id,
		Title:        it.Title,
		Link:         it.Link,
		PubDate:      pubDate,
		Seeders:      it.Seeders,
		Leechers:     it.Leechers,
		Downloads:    it.Downloads,
		Category:     category,
		Size:         size,
		Comments:     it.Comments,
		Trusted:      trusted,
		Remake:       remake,
		InfoHash:     it.InfoHash,
		Description:  it.Description,
		DownloadLink: it.Link,
	}, nil
}

// parseRFC2822 handles the feed's pubDate, which uses a numeric zone
// ("-0000") but occasionally the named "GMT" form.
func parseRFC2822(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC1123Z, time.RFC1123} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &Error{Kind: KindDate, Value: s}
}

// idFromPath takes the last path segment of a guid or view URL as the
// numeric item id.
func idFromPath(s string) (int64, error) {
	idx := strings.LastIndex(s, "/")
	if idx < 0 || idx == len(s)-1 {
		return 0, &Error{Kind: KindString, Value: s}
	}
	seg := s[idx+1:]
	id, err := strconv.ParseInt(seg, 10, 64)
	if err != nil {
		return 0, &Error{Kind: KindInteger, Value: seg, Err: err}
	}
	return id, nil
}
