// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package parser

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/autobrr/nyaproxy/internal/domain"
)

// ParseList decodes a rendered listing page into canonical items. baseURL is
// the origin the page was fetched from; relative view/download paths are
// resolved against it. Any malformed row fails the whole document.
func ParseList(baseURL string, data []byte) ([]domain.ListItem, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Kind: KindString, Value: "html document", Err: err}
	}

	base := strings.TrimRight(baseURL, "/")

	var items []domain.ListItem
	var rowErr error
	doc.Find(".table > tbody:nth-child(2) > tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		item, err := parseListRow(base, row)
		if err != nil {
			rowErr = err
			return false
		}
		items = append(items, item)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return items, nil
}

// Cell order: category, title, download, size, date, seeders, leechers,
// downloads.
func parseListRow(base string, row *goquery.Selection) (domain.ListItem, error) {
	tds := row.Find("td")
	if tds.Length() < 8 {
		return domain.ListItem{}, &Error{Kind: KindMissingElement, Value: "td"}
	}

	category, err := rowCategory(tds.Eq(0))
	if err != nil {
		return domain.ListItem{}, err
	}
	title, viewPath, comments, err := rowTitle(tds.Eq(1))
	if err != nil {
		return domain.ListItem{}, err
	}
	downloadPath, magnet, err := rowDownload(tds.Eq(2))
	if err != nil {
		return domain.ListItem{}, err
	}
	size, err := ParseSize(strings.TrimSpace(tds.Eq(3).Text()))
	if err != nil {
		return domain.ListItem{}, err
	}

	ts, ok := tds.Eq(4).Attr("data-timestamp")
	if !ok {
		return domain.ListItem{}, &Error{Kind: KindMissingAttribute, Value: "data-timestamp"}
	}
	pubDate, err := parseTimestamp(ts)
	if err != nil {
		return domain.ListItem{}, err
	}

	seeders, err := cellInt(tds.Eq(5))
	if err != nil {
		return domain.ListItem{}, err
	}
	leechers, err := cellInt(tds.Eq(6))
	if err != nil {
		return domain.ListItem{}, err
	}
	downloads, err := cellInt(tds.Eq(7))
	if err != nil {
		return domain.ListItem{}, err
	}

	class := row.AttrOr("class", "")

	guid := base + viewPath
	id, err := idFromPath(guid)
	if err != nil {
		return domain.ListItem{}, err
	}
	downloadLink := base + downloadPath

	return domain.ListItem{
		GUID:         guid,
		ID:           id,
		Title:        title,
		Link:         downloadLink,
		PubDate:      pubDate,
		Seeders:      seeders,
		Leechers:     leechers,
		Downloads:    downloads,
		Category:     category,
		Size:         size,
		Comments:     comments,
		Trusted:      strings.Contains(class, "success"),
		Remake:       strings.Contains(class, "danger"),
		DownloadLink: downloadLink,
		MagnetLink:   magnet,
	}, nil
}

// rowCategory takes the code from the query tail of the category link,
// e.g. href="/?c=1_3".
func rowCategory(td *goquery.Selection) (domain.Category, error) {
	a := td.Find("a").First()
	if a.Length() == 0 {
		return "", &Error{Kind: KindMissingElement, Value: "a"}
	}
	href, ok := a.Attr("href")
	if !ok {
		return "", &Error{Kind: KindMissingAttribute, Value: "href"}
	}
	idx := strings.Index(href, "=")
	if idx < 0 {
		return "", &Error{Kind: KindString, Value: href}
	}
	category, err := domain.ParseCategory(href[idx+1:])
	if err != nil {
		return "", &Error{Kind: KindCategory, Value: href[idx+1:], Err: err}
	}
	return category, nil
}

// rowTitle handles the one-or-two-anchor title cell: with two anchors the
// first is the comment count badge and the second is the item link.
func rowTitle(td *goquery.Selection) (title, viewPath string, comments int, err error) {
	as := td.Find("a")
	if as.Length() == 0 {
		return "", "", 0, &Error{Kind: KindMissingElement, Value: "a"}
	}

	titleA := as.Eq(0)
	if as.Length() >= 2 {
		titleA = as.Eq(1)
		text := strings.TrimSpace(as.Eq(0).Text())
		comments, err = strconv.Atoi(text)
		if err != nil {
			return "", "", 0, &Error{Kind: KindInteger, Value: text, Err: err}
		}
	}

	title, ok := titleA.Attr("title")
	if !ok {
		return "", "", 0, &Error{Kind: KindMissingAttribute, Value: "title"}
	}
	viewPath, ok = titleA.Attr("href")
	if !ok {
		return "", "", 0, &Error{Kind: KindMissingAttribute, Value: "href"}
	}
	return title, viewPath, comments, nil
}

func rowDownload(td *goquery.Selection) (downloadPath, magnet string, err error) {
	as := td.Find("a")
	if as.Length() < 2 {
		return "", "", &Error{Kind: KindMissingElement, Value: "a"}
	}
	downloadPath, ok := as.Eq(0).Attr("href")
	if !ok {
		return "", "", &Error{Kind: KindMissingAttribute, Value: "href"}
	}
	magnet, ok = as.Eq(1).Attr("href")
	if !ok {
		return "", "", &Error{Kind: KindMissingAttribute, Value: "href"}
	}
	return downloadPath, magnet, nil
}

func cellInt(td *goquery.Selection) (int, error) {
	text := strings.TrimSpace(td.Text())
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, &Error{Kind: KindInteger, Value: text, Err: err}
	}
	return n, nil
}
