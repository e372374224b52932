// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package parser

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/autobrr/nyaproxy/internal/domain"
)

// ParseView decodes a torrent detail page. baseURL is the origin the page
// was fetched from; guid and download link are rebuilt from it and the
// parsed id.
func ParseView(baseURL string, data []byte) (*domain.View, error) {
	// Squash tabs and newlines so label and file-list text matching does
	// not have to care about the page's indentation.
	data = bytes.ReplaceAll(data, []byte("\t"), []byte(" "))
	data = bytes.ReplaceAll(data, []byte("\n"), []byte(" "))

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Kind: KindString, Value: "html document", Err: err}
	}

	id, err := viewID(doc)
	if err != nil {
		return nil, err
	}

	titleSel := doc.Find(".panel-title").First()
	if titleSel.Length() == 0 {
		return nil, &Error{Kind: KindMissingElement, Value: ".panel-title"}
	}
	title := strings.TrimSpace(titleSel.Text())

	ts, ok := doc.Find("[data-timestamp]").First().Attr("data-timestamp")
	if !ok {
		return nil, &Error{Kind: KindMissingAttribute, Value: "data-timestamp"}
	}
	pubDate, err := parseTimestamp(ts)
	if err != nil {
		return nil, err
	}

	seeders, err := labeledInt(doc, "Seeders:")
	if err != nil {
		return nil, err
	}
	leechers, err := labeledInt(doc, "Leechers:")
	if err != nil {
		return nil, err
	}
	downloads, err := labeledInt(doc, "Completed:")
	if err != nil {
		return nil, err
	}

	submitter, err := labeledValue(doc, "Submitter:")
	if err != nil {
		return nil, err
	}
	infoLink, _ := labeledValue(doc, "Information:")
	infoHash, err := labeledValue(doc, "Info Hash:")
	if err != nil {
		return nil, err
	}

	category, err := viewCategory(doc)
	if err != nil {
		return nil, err
	}

	sizeText, err := labeledValue(doc, "File size:")
	if err != nil {
		return nil, err
	}
	size, err := ParseSize(sizeText)
	if err != nil {
		return nil, err
	}

	magnet, ok := doc.Find("a[href^='magnet:']").First().Attr("href")
	if !ok {
		return nil, &Error{Kind: KindMissingAttribute, Value: "href"}
	}

	description := innerHTML(doc.Find("#torrent-description").First())

	files, err := viewFiles(doc)
	if err != nil {
		return nil, err
	}
	comments, err := viewComments(doc)
	if err != nil {
		return nil, err
	}

	base := strings.TrimRight(baseURL, "/")
	guid := fmt.Sprintf("%s/view/%d", base, id)

	return &domain.View{
		GUID:          guid,
		ID:            id,
		Title:         title,
		Link:          guid,
		PubDate:       pubDate,
		Seeders:       seeders,
		Leechers:      leechers,
		Downloads:     downloads,
		Category:      category,
		Size:          size,
		Trusted:       doc.Find(".panel-success").Length() > 0,
		Remake:        doc.Find(".panel-danger").Length() > 0,
		DescriptionMD: description,
		Submitter:     submitter,
		InfoHash:      infoHash,
		InfoLink:      infoLink,
		DownloadLink:  fmt.Sprintf("%s/download/%d.torrent", base, id),
		MagnetLink:    magnet,
		Files:         files,
		Comments:      comments,
	}, nil
}

// viewID recovers the numeric id from the page's own download link,
// e.g. href="/download/1953481.torrent".
func viewID(doc *goquery.Document) (int64, error) {
	href, ok := doc.Find("a[href^='/download/']").First().Attr("href")
	if !ok {
		return 0, &Error{Kind: KindMissingAttribute, Value: "href"}
	}
	parts := strings.Split(href, "/")
	if len(parts) < 3 {
		return 0, &Error{Kind: KindString, Value: href}
	}
	seg := strings.TrimSuffix(parts[2], ".torrent")
	id, err := strconv.ParseInt(seg, 10, 64)
	if err != nil {
		return 0, &Error{Kind: KindInteger, Value: seg, Err: err}
	}
	return id, nil
}

func viewCategory(doc *goquery.Document) (domain.Category, error) {
	href, ok := doc.Find(".col-md-5 a[href^='/?c=']").Last().Attr("href")
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

// labeledValue walks the page's .row containers: when an immediate div
// child's text contains the label, the next div sibling's trimmed text is
// the value.
func labeledValue(doc *goquery.Document, label string) (string, error) {
	label = strings.ToLower(label)

	var value string
	var found, haveValue bool
	doc.Find(".row").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		divs := row.ChildrenFiltered("div")
		for i := 0; i < divs.Length(); i++ {
			text := strings.ToLower(strings.TrimSpace(divs.Eq(i).Text()))
			if !strings.Contains(text, label) {
				continue
			}
			found = true
			if i+1 < divs.Length() {
				value = strings.TrimSpace(divs.Eq(i + 1).Text())
				haveValue = true
			}
			return false
		}
		return true
	})

	if !found || !haveValue {
		return "", &Error{Kind: KindMissingElement, Value: "label " + label}
	}
	return value, nil
}

func labeledInt(doc *goquery.Document, label string) (int, error) {
	value, err := labeledValue(doc, label)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &Error{Kind: KindInteger, Value: value, Err: err}
	}
	return n, nil
}

// viewFiles collects leaf entries of the file tree; folder <li>s contain a
// nested <ul> and are skipped. Entry text looks like "name (1.0 GiB)".
func viewFiles(doc *goquery.Document) ([]domain.ViewFile, error) {
	leaves := doc.Find(".torrent-file-list li").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("ul").Length() == 0
	})

	var files []domain.ViewFile
	var fileErr error
	leaves.EachWithBreak(func(_ int, li *goquery.Selection) bool {
		parts := strings.Split(li.Text(), "(")
		if len(parts) < 2 {
			return true
		}
		sizeText := strings.TrimSuffix(strings.TrimSpace(parts[len(parts)-1]), ")")
		size, err := ParseSize(sizeText)
		if err != nil {
			fileErr = err
			return false
		}
		files = append(files, domain.ViewFile{
			ID:   len(files),
			Name: strings.TrimSpace(parts[0]),
			Size: size,
		})
		return true
	})
	if fileErr != nil {
		return nil, fileErr
	}
	return files, nil
}

func viewComments(doc *goquery.Document) ([]domain.ViewComment, error) {
	var comments []domain.ViewComment
	var commentErr error
	doc.Find(".comment-panel").EachWithBreak(func(_ int, panel *goquery.Selection) bool {
		comment, err := parseComment(panel)
		if err != nil {
			commentErr = err
			return false
		}
		comments = append(comments, comment)
		return true
	})
	if commentErr != nil {
		return nil, commentErr
	}
	return comments, nil
}

func parseComment(panel *goquery.Selection) (domain.ViewComment, error) {
	rawID := strings.TrimPrefix(panel.AttrOr("id", "unknown"), "com-")
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return domain.ViewComment{}, &Error{Kind: KindInteger, Value: rawID, Err: err}
	}

	user := "Anonymous"
	if userSel := panel.Find(".col-md-2 a").First(); userSel.Length() > 0 {
		if text := strings.TrimSpace(userSel.Text()); text != "" {
			user = text
		}
	}

	timestamps := panel.Find("[data-timestamp]")
	date, err := parseTimestamp(timestamps.First().AttrOr("data-timestamp", "0"))
	if err != nil {
		return domain.ViewComment{}, err
	}

	comment := domain.ViewComment{
		ID:      id,
		User:    user,
		Date:    date,
		Content: innerHTML(panel.Find(".comment-content").First()),
	}

	if timestamps.Length() > 1 {
		if edited, err := parseTimestamp(timestamps.Eq(1).AttrOr("data-timestamp", "0")); err == nil && edited.Unix() > 0 {
			comment.EditedDate = &edited
		}
	}

	if avatar, ok := panel.Find(".avatar").First().Attr("src"); ok && !strings.Contains(avatar, "default.png") {
		comment.Avatar = avatar
	}

	return comment, nil
}

func innerHTML(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	html, err := s.Html()
	if err != nil {
		return ""
	}
	return html
}
