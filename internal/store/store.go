// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package store persists canonical list items and the indexer event feed.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/autobrr/nyaproxy/internal/domain"
)

const defaultPageSize = 75

type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) (*ItemStore, error) {
	schema := `
		CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY,
			guid TEXT NOT NULL,
			title TEXT NOT NULL,
			link TEXT NOT NULL,
			date INTEGER NOT NULL,
			seeders INTEGER NOT NULL,
			leechers INTEGER NOT NULL,
			downloads INTEGER NOT NULL,
			category TEXT NOT NULL,
			size INTEGER NOT NULL,
			comments INTEGER NOT NULL,
			trusted INTEGER NOT NULL,
			remake INTEGER NOT NULL,
			info_hash TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			download_link TEXT NOT NULL DEFAULT '',
			magnet_link TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date DATETIME NOT NULL,
			event_type TEXT NOT NULL,
			event_data TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create item store schema: %w", err)
	}
	return &ItemStore{db: db}, nil
}

// Upsert inserts the item or, on an id conflict, overwrites every column.
func (s *ItemStore) Upsert(ctx context.Context, item domain.ListItem) error {
	query := `
		INSERT INTO items (
			id, guid, title, link, date,
			seeders, leechers, downloads,
			category, size, comments,
			trusted, remake,
			info_hash, description, download_link, magnet_link
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			guid = excluded.guid,
			title = excluded.title,
			link = excluded.link,
			date = excluded.date,
			seeders = excluded.seeders,
			leechers = excluded.leechers,
			downloads = excluded.downloads,
			category = excluded.category,
			size = excluded.size,
			comments = excluded.comments,
			trusted = excluded.trusted,
			remake = excluded.remake,
			info_hash = excluded.info_hash,
			description = excluded.description,
			download_link = excluded.download_link,
			magnet_link = excluded.magnet_link
	`
	_, err := s.db.ExecContext(ctx, query,
		item.ID,
		item.GUID,
		item.Title,
		item.Link,
		item.PubDate.Unix(),
		item.Seeders,
		item.Leechers,
		item.Downloads,
		string(item.Category),
		item.Size,
		item.Comments,
		boolInt(item.Trusted),
		boolInt(item.Remake),
		item.InfoHash,
		item.Description,
		item.DownloadLink,
		item.MagnetLink,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert item %d: %w", item.ID, err)
	}
	return nil
}

// UpsertAll upserts every item, stopping at the first failure.
func (s *ItemStore) UpsertAll(ctx context.Context, items []domain.ListItem) error {
	for _, item := range items {
		if err := s.Upsert(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// ItemsParams selects a page of stored items. The zero value means the
// first page of everything, newest first.
type ItemsParams struct {
	Offset   int
	Count    int
	Since    int64 // epoch seconds; 0 means no lower bound
	Category domain.Category
	Filter   domain.Filter
	Sort     domain.Sort
	Order    domain.SortOrder
}

// Items returns one page. The offset is aligned down to a multiple of the
// page size; the aligned offset and effective count are returned alongside
// the rows.
func (s *ItemStore) Items(ctx context.Context, p ItemsParams) (int, int, []domain.ListItem, error) {
	count := p.Count
	if count < 1 {
		count = defaultPageSize
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	offset -= offset % count

	var where []string
	var args []any
	if p.Since > 0 {
		where = append(where, "date > ?")
		args = append(args, p.Since)
	}
	if p.Category != "" && p.Category != domain.CategoryAll {
		where = append(where, "category = ?")
		args = append(args, string(p.Category))
	}
	switch p.Filter {
	case domain.FilterNoRemake:
		where = append(where, "remake = 0")
	case domain.FilterTrusted:
		where = append(where, "trusted = 1")
	}

	query := `
		SELECT id, guid, title, link, date,
			seeders, leechers, downloads,
			category, size, comments,
			trusted, remake,
			info_hash, description, download_link, magnet_link
		FROM items
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + sortColumn(p.Sort)
	if p.Order == domain.OrderAscending {
		query += " ASC"
	} else {
		query += " DESC"
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, count, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []domain.ListItem
	for rows.Next() {
		var item domain.ListItem
		var date int64
		var trusted, remake int
		var category string
		if err := rows.Scan(
			&item.ID,
			&item.GUID,
			&item.Title,
			&item.Link,
			&date,
			&item.Seeders,
			&item.Leechers,
			&item.Downloads,
			&category,
			&item.Size,
			&item.Comments,
			&trusted,
			&remake,
			&item.InfoHash,
			&item.Description,
			&item.DownloadLink,
			&item.MagnetLink,
		); err != nil {
			return 0, 0, nil, fmt.Errorf("failed to scan item: %w", err)
		}
		item.PubDate = time.Unix(date, 0).UTC()
		item.Category = domain.Category(category)
		item.Trusted = trusted == 1
		item.Remake = remake == 1
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return 0, 0, nil, fmt.Errorf("error iterating items: %w", err)
	}
	return offset, count, items, nil
}

// Count returns the total number of stored items.
func (s *ItemStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

// DayCount is one day's ingested-item total.
type DayCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// TorrentsPerDay returns per-day item counts for the most recent 30 days
// that have items, oldest first.
func (s *ItemStore) TorrentsPerDay(ctx context.Context) ([]DayCount, error) {
	query := `
		SELECT strftime('%Y-%m-%d', date, 'unixepoch') AS day, COUNT(*) AS count
		FROM items
		GROUP BY day
		ORDER BY day DESC
		LIMIT 30
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query torrents per day: %w", err)
	}
	defer rows.Close()

	var days []DayCount
	for rows.Next() {
		var day DayCount
		if err := rows.Scan(&day.Date, &day.Count); err != nil {
			return nil, fmt.Errorf("failed to scan day count: %w", err)
		}
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating day counts: %w", err)
	}

	for i, j := 0, len(days)-1; i < j; i, j = i+1, j-1 {
		days[i], days[j] = days[j], days[i]
	}
	return days, nil
}

func sortColumn(s domain.Sort) string {
	switch s {
	case domain.SortSeeders:
		return "seeders"
	case domain.SortLeechers:
		return "leechers"
	case domain.SortDownloads:
		return "downloads"
	case domain.SortSize:
		return "size"
	default:
		return "date"
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
