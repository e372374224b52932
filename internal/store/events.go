// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultEventLimit = 100

// EventType tags an indexer event row.
type EventType string

const (
	EventRateLimit EventType = "rate_limit"
	EventFetchList EventType = "fetch_list"
	EventFetchView EventType = "fetch_view"
	EventDownload  EventType = "download"
)

// Event is one row of the indexer event feed.
type Event struct {
	Date time.Time       `json:"date"`
	Type EventType       `json:"event_type"`
	Data json.RawMessage `json:"event_data"`
}

// AppendEvent records an indexer event. Like ledger writes, event writes
// never fail the operation that produced them; errors are logged and
// dropped.
func (s *ItemStore) AppendEvent(ctx context.Context, typ EventType, data any) {
	encoded, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(typ)).Msg("failed to encode event data")
		return
	}

	query := `INSERT INTO events (date, event_type, event_data) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, time.Now().UTC(), string(typ), string(encoded)); err != nil {
		log.Error().Err(err).Str("event_type", string(typ)).Msg("failed to insert event")
	}
}

// RecentEvents returns the newest events, newest first. limit <= 0 means
// the default of 100.
func (s *ItemStore) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}

	query := `
		SELECT date, event_type, event_data
		FROM events
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var typ, data string
		if err := rows.Scan(&ev.Date, &typ, &data); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Type = EventType(typ)
		ev.Data = json.RawMessage(data)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}
