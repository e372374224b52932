// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package tracker keeps the append-only ledger of upstream request
// outcomes that the health endpoint projects over.
package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultRecentLimit = 250

// RequestRecord is one ledger row.
type RequestRecord struct {
	MirrorID       string    `json:"mirror_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Path           string    `json:"path"`
	Success        bool      `json:"success"`
	CacheHit       bool      `json:"cache_hit"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
}

type Tracker struct {
	db *sql.DB
}

// New creates the requests table if needed. The single-origin deployment
// uses an empty mirror id throughout.
func New(db *sql.DB) (*Tracker, error) {
	schema := `
		CREATE TABLE IF NOT EXISTS requests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			mirror_id TEXT NOT NULL DEFAULT '',
			timestamp DATETIME NOT NULL,
			path TEXT NOT NULL,
			success INTEGER NOT NULL,
			cache_hit INTEGER NOT NULL,
			elapsed_time REAL NOT NULL
		)
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create requests table: %w", err)
	}
	return &Tracker{db: db}, nil
}

// TrackCached records a cache hit: success, zero elapsed time.
func (t *Tracker) TrackCached(ctx context.Context, mirrorID, url, query string) {
	t.insert(ctx, mirrorID, requestPath(url, query), true, true, 0)
}

// Track records a network request outcome.
func (t *Tracker) Track(ctx context.Context, mirrorID, url, query string, success bool, elapsed time.Duration) {
	t.insert(ctx, mirrorID, requestPath(url, query), success, false, elapsed.Seconds())
}

// Ledger writes must never fail a fetch, so errors are logged and dropped.
func (t *Tracker) insert(ctx context.Context, mirrorID, path string, success, cacheHit bool, elapsed float64) {
	query := `
		INSERT INTO requests (mirror_id, timestamp, path, success, cache_hit, elapsed_time)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := t.db.ExecContext(ctx, query, mirrorID, time.Now().UTC(), path, boolInt(success), boolInt(cacheHit), elapsed)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to insert request record")
	}
}

// Recent returns the newest records for one mirror id, newest first.
// limit <= 0 means the default of 250.
func (t *Tracker) Recent(ctx context.Context, mirrorID string, limit int) ([]RequestRecord, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	query := `
		SELECT mirror_id, timestamp, path, success, cache_hit, elapsed_time
		FROM requests
		WHERE mirror_id = ?
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := t.db.QueryContext(ctx, query, mirrorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query request records: %w", err)
	}
	defer rows.Close()

	var records []RequestRecord
	for rows.Next() {
		var rec RequestRecord
		var success, cacheHit int
		if err := rows.Scan(&rec.MirrorID, &rec.Timestamp, &rec.Path, &success, &cacheHit, &rec.ElapsedSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan request record: %w", err)
		}
		rec.Success = success == 1
		rec.CacheHit = cacheHit == 1
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating request records: %w", err)
	}
	return records, nil
}

func requestPath(url, query string) string {
	if query == "" {
		return url
	}
	return url + "?" + query
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
