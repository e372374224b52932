// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package mirror keeps the named upstreams of the façade. Each mirror runs
// its own fetch coordinator with a private cache directory and rate window;
// all of them share one request ledger, keyed by mirror id.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/autobrr/nyaproxy/internal/diskcache"
	"github.com/autobrr/nyaproxy/internal/domain"
	"github.com/autobrr/nyaproxy/internal/fetcher"
	"github.com/autobrr/nyaproxy/internal/ratelimit"
	"github.com/autobrr/nyaproxy/internal/tracker"
)

// ErrNoMagnet reports a detail page without a magnet link.
var ErrNoMagnet = errors.New("view has no magnet link")

// Info is the public listing entry for one mirror.
type Info struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Hidden bool   `json:"hidden"`
	Type   string `json:"type"`
}

// Health is the ledger projection for one mirror.
type Health struct {
	ID       string                  `json:"id"`
	Name     string                  `json:"name"`
	Requests []tracker.RequestRecord `json:"requests"`
}

// Mirror is one named upstream together with its coordinator.
type Mirror struct {
	Info
	coordinator *fetcher.Coordinator
}

// List proxies a listing request through this mirror's coordinator.
func (m *Mirror) List(ctx context.Context, q domain.ListQuery) ([]domain.ListItem, bool, error) {
	return m.coordinator.List(ctx, q)
}

// View proxies a detail request through this mirror's coordinator.
func (m *Mirror) View(ctx context.Context, id int64) (*domain.View, bool, error) {
	return m.coordinator.View(ctx, id)
}

// Magnet resolves the detail page for id and returns its magnet link, or
// ErrNoMagnet when the page carries none.
func (m *Mirror) Magnet(ctx context.Context, id int64) (string, error) {
	view, _, err := m.coordinator.View(ctx, id)
	if err != nil {
		return "", err
	}
	if view.MagnetLink == "" {
		return "", ErrNoMagnet
	}
	return view.MagnetLink, nil
}

// Registry holds the configured mirrors in file order.
type Registry struct {
	mirrors []*Mirror
	byID    map[string]*Mirror
	tracker *tracker.Tracker
}

// NewRegistry builds one coordinator per configured mirror. Zero-valued
// mirror settings inherit the top-level fetch configuration; cache
// directories default to <cache_dir>/mirrors/<id>.
func NewRegistry(cfg *domain.Config, tr *tracker.Tracker, metrics *fetcher.Metrics) (*Registry, error) {
	r := &Registry{
		byID:    make(map[string]*Mirror, len(cfg.Mirrors)),
		tracker: tr,
	}

	for _, mc := range cfg.Mirrors {
		resolved := resolve(mc, cfg)

		cache, err := diskcache.New(resolved.CacheDir, uint64(resolved.CacheSize))
		if err != nil {
			return nil, fmt.Errorf("mirror %q cache: %w", mc.ID, err)
		}
		limiter := ratelimit.New(resolved.WindowRequests, time.Duration(resolved.WindowSeconds)*time.Second)

		coordinator, err := fetcher.New(fetcher.Config{
			URL:            mc.URL,
			MirrorID:       mc.ID,
			UserAgent:      cfg.UserAgent,
			MinInterval:    resolved.MinInterval(),
			MaxRetries:     cfg.MaxRetries,
			ConnectTimeout: time.Duration(cfg.ConnectTimeout) * time.Second,
			Timeout:        time.Duration(cfg.Timeout) * time.Second,
			LocalAddress:   cfg.LocalAddress,
			Interface:      cfg.Interface,
			ListTTL:        time.Duration(cfg.ListTTL) * time.Second,
			ViewTTL:        time.Duration(cfg.ViewTTL) * time.Second,
			DownloadTTL:    time.Duration(cfg.DownloadTTL) * time.Second,
		}, cache, limiter, tr, nil, metrics)
		if err != nil {
			return nil, fmt.Errorf("mirror %q coordinator: %w", mc.ID, err)
		}

		m := &Mirror{
			Info: Info{
				ID:     mc.ID,
				Name:   mc.Name,
				Hidden: mc.Hidden,
				Type:   mc.Type,
			},
			coordinator: coordinator,
		}
		r.mirrors = append(r.mirrors, m)
		r.byID[mc.ID] = m
	}
	return r, nil
}

func resolve(mc domain.MirrorConfig, cfg *domain.Config) domain.MirrorConfig {
	if mc.WindowRequests <= 0 {
		mc.WindowRequests = cfg.WindowRequests
	}
	if mc.WindowSeconds <= 0 {
		mc.WindowSeconds = cfg.WindowSeconds
	}
	if mc.CacheDir == "" {
		mc.CacheDir = filepath.Join(cfg.CacheDir, "mirrors", mc.ID)
	}
	if mc.CacheSize <= 0 {
		mc.CacheSize = cfg.CacheSize
	}
	return mc
}

// Get looks a mirror up by id.
func (r *Registry) Get(id string) (*Mirror, bool) {
	m, ok := r.byID[id]
	return m, ok
}

// List returns every mirror, hidden ones included, in configuration order.
func (r *Registry) List() []Info {
	infos := make([]Info, 0, len(r.mirrors))
	for _, m := range r.mirrors {
		infos = append(infos, m.Info)
	}
	return infos
}

// HealthReport projects the recent ledger rows of every mirror.
func (r *Registry) HealthReport(ctx context.Context) ([]Health, error) {
	report := make([]Health, 0, len(r.mirrors))
	for _, m := range r.mirrors {
		requests, err := r.tracker.Recent(ctx, m.ID, 0)
		if err != nil {
			return nil, fmt.Errorf("mirror %q ledger: %w", m.ID, err)
		}
		report = append(report, Health{ID: m.ID, Name: m.Name, Requests: requests})
	}
	return report, nil
}
