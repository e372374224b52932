// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package ingest drives the fetch coordinator against the seed listing on
// a timer and feeds the results into the item store.
package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/nyaproxy/internal/domain"
)

// Lister is the coordinator operation the ingester drives.
type Lister interface {
	List(ctx context.Context, q domain.ListQuery) ([]domain.ListItem, bool, error)
}

// Upserter persists fetched items.
type Upserter interface {
	UpsertAll(ctx context.Context, items []domain.ListItem) error
}

type Ingester struct {
	lister   Lister
	store    Upserter
	interval time.Duration
	query    domain.ListQuery
}

// New builds an ingester that fetches query every interval.
func New(lister Lister, store Upserter, interval time.Duration, query domain.ListQuery) *Ingester {
	return &Ingester{
		lister:   lister,
		store:    store,
		interval: interval,
		query:    query,
	}
}

// Run ticks immediately, then every interval until ctx is cancelled.
// Errors are logged and the loop continues.
func (i *Ingester) Run(ctx context.Context) {
	log.Info().Dur("interval", i.interval).Msg("starting periodic ingester")

	ticker := time.NewTicker(i.interval)
	defer ticker.Stop()

	for {
		i.tick(ctx)

		select {
		case <-ctx.Done():
			log.Info().Msg("stopping periodic ingester")
			return
		case <-ticker.C:
		}
	}
}

func (i *Ingester) tick(ctx context.Context) {
	items, cached, err := i.lister.List(ctx, i.query)
	if err != nil {
		log.Error().Err(err).Msg("periodic fetch failed")
		return
	}
	if cached {
		// Nothing new since the cache entry was written.
		return
	}
	if err := i.store.UpsertAll(ctx, items); err != nil {
		log.Error().Err(err).Msg("failed to store fetched items")
		return
	}
	log.Debug().Int("items", len(items)).Msg("ingested listing")
}
