// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/nyaproxy/internal/store"
)

type StatsHandler struct {
	store *store.ItemStore
}

func NewStatsHandler(itemStore *store.ItemStore) *StatsHandler {
	return &StatsHandler{store: itemStore}
}

func (h *StatsHandler) Routes(r chi.Router) {
	r.Get("/stats/torrents-per-day", h.TorrentsPerDay)
	r.Get("/stats/events", h.Events)
}

// TorrentsPerDay serves per-day ingest counts for the last 30 active days.
func (h *StatsHandler) TorrentsPerDay(w http.ResponseWriter, r *http.Request) {
	days, err := h.store.TorrentsPerDay(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to query torrents per day")
		RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	RespondJSON(w, http.StatusOK, days)
}

// Events serves the newest indexer events.
func (h *StatsHandler) Events(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.RecentEvents(r.Context(), 0)
	if err != nil {
		log.Error().Err(err).Msg("failed to query events")
		RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	RespondJSON(w, http.StatusOK, events)
}
