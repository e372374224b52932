// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/nyaproxy/internal/domain"
	"github.com/autobrr/nyaproxy/internal/mirror"
)

type MirrorsHandler struct {
	registry *mirror.Registry
}

func NewMirrorsHandler(registry *mirror.Registry) *MirrorsHandler {
	return &MirrorsHandler{registry: registry}
}

func (h *MirrorsHandler) Routes(r chi.Router) {
	r.Get("/mirror", h.ListMirrors)
	r.Get("/mirror/{mirror}/list", h.List)
	r.Get("/mirror/{mirror}/view/{id}", h.View)
	r.Get("/mirror/{mirror}/magnet/{id}", h.Magnet)
	r.Get("/health", h.Health)
}

// MirrorListResponse is the registry listing.
type MirrorListResponse struct {
	Items []mirror.Info `json:"items"`
}

// ListMirrors serves every configured mirror, hidden ones included.
func (h *MirrorsHandler) ListMirrors(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, MirrorListResponse{Items: h.registry.List()})
}

func (h *MirrorsHandler) lookup(w http.ResponseWriter, r *http.Request) (*mirror.Mirror, bool) {
	id := chi.URLParam(r, "mirror")
	m, ok := h.registry.Get(id)
	if !ok {
		log.Warn().Str("mirror", id).Msg("mirror not found")
		RespondError(w, http.StatusNotFound, "Mirror not found")
		return nil, false
	}
	return m, true
}

// listQueryFromValues maps the upstream wire keys (p q c f s o) from an
// inbound query string, dropping values that fail validation.
func listQueryFromValues(values url.Values) domain.ListQuery {
	var q domain.ListQuery
	if page, err := strconv.Atoi(values.Get("p")); err == nil && page > 0 {
		q.Page = page
	}
	q.Term = values.Get("q")
	if category, err := domain.ParseCategory(values.Get("c")); err == nil {
		q.Category = category
	}
	if filter, ok := domain.ParseFilter(values.Get("f")); ok {
		q.Filter = filter
	}
	if sort, ok := domain.ParseSort(values.Get("s")); ok {
		q.Sort = string(sort)
	}
	if order, ok := domain.ParseSortOrder(values.Get("o")); ok {
		q.Order = order
	}
	return q
}

// List proxies a listing request through the named mirror.
func (h *MirrorsHandler) List(w http.ResponseWriter, r *http.Request) {
	m, ok := h.lookup(w, r)
	if !ok {
		return
	}

	items, _, err := m.List(r.Context(), listQueryFromValues(r.URL.Query()))
	if err != nil {
		log.Error().Err(err).Str("mirror", m.ID).Msg("failed to fetch mirror list")
		RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	torrents := make([]Torrent, 0, len(items))
	for _, item := range items {
		torrents = append(torrents, torrentFromItem(item))
	}
	RespondJSON(w, http.StatusOK, TorrentListResponse{
		Torrents: torrents,
		Count:    len(torrents),
		Total:    int64(len(torrents)),
	})
}

// View proxies a detail request through the named mirror.
func (h *MirrorsHandler) View(w http.ResponseWriter, r *http.Request) {
	m, ok := h.lookup(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid torrent ID")
		return
	}

	view, _, err := m.View(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("mirror", m.ID).Int64("id", id).Msg("failed to fetch mirror view")
		RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	RespondJSON(w, http.StatusOK, view)
}

// MagnetResponse carries a resolved magnet link.
type MagnetResponse struct {
	MagnetLink string `json:"magnet_link"`
}

// Magnet resolves the magnet link for one torrent through the named mirror.
func (h *MirrorsHandler) Magnet(w http.ResponseWriter, r *http.Request) {
	m, ok := h.lookup(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid torrent ID")
		return
	}

	magnet, err := m.Magnet(r.Context(), id)
	if err != nil {
		if errors.Is(err, mirror.ErrNoMagnet) {
			RespondError(w, http.StatusNotFound, "No magnet link")
			return
		}
		log.Error().Err(err).Str("mirror", m.ID).Int64("id", id).Msg("failed to fetch magnet link")
		RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	RespondJSON(w, http.StatusOK, MagnetResponse{MagnetLink: magnet})
}

// HealthResponse is the ledger projection across mirrors.
type HealthResponse struct {
	Mirrors []mirror.Health `json:"mirrors"`
}

// Health projects recent request outcomes per mirror.
func (h *MirrorsHandler) Health(w http.ResponseWriter, r *http.Request) {
	report, err := h.registry.HealthReport(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to build health report")
		RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	RespondJSON(w, http.StatusOK, HealthResponse{Mirrors: report})
}
