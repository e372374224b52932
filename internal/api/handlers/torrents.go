// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/nyaproxy/internal/domain"
	"github.com/autobrr/nyaproxy/internal/store"
)

// searchPageSize is the upstream listing page size used for interactive
// searches; the origin always serves 75 rows per page.
const searchPageSize = 75

// upstreamClient is the slice of the fetch coordinator the torrent
// handlers need. Tests substitute a stub.
type upstreamClient interface {
	List(ctx context.Context, q domain.ListQuery) ([]domain.ListItem, bool, error)
	View(ctx context.Context, id int64) (*domain.View, bool, error)
	Download(ctx context.Context, id int64) (*domain.Payload, bool, error)
}

type TorrentsHandler struct {
	store    *store.ItemStore
	upstream upstreamClient
}

func NewTorrentsHandler(itemStore *store.ItemStore, upstream upstreamClient) *TorrentsHandler {
	return &TorrentsHandler{
		store:    itemStore,
		upstream: upstream,
	}
}

func (h *TorrentsHandler) Routes(r chi.Router) {
	r.Post("/torrents", h.ListTorrents)
	r.Get("/torrent/{id}", h.GetTorrent)
	r.Get("/download/{id}", h.Download)
}

// TorrentListRequest is the torrent listing/search request body.
type TorrentListRequest struct {
	Term      string `json:"term"`
	Category  string `json:"category"`
	Filter    string `json:"filter"`
	Sort      string `json:"sort"`
	SortOrder string `json:"sort_order"`
	Offset    int    `json:"offset"`
	Limit     int    `json:"limit"`
}

// validated is the request after warn-and-default validation: unknown
// enumerated values fall back to their zero defaults instead of failing.
type validated struct {
	Term     string
	Category domain.Category
	Filter   domain.Filter
	Sort     domain.Sort
	Order    domain.SortOrder
	Offset   int
	Limit    int
}

func (req TorrentListRequest) validate() validated {
	v := validated{Term: req.Term, Offset: req.Offset, Limit: req.Limit}

	if v.Offset < 0 {
		log.Warn().Int("offset", req.Offset).Msg("negative offset, defaulting to 0")
		v.Offset = 0
	}
	if req.Category != "" {
		category, err := domain.ParseCategory(req.Category)
		if err != nil {
			log.Warn().Str("category", req.Category).Msg("invalid category, ignoring")
		} else {
			v.Category = category
		}
	}
	if req.Filter != "" {
		filter, ok := domain.ParseFilter(req.Filter)
		if !ok {
			log.Warn().Str("filter", req.Filter).Msg("invalid filter, ignoring")
		} else {
			v.Filter = filter
		}
	}
	if req.Sort != "" {
		sort, ok := domain.ParseSort(req.Sort)
		if !ok {
			log.Warn().Str("sort", req.Sort).Msg("invalid sort, ignoring")
		} else {
			v.Sort = sort
		}
	}
	if req.SortOrder != "" {
		order, ok := domain.ParseSortOrder(req.SortOrder)
		if !ok {
			log.Warn().Str("sort_order", req.SortOrder).Msg("invalid sort order, ignoring")
		} else {
			v.Order = order
		}
	}
	return v
}

// Torrent is one listing row in API responses.
type Torrent struct {
	Title      string `json:"title"`
	Link       string `json:"link"`
	GUID       string `json:"guid"`
	PubDate    string `json:"pub_date"`
	Seeders    int    `json:"seeders"`
	Leechers   int    `json:"leechers"`
	Downloads  int    `json:"downloads"`
	InfoHash   string `json:"info_hash"`
	CategoryID string `json:"category_id"`
	Category   string `json:"category"`
	Size       uint64 `json:"size"`
	Comments   int    `json:"comments"`
	Trusted    bool   `json:"trusted"`
	Remake     bool   `json:"remake"`
}

func torrentFromItem(item domain.ListItem) Torrent {
	return Torrent{
		Title:      item.Title,
		Link:       item.Link,
		GUID:       item.GUID,
		PubDate:    item.PubDate.Format(time.RFC1123Z),
		Seeders:    item.Seeders,
		Leechers:   item.Leechers,
		Downloads:  item.Downloads,
		InfoHash:   item.InfoHash,
		CategoryID: string(item.Category),
		Category:   item.Category.English(),
		Size:       item.Size,
		Comments:   item.Comments,
		Trusted:    item.Trusted,
		Remake:     item.Remake,
	}
}

// TorrentListResponse is one page of listing rows.
type TorrentListResponse struct {
	Torrents []Torrent `json:"torrents"`
	Offset   int       `json:"offset"`
	Count    int       `json:"count"`
	Total    int64     `json:"total"`
}

// ListTorrents serves a page of torrents. A request with a search term goes
// through the upstream coordinator and feeds fresh results back into the
// item store; without one it is answered from the store alone.
func (h *TorrentsHandler) ListTorrents(w http.ResponseWriter, r *http.Request) {
	var req TorrentListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("failed to decode torrent list request")
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	v := req.validate()

	if v.Term == "" {
		h.listStored(w, r, v)
		return
	}
	h.searchUpstream(w, r, v)
}

func (h *TorrentsHandler) listStored(w http.ResponseWriter, r *http.Request, v validated) {
	total, err := h.store.Count(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to count stored torrents")
		RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	offset, count, items, err := h.store.Items(r.Context(), store.ItemsParams{
		Offset:   v.Offset,
		Count:    v.Limit,
		Category: v.Category,
		Filter:   v.Filter,
		Sort:     v.Sort,
		Order:    v.Order,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to query stored torrents")
		RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	torrents := make([]Torrent, 0, len(items))
	for _, item := range items {
		torrents = append(torrents, torrentFromItem(item))
	}
	RespondJSON(w, http.StatusOK, TorrentListResponse{
		Torrents: torrents,
		Offset:   offset,
		Count:    count,
		Total:    total,
	})
}

func (h *TorrentsHandler) searchUpstream(w http.ResponseWriter, r *http.Request, v validated) {
	page := 1 + v.Offset/searchPageSize

	items, cached, err := h.upstream.List(r.Context(), domain.ListQuery{
		Page:     page,
		Term:     v.Term,
		Category: v.Category,
		Filter:   v.Filter,
		Sort:     string(v.Sort),
		Order:    v.Order,
	})
	if err != nil {
		log.Error().Err(err).Str("term", v.Term).Msg("failed to fetch torrent search")
		RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if !cached {
		if err := h.store.UpsertAll(r.Context(), items); err != nil {
			log.Error().Err(err).Msg("failed to store search results")
			RespondError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	torrents := make([]Torrent, 0, len(items))
	for _, item := range items {
		torrents = append(torrents, torrentFromItem(item))
	}
	RespondJSON(w, http.StatusOK, TorrentListResponse{
		Torrents: torrents,
		Offset:   v.Offset,
		Count:    searchPageSize,
		// The origin does not report a total for searches; assume a few
		// more pages so clients keep paginating.
		Total: int64(searchPageSize * 5),
	})
}

// TorrentDetail is the full detail record for one torrent.
type TorrentDetail struct {
	Title               string               `json:"title"`
	Link                string               `json:"link"`
	GUID                string               `json:"guid"`
	PubDate             string               `json:"pub_date"`
	Seeders             int                  `json:"seeders"`
	Leechers            int                  `json:"leechers"`
	Downloads           int                  `json:"downloads"`
	InfoHash            string               `json:"info_hash"`
	CategoryID          string               `json:"category_id"`
	Category            string               `json:"category"`
	Size                uint64               `json:"size"`
	Trusted             bool                 `json:"trusted"`
	Remake              bool                 `json:"remake"`
	Description         string               `json:"description"`
	DescriptionMarkdown string               `json:"description_markdown"`
	DownloadLink        string               `json:"download_link"`
	MagnetLink          string               `json:"magnet_link"`
	Submitter           string               `json:"submitter"`
	InfoLink            string               `json:"info_link,omitempty"`
	Files               []domain.ViewFile    `json:"files"`
	Comments            []domain.ViewComment `json:"comments"`
}

// GetTorrent serves the detail record for one torrent id.
func (h *TorrentsHandler) GetTorrent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid torrent ID")
		return
	}

	view, _, err := h.upstream.View(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("failed to fetch torrent view")
		RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	RespondJSON(w, http.StatusOK, TorrentDetail{
		Title:               view.Title,
		Link:                view.Link,
		GUID:                view.GUID,
		PubDate:             view.PubDate.Format(time.RFC1123Z),
		Seeders:             view.Seeders,
		Leechers:            view.Leechers,
		Downloads:           view.Downloads,
		InfoHash:            view.InfoHash,
		CategoryID:          string(view.Category),
		Category:            view.Category.English(),
		Size:                view.Size,
		Trusted:             view.Trusted,
		Remake:              view.Remake,
		Description:         view.DescriptionMD,
		DescriptionMarkdown: view.DescriptionMD,
		DownloadLink:        view.DownloadLink,
		MagnetLink:          view.MagnetLink,
		Submitter:           view.Submitter,
		InfoLink:            view.InfoLink,
		Files:               view.Files,
		Comments:            view.Comments,
	})
}

// Download streams the torrent artifact with the upstream content type and
// an attachment disposition.
func (h *TorrentsHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid torrent ID")
		return
	}

	payload, _, err := h.upstream.Download(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("failed to download torrent")
		RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", payload.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", strconv.FormatInt(id, 10)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload.Data); err != nil {
		log.Error().Err(err).Int64("id", id).Msg("failed to write torrent payload")
	}
}
