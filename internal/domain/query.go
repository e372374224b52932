// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"net/url"
	"strconv"
)

// Filter narrows a listing to a quality subset.
type Filter string

const (
	FilterNone     Filter = "0"
	FilterNoRemake Filter = "1"
	FilterTrusted  Filter = "2"
)

// ParseFilter validates a wire filter value.
func ParseFilter(s string) (Filter, bool) {
	switch Filter(s) {
	case FilterNone, FilterNoRemake, FilterTrusted:
		return Filter(s), true
	}
	return "", false
}

// Sort selects the column a stored listing is ordered by.
type Sort string

const (
	SortDate      Sort = "date"
	SortSeeders   Sort = "seeders"
	SortLeechers  Sort = "leechers"
	SortDownloads Sort = "downloads"
	SortSize      Sort = "size"
)

// ParseSort validates a sort column name.
func ParseSort(s string) (Sort, bool) {
	switch Sort(s) {
	case SortDate, SortSeeders, SortLeechers, SortDownloads, SortSize:
		return Sort(s), true
	}
	return "", false
}

// SortOrder is the listing direction.
type SortOrder string

const (
	OrderAscending  SortOrder = "asc"
	OrderDescending SortOrder = "desc"
)

// ParseSortOrder validates a sort direction.
func ParseSortOrder(s string) (SortOrder, bool) {
	switch SortOrder(s) {
	case OrderAscending, OrderDescending:
		return SortOrder(s), true
	}
	return "", false
}

// ListQuery is the upstream listing request. The zero value means "front
// page, everything, default order".
type ListQuery struct {
	Page     int       `json:"p,omitempty"`
	Term     string    `json:"q,omitempty"`
	Category Category  `json:"c,omitempty"`
	Filter   Filter    `json:"f,omitempty"`
	Sort     string    `json:"s,omitempty"`
	Order    SortOrder `json:"o,omitempty"`
}

// Values encodes the query with the upstream wire keys, omitting defaults
// (p=1, c=0_0, f=0, s=id, o=desc and an empty term).
func (q ListQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 1 {
		v.Set("p", strconv.Itoa(q.Page))
	}
	if q.Term != "" {
		v.Set("q", q.Term)
	}
	if q.Category != "" && q.Category != CategoryAll {
		v.Set("c", string(q.Category))
	}
	if q.Filter != "" && q.Filter != FilterNone {
		v.Set("f", string(q.Filter))
	}
	if q.Sort != "" && q.Sort != "id" {
		v.Set("s", q.Sort)
	}
	if q.Order != "" && q.Order != OrderDescending {
		v.Set("o", string(q.Order))
	}
	return v
}

// Encode returns the stable form-encoded representation of the query. It is
// used both as the outgoing query string and as the cache/ledger key half;
// url.Values.Encode sorts by key, which keeps the encoding deterministic.
func (q ListQuery) Encode() string {
	return q.Values().Encode()
}
