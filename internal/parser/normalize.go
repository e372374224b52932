// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package parser decodes the upstream wire formats (RSS feed, listing HTML,
// detail HTML) into the canonical domain records.
package parser

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Longest suffixes first so "kib" is matched before "b".
var sizeUnits = []struct {
	suffix string
	mult   float64
}{
	{"bytes", 1},
	{"kib", 1 << 10},
	{"mib", 1 << 20},
	{"gib", 1 << 30},
	{"tib", 1 << 40},
	{"pib", 1 << 50},
	{"kb", 1e3},
	{"mb", 1e6},
	{"gb", 1e9},
	{"tb", 1e12},
	{"pb", 1e15},
	{"b", 1},
}

// ParseSize converts a human-readable size like "205.9 MiB" or "1,024 KB"
// into bytes. Matching is case-insensitive, the space before the unit is
// optional and thousands-separator commas are stripped. An empty string is
// zero; an unrecognized unit or a non-numeric mantissa is an error.
func ParseSize(s string) (uint64, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return 0, nil
	}
	for _, u := range sizeUnits {
		if !strings.HasSuffix(v, u.suffix) {
			continue
		}
		num := strings.TrimSpace(strings.TrimSuffix(v, u.suffix))
		num = strings.ReplaceAll(num, ",", "")
		f, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, &Error{Kind: KindSize, Value: s, Err: err}
		}
		return uint64(math.Round(f * u.mult)), nil
	}
	return 0, &Error{Kind: KindSize, Value: s}
}

// ParseBool normalizes the upstream boolean spellings. "none" counts as
// false because the feed uses it for unset flags.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true, nil
	case "0", "false", "no", "none":
		return false, nil
	}
	return false, &Error{Kind: KindBoolean, Value: s}
}

// parseTimestamp decodes a data-timestamp attribute (integer epoch seconds)
// into a UTC instant.
func parseTimestamp(s string) (time.Time, error) {
	sec, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}, &Error{Kind: KindTimestamp, Value: s, Err: err}
	}
	return time.Unix(sec, 0).UTC(), nil
}
