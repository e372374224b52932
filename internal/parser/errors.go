// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package parser

import (
	"errors"
	"fmt"
)

// Kind classifies what a parser failed to decode.
type Kind string

const (
	KindNumber    Kind = "parse number"
	KindInteger   Kind = "parse integer"
	KindDate      Kind = "parse date"
	KindBoolean   Kind = "parse boolean"
	KindSize      Kind = "parse size"
	KindCategory  Kind = "parse category"
	KindTimestamp Kind = "parse timestamp"
	KindString    Kind = "parse string"
	KindXML       Kind = "parse xml"

	KindMissingElement    Kind = "html missing element"
	KindMissingAttribute  Kind = "html missing attribute"
	KindUnexpectedElement Kind = "html unexpected element"
)

// Error is any failure to decode upstream content into the canonical model.
// Value holds the offending input fragment, selector or attribute name.
type Error struct {
	Kind  Kind
	Value string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %q: %v", e.Kind, e.Value, e.Err)
	}
	return fmt.Sprintf("%s: %q", e.Kind, e.Value)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err originates from one of the parsers.
// The fetch coordinator does not retry these: the content is already in
// hand and re-fetching it will not make it decodable.
func IsParseError(err error) bool {
	var pe *Error
	return errors.As(err, &pe)
}
