// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package ratelimit implements sliding-window admission control shared by
// all concurrent callers of one fetch coordinator.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const pollInterval = 100 * time.Millisecond

// Limiter admits at most max calls within any window of the configured
// duration. Fairness between waiters is not guaranteed.
type Limiter struct {
	mu         sync.Mutex
	max        int
	window     time.Duration
	admissions []time.Time
}

func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:    max,
		window: window,
	}
}

// TryAcquire consumes a slot if one is free within the current window.
func (l *Limiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)

	live := l.admissions[:0]
	for _, at := range l.admissions {
		if !at.Before(cutoff) {
			live = append(live, at)
		}
	}
	l.admissions = live

	if len(l.admissions) >= l.max {
		return false
	}
	l.admissions = append(l.admissions, now)
	return true
}

// Acquire blocks until a slot is free, polling every 100 ms. Cancellation
// aborts the wait without consuming a slot.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.TryAcquire() {
		return nil
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("rate limit wait cancelled: %w", ctx.Err())
		case <-ticker.C:
			if l.TryAcquire() {
				return nil
			}
		}
	}
}
