// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package guest tracks how many queries an unauthenticated user has sent
// and decides when to stop accepting more. The count is held in memory
// and persisted best-effort; a broken state store degrades to a fresh
// counter rather than blocking the user.
package guest

import (
	"errors"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nyayantar/nyaya-tui/internal/state"
)

// Limit is the number of queries a guest may send before being asked to
// sign up. The server enforces nothing for guests; this is a client-side
// nudge, not a security boundary.
const Limit = 20

// counterKey is the fixed key under which the counter is persisted.
const counterKey = "guest_query_count"

// =============================================================================
// COUNTER STORE
// =============================================================================

// CounterStore persists the guest query counter. Reads never fail: a
// missing, corrupt, or negative stored value reads as zero.
type CounterStore struct {
	store *state.Store
	log   zerolog.Logger
}

// NewCounterStore wraps a state store.
func NewCounterStore(store *state.Store, log zerolog.Logger) *CounterStore {
	return &CounterStore{store: store, log: log}
}

// Read returns the persisted count, or zero when nothing usable is stored.
func (c *CounterStore) Read() int {
	if c.store == nil {
		return 0
	}

	raw, err := c.store.Get(counterKey)
	if err != nil {
		if !errors.Is(err, state.ErrNotFound) {
			c.log.Warn().Err(err).Msg("failed to read guest counter, starting at zero")
		}
		return 0
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.log.Warn().Str("value", raw).Msg("discarding unusable guest counter value")
		return 0
	}
	return n
}

// Write persists count. Failures are logged, never surfaced: losing the
// counter costs the user nothing.
func (c *CounterStore) Write(count int) {
	if c.store == nil {
		return
	}
	if err := c.store.Set(counterKey, strconv.Itoa(count)); err != nil {
		c.log.Warn().Err(err).Int("count", count).Msg("failed to persist guest counter")
	}
}

// Clear removes the persisted counter.
func (c *CounterStore) Clear() {
	if c.store == nil {
		return
	}
	if err := c.store.Delete(counterKey); err != nil {
		c.log.Warn().Err(err).Msg("failed to clear guest counter")
	}
}

// =============================================================================
// POLICY
// =============================================================================

// Policy is the in-memory source of truth for the guest query limit.
// The count is loaded from the store once at construction; afterwards
// every change goes through memory first and is written through
// best-effort. All methods are safe for concurrent use.
type Policy struct {
	mu    sync.Mutex
	count int
	store *CounterStore
}

// NewPolicy creates a policy seeded from the persisted counter.
func NewPolicy(store *CounterStore) *Policy {
	p := &Policy{store: store}
	if store != nil {
		p.count = store.Read()
	}
	return p
}

// Count returns the current query count.
func (p *Policy) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Increment records one completed guest query and returns the new count.
func (p *Policy) Increment() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.count++
	if p.store != nil {
		p.store.Write(p.count)
	}
	return p.count
}

// Reset zeroes the counter. Resetting an already-zero counter is a no-op.
func (p *Policy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.count == 0 {
		return
	}
	p.count = 0
	if p.store != nil {
		p.store.Clear()
	}
}

// Remaining returns how many queries are left, never negative.
func (p *Policy) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.count >= Limit {
		return 0
	}
	return Limit - p.count
}

// Exceeded reports whether the guest has used up the limit.
func (p *Policy) Exceeded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count >= Limit
}

// CanQuery reports whether another guest query is allowed.
func (p *Policy) CanQuery() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count < Limit
}
