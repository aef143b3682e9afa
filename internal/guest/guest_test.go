// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package guest

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nyayantar/nyaya-tui/internal/state"
)

func openTestStore(t *testing.T) *state.Store {
	t.Helper()

	s, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("state.Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestCounter(t *testing.T) *CounterStore {
	t.Helper()
	return NewCounterStore(openTestStore(t), zerolog.Nop())
}

func TestCounterReadMissing(t *testing.T) {
	c := newTestCounter(t)

	if got := c.Read(); got != 0 {
		t.Errorf("Read on empty store = %d, want 0", got)
	}
}

func TestCounterRoundTrip(t *testing.T) {
	c := newTestCounter(t)

	c.Write(13)
	if got := c.Read(); got != 13 {
		t.Errorf("Read = %d, want 13", got)
	}

	c.Clear()
	if got := c.Read(); got != 0 {
		t.Errorf("Read after Clear = %d, want 0", got)
	}
}

func TestCounterUnusableValues(t *testing.T) {
	store := openTestStore(t)
	c := NewCounterStore(store, zerolog.Nop())

	tests := []struct {
		name  string
		value string
	}{
		{"not a number", "banana"},
		{"negative", "-4"},
		{"empty", ""},
		{"float", "3.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Set("guest_query_count", tt.value); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if got := c.Read(); got != 0 {
				t.Errorf("Read = %d, want 0", got)
			}
		})
	}
}

func TestCounterNilStore(t *testing.T) {
	c := NewCounterStore(nil, zerolog.Nop())

	// No store means no persistence, never a panic.
	if got := c.Read(); got != 0 {
		t.Errorf("Read = %d, want 0", got)
	}
	c.Write(5)
	c.Clear()
}

func TestPolicyIncrement(t *testing.T) {
	p := NewPolicy(newTestCounter(t))

	for i := 1; i <= 3; i++ {
		if got := p.Increment(); got != i {
			t.Errorf("Increment #%d = %d, want %d", i, got, i)
		}
	}
	if got := p.Count(); got != 3 {
		t.Errorf("Count = %d, want 3", got)
	}
}

func TestPolicyDerivedState(t *testing.T) {
	tests := []struct {
		count     int
		remaining int
		exceeded  bool
		canQuery  bool
	}{
		{0, 20, false, true},
		{1, 19, false, true},
		{19, 1, false, true},
		{20, 0, true, false},
		{25, 0, true, false},
	}

	for _, tt := range tests {
		c := newTestCounter(t)
		c.Write(tt.count)
		p := NewPolicy(c)

		if got := p.Remaining(); got != tt.remaining {
			t.Errorf("count=%d: Remaining = %d, want %d", tt.count, got, tt.remaining)
		}
		if got := p.Exceeded(); got != tt.exceeded {
			t.Errorf("count=%d: Exceeded = %v, want %v", tt.count, got, tt.exceeded)
		}
		if got := p.CanQuery(); got != tt.canQuery {
			t.Errorf("count=%d: CanQuery = %v, want %v", tt.count, got, tt.canQuery)
		}
	}
}

func TestPolicyReset(t *testing.T) {
	c := newTestCounter(t)
	p := NewPolicy(c)

	p.Increment()
	p.Increment()
	p.Reset()

	if got := p.Count(); got != 0 {
		t.Errorf("Count after Reset = %d, want 0", got)
	}
	if got := c.Read(); got != 0 {
		t.Errorf("persisted count after Reset = %d, want 0", got)
	}

	// Reset is idempotent.
	p.Reset()
	if got := p.Count(); got != 0 {
		t.Errorf("Count after second Reset = %d, want 0", got)
	}
}

func TestPolicyLoadsPersistedCount(t *testing.T) {
	c := newTestCounter(t)
	c.Write(20)

	p := NewPolicy(c)
	if !p.Exceeded() {
		t.Error("Exceeded = false for persisted count at limit, want true")
	}
	if p.CanQuery() {
		t.Error("CanQuery = true for persisted count at limit, want false")
	}
}

func TestPolicyWritesThrough(t *testing.T) {
	c := newTestCounter(t)
	p := NewPolicy(c)

	p.Increment()
	p.Increment()

	// A fresh policy over the same store sees the persisted value.
	if got := NewPolicy(c).Count(); got != 2 {
		t.Errorf("reloaded Count = %d, want 2", got)
	}
}
