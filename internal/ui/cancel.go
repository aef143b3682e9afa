// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"sync"
)

// cancelManager holds the cancel function for the in-flight stream.
// Pointer type so Bubble Tea model copies share one instance.
type cancelManager struct {
	mu sync.Mutex
	fn context.CancelFunc
}

func newCancelManager() *cancelManager {
	return &cancelManager{}
}

// set stores a new cancel function, cancelling any previous stream.
func (c *cancelManager) set(fn context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fn != nil {
		c.fn()
	}
	c.fn = fn
}

// cancel aborts the in-flight stream, if any.
func (c *cancelManager) cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fn != nil {
		c.fn()
		c.fn = nil
	}
}

// clear drops the stored function without cancelling. Called when a
// stream ends on its own.
func (c *cancelManager) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fn = nil
}
