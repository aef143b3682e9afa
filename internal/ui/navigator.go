// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// PROGRAM HANDLE
// =============================================================================

// ProgramHandle delivers messages into the Bubble Tea program from
// outside the update loop. It can be created before the program exists;
// sends before Set are dropped.
type ProgramHandle struct {
	mu      sync.Mutex
	program *tea.Program
}

// NewProgramHandle creates an unbound handle.
func NewProgramHandle() *ProgramHandle {
	return &ProgramHandle{}
}

// Set binds the running program.
func (h *ProgramHandle) Set(p *tea.Program) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.program = p
}

// Send delivers a message to the program, if bound.
func (h *ProgramHandle) Send(msg tea.Msg) {
	h.mu.Lock()
	p := h.program
	h.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// =============================================================================
// NAVIGATOR
// =============================================================================

// ShowChatMsg switches the app to the chat view.
type ShowChatMsg struct{}

// ShowSignInMsg switches the app to the sign-in view.
type ShowSignInMsg struct{}

// Navigator routes session transitions into view switches. It satisfies
// the auth navigation interface by sending messages through the program
// handle, which keeps navigation on the update loop.
type Navigator struct {
	handle *ProgramHandle
}

// NewNavigator creates a navigator bound to the handle.
func NewNavigator(handle *ProgramHandle) *Navigator {
	return &Navigator{handle: handle}
}

// ShowChat switches to the chat view.
func (n *Navigator) ShowChat() {
	n.handle.Send(ShowChatMsg{})
}

// ShowSignIn switches to the sign-in view.
func (n *Navigator) ShowSignIn() {
	n.handle.Send(ShowSignInMsg{})
}
