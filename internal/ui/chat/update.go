// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file contains key handling and the stream message handlers.
package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nyayantar/nyaya-tui/internal/model"
	"github.com/nyayantar/nyaya-tui/internal/ui/components"
)

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.state == StateError {
		switch msg.String() {
		case "esc", "enter":
			return m.Update(DismissErrorMsg{})
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.persistConversation()
		return m, tea.Quit
	case key.Matches(msg, m.keyMap.Help):
		m.showHelp = !m.showHelp
		return m, nil
	}

	if m.showHelp {
		// Any other key closes the help overlay.
		m.showHelp = false
		return m, nil
	}

	if m.state == StateStreaming {
		if key.Matches(msg, m.keyMap.Cancel) {
			id := m.pendingID
			return m, func() tea.Msg { return StreamCancelMsg{MessageID: id} }
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keyMap.Submit):
		return m.submitInput()

	case key.Matches(msg, m.keyMap.NewChat):
		return m.startNewConversation()

	case key.Matches(msg, m.keyMap.SignIn):
		if !m.manager.IsAuthenticated() {
			return m, func() tea.Msg { return SignInRequestMsg{} }
		}
		return m, nil

	case key.Matches(msg, m.keyMap.SignOut):
		if m.manager.IsAuthenticated() {
			return m, func() tea.Msg { return SignOutRequestMsg{} }
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Home):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keyMap.End):
		m.viewport.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keyMap.Up), key.Matches(msg, m.keyMap.Down),
		key.Matches(msg, m.keyMap.PageUp), key.Matches(msg, m.keyMap.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

// submitInput sends the current input as a new query.
func (m Model) submitInput() (Model, tea.Cmd) {
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		return m, nil
	}
	if m.limitHit && !m.manager.IsAuthenticated() {
		m.toasts.AddWarning("Free question limit reached. Sign in to continue.")
		return m, components.ToastTickCmd()
	}

	m.input.Reset()
	m.conversation.AddUserMessage(query)
	assistant := m.conversation.AddAssistantMessage()

	m.pendingID = assistant.ID
	m.state = StateStreaming
	m.isThinking = true
	m.buffer.Reset()
	m.updateViewport()
	m.viewport.GotoBottom()

	req := StreamRequestMsg{MessageID: assistant.ID, Query: query}
	return m, tea.Batch(
		func() tea.Msg { return req },
		m.spinner.Tick,
		streamTickCmd(),
	)
}

// startNewConversation persists the current conversation and begins a
// fresh one.
func (m Model) startNewConversation() (Model, tea.Cmd) {
	m.persistConversation()
	m.conversation = model.NewConversation()
	m.conversation.Guest = !m.manager.IsAuthenticated()
	m.updateViewport()
	return m, nil
}

// =============================================================================
// STREAM HANDLERS
// =============================================================================

func (m Model) handleStreamStart(msg StreamStartMsg) (Model, tea.Cmd) {
	if msg.MessageID != m.pendingID {
		return m, nil
	}
	m.streamStart = msg.StartTime
	return m, nil
}

func (m Model) handleStreamToken(msg StreamTokenMsg) (Model, tea.Cmd) {
	if msg.MessageID != m.pendingID {
		return m, nil
	}
	m.isThinking = false
	m.buffer.Write(msg.Token)
	if chunk, ok := m.buffer.Flush(); ok {
		m.conversation.AppendToLast(chunk)
		m.updateViewport()
		m.viewport.GotoBottom()
	}
	return m, nil
}

func (m Model) handleStreamTick(msg StreamTickMsg) (Model, tea.Cmd) {
	if m.state != StateStreaming {
		return m, nil
	}
	if chunk, ok := m.buffer.ForceFlush(); ok {
		m.conversation.AppendToLast(chunk)
		m.updateViewport()
		m.viewport.GotoBottom()
	}
	return m, streamTickCmd()
}

func (m Model) handleStreamAnnotations(msg StreamAnnotationsMsg) (Model, tea.Cmd) {
	if msg.MessageID != m.pendingID {
		return m, nil
	}
	last := m.conversation.GetLastAssistantMessage()
	if last == nil {
		return m, nil
	}
	last.Sources = append(last.Sources, msg.Sources...)
	if len(msg.SuggestedQuestions) > 0 {
		last.SuggestedQuestions = msg.SuggestedQuestions
	}
	m.updateViewport()
	return m, nil
}

func (m Model) handleStreamComplete(msg StreamCompleteMsg) (Model, tea.Cmd) {
	if msg.MessageID != m.pendingID {
		return m, nil
	}
	if chunk, ok := m.buffer.ForceFlush(); ok {
		m.conversation.AppendToLast(chunk)
	}
	m.conversation.FinalizeLast()

	var cmds []tea.Cmd
	if msg.ServerError != "" {
		if last := m.conversation.GetLastAssistantMessage(); last != nil {
			last.ErrorText = msg.ServerError
		}
		m.toasts.AddError(msg.ServerError)
		cmds = append(cmds, components.ToastTickCmd())
	}

	if !m.manager.IsAuthenticated() && m.policy.Exceeded() {
		m.limitHit = true
	}

	m.state = StateReady
	m.isThinking = false
	m.pendingID = ""
	m.persistConversation()
	m.updateViewport()
	m.viewport.GotoBottom()
	m.input.Focus()
	cmds = append(cmds, textinput.Blink)
	return m, tea.Batch(cmds...)
}

func (m Model) handleStreamError(msg StreamErrorMsg) (Model, tea.Cmd) {
	if msg.MessageID != m.pendingID {
		return m, nil
	}
	if chunk, ok := m.buffer.ForceFlush(); ok {
		m.conversation.AppendToLast(chunk)
	}
	m.conversation.FinalizeLast()
	if last := m.conversation.GetLastAssistantMessage(); last != nil {
		last.ErrorText = msg.Error.Error()
	}

	m.state = StateReady
	m.isThinking = false
	m.pendingID = ""
	m.toasts.AddError(msg.Error.Error())
	m.persistConversation()
	m.updateViewport()
	m.input.Focus()
	return m, tea.Batch(components.ToastTickCmd(), textinput.Blink)
}

func (m Model) handleGuestLimit(msg GuestLimitMsg) (Model, tea.Cmd) {
	// The blocked exchange left an empty streaming assistant message
	// behind; drop it.
	if last := m.conversation.GetLastMessage(); last != nil &&
		last.Role == model.RoleAssistant && last.IsStreaming && last.IsEmpty() {
		m.conversation.Messages = m.conversation.Messages[:len(m.conversation.Messages)-1]
	}

	m.limitHit = true
	m.state = StateReady
	m.isThinking = false
	m.pendingID = ""
	m.toasts.AddWarning("Free question limit reached. Sign in to continue.")
	m.updateViewport()
	m.input.Focus()
	return m, tea.Batch(components.ToastTickCmd(), textinput.Blink)
}

func (m Model) handleSessionChanged() (Model, tea.Cmd) {
	authed := m.manager.IsAuthenticated()
	m.limitHit = !authed && m.policy.Exceeded()

	// A session boundary starts a fresh conversation so guest and
	// signed-in history never mix.
	if !m.conversation.IsEmpty() {
		m.persistConversation()
		m.conversation = model.NewConversation()
	}
	m.conversation.Guest = !authed
	m.updateViewport()
	return m, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// updateViewport re-renders the transcript into the viewport.
func (m *Model) updateViewport() {
	m.viewport.SetContent(m.renderMessages())
}

// persistConversation saves the conversation to the local cache.
// Failures are logged, never surfaced; persistence is best effort.
func (m *Model) persistConversation() {
	if m.store == nil || m.conversation.IsEmpty() {
		return
	}
	if _, err := m.store.Save(m.conversation); err != nil {
		m.log.Warn().Err(err).Str("conversation", m.conversation.ID).Msg("conversation save failed")
	}
}
