// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file contains all rendering logic for the chat interface:
//   - Main view composition (renderChat)
//   - Message rendering (user, assistant, system)
//   - Header, status bar, limit banner, and input area
//   - Toast overlay
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nyayantar/nyaya-tui/internal/guest"
	"github.com/nyayantar/nyaya-tui/internal/model"
	"github.com/nyayantar/nyaya-tui/internal/ui/components"
	"github.com/nyayantar/nyaya-tui/internal/ui/styles"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// renderChat renders the complete chat view.
// Layout: header + [limit banner] + messages viewport + input + status bar.
func (m Model) renderChat() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelpOverlay()
	}

	header := m.renderHeader()
	input := m.renderInput()
	status := m.renderStatusBar()

	var banner string
	if m.limitHit && !m.manager.IsAuthenticated() {
		banner = m.renderLimitBanner()
	}

	availableHeight := m.height - lipgloss.Height(header) - lipgloss.Height(input) - lipgloss.Height(status)
	if banner != "" {
		availableHeight -= lipgloss.Height(banner)
	}
	if availableHeight < 1 {
		availableHeight = 1
	}

	messages := m.viewport.View()
	if lipgloss.Height(messages) != availableHeight {
		messages = lipgloss.NewStyle().
			Height(availableHeight).
			MaxHeight(availableHeight).
			Width(m.width).
			Render(messages)
	}

	parts := []string{header}
	if banner != "" {
		parts = append(parts, banner)
	}
	parts = append(parts, messages, input, status)
	baseView := lipgloss.JoinVertical(lipgloss.Left, parts...)

	if m.toasts.Count() > 0 {
		return m.overlayToasts(baseView, m.toasts.Render(m.width/2))
	}
	return baseView
}

// overlayToasts places the toast stack in the bottom-right corner of
// the base view without disturbing the rest of the layout.
func (m Model) overlayToasts(baseView, toastView string) string {
	baseLines := strings.Split(baseView, "\n")
	toastLines := strings.Split(toastView, "\n")

	startRow := len(baseLines) - len(toastLines) - 2
	if startRow < 0 {
		startRow = 0
	}

	for i := range baseLines {
		ti := i - startRow
		if ti < 0 || ti >= len(toastLines) {
			continue
		}
		toastLine := toastLines[ti]
		tw := lipgloss.Width(toastLine)
		if tw == 0 {
			continue
		}
		base := baseLines[i]
		bw := lipgloss.Width(base)
		pad := m.width - tw - 1 - bw
		if pad > 0 {
			base += strings.Repeat(" ", pad)
		}
		baseLines[i] = base + toastLine
	}

	return strings.Join(baseLines, "\n")
}

// =============================================================================
// HEADER
// =============================================================================

// renderHeader renders the one-line title bar with the session badge.
func (m Model) renderHeader() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	title := m.theme.HeaderTitle.Render("nyaya")
	subtitle := m.theme.HeaderSubtitle.Render(" | legal assistant")

	var badge string
	switch {
	case m.manager.IsAdmin():
		badge = m.theme.StatusAdmin.Render("ADMIN")
	case m.manager.IsAuthenticated():
		name := m.manager.Session().DisplayName()
		badge = m.theme.StatusUser.Render(name)
	default:
		badge = m.theme.StatusGuest.Render("GUEST")
	}

	var streamDot string
	if m.state == StateStreaming {
		streamDot = lipgloss.NewStyle().Foreground(styles.Emerald).Render(" " + styles.StatusIndicators.Info)
	}

	left := title + subtitle + streamDot
	gap := width - lipgloss.Width(left) - lipgloss.Width(badge) - 2
	if gap < 1 {
		gap = 1
	}

	return m.theme.Header.Width(width).Render(left + strings.Repeat(" ", gap) + badge)
}

// =============================================================================
// MESSAGES
// =============================================================================

// renderMessages renders the conversation transcript.
func (m *Model) renderMessages() string {
	if m.conversation == nil || m.conversation.IsEmpty() {
		return m.renderEmptyState()
	}

	var parts []string
	for _, msg := range m.conversation.Messages {
		if rendered := m.renderMessage(msg); rendered != "" {
			parts = append(parts, rendered)
		}
	}

	if m.state == StateStreaming && m.isThinking {
		parts = append(parts, m.renderThinking())
	}

	return strings.Join(parts, "\n")
}

func (m *Model) renderMessage(msg *model.Message) string {
	switch msg.Role {
	case model.RoleUser:
		return m.renderUserMessage(msg)
	case model.RoleAssistant:
		return m.renderAssistantMessage(msg)
	case model.RoleSystem:
		return m.renderSystemMessage(msg)
	default:
		return msg.GetDisplayContent()
	}
}

// renderEmptyState shows the greeting before the first exchange.
func (m *Model) renderEmptyState() string {
	lines := []string{
		m.theme.HeaderTitle.Render("Welcome to Nyaya"),
		"",
		m.theme.HeaderSubtitle.Render("Ask anything about Indian law. Answers cite the statutes"),
		m.theme.HeaderSubtitle.Render("and judgments they draw from."),
	}
	if !m.manager.IsAuthenticated() {
		lines = append(lines, "",
			m.theme.HeaderSubtitle.Render(fmt.Sprintf("You have %d free questions. Press Ctrl+S to sign in.", m.policy.Remaining())))
	}
	content := lipgloss.JoinVertical(lipgloss.Center, lines...)
	return lipgloss.Place(m.viewport.Width, m.viewport.Height, lipgloss.Center, lipgloss.Center, content)
}

// renderUserMessage renders a right-aligned user bubble.
func (m *Model) renderUserMessage(msg *model.Message) string {
	maxWidth := m.width - 8
	if maxWidth < 10 {
		maxWidth = 10
	}

	rendered := m.theme.UserBubble.MaxWidth(maxWidth).Render(msg.GetDisplayContent())

	marginLeft := m.width - lipgloss.Width(rendered) - 4
	if marginLeft < 0 {
		marginLeft = 0
	}
	return lipgloss.NewStyle().
		MarginLeft(marginLeft).
		MarginTop(1).
		Render(rendered)
}

// renderAssistantMessage renders an answer with markdown, citations,
// and suggested follow-ups.
func (m *Model) renderAssistantMessage(msg *model.Message) string {
	content := msg.GetDisplayContent()
	if strings.TrimSpace(content) == "" && !msg.IsStreaming && msg.ErrorText == "" {
		return ""
	}

	var body string
	if msg.IsStreaming {
		// Raw text while streaming; markdown needs the full document.
		body = content + lipgloss.NewStyle().Foreground(styles.Indigo).Render("_")
	} else {
		body = m.markdown.Render(content)
	}

	parts := []string{m.theme.RoleLabel.Render(msg.Role.DisplayName()), body}

	if msg.ErrorText != "" {
		parts = append(parts, m.theme.ErrorMessage.Render(styles.StatusIndicators.Error+" "+msg.ErrorText))
	}
	if !msg.IsStreaming {
		if sources := components.RenderSources(m.theme, msg.Sources); sources != "" {
			parts = append(parts, sources)
		}
		if suggestions := components.RenderSuggestions(m.theme, msg.SuggestedQuestions); suggestions != "" {
			parts = append(parts, suggestions)
		}
	}

	return lipgloss.NewStyle().
		MarginTop(1).
		MarginLeft(2).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// renderSystemMessage renders a dimmed centered notice.
func (m *Model) renderSystemMessage(msg *model.Message) string {
	return m.theme.SystemBubble.Render(msg.GetDisplayContent())
}

// renderThinking shows the spinner while waiting for the first token.
func (m *Model) renderThinking() string {
	return lipgloss.NewStyle().
		MarginTop(1).
		MarginLeft(2).
		Render(m.spinner.View() + m.theme.ThinkingText.Render(" thinking..."))
}

// =============================================================================
// LIMIT BANNER
// =============================================================================

// renderLimitBanner renders the guest limit notice above the input.
func (m Model) renderLimitBanner() string {
	count := m.theme.LimitCount.Render(fmt.Sprintf("%d/%d", m.policy.Count(), guest.Limit))
	text := m.theme.LimitWarning.Render(" free questions used. Sign in (Ctrl+S) for unlimited access.")
	return m.theme.LimitBanner.Width(m.width).Render(count + text)
}

// =============================================================================
// INPUT AREA
// =============================================================================

// renderInput renders the separator and the input line.
func (m Model) renderInput() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	separator := lipgloss.NewStyle().
		Foreground(styles.Overlay).
		Render(strings.Repeat("─", width))

	var line string
	if m.state == StateStreaming {
		line = m.theme.InputPlaceholder.Render("  receiving answer... press Esc to cancel")
	} else {
		line = m.theme.InputContainer.Render(m.input.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, separator, line)
}

// =============================================================================
// STATUS BAR
// =============================================================================

// renderStatusBar renders shortcuts and, for guests, the remaining
// question count.
func (m Model) renderStatusBar() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	var shortcuts []string
	for _, binding := range m.keyMap.ShortHelp() {
		h := binding.Help()
		shortcuts = append(shortcuts,
			m.theme.ShortcutKey.Render(h.Key)+m.theme.ShortcutDesc.Render(" "+h.Desc))
	}
	left := strings.Join(shortcuts, m.theme.ShortcutDesc.Render(" | "))

	var right string
	if !m.manager.IsAuthenticated() {
		right = m.theme.StatusGuest.Render(fmt.Sprintf("%d questions left", m.policy.Remaining()))
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}

	return m.theme.StatusBar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// HELP OVERLAY
// =============================================================================

// renderHelpOverlay renders the full key binding reference.
func (m Model) renderHelpOverlay() string {
	var rows []string
	rows = append(rows, m.theme.HeaderTitle.Render("Keyboard Shortcuts"), "")

	for _, group := range m.keyMap.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			rows = append(rows, fmt.Sprintf("  %s  %s",
				m.theme.ShortcutKey.Render(fmt.Sprintf("%-12s", h.Key)),
				m.theme.ShortcutDesc.Render(h.Desc)))
		}
		rows = append(rows, "")
	}
	rows = append(rows, m.theme.HeaderSubtitle.Render("Press any key to close"))

	box := m.theme.FormBox.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
