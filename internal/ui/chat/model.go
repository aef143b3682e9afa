// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines the chat model: state, construction, and the Bubble
// Tea Update dispatch. Rendering lives in view.go, stream and key
// handling in update.go.
package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nyayantar/nyaya-tui/internal/auth"
	"github.com/nyayantar/nyaya-tui/internal/guest"
	"github.com/nyayantar/nyaya-tui/internal/model"
	"github.com/nyayantar/nyaya-tui/internal/storage"
	"github.com/nyayantar/nyaya-tui/internal/ui/components"
	"github.com/nyayantar/nyaya-tui/internal/ui/styles"
)

// =============================================================================
// STATE
// =============================================================================

// State represents the chat view's interaction state.
type State int

const (
	// StateReady accepts input.
	StateReady State = iota
	// StateStreaming is receiving an answer; input is locked.
	StateStreaming
	// StateError shows a blocking error until dismissed.
	StateError
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the chat view component.
type Model struct {
	state  State
	theme  *styles.Theme
	keyMap KeyMap
	width  int
	height int

	conversation *model.Conversation
	viewport     viewport.Model
	input        textinput.Model
	spinner      spinner.Model
	markdown     *components.MarkdownRenderer
	buffer       *StreamingBuffer
	toasts       *components.ToastManager

	manager *auth.Manager
	policy  *guest.Policy
	store   *storage.ConversationStore
	log     zerolog.Logger

	// In-flight stream bookkeeping. pendingID guards against messages
	// from a stream that has already been superseded.
	pendingID   string
	isThinking  bool
	streamStart time.Time

	limitHit bool

	showHelp  bool
	lastError *ErrorMsg
}

// Option configures a chat model.
type Option func(*Model)

// WithConversation starts the view on an existing conversation.
func WithConversation(conv *model.Conversation) Option {
	return func(m *Model) { m.conversation = conv }
}

// WithLogger sets the model's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Model) { m.log = log }
}

// New creates a chat model. The store may be nil; persistence is then
// skipped.
func New(theme *styles.Theme, manager *auth.Manager, policy *guest.Policy, store *storage.ConversationStore, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask a legal question..."
	ti.Prompt = "> "
	ti.CharLimit = 4000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(80, 20)

	m := Model{
		state:        StateReady,
		theme:        theme,
		keyMap:       DefaultKeyMap(),
		conversation: model.NewConversation(),
		viewport:     vp,
		input:        ti,
		spinner:      sp,
		markdown:     components.NewMarkdownRenderer(80),
		buffer:       NewStreamingBuffer(),
		toasts:       components.NewToastManager(),
		manager:      manager,
		policy:       policy,
		store:        store,
		log:          zerolog.Nop(),
		limitHit:     !manager.IsAuthenticated() && policy.Exceeded(),
	}
	m.conversation.Guest = !manager.IsAuthenticated()

	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Conversation returns the active conversation.
func (m Model) Conversation() *model.Conversation {
	return m.conversation
}

// Streaming reports whether an answer is currently being received.
func (m Model) Streaming() bool {
	return m.state == StateStreaming
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamStartMsg:
		return m.handleStreamStart(msg)

	case StreamTokenMsg:
		return m.handleStreamToken(msg)

	case StreamTickMsg:
		return m.handleStreamTick(msg)

	case StreamAnnotationsMsg:
		return m.handleStreamAnnotations(msg)

	case StreamCompleteMsg:
		return m.handleStreamComplete(msg)

	case StreamErrorMsg:
		return m.handleStreamError(msg)

	case GuestLimitMsg:
		return m.handleGuestLimit(msg)

	case SessionChangedMsg:
		return m.handleSessionChanged()

	case ConfigReloadedMsg:
		m.toasts.AddStatus("Configuration reloaded.")
		return m, components.ToastTickCmd()

	case ErrorMsg:
		m.lastError = &msg
		m.state = StateError
		return m, nil

	case DismissErrorMsg:
		m.lastError = nil
		m.state = StateReady
		m.input.Focus()
		return m, textinput.Blink

	case spinner.TickMsg:
		if m.isThinking {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case components.ToastTickMsg:
		if m.toasts.Prune() {
			return m, components.ToastTickCmd()
		}
		return m, nil

	default:
		var cmds []tea.Cmd
		if m.state == StateReady {
			var inputCmd tea.Cmd
			m.input, inputCmd = m.input.Update(msg)
			cmds = append(cmds, inputCmd)
		}
		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		cmds = append(cmds, vpCmd)
		return m, tea.Batch(cmds...)
	}
}

// View renders the chat view.
func (m Model) View() string {
	return m.renderChat()
}

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	// Layout: header + viewport + input area + status bar. Estimates are
	// conservative so the viewport never overflows; renderChat measures
	// actual heights and corrects.
	const (
		headerHeight    = 2
		inputAreaHeight = 3
		statusBarHeight = 2
	)
	reservedHeight := headerHeight + inputAreaHeight + statusBarHeight
	if m.limitHit {
		reservedHeight += 3
	}

	viewportHeight := m.height - reservedHeight
	if viewportHeight < 1 {
		viewportHeight = 1
	}
	viewportWidth := m.width
	if viewportWidth < 1 {
		viewportWidth = 1
	}
	m.viewport.Width = viewportWidth
	m.viewport.Height = viewportHeight

	inputWidth := m.width - 8
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth

	if m.theme != nil {
		m.theme.SetSize(m.width, m.height)
	}
	contentWidth := m.width - 6
	if contentWidth < 20 {
		contentWidth = 20
	}
	m.markdown.SetWidth(contentWidth)

	m.updateViewport()
	return m, nil
}
