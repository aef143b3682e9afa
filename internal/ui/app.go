// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui composes the application views: sign-in, sign-up, and chat.
package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nyayantar/nyaya-tui/internal/auth"
	submit "github.com/nyayantar/nyaya-tui/internal/chat"
	"github.com/nyayantar/nyaya-tui/internal/guest"
	"github.com/nyayantar/nyaya-tui/internal/storage"
	chatview "github.com/nyayantar/nyaya-tui/internal/ui/chat"
	"github.com/nyayantar/nyaya-tui/internal/ui/styles"
)

// =============================================================================
// VIEW STATE
// =============================================================================

type viewKind int

const (
	viewChat viewKind = iota
	viewSignIn
	viewSignUp
)

// authResultMsg reports the outcome of a login or signup attempt.
type authResultMsg struct {
	err    error
	signup bool
}

// =============================================================================
// APP MODEL
// =============================================================================

// App is the root Bubble Tea model. It owns view switching and stream
// lifecycle; the chat view never talks to the network itself.
type App struct {
	theme     *styles.Theme
	manager   *auth.Manager
	submitter *submit.Submitter
	log       zerolog.Logger

	view   viewKind
	chat   chatview.Model
	signIn SignInForm
	signUp SignUpForm

	handle  *ProgramHandle
	cancels *cancelManager

	width  int
	height int
}

// AppOption configures the app.
type AppOption func(*App)

// WithAppLogger sets the app logger.
func WithAppLogger(log zerolog.Logger) AppOption {
	return func(a *App) { a.log = log }
}

// NewApp creates the root model. The handle must be bound to the
// running program before any stream starts.
func NewApp(theme *styles.Theme, manager *auth.Manager, policy *guest.Policy, submitter *submit.Submitter, store *storage.ConversationStore, handle *ProgramHandle, opts ...AppOption) App {
	a := App{
		theme:     theme,
		manager:   manager,
		submitter: submitter,
		log:       zerolog.Nop(),
		view:      viewChat,
		signIn:    NewSignInForm(theme),
		signUp:    NewSignUpForm(theme),
		handle:    handle,
		cancels:   newCancelManager(),
	}
	for _, opt := range opts {
		opt(&a)
	}
	a.chat = chatview.New(theme, manager, policy, store, chatview.WithLogger(a.log))
	return a
}

// Init initializes the active view.
func (a App) Init() tea.Cmd {
	return a.chat.Init()
}

// Update routes messages to the active view and handles app-level
// concerns: stream lifecycle, view switches, and authentication.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.signIn.SetSize(msg.Width, msg.Height)
		a.signUp.SetSize(msg.Width, msg.Height)
		var cmd tea.Cmd
		a.chat, cmd = a.chat.Update(msg)
		return a, cmd

	// Stream lifecycle. The chat view emits requests; the app runs them
	// on a goroutine that feeds results back through the program handle.
	case chatview.StreamRequestMsg:
		ctx, cancel := context.WithCancel(context.Background())
		a.cancels.set(cancel)
		runner := chatview.NewRunner(a.handle, a.submitter)
		go runner.Run(ctx, a.chat.Conversation(), msg.Query, msg.MessageID)
		return a, nil

	case chatview.StreamCancelMsg:
		a.cancels.cancel()
		return a, nil

	case chatview.StreamCompleteMsg, chatview.StreamErrorMsg, chatview.GuestLimitMsg:
		a.cancels.clear()
		var cmd tea.Cmd
		a.chat, cmd = a.chat.Update(msg)
		return a, cmd

	// View switches.
	case chatview.SignInRequestMsg, ShowSignInMsg:
		a.view = viewSignIn
		a.signIn.Reset()
		return a, a.signIn.Init()

	case ShowChatMsg:
		a.view = viewChat
		var cmd tea.Cmd
		a.chat, cmd = a.chat.Update(chatview.SessionChangedMsg{})
		return a, cmd

	case chatview.SignOutRequestMsg:
		a.manager.Logout()
		var cmd tea.Cmd
		a.chat, cmd = a.chat.Update(chatview.SessionChangedMsg{})
		return a, cmd

	case FormCancelMsg:
		a.view = viewChat
		return a, nil

	case SwitchFormMsg:
		if a.view == viewSignIn {
			a.view = viewSignUp
			a.signUp.Reset()
			return a, a.signUp.Init()
		}
		a.view = viewSignIn
		a.signIn.Reset()
		return a, a.signIn.Init()

	// Authentication.
	case SignInSubmitMsg:
		manager := a.manager
		return a, func() tea.Msg {
			err := manager.Login(context.Background(), msg.Email, msg.Password)
			return authResultMsg{err: err}
		}

	case SignUpSubmitMsg:
		manager := a.manager
		return a, func() tea.Msg {
			err := manager.Signup(context.Background(), msg.Request)
			return authResultMsg{err: err, signup: true}
		}

	case authResultMsg:
		return a.handleAuthResult(msg)

	case chatview.ConfigReloadedMsg:
		// Always lands on the chat model, whichever view is showing.
		var cmd tea.Cmd
		a.chat, cmd = a.chat.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		// Forms have no quit binding of their own.
		if a.view != viewChat && msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
	}

	return a.updateActiveView(msg)
}

func (a App) handleAuthResult(msg authResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		text := describeAuthError(msg.err)
		if msg.signup {
			a.signUp.SetError(text)
		} else {
			a.signIn.SetError(text)
		}
		return a, nil
	}

	a.view = viewChat
	var cmd tea.Cmd
	a.chat, cmd = a.chat.Update(chatview.SessionChangedMsg{})
	return a, cmd
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.view {
	case viewSignIn:
		a.signIn, cmd = a.signIn.Update(msg)
	case viewSignUp:
		a.signUp, cmd = a.signUp.Update(msg)
	default:
		a.chat, cmd = a.chat.Update(msg)
	}
	return a, cmd
}

// View renders the active view.
func (a App) View() string {
	switch a.view {
	case viewSignIn:
		return a.signIn.View()
	case viewSignUp:
		return a.signUp.View()
	default:
		return a.chat.View()
	}
}
