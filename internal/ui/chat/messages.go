// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines all Bubble Tea message types used by the chat
// interface. Messages are organized into the following categories:
//   - Streaming: stream start, token delivery, annotations, completion
//   - Guest: query-limit notifications
//   - Session: sign-in and sign-out transitions
//   - Viewport: scrolling
//   - UI state: ticks and errors
package chat

import (
	"time"

	"github.com/nyayantar/nyaya-tui/internal/model"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamRequestMsg asks the app to start streaming an answer. The chat
// model emits this; the app layer owns the program handle and launches
// the runner goroutine.
type StreamRequestMsg struct {
	MessageID string
	Query     string
}

// StreamStartMsg signals that streaming has begun.
type StreamStartMsg struct {
	MessageID string
	StartTime time.Time
}

// StreamTokenMsg delivers a new text delta from the stream.
type StreamTokenMsg struct {
	MessageID string
	Token     string
}

// StreamAnnotationsMsg delivers sources and suggested questions.
type StreamAnnotationsMsg struct {
	MessageID          string
	Sources            []model.Source
	SuggestedQuestions []string
}

// StreamCompleteMsg signals that streaming has finished. ServerError is
// set when the server reported a failure on the stream itself.
type StreamCompleteMsg struct {
	MessageID   string
	ServerError string
	Remaining   int
}

// StreamErrorMsg signals a transport failure during streaming.
type StreamErrorMsg struct {
	MessageID string
	Error     error
}

// StreamTickMsg drives batched token rendering.
type StreamTickMsg struct {
	Time time.Time
}

// =============================================================================
// GUEST MESSAGES
// =============================================================================

// GuestLimitMsg signals that the free query allowance is used up.
type GuestLimitMsg struct {
	Count int
}

// StreamCancelMsg asks the app to cancel the in-flight stream.
type StreamCancelMsg struct {
	MessageID string
}

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// ConfigReloadedMsg signals that the config file changed on disk and
// was reloaded.
type ConfigReloadedMsg struct{}

// SessionChangedMsg signals that authentication state changed and
// surfaces depending on it should re-read the manager.
type SessionChangedMsg struct{}

// SignInRequestMsg asks the app to switch to the sign-in view.
type SignInRequestMsg struct{}

// SignOutRequestMsg asks the app to end the current session.
type SignOutRequestMsg struct{}

// =============================================================================
// INPUT MESSAGES
// =============================================================================

// SubmitInputMsg signals that the user submitted input.
type SubmitInputMsg struct {
	Content string
}

// =============================================================================
// VIEWPORT MESSAGES
// =============================================================================

// ViewportScrollToBottomMsg scrolls to the bottom.
type ViewportScrollToBottomMsg struct{}

// =============================================================================
// UI STATE MESSAGES
// =============================================================================

// SpinnerTickMsg drives the thinking spinner.
type SpinnerTickMsg struct {
	Time time.Time
}

// ErrorMsg displays an error to the user.
type ErrorMsg struct {
	Title   string
	Message string
}

// DismissErrorMsg clears the current error display.
type DismissErrorMsg struct{}
