// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat glues the query limit policy, the session manager, and
// the backend client into a single submission path. Every chat surface
// (TUI, REPL, one-shot ask) goes through the Submitter so the guest
// gate cannot be bypassed by one of them forgetting a check.
package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nyayantar/nyaya-tui/internal/api"
	"github.com/nyayantar/nyaya-tui/internal/auth"
	"github.com/nyayantar/nyaya-tui/internal/guest"
	"github.com/nyayantar/nyaya-tui/internal/model"
)

// ErrQueryLimit marks a guest submission blocked by the query limit.
var ErrQueryLimit = errors.New("guest query limit reached")

// LimitError reports a blocked guest submission with the count that
// blocked it, so the prompt can say how much was used.
type LimitError struct {
	Count int
}

// Error implements the error interface.
func (e *LimitError) Error() string {
	return fmt.Sprintf("guest query limit reached (%d of %d used), sign up to continue", e.Count, guest.Limit)
}

// Is allows matching against ErrQueryLimit.
func (e *LimitError) Is(target error) bool {
	return target == ErrQueryLimit
}

// =============================================================================
// SUBMITTER
// =============================================================================

// Submitter routes chat submissions to the right endpoint and enforces
// the guest query limit.
type Submitter struct {
	client  *api.Client
	manager *auth.Manager
	policy  *guest.Policy
	log     zerolog.Logger
}

// NewSubmitter wires a submitter. The guest counter resets whenever a
// sign-in completes; the reset rides the session transition, not any
// chat action.
func NewSubmitter(client *api.Client, manager *auth.Manager, policy *guest.Policy, log zerolog.Logger) *Submitter {
	s := &Submitter{
		client:  client,
		manager: manager,
		policy:  policy,
		log:     log,
	}
	manager.OnLogin(policy.Reset)
	return s
}

// Remaining returns how many guest queries are left. Meaningless when
// signed in.
func (s *Submitter) Remaining() int {
	return s.policy.Remaining()
}

// Gate reports whether a submission would currently be accepted, and
// the blocking error when it would not.
func (s *Submitter) Gate() error {
	if s.manager.IsAuthenticated() {
		return nil
	}
	if !s.policy.CanQuery() {
		return &LimitError{Count: s.policy.Count()}
	}
	return nil
}

// Stream submits a query and streams the answer through the callback.
//
// The request carries the conversation's completed turns plus the new
// query; a user turn the caller already added for display is not sent
// twice.
// Guests over the limit are blocked before any network traffic. A
// completed guest exchange increments the counter exactly once; a
// failed one does not, whether it failed in transport or as a
// server-reported error line inside an otherwise clean stream.
func (s *Submitter) Stream(ctx context.Context, conv *model.Conversation, query string, callback api.StreamCallback) error {
	authed := s.manager.IsAuthenticated()

	if !authed && !s.policy.CanQuery() {
		return &LimitError{Count: s.policy.Count()}
	}

	req := buildRequest(conv, query)

	// Error events arrive inside the stream with a clean transport
	// close, so the return value alone cannot tell a completed exchange
	// from a failed one.
	serverErr := false
	observe := func(ev api.StreamEvent) {
		if ev.Kind == api.EventError {
			serverErr = true
		}
		callback(ev)
	}

	var err error
	if authed {
		err = s.client.ChatStream(ctx, conv.ID, req, observe)
	} else {
		err = s.client.GuestChatStream(ctx, req, observe)
	}
	if err != nil {
		// The server says the session is gone; force the sign-in flow.
		if errors.Is(err, api.ErrNotAuthenticated) && authed {
			s.manager.Logout()
		}
		return err
	}

	if !authed {
		if serverErr {
			s.log.Debug().Msg("guest exchange ended in a server error, not counted")
		} else {
			count := s.policy.Increment()
			s.log.Debug().Int("count", count).Msg("guest query recorded")
		}
	}
	return nil
}

// Ask submits a query and returns the accumulated answer.
func (s *Submitter) Ask(ctx context.Context, conv *model.Conversation, query string) (*api.ChatResult, error) {
	acc := api.NewStreamAccumulator()
	if err := s.Stream(ctx, conv, query, acc.Callback()); err != nil {
		return nil, err
	}
	return acc.Result(), nil
}

// buildRequest converts completed conversation turns plus the new query
// into the wire request.
func buildRequest(conv *model.Conversation, query string) api.ChatRequest {
	messages := make([]api.ChatMessage, 0, conv.MessageCount()+1)
	for _, msg := range conv.Messages {
		if msg.Role == model.RoleSystem || msg.IsStreaming || msg.IsEmpty() {
			continue
		}
		messages = append(messages, api.ChatMessage{
			Role:    msg.Role.String(),
			Content: msg.Content,
		})
	}
	// Callers that display the conversation add the new user turn before
	// submitting; don't send it twice.
	last := len(messages) - 1
	if last < 0 || messages[last].Role != "user" || messages[last].Content != query {
		messages = append(messages, api.ChatMessage{Role: "user", Content: query})
	}
	return api.ChatRequest{Messages: messages}
}
