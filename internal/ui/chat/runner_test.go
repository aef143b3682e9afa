// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyayantar/nyaya-tui/internal/api"
	"github.com/nyayantar/nyaya-tui/internal/auth"
	submit "github.com/nyayantar/nyaya-tui/internal/chat"
	"github.com/nyayantar/nyaya-tui/internal/guest"
	"github.com/nyayantar/nyaya-tui/internal/model"
	"github.com/nyayantar/nyaya-tui/internal/state"
)

type recordSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (s *recordSender) Send(msg tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func (s *recordSender) all() []tea.Msg {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tea.Msg(nil), s.msgs...)
}

func newRunnerRig(t *testing.T, handler http.HandlerFunc) (*Runner, *recordSender, *guest.Policy) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	st, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	policy := guest.NewPolicy(guest.NewCounterStore(st, zerolog.Nop()))
	manager := auth.NewManager(nil, nil)
	client := api.New(srv.URL, api.WithMaxRetries(1))
	manager.SetClient(client)

	sender := &recordSender{}
	runner := NewRunner(sender, submit.NewSubmitter(client, manager, policy, zerolog.Nop()))
	return runner, sender, policy
}

func TestRunnerDeliversTokensAndCompletion(t *testing.T) {
	runner, sender, policy := newRunnerRig(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("0:\"Anticipatory bail \"\n"))
		w.Write([]byte("0:\"is governed by Section 438.\"\n"))
		w.Write([]byte(`8:[{"type":"sources","data":[{"node_id":"n1","text":"snippet","metadata":{"title":"CrPC 438"},"score":0.9}]}]` + "\n"))
		w.Write([]byte(`8:[{"type":"suggested_questions","data":["What about regular bail?"]}]` + "\n"))
	})

	runner.Run(context.Background(), model.NewConversation(), "bail?", "msg-1")

	msgs := sender.all()
	require.NotEmpty(t, msgs)

	_, isStart := msgs[0].(StreamStartMsg)
	assert.True(t, isStart, "first message must be StreamStartMsg")

	var tokens []string
	var annotations []StreamAnnotationsMsg
	var complete *StreamCompleteMsg
	for _, msg := range msgs {
		switch msg := msg.(type) {
		case StreamTokenMsg:
			assert.Equal(t, "msg-1", msg.MessageID)
			tokens = append(tokens, msg.Token)
		case StreamAnnotationsMsg:
			annotations = append(annotations, msg)
		case StreamCompleteMsg:
			complete = &msg
		}
	}

	assert.Equal(t, []string{"Anticipatory bail ", "is governed by Section 438."}, tokens)

	require.Len(t, annotations, 2)
	require.Len(t, annotations[0].Sources, 1)
	assert.Equal(t, "CrPC 438", annotations[0].Sources[0].Title)
	assert.Equal(t, []string{"What about regular bail?"}, annotations[1].SuggestedQuestions)

	require.NotNil(t, complete)
	assert.Empty(t, complete.ServerError)
	assert.Equal(t, guest.Limit-1, complete.Remaining)
	assert.Equal(t, 1, policy.Count())
}

func TestRunnerReportsServerError(t *testing.T) {
	runner, sender, _ := newRunnerRig(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("0:\"partial\"\n"))
		w.Write([]byte("3:\"model overloaded\"\n"))
	})

	runner.Run(context.Background(), model.NewConversation(), "q", "msg-1")

	var complete *StreamCompleteMsg
	for _, msg := range sender.all() {
		if m, ok := msg.(StreamCompleteMsg); ok {
			complete = &m
		}
	}
	require.NotNil(t, complete)
	assert.Equal(t, "model overloaded", complete.ServerError)
}

func TestRunnerEmitsGuestLimit(t *testing.T) {
	runner, sender, policy := newRunnerRig(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected once the limit is reached")
	})
	for i := 0; i < guest.Limit; i++ {
		policy.Increment()
	}

	runner.Run(context.Background(), model.NewConversation(), "q", "msg-1")

	var limit *GuestLimitMsg
	for _, msg := range sender.all() {
		switch msg := msg.(type) {
		case GuestLimitMsg:
			limit = &msg
		case StreamCompleteMsg, StreamErrorMsg:
			t.Errorf("unexpected terminal message %T", msg)
		}
	}
	require.NotNil(t, limit)
	assert.Equal(t, guest.Limit, limit.Count)
}

func TestRunnerEmitsTransportError(t *testing.T) {
	runner, sender, policy := newRunnerRig(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	runner.Run(context.Background(), model.NewConversation(), "q", "msg-1")

	var streamErr *StreamErrorMsg
	for _, msg := range sender.all() {
		if m, ok := msg.(StreamErrorMsg); ok {
			streamErr = &m
		}
	}
	require.NotNil(t, streamErr)
	require.Error(t, streamErr.Error)
	// Failed exchanges never count against the allowance.
	assert.Equal(t, 0, policy.Count())
}
