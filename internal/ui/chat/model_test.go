// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyayantar/nyaya-tui/internal/auth"
	"github.com/nyayantar/nyaya-tui/internal/guest"
	"github.com/nyayantar/nyaya-tui/internal/model"
	"github.com/nyayantar/nyaya-tui/internal/state"
	"github.com/nyayantar/nyaya-tui/internal/ui/styles"
)

func newTestModel(t *testing.T) (Model, *guest.Policy) {
	t.Helper()

	st, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	policy := guest.NewPolicy(guest.NewCounterStore(st, zerolog.Nop()))
	manager := auth.NewManager(nil, nil)

	m := New(styles.NewTheme(), manager, policy, nil)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, policy
}

// collectMsgs runs a command tree and returns every message it produces.
func collectMsgs(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collectMsgs(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func findStreamRequest(t *testing.T, cmd tea.Cmd) StreamRequestMsg {
	t.Helper()
	for _, msg := range collectMsgs(cmd) {
		if req, ok := msg.(StreamRequestMsg); ok {
			return req
		}
	}
	t.Fatal("no StreamRequestMsg emitted")
	return StreamRequestMsg{}
}

func submitQuery(t *testing.T, m Model, query string) (Model, StreamRequestMsg) {
	t.Helper()
	m.input.SetValue(query)
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return m, findStreamRequest(t, cmd)
}

func TestSubmitEmitsStreamRequest(t *testing.T) {
	m, _ := newTestModel(t)

	m, req := submitQuery(t, m, "What is anticipatory bail?")

	assert.Equal(t, "What is anticipatory bail?", req.Query)
	assert.NotEmpty(t, req.MessageID)
	assert.Equal(t, StateStreaming, m.state)
	assert.Equal(t, 2, m.conversation.MessageCount())
	assert.Empty(t, m.input.Value())
}

func TestSubmitIgnoresBlankInput(t *testing.T) {
	m, _ := newTestModel(t)

	m.input.SetValue("   ")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, StateReady, m.state)
	assert.Nil(t, cmd)
	assert.True(t, m.conversation.IsEmpty())
}

func TestTokensFlushedOnTick(t *testing.T) {
	m, _ := newTestModel(t)
	m, req := submitQuery(t, m, "q")

	m, _ = m.Update(StreamStartMsg{MessageID: req.MessageID, StartTime: time.Now()})
	m, _ = m.Update(StreamTokenMsg{MessageID: req.MessageID, Token: "Bail "})
	m, _ = m.Update(StreamTokenMsg{MessageID: req.MessageID, Token: "is..."})

	// Below the batch threshold; the tick drains the buffer.
	m, _ = m.Update(StreamTickMsg{Time: time.Now()})

	last := m.conversation.GetLastAssistantMessage()
	require.NotNil(t, last)
	assert.Equal(t, "Bail is...", last.GetDisplayContent())
	assert.True(t, last.IsStreaming)
}

func TestStreamCompleteFinalizesAnswer(t *testing.T) {
	m, _ := newTestModel(t)
	m, req := submitQuery(t, m, "q")

	m, _ = m.Update(StreamTokenMsg{MessageID: req.MessageID, Token: "answer"})
	m, _ = m.Update(StreamCompleteMsg{MessageID: req.MessageID, Remaining: 19})

	assert.Equal(t, StateReady, m.state)
	assert.Empty(t, m.pendingID)

	last := m.conversation.GetLastAssistantMessage()
	require.NotNil(t, last)
	assert.False(t, last.IsStreaming)
	assert.Equal(t, "answer", last.Content)
}

func TestStaleStreamMessagesIgnored(t *testing.T) {
	m, _ := newTestModel(t)
	m, req := submitQuery(t, m, "q")

	m, _ = m.Update(StreamTokenMsg{MessageID: "stale-id", Token: "garbage"})
	m, _ = m.Update(StreamCompleteMsg{MessageID: "stale-id"})

	// Still streaming the live request.
	assert.Equal(t, StateStreaming, m.state)
	assert.Equal(t, req.MessageID, m.pendingID)
	last := m.conversation.GetLastAssistantMessage()
	require.NotNil(t, last)
	assert.Empty(t, last.GetDisplayContent())
}

func TestAnnotationsAttachedToAnswer(t *testing.T) {
	m, _ := newTestModel(t)
	m, req := submitQuery(t, m, "q")

	m, _ = m.Update(StreamAnnotationsMsg{
		MessageID:          req.MessageID,
		Sources:            []model.Source{{Title: "IPC Section 438"}},
		SuggestedQuestions: []string{"What about regular bail?"},
	})
	m, _ = m.Update(StreamCompleteMsg{MessageID: req.MessageID})

	last := m.conversation.GetLastAssistantMessage()
	require.NotNil(t, last)
	require.Len(t, last.Sources, 1)
	assert.Equal(t, "IPC Section 438", last.Sources[0].Title)
	assert.Equal(t, []string{"What about regular bail?"}, last.SuggestedQuestions)
}

func TestStreamErrorKeepsPartialAnswer(t *testing.T) {
	m, _ := newTestModel(t)
	m, req := submitQuery(t, m, "q")

	m, _ = m.Update(StreamTokenMsg{MessageID: req.MessageID, Token: "partial"})
	m, _ = m.Update(StreamErrorMsg{MessageID: req.MessageID, Error: errors.New("connection reset")})

	assert.Equal(t, StateReady, m.state)
	last := m.conversation.GetLastAssistantMessage()
	require.NotNil(t, last)
	assert.Equal(t, "partial", last.Content)
	assert.Equal(t, "connection reset", last.ErrorText)
}

func TestGuestLimitDropsEmptyAnswer(t *testing.T) {
	m, policy := newTestModel(t)
	for i := 0; i < guest.Limit; i++ {
		policy.Increment()
	}
	m, _ = submitQuery(t, m, "one more")

	m, _ = m.Update(GuestLimitMsg{Count: guest.Limit})

	assert.Equal(t, StateReady, m.state)
	assert.True(t, m.limitHit)
	// The empty assistant placeholder is gone; the question stays.
	last := m.conversation.GetLastMessage()
	require.NotNil(t, last)
	assert.Equal(t, model.RoleUser, last.Role)
}

func TestSubmitBlockedAfterLimit(t *testing.T) {
	m, policy := newTestModel(t)
	for i := 0; i < guest.Limit; i++ {
		policy.Increment()
	}
	m, _ = m.Update(SessionChangedMsg{})
	require.True(t, m.limitHit)

	m.input.SetValue("blocked question")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, StateReady, m.state)
	assert.True(t, m.conversation.IsEmpty())
	for _, msg := range collectMsgs(cmd) {
		_, isRequest := msg.(StreamRequestMsg)
		assert.False(t, isRequest)
	}
}

func TestSessionChangedStartsFreshConversation(t *testing.T) {
	m, _ := newTestModel(t)
	m.conversation.AddUserMessage("old question")
	oldID := m.conversation.ID

	m, _ = m.Update(SessionChangedMsg{})

	assert.True(t, m.conversation.IsEmpty())
	assert.NotEqual(t, oldID, m.conversation.ID)
	assert.True(t, m.conversation.Guest)
}

func TestEscEmitsCancelWhileStreaming(t *testing.T) {
	m, _ := newTestModel(t)
	m, req := submitQuery(t, m, "q")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)

	msgs := collectMsgs(cmd)
	require.Len(t, msgs, 1)
	cancel, ok := msgs[0].(StreamCancelMsg)
	require.True(t, ok)
	assert.Equal(t, req.MessageID, cancel.MessageID)
}
