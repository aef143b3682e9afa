// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyayantar/nyaya-tui/internal/api"
	"github.com/nyayantar/nyaya-tui/internal/auth"
	"github.com/nyayantar/nyaya-tui/internal/guest"
	"github.com/nyayantar/nyaya-tui/internal/model"
	"github.com/nyayantar/nyaya-tui/internal/state"
)

type rig struct {
	submitter *Submitter
	manager   *auth.Manager
	policy    *guest.Policy

	guestHits *atomic.Int64
	authHits  *atomic.Int64
}

func mintAccessToken(t *testing.T) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "adv@example.in",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return signed
}

func newRig(t *testing.T) *rig {
	t.Helper()

	var guestHits, authHits atomic.Int64
	accessToken := mintAccessToken(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/guest-chat", func(w http.ResponseWriter, r *http.Request) {
		guestHits.Add(1)
		w.Write([]byte("0:\"answer\"\n"))
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		authHits.Add(1)
		require.NotEmpty(t, r.URL.Query().Get("conversation_id"))
		w.Write([]byte("0:\"answer\"\n"))
	})
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"access_token":  accessToken,
			"refresh_token": "rt-1",
			"email":         "adv@example.in",
		})
	})
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"role": "user"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	st, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	policy := guest.NewPolicy(guest.NewCounterStore(st, zerolog.Nop()))

	manager := auth.NewManager(nil, nil)
	hc := &http.Client{Transport: auth.NewTransport(manager, nil)}
	client := api.New(srv.URL, api.WithHTTPClient(hc), api.WithMaxRetries(1))
	manager.SetClient(client)

	return &rig{
		submitter: NewSubmitter(client, manager, policy, zerolog.Nop()),
		manager:   manager,
		policy:    policy,
		guestHits: &guestHits,
		authHits:  &authHits,
	}
}

func TestGuestSubmissionIncrementsOnce(t *testing.T) {
	r := newRig(t)
	conv := model.NewConversation()

	result, err := r.submitter.Ask(context.Background(), conv, "What is Section 420?")
	require.NoError(t, err)
	assert.Equal(t, "answer", result.Content)
	assert.Equal(t, 1, r.policy.Count())
	assert.EqualValues(t, 1, r.guestHits.Load())
	assert.EqualValues(t, 0, r.authHits.Load())
}

func TestGuestOverLimitBlockedWithoutNetwork(t *testing.T) {
	r := newRig(t)
	for i := 0; i < guest.Limit; i++ {
		r.policy.Increment()
	}
	conv := model.NewConversation()

	_, err := r.submitter.Ask(context.Background(), conv, "one more?")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQueryLimit)

	var limitErr *LimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, guest.Limit, limitErr.Count)

	// The transport was never invoked.
	assert.EqualValues(t, 0, r.guestHits.Load())
	assert.Equal(t, guest.Limit, r.policy.Count())
}

func TestAuthenticatedSubmissionIgnoresLimit(t *testing.T) {
	r := newRig(t)
	for i := 0; i < guest.Limit+5; i++ {
		r.policy.Increment()
	}
	require.NoError(t, r.manager.Login(context.Background(), "adv@example.in", "pw"))
	countAfterLogin := r.policy.Count()

	conv := model.NewConversation()
	_, err := r.submitter.Ask(context.Background(), conv, "What is Section 420?")
	require.NoError(t, err)

	assert.EqualValues(t, 1, r.authHits.Load())
	assert.EqualValues(t, 0, r.guestHits.Load())
	// Authenticated exchanges never touch the counter.
	assert.Equal(t, countAfterLogin, r.policy.Count())
}

func TestCounterResetsOnLogin(t *testing.T) {
	r := newRig(t)
	r.policy.Increment()
	r.policy.Increment()

	require.NoError(t, r.manager.Login(context.Background(), "adv@example.in", "pw"))

	assert.Equal(t, 0, r.policy.Count())
	assert.Equal(t, guest.Limit, r.policy.Remaining())
}

func TestFailedGuestExchangeDoesNotCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	st, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer st.Close()
	policy := guest.NewPolicy(guest.NewCounterStore(st, zerolog.Nop()))

	manager := auth.NewManager(nil, nil)
	client := api.New(srv.URL, api.WithMaxRetries(1))
	manager.SetClient(client)
	sub := NewSubmitter(client, manager, policy, zerolog.Nop())

	_, askErr := sub.Ask(context.Background(), model.NewConversation(), "q")
	require.Error(t, askErr)
	assert.Equal(t, 0, policy.Count())
}

func TestServerErrorExchangeDoesNotCount(t *testing.T) {
	// The engine reports failures as an error line inside a 200 stream,
	// so the transport succeeds while the exchange produced no answer.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("3:\"Error in legal chat engine: boom\"\n"))
	}))
	defer srv.Close()

	st, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer st.Close()
	policy := guest.NewPolicy(guest.NewCounterStore(st, zerolog.Nop()))

	manager := auth.NewManager(nil, nil)
	client := api.New(srv.URL, api.WithMaxRetries(1))
	manager.SetClient(client)
	sub := NewSubmitter(client, manager, policy, zerolog.Nop())

	result, askErr := sub.Ask(context.Background(), model.NewConversation(), "q")
	require.NoError(t, askErr)
	assert.Equal(t, "Error in legal chat engine: boom", result.ErrorText)
	assert.Empty(t, result.Content)
	assert.Equal(t, 0, policy.Count())
}

func TestGateReportsLimit(t *testing.T) {
	r := newRig(t)

	require.NoError(t, r.submitter.Gate())

	for i := 0; i < guest.Limit; i++ {
		r.policy.Increment()
	}
	assert.ErrorIs(t, r.submitter.Gate(), ErrQueryLimit)

	require.NoError(t, r.manager.Login(context.Background(), "adv@example.in", "pw"))
	assert.NoError(t, r.submitter.Gate())
}

func TestBuildRequestSkipsSystemAndStreaming(t *testing.T) {
	conv := model.NewConversation()
	conv.AddMessage(model.NewSystemMessage("internal prompt"))
	conv.AddUserMessage("first question")
	asst := conv.AddAssistantMessage()
	asst.AppendToken("first answer")
	asst.FinalizeStream()
	conv.AddAssistantMessage() // still streaming, must be skipped

	req := buildRequest(conv, "second question")

	require.Len(t, req.Messages, 3)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, "first question", req.Messages[0].Content)
	assert.Equal(t, "assistant", req.Messages[1].Role)
	assert.Equal(t, "second question", req.Messages[2].Content)
}

func TestBuildRequestDoesNotDuplicateDisplayedTurn(t *testing.T) {
	conv := model.NewConversation()
	conv.AddUserMessage("what is bail")
	conv.AddAssistantMessage() // placeholder for the incoming answer

	req := buildRequest(conv, "what is bail")

	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, "what is bail", req.Messages[0].Content)
}
