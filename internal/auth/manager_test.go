// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyayantar/nyaya-tui/internal/api"
)

// recordingNav counts navigation side effects.
type recordingNav struct {
	mu      sync.Mutex
	chat    int
	signIn  int
}

func (n *recordingNav) ShowChat() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.chat++
}

func (n *recordingNav) ShowSignIn() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.signIn++
}

func (n *recordingNav) counts() (chat, signIn int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.chat, n.signIn
}

// seedSession installs a session directly, bypassing the network.
func seedSession(m *Manager, sess *Session) {
	m.mu.Lock()
	m.session = sess
	m.state = StateAuthenticated
	m.generation++
	m.mu.Unlock()
}

// newTestManager wires a manager, auth transport, and API client against
// the given backend handler.
func newTestManager(t *testing.T, handler http.Handler) (*Manager, *recordingNav, *SessionStore) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	nav := &recordingNav{}
	store := NewSessionStore(filepath.Join(t.TempDir(), "session.json"), zerolog.Nop())
	m := NewManager(nil, store, WithNavigator(nav))

	hc := &http.Client{Transport: NewTransport(m, nil)}
	client := api.New(srv.URL, api.WithHTTPClient(hc), api.WithMaxRetries(1))
	m.SetClient(client)

	return m, nav, store
}

// loginHandler serves a minimal fake backend for the sign-in flow.
func loginHandler(t *testing.T, role string) http.Handler {
	t.Helper()

	accessToken := mintToken(t, time.Now().Add(time.Hour))
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"access_token":  accessToken,
			"refresh_token": "rt-1",
			"email":         "adv@example.in",
			"first_name":    "Asha",
			"last_name":     "Rao",
		})
	})
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"email": "adv@example.in",
			"role":  role,
		})
	})
	return mux
}

func TestLoginSuccess(t *testing.T) {
	m, nav, store := newTestManager(t, loginHandler(t, "admin"))

	var hookRan bool
	m.OnLogin(func() { hookRan = true })

	err := m.Login(context.Background(), "adv@example.in", "pw")
	require.NoError(t, err)

	assert.Equal(t, StateAuthenticated, m.State())
	assert.True(t, m.IsAuthenticated())
	assert.True(t, hookRan)

	chat, signIn := nav.counts()
	assert.Equal(t, 1, chat)
	assert.Equal(t, 0, signIn)

	// The role resolves asynchronously; "user" stands until then.
	require.Eventually(t, m.IsAdmin, 2*time.Second, 10*time.Millisecond)

	// Session persisted for the next start.
	assert.NotNil(t, store.Load())
}

func TestLoginFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Incorrect email or password"})
	})
	m, nav, _ := newTestManager(t, mux)

	err := m.Login(context.Background(), "adv@example.in", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrNotAuthenticated)
	assert.Equal(t, StateUnauthenticated, m.State())
	assert.False(t, m.IsAuthenticated())

	chat, _ := nav.counts()
	assert.Equal(t, 0, chat)
}

func TestLogoutIdempotent(t *testing.T) {
	m, nav, store := newTestManager(t, loginHandler(t, "user"))

	var logoutHooks int
	m.OnLogout(func() { logoutHooks++ })

	require.NoError(t, m.Login(context.Background(), "adv@example.in", "pw"))
	genBefore := m.Generation()

	m.Logout()
	m.Logout() // second sign-out is a no-op

	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, StateUnauthenticated, m.State())
	assert.Equal(t, 1, logoutHooks)
	assert.Greater(t, m.Generation(), genBefore)
	assert.Nil(t, store.Load())

	_, signIn := nav.counts()
	assert.Equal(t, 1, signIn)
}

func TestRefreshRotatesPairAtomically(t *testing.T) {
	newAccess := mintToken(t, time.Now().Add(time.Hour))
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		require.Equal(t, "rt-1", body["refresh_token"])
		json.NewEncoder(w).Encode(map[string]string{
			"access_token":  newAccess,
			"refresh_token": "rt-2",
		})
	})
	m, _, _ := newTestManager(t, mux)
	seedSession(m, &Session{
		Email:        "adv@example.in",
		Role:         RoleUser,
		AccessToken:  mintToken(t, time.Now().Add(time.Hour)),
		RefreshToken: "rt-1",
	})

	require.NoError(t, m.RefreshTokens(context.Background()))

	sess := m.Session()
	require.NotNil(t, sess)
	assert.Equal(t, newAccess, sess.AccessToken)
	assert.Equal(t, "rt-2", sess.RefreshToken)
	assert.Equal(t, StateAuthenticated, m.State())
}

func TestRefreshFailureSignsOut(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid refresh token"})
	})
	m, nav, _ := newTestManager(t, mux)
	seedSession(m, &Session{
		Email:        "adv@example.in",
		AccessToken:  mintToken(t, time.Now().Add(time.Hour)),
		RefreshToken: "rt-dead",
	})

	err := m.RefreshTokens(context.Background())
	require.Error(t, err)
	assert.False(t, m.IsAuthenticated())

	_, signIn := nav.counts()
	assert.Equal(t, 1, signIn)
}

func TestRefreshWithoutSession(t *testing.T) {
	m, _, _ := newTestManager(t, http.NewServeMux())

	err := m.RefreshTokens(context.Background())
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestHydrateRestoresSession(t *testing.T) {
	m, _, store := newTestManager(t, loginHandler(t, "user"))
	require.NoError(t, store.Save(&Session{
		Email:        "adv@example.in",
		Role:         RoleUser,
		AccessToken:  mintToken(t, time.Now().Add(time.Hour)),
		RefreshToken: "rt-1",
	}))

	m.Hydrate()

	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, StateAuthenticated, m.State())
	sess := m.Session()
	require.NotNil(t, sess)
	assert.Equal(t, "adv@example.in", sess.Email)
}

func TestHydrateEmptyStore(t *testing.T) {
	m, _, _ := newTestManager(t, http.NewServeMux())

	m.Hydrate()

	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, StateUnauthenticated, m.State())
}

func TestStaleRoleFetchDiscarded(t *testing.T) {
	m, _, _ := newTestManager(t, loginHandler(t, "admin"))
	seedSession(m, &Session{
		Email:        "first@example.in",
		Role:         RoleUser,
		AccessToken:  mintToken(t, time.Now().Add(time.Hour)),
		RefreshToken: "rt-1",
	})
	staleGen := m.Generation()

	// A logout bumps the generation before the fetch lands.
	m.Logout()
	seedSession(m, &Session{
		Email:        "second@example.in",
		Role:         RoleUser,
		AccessToken:  mintToken(t, time.Now().Add(time.Hour)),
		RefreshToken: "rt-2",
	})

	m.fetchRole(staleGen)

	// The admin answer for the dead session must not leak into the new one.
	sess := m.Session()
	require.NotNil(t, sess)
	assert.Equal(t, RoleUser, sess.Role)
}
