// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nyayantar/nyaya-tui/internal/api"
)

// ErrNotSignedIn indicates an operation that needs a session was called
// without one.
var ErrNotSignedIn = errors.New("not signed in")

// roleFetchTimeout bounds the background role lookup after sign-in.
const roleFetchTimeout = 10 * time.Second

// Navigator receives navigation side effects from session transitions.
// Implementations route the UI; tests record calls.
type Navigator interface {
	// ShowChat is invoked when a sign-in completes while an auth-only
	// screen is showing.
	ShowChat()
	// ShowSignIn is invoked when a sign-out happens while a protected
	// screen is showing.
	ShowSignIn()
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager is the session state machine. All mutation goes through it;
// reads take a copy under the lock.
//
// Async results (role fetches, refresh exchanges) are tagged with the
// generation counter at launch and discarded if a logout or new login has
// bumped it since. A result for a dead session must never touch the
// current one.
type Manager struct {
	mu         sync.Mutex
	state      State
	session    *Session
	generation uint64

	client *api.Client
	store  *SessionStore
	nav    Navigator
	log    zerolog.Logger

	onLogin  []func()
	onLogout []func()
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithNavigator injects the navigation sink.
func WithNavigator(nav Navigator) ManagerOption {
	return func(m *Manager) { m.nav = nav }
}

// WithManagerLogger sets the logger.
func WithManagerLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// NewManager creates a session manager. The client must be wired with
// this manager's Transport for bearer attachment to work; store may be
// nil for a purely in-memory session.
func NewManager(client *api.Client, store *SessionStore, opts ...ManagerOption) *Manager {
	m := &Manager{
		state:  StateUnauthenticated,
		client: client,
		store:  store,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetClient completes wiring when the HTTP client is built around this
// manager's Transport and so cannot exist before the manager does.
func (m *Manager) SetClient(client *api.Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.client = client
}

// =============================================================================
// ACCESSORS
// =============================================================================

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Session returns a copy of the current session, or nil.
func (m *Manager) Session() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	sess := *m.session
	return &sess
}

// IsAuthenticated reports whether a session is held.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

// IsAdmin reports whether the current session carries the admin role.
func (m *Manager) IsAdmin() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.IsAdmin()
}

// AccessToken returns the current access token, or "" when signed out.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.AccessToken
}

// Generation returns the session generation counter. It bumps on every
// login and logout.
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// OnLogin registers a hook run after every completed sign-in.
func (m *Manager) OnLogin(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLogin = append(m.onLogin, fn)
}

// OnLogout registers a hook run after every sign-out.
func (m *Manager) OnLogout(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLogout = append(m.onLogout, fn)
}

// =============================================================================
// HYDRATION
// =============================================================================

// Hydrate restores a stored session at startup. With nothing usable on
// disk the manager stays unauthenticated. The role is re-fetched in the
// background; until it answers the stored role (or "user") stands.
func (m *Manager) Hydrate() {
	if m.store == nil {
		return
	}

	sess := m.store.Load()
	if sess == nil {
		return
	}
	if sess.Role == "" {
		sess.Role = RoleUser
	}

	m.mu.Lock()
	m.session = sess
	m.state = StateAuthenticated
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	m.log.Info().Str("email", sess.Email).Msg("session restored")
	go m.fetchRole(gen)
}

// =============================================================================
// LOGIN / SIGNUP
// =============================================================================

// Login signs in with credentials. On success the session is persisted,
// login hooks run, and navigation moves to the chat screen.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.setState(StateAuthenticating)

	resp, err := m.client.Login(ctx, api.Credentials{Email: email, Password: password})
	if err != nil {
		m.setState(StateUnauthenticated)
		return fmt.Errorf("login failed: %w", err)
	}

	m.completeSignIn(resp)
	return nil
}

// Signup creates an account and signs it in.
func (m *Manager) Signup(ctx context.Context, req api.SignupRequest) error {
	m.setState(StateAuthenticating)

	resp, err := m.client.Signup(ctx, req)
	if err != nil {
		m.setState(StateUnauthenticated)
		return fmt.Errorf("signup failed: %w", err)
	}

	m.completeSignIn(resp)
	return nil
}

// completeSignIn installs a fresh session from a login response.
func (m *Manager) completeSignIn(resp *api.LoginResponse) {
	sess := &Session{
		Email:        resp.Email,
		FirstName:    resp.FirstName,
		LastName:     resp.LastName,
		Role:         RoleUser, // provisional until the role fetch answers
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}

	m.mu.Lock()
	m.session = sess
	m.state = StateAuthenticated
	m.generation++
	gen := m.generation
	hooks := append([]func(){}, m.onLogin...)
	nav := m.nav
	m.mu.Unlock()

	m.persist()
	m.log.Info().Str("email", sess.Email).Msg("signed in")

	for _, fn := range hooks {
		fn()
	}
	if nav != nil {
		nav.ShowChat()
	}

	go m.fetchRole(gen)
}

// fetchRole resolves the user's role in the background. A 401/403 routes
// through one refresh attempt; any terminal failure fails open to "user"
// rather than blocking the session.
func (m *Manager) fetchRole(gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), roleFetchTimeout)
	defer cancel()

	profile, err := m.client.Me(ctx)
	if err != nil && (errors.Is(err, api.ErrNotAuthenticated) || errors.Is(err, api.ErrForbidden)) {
		if refreshErr := m.RefreshTokens(ctx); refreshErr != nil {
			return // refresh failure already logged out
		}
		profile, err = m.client.Me(ctx)
	}

	role := RoleUser
	if err != nil {
		m.log.Warn().Err(err).Msg("role fetch failed, assuming user role")
	} else if profile.Role != "" {
		role = profile.Role
	}

	m.mu.Lock()
	if m.generation != gen || m.session == nil {
		m.mu.Unlock()
		m.log.Debug().Msg("discarding role fetch for stale session")
		return
	}
	m.session.Role = role
	if err == nil {
		if profile.FirstName != "" {
			m.session.FirstName = profile.FirstName
		}
		if profile.LastName != "" {
			m.session.LastName = profile.LastName
		}
	}
	m.mu.Unlock()

	m.persist()
}

// =============================================================================
// REFRESH
// =============================================================================

// RefreshTokens exchanges the refresh token for a fresh pair. Both tokens
// swap together under one lock; a failed exchange signs the user out.
// Concurrent calls each perform their own exchange.
func (m *Manager) RefreshTokens(ctx context.Context) error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return ErrNotSignedIn
	}
	refreshToken := m.session.RefreshToken
	m.state = StateRefreshing
	gen := m.generation
	m.mu.Unlock()

	pair, err := m.client.Refresh(ctx, refreshToken)
	if err != nil {
		m.log.Warn().Err(err).Msg("token refresh failed, signing out")
		m.Logout()
		return fmt.Errorf("token refresh failed: %w", err)
	}

	m.mu.Lock()
	if m.generation != gen || m.session == nil {
		// Session changed while the exchange was in flight.
		m.mu.Unlock()
		return nil
	}
	m.session.AccessToken = pair.AccessToken
	m.session.RefreshToken = pair.RefreshToken
	m.state = StateAuthenticated
	m.mu.Unlock()

	m.persist()
	m.log.Debug().Msg("token pair rotated")
	return nil
}

// =============================================================================
// LOGOUT
// =============================================================================

// Logout discards the session, clears the session file, runs logout
// hooks, and navigates to the sign-in screen. Logging out while already
// signed out is a no-op.
func (m *Manager) Logout() {
	m.mu.Lock()
	if m.session == nil && m.state == StateUnauthenticated {
		m.mu.Unlock()
		return
	}
	email := ""
	if m.session != nil {
		email = m.session.Email
	}
	m.session = nil
	m.state = StateUnauthenticated
	m.generation++
	hooks := append([]func(){}, m.onLogout...)
	nav := m.nav
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Clear(); err != nil {
			m.log.Warn().Err(err).Msg("failed to clear session file")
		}
	}
	m.log.Info().Str("email", email).Msg("signed out")

	for _, fn := range hooks {
		fn()
	}
	if nav != nil {
		nav.ShowSignIn()
	}
}

// =============================================================================
// INTERNAL
// =============================================================================

// setState sets the lifecycle state.
func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// persist writes the current session best-effort. Losing persistence
// costs a re-login, never the in-memory session.
func (m *Manager) persist() {
	if m.store == nil {
		return
	}
	sess := m.Session()
	if sess == nil {
		return
	}
	if err := m.store.Save(sess); err != nil {
		m.log.Warn().Err(err).Msg("failed to persist session")
	}
}
