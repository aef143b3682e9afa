// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import "strings"

// =============================================================================
// STATE TYPE
// =============================================================================

// State is the session manager's lifecycle state.
type State int

const (
	// StateUnauthenticated means no session is held.
	StateUnauthenticated State = iota
	// StateAuthenticating means a login or signup is in flight.
	StateAuthenticating
	// StateAuthenticated means a session is held.
	StateAuthenticated
	// StateRefreshing means a token refresh exchange is in flight.
	StateRefreshing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// =============================================================================
// ROLE CONSTANTS
// =============================================================================

const (
	// RoleUser is the default role assumed when the backend cannot be
	// asked or does not answer.
	RoleUser = "user"
	// RoleAdmin unlocks the admin command surface.
	RoleAdmin = "admin"
)

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session is an authenticated user's identity and credentials.
type Session struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`

	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// IsAdmin reports whether the session carries the admin role.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// DisplayName returns the user's name for display, falling back to the
// email address.
func (s *Session) DisplayName() string {
	if s == nil {
		return ""
	}
	name := strings.TrimSpace(s.FirstName + " " + s.LastName)
	if name != "" {
		return name
	}
	return s.Email
}
