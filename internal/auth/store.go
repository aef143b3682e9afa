// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/nyayantar/nyaya-tui/internal/util"
)

// sessionTTL bounds how long a stored session survives on disk. The
// browser client keeps its cookie for a week; the file mirrors that.
const sessionTTL = 7 * 24 * time.Hour

// storedSession is the on-disk session envelope.
type storedSession struct {
	Session
	ExpiresAt time.Time `json:"expires_at"`
}

// =============================================================================
// SESSION STORE
// =============================================================================

// SessionStore persists the session to a file so a sign-in survives
// restarts. A missing, corrupt, or expired file loads as no session.
type SessionStore struct {
	path string
	log  zerolog.Logger
}

// NewSessionStore creates a store writing to path.
func NewSessionStore(path string, log zerolog.Logger) *SessionStore {
	return &SessionStore{path: path, log: log}
}

// DefaultSessionPath returns ~/.nyaya/session.json.
func DefaultSessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".nyaya", "session.json"), nil
}

// Load returns the stored session, or nil when nothing usable is stored.
// Corruption is never an error; it reads as signed out.
func (s *SessionStore) Load() *Session {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Msg("failed to read session file")
		}
		return nil
	}

	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		s.log.Warn().Err(err).Msg("discarding corrupt session file")
		return nil
	}

	if stored.AccessToken == "" || stored.RefreshToken == "" {
		s.log.Warn().Msg("discarding incomplete session file")
		return nil
	}

	if !stored.ExpiresAt.IsZero() && time.Now().After(stored.ExpiresAt) {
		s.log.Info().Msg("stored session expired")
		return nil
	}

	sess := stored.Session
	return &sess
}

// Save persists the session with a fresh expiry window. The file holds
// credentials, so it is written atomically with owner-only permissions.
func (s *SessionStore) Save(sess *Session) error {
	stored := storedSession{
		Session:   *sess,
		ExpiresAt: time.Now().Add(sessionTTL),
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := util.AtomicWriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Clear removes the session file. Clearing an absent file is a no-op.
func (s *SessionStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
