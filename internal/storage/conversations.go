// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the local conversation cache for nyaya.
//
// Conversations are cached in the shared SQLite state database so that
// history survives restarts even when the user is offline or signed out.
// Messages are stored as a JSON blob per conversation; the cache is a
// convenience layer, not the server's source of truth.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nyayantar/nyaya-tui/internal/model"
	"github.com/nyayantar/nyaya-tui/internal/state"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrConversationNotFound is returned when a conversation doesn't exist.
var ErrConversationNotFound = errors.New("storage: conversation not found")

// =============================================================================
// SCHEMA
// =============================================================================

const conversationSchema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	guest      INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	messages   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations (updated_at);
`

// DefaultMaxConversations bounds the cache. Oldest conversations are
// evicted once the limit is exceeded.
const DefaultMaxConversations = 100

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// ConversationStore persists conversations in the state database.
// All methods are safe for concurrent use.
type ConversationStore struct {
	mu  sync.Mutex
	db  *sql.DB
	log zerolog.Logger

	// MaxConversations limits cached conversations (0 = unlimited).
	MaxConversations int
}

// StoreOption configures a ConversationStore.
type StoreOption func(*ConversationStore)

// WithMaxConversations overrides the cache size limit.
func WithMaxConversations(n int) StoreOption {
	return func(s *ConversationStore) {
		s.MaxConversations = n
	}
}

// WithStoreLogger sets the logger.
func WithStoreLogger(log zerolog.Logger) StoreOption {
	return func(s *ConversationStore) {
		s.log = log
	}
}

// NewConversationStore creates a conversation store on top of the state
// database, creating its table if needed.
func NewConversationStore(st *state.Store, opts ...StoreOption) (*ConversationStore, error) {
	s := &ConversationStore{
		db:               st.DB(),
		log:              zerolog.Nop(),
		MaxConversations: DefaultMaxConversations,
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := s.db.Exec(conversationSchema); err != nil {
		return nil, fmt.Errorf("failed to initialize conversation schema: %w", err)
	}
	return s, nil
}

// =============================================================================
// SAVE
// =============================================================================

// Save persists a conversation and returns its ID. Finished messages only;
// a message still streaming is saved with whatever content it has so far.
func (s *ConversationStore) Save(conv *model.Conversation) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv.UpdatedAt = time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = conv.UpdatedAt
	}

	data, err := json.Marshal(conv.Messages)
	if err != nil {
		return "", fmt.Errorf("failed to encode messages: %w", err)
	}

	guest := 0
	if conv.Guest {
		guest = 1
	}

	_, err = s.db.Exec(
		"INSERT INTO conversations (id, title, guest, created_at, updated_at, messages) "+
			"VALUES (?, ?, ?, ?, ?, ?) "+
			"ON CONFLICT(id) DO UPDATE SET title = excluded.title, "+
			"updated_at = excluded.updated_at, messages = excluded.messages",
		conv.ID, conv.GetTitle(), guest, conv.CreatedAt.UnixNano(), conv.UpdatedAt.UnixNano(), string(data),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save conversation %s: %w", conv.ID, err)
	}

	if s.MaxConversations > 0 {
		s.enforceLimit()
	}

	return conv.ID, nil
}

// enforceLimit evicts the oldest conversations once over the cap.
// Caller holds the lock.
func (s *ConversationStore) enforceLimit() {
	_, err := s.db.Exec(
		"DELETE FROM conversations WHERE id IN ("+
			"SELECT id FROM conversations ORDER BY updated_at DESC, id LIMIT -1 OFFSET ?)",
		s.MaxConversations,
	)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to evict old conversations")
	}
}

// =============================================================================
// LOAD
// =============================================================================

// Load retrieves a conversation by ID.
func (s *ConversationStore) Load(id string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(id)
}

// load retrieves a conversation. Caller holds the lock.
func (s *ConversationStore) load(id string) (*model.Conversation, error) {
	var (
		title     string
		guest     int
		createdAt int64
		updatedAt int64
		messages  string
	)
	err := s.db.QueryRow(
		"SELECT title, guest, created_at, updated_at, messages FROM conversations WHERE id = ?", id,
	).Scan(&title, &guest, &createdAt, &updatedAt, &messages)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", id, err)
	}

	conv := &model.Conversation{
		ID:        id,
		Title:     title,
		Guest:     guest != 0,
		CreatedAt: time.Unix(0, createdAt),
		UpdatedAt: time.Unix(0, updatedAt),
	}
	if err := json.Unmarshal([]byte(messages), &conv.Messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages for %s: %w", id, err)
	}
	return conv, nil
}

// LoadByIndex loads a conversation by list position (0 = most recent).
func (s *ConversationStore) LoadByIndex(index int) (*model.Conversation, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(metas) {
		return nil, ErrConversationNotFound
	}
	return s.Load(metas[index].ID)
}

// =============================================================================
// LIST / SEARCH
// =============================================================================

// List returns metadata for all cached conversations, most recent first.
func (s *ConversationStore) List() ([]model.ConversationMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		"SELECT id FROM conversations ORDER BY updated_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	metas := make([]model.ConversationMeta, 0, len(ids))
	for _, id := range ids {
		conv, err := s.load(id)
		if err != nil {
			// Skip rows with undecodable payloads rather than failing
			// the whole listing.
			s.log.Warn().Err(err).Str("id", id).Msg("skipping unreadable conversation")
			continue
		}
		metas = append(metas, conv.GetMeta())
	}
	return metas, nil
}

// Search finds conversations whose title or message content contains the
// query string (case-insensitive). An empty query returns everything.
func (s *ConversationStore) Search(query string) ([]model.ConversationMeta, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	if query == "" {
		return all, nil
	}

	query = strings.ToLower(query)
	var results []model.ConversationMeta
	for _, meta := range all {
		if strings.Contains(strings.ToLower(meta.Title), query) ||
			strings.Contains(strings.ToLower(meta.Preview), query) {
			results = append(results, meta)
			continue
		}

		conv, err := s.Load(meta.ID)
		if err != nil {
			continue
		}
		for _, msg := range conv.Messages {
			if strings.Contains(strings.ToLower(msg.Content), query) {
				results = append(results, meta)
				break
			}
		}
	}
	return results, nil
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes a conversation by ID.
func (s *ConversationStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// Clear removes all cached conversations.
func (s *ConversationStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM conversations"); err != nil {
		return fmt.Errorf("failed to clear conversations: %w", err)
	}
	return nil
}

// ClearGuest removes only guest conversations. Used when a guest signs
// up and their local trial history should not linger.
func (s *ConversationStore) ClearGuest() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM conversations WHERE guest = 1"); err != nil {
		return fmt.Errorf("failed to clear guest conversations: %w", err)
	}
	return nil
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportMarkdown renders a conversation as Markdown with role labels and
// timestamps, suitable for writing to a file.
func ExportMarkdown(conv *model.Conversation) string {
	var sb strings.Builder
	sb.WriteString("# " + conv.GetTitle() + "\n\n")
	sb.WriteString("Created: " + conv.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range conv.Messages {
		sb.WriteString("**" + msg.Role.DisplayName() + "** (" + msg.Timestamp.Format("15:04") + "):\n\n")
		sb.WriteString(msg.GetDisplayContent())
		sb.WriteString("\n\n")
		if len(msg.Sources) > 0 {
			sb.WriteString("Sources:\n\n")
			for _, src := range msg.Sources {
				sb.WriteString("- " + src.Title)
				if src.URL != "" {
					sb.WriteString(" (" + src.URL + ")")
				}
				sb.WriteString("\n")
			}
			sb.WriteString("\n")
		}
		sb.WriteString("---\n\n")
	}
	return sb.String()
}

// ExportJSON renders a conversation as pretty-printed JSON.
func ExportJSON(conv *model.Conversation) ([]byte, error) {
	return json.MarshalIndent(conv, "", "  ")
}
