// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nyayantar/nyaya-tui/internal/model"
	"github.com/nyayantar/nyaya-tui/internal/state"
)

func newTestStore(t *testing.T, opts ...StoreOption) *ConversationStore {
	t.Helper()

	st, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cs, err := NewConversationStore(st, opts...)
	if err != nil {
		t.Fatalf("NewConversationStore: %v", err)
	}
	return cs
}

func newConversation(userText, assistantText string) *model.Conversation {
	conv := model.NewConversation()
	conv.AddUserMessage(userText)
	msg := conv.AddAssistantMessage()
	msg.AppendToken(assistantText)
	msg.FinalizeStream()
	return conv
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	cs := newTestStore(t)

	conv := newConversation("what is habeas corpus", "A writ requiring a person to be brought before a court.")
	id, err := cs.Save(conv)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if id != conv.ID {
		t.Errorf("Save returned ID %q, want %q", id, conv.ID)
	}

	loaded, err := cs.Load(id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.MessageCount() != 2 {
		t.Fatalf("loaded %d messages, want 2", loaded.MessageCount())
	}
	if got := loaded.Messages[0].Content; got != "what is habeas corpus" {
		t.Errorf("user message = %q", got)
	}
	if loaded.Messages[1].Role != model.RoleAssistant {
		t.Errorf("second message role = %v, want assistant", loaded.Messages[1].Role)
	}
	if loaded.GetTitle() != conv.GetTitle() {
		t.Errorf("title = %q, want %q", loaded.GetTitle(), conv.GetTitle())
	}
}

func TestLoadMissing(t *testing.T) {
	cs := newTestStore(t)

	_, err := cs.Load("no-such-id")
	if !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Load missing = %v, want ErrConversationNotFound", err)
	}
}

func TestSaveUpdatesExisting(t *testing.T) {
	cs := newTestStore(t)

	conv := newConversation("first question", "first answer")
	if _, err := cs.Save(conv); err != nil {
		t.Fatalf("Save: %v", err)
	}

	conv.AddUserMessage("second question")
	if _, err := cs.Save(conv); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	metas, err := cs.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 1 {
		t.Fatalf("got %d conversations, want 1", len(metas))
	}
	if metas[0].MessageCount != 3 {
		t.Errorf("message count = %d, want 3", metas[0].MessageCount)
	}
}

func TestListOrdering(t *testing.T) {
	cs := newTestStore(t)

	older := newConversation("older question", "older answer")
	newer := newConversation("newer question", "newer answer")

	if _, err := cs.Save(older); err != nil {
		t.Fatalf("Save older: %v", err)
	}
	if _, err := cs.Save(newer); err != nil {
		t.Fatalf("Save newer: %v", err)
	}
	// Re-save bumps updated_at, moving it to the front.
	if _, err := cs.Save(older); err != nil {
		t.Fatalf("re-Save older: %v", err)
	}

	metas, err := cs.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("got %d conversations, want 2", len(metas))
	}
	if metas[0].ID != older.ID {
		t.Errorf("most recent = %s, want %s", metas[0].ID, older.ID)
	}
}

func TestGuestFlagPersists(t *testing.T) {
	cs := newTestStore(t)

	guest := newConversation("guest question", "guest answer")
	guest.Guest = true
	authed := newConversation("member question", "member answer")

	if _, err := cs.Save(guest); err != nil {
		t.Fatalf("Save guest: %v", err)
	}
	if _, err := cs.Save(authed); err != nil {
		t.Fatalf("Save authed: %v", err)
	}

	loaded, err := cs.Load(guest.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.Guest {
		t.Error("guest flag lost on round trip")
	}

	if err := cs.ClearGuest(); err != nil {
		t.Fatalf("ClearGuest: %v", err)
	}
	if _, err := cs.Load(guest.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("guest conversation survived ClearGuest: %v", err)
	}
	if _, err := cs.Load(authed.ID); err != nil {
		t.Errorf("non-guest conversation removed by ClearGuest: %v", err)
	}
}

func TestSearch(t *testing.T) {
	cs := newTestStore(t)

	a := newConversation("contract law basics", "Offer, acceptance, consideration.")
	b := newConversation("tenancy disputes", "Notice periods vary by state.")
	if _, err := cs.Save(a); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := cs.Save(b); err != nil {
		t.Fatalf("Save: %v", err)
	}

	results, err := cs.Search("CONTRACT")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != a.ID {
		t.Errorf("title search returned %d results", len(results))
	}

	// Matches message content, not just the title.
	results, err = cs.Search("notice periods")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != b.ID {
		t.Errorf("content search returned %d results", len(results))
	}

	results, err = cs.Search("")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("empty query returned %d results, want 2", len(results))
	}
}

func TestDelete(t *testing.T) {
	cs := newTestStore(t)

	conv := newConversation("to be removed", "gone soon")
	if _, err := cs.Save(conv); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := cs.Delete(conv.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := cs.Delete(conv.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("second Delete = %v, want ErrConversationNotFound", err)
	}
}

func TestEvictionKeepsMostRecent(t *testing.T) {
	cs := newTestStore(t, WithMaxConversations(3))

	var last string
	for i := 0; i < 5; i++ {
		conv := newConversation("question number "+string(rune('a'+i)), "answer")
		if _, err := cs.Save(conv); err != nil {
			t.Fatalf("Save: %v", err)
		}
		last = conv.ID
	}

	metas, err := cs.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 3 {
		t.Fatalf("got %d conversations after eviction, want 3", len(metas))
	}
	found := false
	for _, m := range metas {
		if m.ID == last {
			found = true
		}
	}
	if !found {
		t.Error("most recently saved conversation was evicted")
	}
}

func TestExportMarkdown(t *testing.T) {
	conv := newConversation("what is bail", "Money deposited to secure release.")
	conv.Messages[1].Sources = []model.Source{
		{Title: "CrPC Section 436", URL: "https://example.org/crpc-436"},
	}

	md := ExportMarkdown(conv)
	for _, want := range []string{
		"**You**",
		"**Nyaya**",
		"what is bail",
		"Money deposited to secure release.",
		"CrPC Section 436",
		"https://example.org/crpc-436",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("export missing %q", want)
		}
	}
}
