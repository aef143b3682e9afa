// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive terminal chat without the full TUI.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/nyayantar/nyaya-tui/internal/api"
	"github.com/nyayantar/nyaya-tui/internal/chat"
	"github.com/nyayantar/nyaya-tui/internal/config"
	"github.com/nyayantar/nyaya-tui/internal/guest"
	"github.com/nyayantar/nyaya-tui/internal/model"
	"github.com/nyayantar/nyaya-tui/internal/storage"
)

// chatHistoryFile is the liner history file under the config dir.
const chatHistoryFile = "chat_history"

// =============================================================================
// LINE EDITOR
// =============================================================================

// lineEditor wraps liner with persistent input history.
type lineEditor struct {
	state       *liner.State
	historyPath string
}

func newLineEditor() *lineEditor {
	l := liner.NewLiner()
	l.SetCtrlCAborts(true)

	ed := &lineEditor{state: l}
	if dir, err := config.Dir(); err == nil {
		ed.historyPath = filepath.Join(dir, chatHistoryFile)
		if f, err := os.Open(ed.historyPath); err == nil {
			l.ReadHistory(f)
			f.Close()
		}
	}
	return ed
}

func (e *lineEditor) prompt(p string) (string, error) {
	line, err := e.state.Prompt(p)
	if err == nil && strings.TrimSpace(line) != "" {
		e.state.AppendHistory(line)
	}
	return line, err
}

func (e *lineEditor) promptPassword(p string) (string, error) {
	return e.state.PasswordPrompt(p)
}

func (e *lineEditor) close() {
	if e.historyPath != "" {
		if f, err := os.OpenFile(e.historyPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			e.state.WriteHistory(f)
			f.Close()
		}
	}
	e.state.Close()
}

// =============================================================================
// CHAT SESSION
// =============================================================================

// chatSession holds the REPL state for one chat run.
type chatSession struct {
	rig    *Rig
	editor *lineEditor
	conv   *model.Conversation
}

// HandleChat runs the interactive chat loop.
func HandleChat(args Args) error {
	if !IsTTY() {
		return &TTYRequiredError{Command: "nyaya chat"}
	}

	rig, err := BuildRig(args)
	if err != nil {
		return err
	}
	defer rig.Close()

	editor := newLineEditor()
	defer editor.close()

	s := &chatSession{rig: rig, editor: editor}
	s.newConversation()
	s.printWelcome()

	for {
		line, err := editor.prompt(s.promptText())
		if err != nil {
			// Ctrl+C aborts the line, Ctrl+D ends the session.
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println(DimStyle.Render("(use /quit or Ctrl+D to exit)"))
				continue
			}
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := s.handleCommand(line); quit {
				break
			}
			continue
		}

		s.ask(line)
	}

	s.saveConversation()
	fmt.Println(DimStyle.Render("Goodbye."))
	return nil
}

func (s *chatSession) newConversation() {
	s.saveConversation()
	s.conv = model.NewConversation()
	s.conv.Guest = !s.rig.Manager.IsAuthenticated()
}

func (s *chatSession) saveConversation() {
	if s.conv == nil || s.conv.IsEmpty() || !s.rig.Config.Chat.SaveHistory {
		return
	}
	if _, err := s.rig.Store.Save(s.conv); err != nil {
		s.rig.Log.Warn().Err(err).Msg("save conversation")
	}
}

func (s *chatSession) printWelcome() {
	fmt.Println(TitleStyle.Render("nyaya chat"))
	if s.rig.Manager.IsAuthenticated() {
		fmt.Println(DimStyle.Render("Signed in as " + s.rig.Manager.Session().DisplayName() + "."))
	} else {
		fmt.Println(DimStyle.Render(fmt.Sprintf(
			"Guest mode: %d free questions left. Sign in with 'nyaya login' for unlimited access.",
			s.rig.Policy.Remaining())))
	}
	fmt.Println(DimStyle.Render("Type /help for commands, /quit to exit."))
	fmt.Println()
}

func (s *chatSession) promptText() string {
	if !s.rig.Manager.IsAuthenticated() {
		return fmt.Sprintf("[%d left] > ", s.rig.Policy.Remaining())
	}
	return "> "
}

// handleCommand runs a slash command. Returns true when the session
// should end.
func (s *chatSession) handleCommand(line string) bool {
	fields := strings.Fields(line)
	cmd := fields[0]

	switch cmd {
	case "/quit", "/exit", "/q":
		return true

	case "/new":
		s.newConversation()
		fmt.Println(DimStyle.Render("Started a new conversation."))

	case "/sources":
		s.showSources()

	case "/save":
		path := ""
		if len(fields) > 1 {
			path = fields[1]
		}
		s.exportConversation(path)

	case "/help":
		fmt.Println("  /new           start a fresh conversation")
		fmt.Println("  /sources       show sources for the last answer")
		fmt.Println("  /save [file]   export the conversation as markdown")
		fmt.Println("  /quit          exit")

	default:
		fmt.Println(WarningStyle.Render("Unknown command: " + cmd))
	}
	return false
}

func (s *chatSession) showSources() {
	last := s.conv.GetLastAssistantMessage()
	if last == nil || len(last.Sources) == 0 {
		fmt.Println(DimStyle.Render("No sources for the last answer."))
		return
	}
	printSources(last.Sources)
}

func (s *chatSession) exportConversation(path string) {
	if s.conv.IsEmpty() {
		fmt.Println(DimStyle.Render("Nothing to save yet."))
		return
	}
	md := storage.ExportMarkdown(s.conv)
	if path == "" {
		fmt.Print(md)
		return
	}
	if err := os.WriteFile(path, []byte(md), 0600); err != nil {
		fmt.Println(ErrorStyle.Render("Save failed: ") + err.Error())
		return
	}
	fmt.Println(SuccessStyle.Render("Saved to " + path))
}

// ask streams one exchange, printing tokens as they arrive.
func (s *chatSession) ask(query string) {
	s.conv.AddUserMessage(query)
	answer := s.conv.AddAssistantMessage()

	acc := api.NewStreamAccumulator()
	fmt.Println()

	err := s.rig.Submitter.Stream(context.Background(), s.conv, query, func(ev api.StreamEvent) {
		acc.Add(ev)
		if ev.Kind == api.EventText {
			fmt.Print(ev.Text)
		}
	})
	fmt.Println()

	if err != nil {
		// Drop the empty placeholder so a failed exchange leaves no trace.
		s.conv.Messages = s.conv.Messages[:len(s.conv.Messages)-1]

		var limitErr *chat.LimitError
		if errors.As(err, &limitErr) {
			fmt.Println(WarningStyle.Render(fmt.Sprintf(
				"Free question limit reached (%d/%d). Run 'nyaya login' to continue.",
				limitErr.Count, guest.Limit)))
		} else {
			fmt.Println(ErrorStyle.Render("Request failed: ") + err.Error())
		}
		fmt.Println()
		return
	}

	result := acc.Result()
	answer.AppendToken(result.Content)
	answer.FinalizeStream()
	answer.Sources = chat.ConvertSources(result.Sources)
	answer.SuggestedQuestions = result.SuggestedQuestions
	if result.ErrorText != "" {
		answer.ErrorText = result.ErrorText
		fmt.Println(ErrorStyle.Render("Server error: ") + result.ErrorText)
	}

	if s.rig.Config.Chat.ShowSources && len(answer.Sources) > 0 {
		fmt.Println()
		fmt.Println(SectionStyle.Render("Sources"))
		printSources(answer.Sources)
	}
	if s.rig.Config.Chat.ShowSuggested && len(answer.SuggestedQuestions) > 0 {
		fmt.Println()
		fmt.Println(DimStyle.Render("You could also ask:"))
		for _, q := range answer.SuggestedQuestions {
			fmt.Println(DimStyle.Render("  - " + q))
		}
	}
	fmt.Println()
}
