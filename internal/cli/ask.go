// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/nyayantar/nyaya-tui/internal/chat"
	"github.com/nyayantar/nyaya-tui/internal/guest"
	"github.com/nyayantar/nyaya-tui/internal/model"
)

// Package-level renderer, initialized once. A nil renderer means
// markdown rendering is unavailable and output falls back to plain text.
var markdownRenderer *glamour.TermRenderer

func init() {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err == nil {
		markdownRenderer = renderer
	}
}

// renderMarkdown renders markdown for TTY output, falling back to the
// raw text when the renderer is unavailable or output is piped.
func renderMarkdown(text string) string {
	if markdownRenderer == nil || !IsStdoutTTY() {
		return text
	}
	out, err := markdownRenderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n") + "\n"
}

// HandleAsk runs a single question and prints the answer.
func HandleAsk(args Args) error {
	if strings.TrimSpace(args.Query) == "" {
		return fmt.Errorf("usage: nyaya ask \"your question\"")
	}

	parser := NewArgParser(args.Raw)
	noSources := parser.HasFlag("no-sources")

	rig, err := BuildRig(args)
	if err != nil {
		return err
	}
	defer rig.Close()

	conv := model.NewConversation()
	conv.Guest = !rig.Manager.IsAuthenticated()

	result, err := rig.Submitter.Ask(context.Background(), conv, args.Query)
	if err != nil {
		var limitErr *chat.LimitError
		if errors.As(err, &limitErr) {
			return fmt.Errorf("free question limit reached (%d/%d); run 'nyaya login' to continue",
				limitErr.Count, guest.Limit)
		}
		return fmt.Errorf("ask failed: %w", err)
	}

	if args.JSON {
		return printAskJSON(result.Content, result.Sources, result.SuggestedQuestions, result.ErrorText)
	}

	if result.ErrorText != "" {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Server error: ")+result.ErrorText)
	}
	fmt.Print(renderMarkdown(result.Content))

	sources := chat.ConvertSources(result.Sources)
	if !noSources && rig.Config.Chat.ShowSources && len(sources) > 0 {
		fmt.Println()
		fmt.Println(SectionStyle.Render("Sources"))
		printSources(sources)
	}

	if !args.Quiet && !rig.Manager.IsAuthenticated() {
		fmt.Println()
		fmt.Println(DimStyle.Render(
			fmt.Sprintf("%d free questions left. Sign in with 'nyaya login' for unlimited access.",
				rig.Submitter.Remaining())))
	}
	return nil
}

func printSources(sources []model.Source) {
	for i, src := range sources {
		line := fmt.Sprintf("  [%d] %s", i+1, src.Title)
		if src.Page > 0 {
			line += fmt.Sprintf(" (p. %d)", src.Page)
		}
		fmt.Println(SourceStyle.Render(line))
		if src.Snippet != "" {
			snippet := src.Snippet
			if len(snippet) > 160 {
				snippet = snippet[:160] + "..."
			}
			fmt.Println(DimStyle.Render("      " + snippet))
		}
	}
}

func printAskJSON(content string, sources any, suggested []string, errText string) error {
	out := map[string]any{
		"answer":  content,
		"sources": sources,
	}
	if len(suggested) > 0 {
		out["suggested_questions"] = suggested
	}
	if errText != "" {
		out["error"] = errText
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
