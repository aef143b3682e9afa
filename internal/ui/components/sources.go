// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/nyayantar/nyaya-tui/internal/model"
	"github.com/nyayantar/nyaya-tui/internal/ui/styles"
	"github.com/nyayantar/nyaya-tui/internal/util"
)

// =============================================================================
// SOURCE CITATIONS
// =============================================================================

// maxSnippetLen bounds the snippet shown under each citation.
const maxSnippetLen = 160

// RenderSources renders the citation list attached to an assistant answer.
// Returns an empty string when there are no sources.
func RenderSources(theme *styles.Theme, sources []model.Source) string {
	if len(sources) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(theme.SourceHeader.Render("Sources"))
	sb.WriteString("\n")

	for i, src := range sources {
		title := src.Title
		if title == "" {
			title = "Untitled document"
		}
		sb.WriteString(theme.SourceTitle.Render(fmt.Sprintf("  %d. %s", i+1, title)))
		if src.Page > 0 {
			sb.WriteString(theme.Timestamp.Render(fmt.Sprintf(" (p. %d)", src.Page)))
		}
		sb.WriteString("\n")

		if src.URL != "" {
			sb.WriteString("     " + theme.SourceURL.Render(src.URL) + "\n")
		}
		if src.Snippet != "" {
			snippet := util.TruncateRunes(src.Snippet, maxSnippetLen)
			sb.WriteString("     " + theme.SourceSnippet.Render(snippet) + "\n")
		}
	}
	return sb.String()
}

// =============================================================================
// SUGGESTED QUESTIONS
// =============================================================================

// RenderSuggestions renders follow-up questions proposed by the backend.
func RenderSuggestions(theme *styles.Theme, questions []string) string {
	if len(questions) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(theme.SuggestionHeader.Render("You could also ask"))
	sb.WriteString("\n")
	for _, q := range questions {
		sb.WriteString(theme.SuggestionItem.Render("  - "+q) + "\n")
	}
	return sb.String()
}
