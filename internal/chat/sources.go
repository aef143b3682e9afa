// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strconv"

	"github.com/nyayantar/nyaya-tui/internal/api"
	"github.com/nyayantar/nyaya-tui/internal/model"
)

// =============================================================================
// SOURCE CONVERSION
// =============================================================================

// ConvertSources maps retrieval nodes from the wire format into display
// sources. Metadata keys vary by ingestion pipeline, so several aliases
// are tried for each field.
func ConvertSources(nodes []api.SourceNode) []model.Source {
	if len(nodes) == 0 {
		return nil
	}

	sources := make([]model.Source, 0, len(nodes))
	for _, node := range nodes {
		src := model.Source{
			Snippet: node.Text,
			Score:   node.Score,
		}

		src.Title = metaString(node.Metadata, "title", "file_name", "document_title")
		src.URL = metaString(node.Metadata, "url", "source_url", "link")
		src.Document = metaString(node.Metadata, "file_name", "document", "source")
		src.Page = metaInt(node.Metadata, "page_label", "page", "page_number")

		if src.Title == "" {
			src.Title = src.Document
		}
		sources = append(sources, src)
	}
	return sources
}

// metaString returns the first present string value among keys.
func metaString(meta map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := meta[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// metaInt returns the first present integer value among keys. Page labels
// arrive as JSON numbers or as numeric strings depending on the pipeline.
func metaInt(meta map[string]any, keys ...string) int {
	for _, key := range keys {
		v, ok := meta[key]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return int(n)
		case string:
			if i, err := strconv.Atoi(n); err == nil {
				return i
			}
		}
	}
	return 0
}
