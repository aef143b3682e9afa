// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// The admin surface requires an admin role; the backend answers 403 for
// everyone else, which surfaces here as ErrForbidden.

// =============================================================================
// PROVIDER TYPES
// =============================================================================

// ProviderType identifies an AI provider backend.
type ProviderType string

const (
	ProviderOpenAI      ProviderType = "openai"
	ProviderGemini      ProviderType = "gemini"
	ProviderAnthropic   ProviderType = "anthropic"
	ProviderGroq        ProviderType = "groq"
	ProviderOllama      ProviderType = "ollama"
	ProviderMistral     ProviderType = "mistral"
	ProviderAzureOpenAI ProviderType = "azure-openai"
	ProviderTSystems    ProviderType = "t-systems"
	ProviderFastEmbed   ProviderType = "fastembed"
)

// KnownProviderTypes lists every provider type the backend accepts.
var KnownProviderTypes = []ProviderType{
	ProviderOpenAI, ProviderGemini, ProviderAnthropic, ProviderGroq,
	ProviderOllama, ProviderMistral, ProviderAzureOpenAI, ProviderTSystems,
	ProviderFastEmbed,
}

// Valid reports whether t is a provider type the backend accepts.
func (t ProviderType) Valid() bool {
	for _, known := range KnownProviderTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ProviderConfig is a stored provider configuration.
type ProviderConfig struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	ProviderType   ProviderType   `json:"provider_type"`
	Enabled        bool           `json:"enabled"`
	APIKey         string         `json:"api_key,omitempty"`
	BaseURL        string         `json:"base_url,omitempty"`
	Model          string         `json:"model"`
	EmbeddingModel string         `json:"embedding_model"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	Dimensions     int            `json:"dimensions,omitempty"`
	CustomConfig   map[string]any `json:"custom_config,omitempty"`
	Status         string         `json:"status,omitempty"`
	LastTested     string         `json:"last_tested,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
}

// ProviderConfigUpdate carries partial updates; nil fields are untouched.
type ProviderConfigUpdate struct {
	Name           *string        `json:"name,omitempty"`
	Enabled        *bool          `json:"enabled,omitempty"`
	APIKey         *string        `json:"api_key,omitempty"`
	BaseURL        *string        `json:"base_url,omitempty"`
	Model          *string        `json:"model,omitempty"`
	EmbeddingModel *string        `json:"embedding_model,omitempty"`
	Temperature    *float64       `json:"temperature,omitempty"`
	MaxTokens      *int           `json:"max_tokens,omitempty"`
	Dimensions     *int           `json:"dimensions,omitempty"`
	CustomConfig   map[string]any `json:"custom_config,omitempty"`
}

// ProviderTestResponse is the result of a connectivity test.
type ProviderTestResponse struct {
	Success       bool    `json:"success"`
	Message       string  `json:"message"`
	LLMTest       *bool   `json:"llm_test,omitempty"`
	EmbeddingTest *bool   `json:"embedding_test,omitempty"`
	ResponseTime  float64 `json:"response_time,omitempty"`
}

// ProviderStatus is the lightweight status row used in listings.
type ProviderStatus struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ProviderType   string `json:"provider_type"`
	Enabled        bool   `json:"enabled"`
	Status         string `json:"status"`
	Model          string `json:"model"`
	EmbeddingModel string `json:"embedding_model"`
	LastTested     string `json:"last_tested,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
}

// ProviderListResponse is the status listing plus the active provider.
type ProviderListResponse struct {
	Providers      []ProviderStatus `json:"providers"`
	ActiveProvider string           `json:"active_provider,omitempty"`
	TotalCount     int              `json:"total_count"`
}

// CurrentProviderInfo describes the provider currently serving chat.
type CurrentProviderInfo struct {
	CurrentProvider string         `json:"current_provider"`
	ProviderInfo    map[string]any `json:"provider_info"`
}

// =============================================================================
// PROVIDER CONFIG CRUD
// =============================================================================

// ListProviderConfigs returns all stored provider configurations.
func (c *Client) ListProviderConfigs(ctx context.Context) ([]ProviderConfig, error) {
	var configs []ProviderConfig
	if err := c.doJSON(ctx, http.MethodGet, "/api/admin/providers/configs", nil, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

// CreateProviderConfig stores a new provider configuration.
func (c *Client) CreateProviderConfig(ctx context.Context, cfg ProviderConfig) (*ProviderConfig, error) {
	if !cfg.ProviderType.Valid() {
		return nil, fmt.Errorf("unknown provider type %q", cfg.ProviderType)
	}
	var out ProviderConfig
	if err := c.doJSON(ctx, http.MethodPost, "/api/admin/providers/configs", cfg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProviderConfig returns one provider configuration by ID.
func (c *Client) GetProviderConfig(ctx context.Context, id string) (*ProviderConfig, error) {
	var out ProviderConfig
	path := "/api/admin/providers/configs/" + url.PathEscape(id)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProviderConfig applies a partial update to a provider configuration.
func (c *Client) UpdateProviderConfig(ctx context.Context, id string, update ProviderConfigUpdate) (*ProviderConfig, error) {
	var out ProviderConfig
	path := "/api/admin/providers/configs/" + url.PathEscape(id)
	if err := c.doJSON(ctx, http.MethodPut, path, update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProviderConfig removes a provider configuration.
func (c *Client) DeleteProviderConfig(ctx context.Context, id string) error {
	path := "/api/admin/providers/configs/" + url.PathEscape(id)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// TestProvider runs a connectivity test against a stored configuration.
func (c *Client) TestProvider(ctx context.Context, id string) (*ProviderTestResponse, error) {
	var out ProviderTestResponse
	path := "/api/admin/providers/configs/" + url.PathEscape(id) + "/test"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleProvider enables or disables a stored configuration.
func (c *Client) ToggleProvider(ctx context.Context, id string, enabled bool) error {
	path := "/api/admin/providers/configs/" + url.PathEscape(id) + "/enable"
	body := map[string]bool{"enabled": enabled}
	return c.doJSON(ctx, http.MethodPost, path, body, nil)
}

// =============================================================================
// ACTIVE PROVIDER
// =============================================================================

// CurrentProvider returns information about the active provider.
func (c *Client) CurrentProvider(ctx context.Context) (*CurrentProviderInfo, error) {
	var out CurrentProviderInfo
	if err := c.doJSON(ctx, http.MethodGet, "/api/admin/providers/current", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SwitchProvider makes the named provider active.
func (c *Client) SwitchProvider(ctx context.Context, name string) error {
	path := "/api/admin/providers/" + url.PathEscape(name) + "/switch"
	return c.doJSON(ctx, http.MethodPost, path, nil, nil)
}

// ProviderStatuses returns the status listing for every provider.
func (c *Client) ProviderStatuses(ctx context.Context) (*ProviderListResponse, error) {
	var out ProviderListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/admin/providers/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// DOCUMENT ANALYTICS
// =============================================================================

// DocumentAnalytics is the document-generation analytics report. The shape
// varies by deployment, so rows are kept generic and rendered as-is.
type DocumentAnalytics struct {
	TotalDocuments int              `json:"total_documents"`
	Rows           []map[string]any `json:"rows"`
	Raw            json.RawMessage  `json:"-"`
}

// FetchDocumentAnalytics returns the document-generation analytics report.
func (c *Client) FetchDocumentAnalytics(ctx context.Context) (*DocumentAnalytics, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/api/admin/documents/analytics", nil, &raw); err != nil {
		return nil, err
	}

	out := &DocumentAnalytics{Raw: raw}
	// Best effort: decode the common shape, keep the raw payload either way.
	_ = json.Unmarshal(raw, out)
	return out, nil
}
