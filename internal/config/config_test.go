// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.BaseURL == "" {
		t.Error("default BaseURL should not be empty")
	}
	if cfg.Server.TimeoutSecs != 60 {
		t.Errorf("default TimeoutSecs = %d, want 60", cfg.Server.TimeoutSecs)
	}
	if !cfg.Chat.SaveHistory {
		t.Error("default SaveHistory should be true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		wantOK bool
	}{
		{"valid defaults", func(c *Config) {}, true},
		{"empty base url", func(c *Config) { c.Server.BaseURL = "" }, false},
		{"garbage base url", func(c *Config) { c.Server.BaseURL = "not a url" }, false},
		{"zero timeout", func(c *Config) { c.Server.TimeoutSecs = 0 }, false},
		{"huge timeout", func(c *Config) { c.Server.TimeoutSecs = 9999 }, false},
		{"negative history", func(c *Config) { c.Chat.MaxHistory = -1 }, false},
		{"bad theme", func(c *Config) { c.UI.Theme = "solarized" }, false},
		{"light theme", func(c *Config) { c.UI.Theme = "light" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantOK && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.wantOK && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestLoadFromPath_TOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[server]
base_url = "https://api.example.test"
timeout_secs = 30

[ui]
theme = "light"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Server.BaseURL != "https://api.example.test" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Server.TimeoutSecs != 30 {
		t.Errorf("TimeoutSecs = %d, want 30", cfg.Server.TimeoutSecs)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %q, want light", cfg.UI.Theme)
	}
	// Unset fields fall back to defaults.
	if cfg.Server.MaxRetries != Default().Server.MaxRetries {
		t.Errorf("MaxRetries = %d, want default", cfg.Server.MaxRetries)
	}
}

func TestLoadFromPath_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	content := `{"server": {"base_url": "https://json.example.test", "timeout_secs": 15}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Server.BaseURL != "https://json.example.test" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NYAYA_SERVER_URL", "https://env.example.test/")
	t.Setenv("NYAYA_VERBOSE", "true")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.BaseURL != "https://env.example.test" {
		t.Errorf("BaseURL = %q, trailing slash should be trimmed", cfg.Server.BaseURL)
	}
	if !cfg.Logging.Verbose {
		t.Error("Verbose should be true from env")
	}
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.Server.BaseURL = "https://saved.example.test"
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("permissions = %o, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.Server.BaseURL != "https://saved.example.test" {
		t.Errorf("round-trip BaseURL = %q", loaded.Server.BaseURL)
	}
}
