// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import "testing"

func TestArgParserFlags(t *testing.T) {
	p := NewArgParser([]string{"create", "--name", "primary", "--type=openai", "--temperature", "0.2"})

	if p.Subcommand() != "create" {
		t.Errorf("subcommand = %q, want create", p.Subcommand())
	}
	if got := p.Flag("name"); got != "primary" {
		t.Errorf("name = %q, want primary", got)
	}
	if got := p.Flag("type"); got != "openai" {
		t.Errorf("type = %q, want openai", got)
	}
	temp, err := p.FlagFloat("temperature")
	if err != nil || temp != 0.2 {
		t.Errorf("temperature = %v (%v), want 0.2", temp, err)
	}
}

func TestArgParserBoolFlags(t *testing.T) {
	p := NewArgParser([]string{"clear", "--confirm", "--json=false"})

	if !p.BoolFlag("confirm") {
		t.Error("confirm should be true")
	}
	if p.BoolFlag("json") {
		t.Error("json=false should be false")
	}
	if p.BoolFlag("missing") {
		t.Error("missing flag should be false")
	}
}

func TestArgParserPositional(t *testing.T) {
	p := NewArgParser([]string{"search", "anticipatory", "bail"})

	if p.PositionalCount() != 3 {
		t.Fatalf("count = %d, want 3", p.PositionalCount())
	}
	if got := JoinPositionalArgs(p, 1); got != "anticipatory bail" {
		t.Errorf("joined = %q, want %q", got, "anticipatory bail")
	}
}

func TestArgParserFlagConsumesNextArg(t *testing.T) {
	p := NewArgParser([]string{"export", "abc123", "--format", "json"})

	if got := p.Positional(1); got != "abc123" {
		t.Errorf("positional 1 = %q, want abc123", got)
	}
	if got := p.Flag("format"); got != "json" {
		t.Errorf("format = %q, want json", got)
	}
}

func TestArgParserFlagIntDefaults(t *testing.T) {
	p := NewArgParser([]string{"--max-tokens", "4096"})

	if got := p.FlagIntOrDefault("max-tokens", 1); got != 4096 {
		t.Errorf("max-tokens = %d, want 4096", got)
	}
	if got := p.FlagIntOrDefault("dimensions", 768); got != 768 {
		t.Errorf("dimensions default = %d, want 768", got)
	}
}
