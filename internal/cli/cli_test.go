// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"
	"testing"

	"github.com/nyayantar/nyaya-tui/internal/config"
)

func TestParseDefaultsToTUI(t *testing.T) {
	cmd, _ := Parse(nil)
	if cmd != CmdTUI {
		t.Errorf("cmd = %v, want CmdTUI", cmd)
	}
}

func TestParseAskJoinsQuery(t *testing.T) {
	cmd, args := Parse([]string{"ask", "what", "is", "anticipatory", "bail"})
	if cmd != CmdAsk {
		t.Fatalf("cmd = %v, want CmdAsk", cmd)
	}
	if args.Query != "what is anticipatory bail" {
		t.Errorf("query = %q", args.Query)
	}
}

func TestParseUnknownWordBecomesAsk(t *testing.T) {
	cmd, args := Parse([]string{"what", "is", "bail"})
	if cmd != CmdAsk {
		t.Fatalf("cmd = %v, want CmdAsk", cmd)
	}
	if args.Query != "what is bail" {
		t.Errorf("query = %q", args.Query)
	}
}

func TestParseGlobalFlags(t *testing.T) {
	cmd, args := Parse([]string{"--json", "--server", "http://example.test", "status"})
	if cmd != CmdStatus {
		t.Fatalf("cmd = %v, want CmdStatus", cmd)
	}
	if !args.JSON {
		t.Error("JSON should be set")
	}
	if args.Server != "http://example.test" {
		t.Errorf("server = %q", args.Server)
	}
}

func TestParseServerEqualsForm(t *testing.T) {
	_, args := Parse([]string{"--server=http://example.test", "whoami"})
	if args.Server != "http://example.test" {
		t.Errorf("server = %q", args.Server)
	}
}

func TestParseSubcommands(t *testing.T) {
	cases := []struct {
		argv []string
		cmd  Command
		sub  string
	}{
		{[]string{"login"}, CmdLogin, ""},
		{[]string{"signin"}, CmdLogin, ""},
		{[]string{"logout"}, CmdLogout, ""},
		{[]string{"signup"}, CmdSignup, ""},
		{[]string{"whoami"}, CmdWhoami, ""},
		{[]string{"chat"}, CmdChat, ""},
		{[]string{"history", "list"}, CmdHistory, "list"},
		{[]string{"history", "export", "abc"}, CmdHistory, "export"},
		{[]string{"admin", "providers", "list"}, CmdAdmin, "providers"},
		{[]string{"config", "set", "ui.theme", "dark"}, CmdConfig, "set"},
		{[]string{"s"}, CmdStatus, ""},
		{[]string{"version"}, CmdVersion, ""},
		{[]string{"help"}, CmdHelp, ""},
	}

	for _, tc := range cases {
		cmd, args := Parse(tc.argv)
		if cmd != tc.cmd {
			t.Errorf("Parse(%v) cmd = %v, want %v", tc.argv, cmd, tc.cmd)
		}
		if args.Subcommand != tc.sub {
			t.Errorf("Parse(%v) subcommand = %q, want %q", tc.argv, args.Subcommand, tc.sub)
		}
	}
}

func TestWrapTextRespectsWidth(t *testing.T) {
	wrapped := WrapText("the quick brown fox jumps over the lazy dog", 15)
	for _, line := range strings.Split(wrapped, "\n") {
		if len(line) > 15 {
			t.Errorf("line %q exceeds width 15", line)
		}
	}
}

func TestWrapTextLeavesShortLines(t *testing.T) {
	if got := WrapText("short", 80); got != "short" {
		t.Errorf("got %q", got)
	}
}

func TestApplyConfigKeyRejectsUnknown(t *testing.T) {
	cfg := config.Default()
	if err := applyConfigKey(cfg, "nope.nope", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestApplyConfigKeyParsesTypes(t *testing.T) {
	cfg := config.Default()

	if err := applyConfigKey(cfg, "server.timeout_secs", "45"); err != nil {
		t.Fatal(err)
	}
	if cfg.Server.TimeoutSecs != 45 {
		t.Errorf("timeout = %d", cfg.Server.TimeoutSecs)
	}

	if err := applyConfigKey(cfg, "chat.show_sources", "false"); err != nil {
		t.Fatal(err)
	}
	if cfg.Chat.ShowSources {
		t.Error("show_sources should be false")
	}

	if err := applyConfigKey(cfg, "chat.max_history", "nope"); err == nil {
		t.Error("expected parse error")
	}
}
