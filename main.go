// nyaya - a terminal client for the Nyayantar legal assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nyayantar/nyaya-tui/internal/auth"
	"github.com/nyayantar/nyaya-tui/internal/cli"
	"github.com/nyayantar/nyaya-tui/internal/config"
	"github.com/nyayantar/nyaya-tui/internal/ui"
	chatview "github.com/nyayantar/nyaya-tui/internal/ui/chat"
	"github.com/nyayantar/nyaya-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse(os.Args[1:])

	var err error
	switch cmd {
	case cli.CmdTUI:
		err = runTUI(args)
	case cli.CmdAsk:
		err = cli.HandleAsk(args)
	case cli.CmdChat:
		err = cli.HandleChat(args)
	case cli.CmdLogin:
		err = cli.HandleLogin(args)
	case cli.CmdLogout:
		err = cli.HandleLogout(args)
	case cli.CmdSignup:
		err = cli.HandleSignup(args)
	case cli.CmdWhoami:
		err = cli.HandleWhoami(args)
	case cli.CmdHistory:
		err = cli.HandleHistory(args)
	case cli.CmdAdmin:
		err = cli.HandleAdmin(args)
	case cli.CmdStatus:
		err = cli.HandleStatus(args)
	case cli.CmdConfig:
		err = cli.HandleConfig(args)
	case cli.CmdVersion:
		cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.HandleHelp()
	default:
		err = runTUI(args)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// runTUI wires the full stack and runs the Bubble Tea program.
//
// The program handle must exist before the auth manager so the
// navigator has a transport; it is bound to the actual program right
// after tea.NewProgram and before Run. Sends before the bind are
// dropped, which only affects navigation during startup.
func runTUI(args cli.Args) error {
	if !cli.IsTTY() {
		return &cli.TTYRequiredError{Command: "nyaya"}
	}

	handle := ui.NewProgramHandle()

	rig, err := cli.BuildRig(args, auth.WithNavigator(ui.NewNavigator(handle)))
	if err != nil {
		return err
	}
	defer rig.Close()

	app := ui.NewApp(
		styles.NewTheme(),
		rig.Manager,
		rig.Policy,
		rig.Submitter,
		rig.Store,
		handle,
		ui.WithAppLogger(rig.Log),
	)

	p := tea.NewProgram(app, tea.WithAltScreen())
	handle.Set(p)

	// Live-reload notifications for config edits made while the TUI runs.
	watcher, err := config.Watch(func(*config.Config) {
		handle.Send(chatview.ConfigReloadedMsg{})
	})
	if err == nil {
		defer watcher.Close()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
