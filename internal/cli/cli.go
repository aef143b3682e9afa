// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and dispatch for nyaya.
package cli

import (
	"fmt"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdLogin
	CmdLogout
	CmdSignup
	CmdWhoami
	CmdHistory
	CmdAdmin
	CmdStatus
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool
	Server  string // Override the configured backend URL

	// Command-specific
	Query      string
	Subcommand string

	// Raw args remaining after global flag parsing
	Raw []string
}

const usageText = `nyaya - legal research assistant for the terminal

Nyaya answers questions about Indian law, citing the statutes and
judgments each answer draws from. Guests get a free question allowance;
sign in for unlimited access and server-side conversation history.

Usage:
  nyaya                      Start the TUI (default)
  nyaya ask "question"       Ask a single question and exit
  nyaya chat                 Interactive chat in the terminal
  nyaya login                Sign in to your account
  nyaya logout               Sign out and clear the stored session
  nyaya signup               Create a new account
  nyaya whoami               Show the signed-in account
  nyaya history [subcommand] Manage locally cached conversations
  nyaya admin [subcommand]   Provider administration (admin accounts)
  nyaya status, s            Show connection and session status
  nyaya config [show|set]    Configuration
  nyaya version              Show version information
  nyaya help                 Show this help

Ask:
  nyaya ask "What is anticipatory bail?"
    --json                   Print the raw result as JSON
    --no-sources             Hide source citations

Chat:
  nyaya chat                 REPL with history and line editing
    /new                     Start a fresh conversation
    /sources                 Show sources for the last answer
    /save [file]             Export the conversation as markdown
    /quit                    Exit

History:
  nyaya history list         List cached conversations
  nyaya history show <id>    Print a conversation
  nyaya history search <q>   Search titles and content
  nyaya history export <id>  Export a conversation
    --format md|json         Export format (default: md)
    --output FILE            Write to file (default: stdout)
  nyaya history delete <id>  Delete a conversation
  nyaya history clear --confirm
                             Delete all cached conversations

Admin (requires an admin account):
  nyaya admin providers           List provider configurations
  nyaya admin providers get <id>  Show one configuration
  nyaya admin providers create --name N --type T --model M [--api-key K]
  nyaya admin providers update <id> [--model M] [--api-key K] [...]
  nyaya admin providers delete <id>
  nyaya admin providers test <id> Test provider connectivity
  nyaya admin providers enable <id> / disable <id>
  nyaya admin current             Show the active provider
  nyaya admin switch <name>       Switch the active provider
  nyaya admin status              Provider status overview
  nyaya admin analytics           Document ingestion analytics

Global flags:
  -q, --quiet                Suppress non-essential output
  -v, --verbose              Verbose logging
  --json                     Machine-readable output where supported
  --server URL               Override the configured backend URL

Config:
  nyaya config show          Show current configuration
  nyaya config set <key> <value>
                             Set a value (e.g. server.base_url)
  nyaya config path          Print the config file location

Configuration file: ~/.nyaya/config.toml
Environment overrides: NYAYA_SERVER_URL, NYAYA_VERBOSE
`

// Parse parses os.Args style arguments into a command and its args.
func Parse(argv []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	cmd := remaining[0]
	rest := remaining[1:]
	parsed.Raw = rest

	switch cmd {
	case "ask":
		parser := NewArgParser(rest)
		parsed.Query = JoinPositionalArgs(parser, 0)
		return CmdAsk, parsed

	case "chat":
		return CmdChat, parsed

	case "login", "signin":
		return CmdLogin, parsed

	case "logout", "signout":
		return CmdLogout, parsed

	case "signup", "register":
		return CmdSignup, parsed

	case "whoami", "me":
		return CmdWhoami, parsed

	case "history", "conversations":
		if len(rest) > 0 {
			parsed.Subcommand = rest[0]
		}
		return CmdHistory, parsed

	case "admin":
		if len(rest) > 0 {
			parsed.Subcommand = rest[0]
		}
		return CmdAdmin, parsed

	case "status", "s":
		return CmdStatus, parsed

	case "config":
		if len(rest) > 0 {
			parsed.Subcommand = rest[0]
		}
		return CmdConfig, parsed

	case "version", "-v", "--version":
		return CmdVersion, parsed

	case "help", "-h", "--help":
		return CmdHelp, parsed

	default:
		// Unknown word: treat the whole line as an ask query.
		parsed.Query = strings.Join(remaining, " ")
		return CmdAsk, parsed
	}
}

// parseGlobalFlags extracts global flags and returns the remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsed Args

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsed.Quiet = true
		case "--verbose":
			parsed.Verbose = true
		case "--json":
			parsed.JSON = true
		case "--server":
			if i+1 < len(args) {
				i++
				parsed.Server = args[i]
			}
		default:
			if strings.HasPrefix(arg, "--server=") {
				parsed.Server = strings.TrimPrefix(arg, "--server=")
			} else {
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsed
}

// =============================================================================
// TRIVIAL HANDLERS
// =============================================================================

// HandleVersion prints version information.
func HandleVersion(args Args) {
	if args.JSON {
		fmt.Printf(`{"version":%q,"commit":%q,"built":%q,"go":%q}`+"\n",
			Version, GitCommit, BuildDate, runtime.Version())
		return
	}
	fmt.Printf("nyaya %s\n", Version)
	fmt.Printf("  commit: %s\n", GitCommit)
	fmt.Printf("  built:  %s\n", BuildDate)
	fmt.Printf("  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// HandleHelp prints usage text.
func HandleHelp() {
	fmt.Print(usageText)
}
