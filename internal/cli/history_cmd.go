// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history_cmd.go - Locally cached conversation management.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/nyayantar/nyaya-tui/internal/model"
	"github.com/nyayantar/nyaya-tui/internal/storage"
)

// HandleHistory dispatches the history subcommands.
func HandleHistory(args Args) error {
	rig, err := BuildRig(args)
	if err != nil {
		return err
	}
	defer rig.Close()

	parser := NewArgParser(args.Raw)

	switch args.Subcommand {
	case "", "list", "ls":
		return historyList(rig, args)
	case "show":
		return historyShow(rig, parser)
	case "search":
		return historySearch(rig, parser)
	case "export":
		return historyExport(rig, parser)
	case "delete", "rm":
		return historyDelete(rig, parser)
	case "clear":
		return historyClear(rig, parser)
	default:
		return fmt.Errorf("unknown history subcommand %q (try: list, show, search, export, delete, clear)", args.Subcommand)
	}
}

func historyList(rig *Rig, args Args) error {
	metas, err := rig.Store.List()
	if err != nil {
		return err
	}
	if args.JSON {
		data, err := json.MarshalIndent(metas, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	printMetas(metas)
	return nil
}

func printMetas(metas []model.ConversationMeta) {
	if len(metas) == 0 {
		fmt.Println(DimStyle.Render("No cached conversations."))
		return
	}
	for i, meta := range metas {
		tag := ""
		if meta.Guest {
			tag = WarningStyle.Render(" [guest]")
		}
		fmt.Printf("%s %s%s\n",
			DimStyle.Render(fmt.Sprintf("%2d.", i+1)),
			ValueStyle.Render(meta.Title), tag)
		fmt.Printf("    %s\n", DimStyle.Render(fmt.Sprintf(
			"%s | %d messages | id %s",
			meta.UpdatedAt.Format("2006-01-02 15:04"), meta.MessageCount, meta.ID)))
	}
}

// resolveConversation accepts either a stored id or a 1-based list index.
func resolveConversation(rig *Rig, ref string) (*model.Conversation, error) {
	if ref == "" {
		return nil, fmt.Errorf("a conversation id is required (see 'nyaya history list')")
	}
	if n, err := strconv.Atoi(ref); err == nil && n > 0 {
		return rig.Store.LoadByIndex(n - 1)
	}
	return rig.Store.Load(ref)
}

func historyShow(rig *Rig, parser *ArgParser) error {
	conv, err := resolveConversation(rig, parser.Positional(1))
	if err != nil {
		return err
	}
	fmt.Print(storage.ExportMarkdown(conv))
	return nil
}

func historySearch(rig *Rig, parser *ArgParser) error {
	query := JoinPositionalArgs(parser, 1)
	if query == "" {
		return fmt.Errorf("usage: nyaya history search <query>")
	}
	metas, err := rig.Store.Search(query)
	if err != nil {
		return err
	}
	printMetas(metas)
	return nil
}

func historyExport(rig *Rig, parser *ArgParser) error {
	conv, err := resolveConversation(rig, parser.Positional(1))
	if err != nil {
		return err
	}

	var data []byte
	switch format := parser.FlagOrDefault("format", "md"); format {
	case "md", "markdown":
		data = []byte(storage.ExportMarkdown(conv))
	case "json":
		data, err = storage.ExportJSON(conv)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown export format %q (md or json)", format)
	}

	if out := parser.Flag("output"); out != "" {
		if err := os.WriteFile(out, data, 0600); err != nil {
			return err
		}
		fmt.Println(SuccessStyle.Render("Exported to " + out))
		return nil
	}
	fmt.Print(string(data))
	return nil
}

func historyDelete(rig *Rig, parser *ArgParser) error {
	conv, err := resolveConversation(rig, parser.Positional(1))
	if err != nil {
		return err
	}
	if err := rig.Store.Delete(conv.ID); err != nil {
		return err
	}
	fmt.Println(SuccessStyle.Render("Deleted " + conv.ID))
	return nil
}

func historyClear(rig *Rig, parser *ArgParser) error {
	if !parser.BoolFlag("confirm") {
		return fmt.Errorf("this deletes all cached conversations; re-run with --confirm")
	}
	if err := rig.Store.Clear(); err != nil {
		return err
	}
	fmt.Println(SuccessStyle.Render("Cleared all cached conversations."))
	return nil
}
