// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration show/set commands.
package cli

import (
	"fmt"
	"strconv"

	"github.com/nyayantar/nyaya-tui/internal/config"
)

// HandleConfig dispatches the config subcommands.
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return configShow(args)
	case "set":
		parser := NewArgParser(args.Raw)
		return configSet(parser.Positional(1), parser.Positional(2))
	case "path":
		path, err := config.PathTOML()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	default:
		return fmt.Errorf("unknown config subcommand %q (try: show, set, path)", args.Subcommand)
	}
}

func configShow(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if args.JSON {
		return printJSON(cfg)
	}

	fmt.Println(TitleStyle.Render("Configuration"))
	fmt.Println(SectionStyle.Render("server"))
	fmt.Println(RenderLabel("base_url") + ValueStyle.Render(cfg.Server.BaseURL))
	fmt.Println(RenderLabel("timeout_secs") + ValueStyle.Render(strconv.Itoa(cfg.Server.TimeoutSecs)))
	fmt.Println(RenderLabel("max_retries") + ValueStyle.Render(strconv.Itoa(cfg.Server.MaxRetries)))

	fmt.Println(SectionStyle.Render("chat"))
	fmt.Println(RenderLabel("save_history") + ValueStyle.Render(strconv.FormatBool(cfg.Chat.SaveHistory)))
	fmt.Println(RenderLabel("max_history") + ValueStyle.Render(strconv.Itoa(cfg.Chat.MaxHistory)))
	fmt.Println(RenderLabel("show_sources") + ValueStyle.Render(strconv.FormatBool(cfg.Chat.ShowSources)))
	fmt.Println(RenderLabel("show_suggested") + ValueStyle.Render(strconv.FormatBool(cfg.Chat.ShowSuggested)))

	fmt.Println(SectionStyle.Render("ui"))
	fmt.Println(RenderLabel("theme") + ValueStyle.Render(cfg.UI.Theme))
	fmt.Println(RenderLabel("compact_mode") + ValueStyle.Render(strconv.FormatBool(cfg.UI.CompactMode)))
	fmt.Println(RenderLabel("render_markdown") + ValueStyle.Render(strconv.FormatBool(cfg.UI.RenderMarkdown)))

	fmt.Println(SectionStyle.Render("logging"))
	fmt.Println(RenderLabel("verbose") + ValueStyle.Render(strconv.FormatBool(cfg.Logging.Verbose)))

	if path, err := config.PathTOML(); err == nil {
		fmt.Println()
		fmt.Println(DimStyle.Render("File: " + path))
	}
	return nil
}

func configSet(key, value string) error {
	if key == "" || value == "" {
		return fmt.Errorf("usage: nyaya config set <key> <value> (e.g. server.base_url http://localhost:8000)")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := applyConfigKey(cfg, key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Println(SuccessStyle.Render(fmt.Sprintf("Set %s = %s", key, value)))
	return nil
}

func applyConfigKey(cfg *config.Config, key, value string) error {
	parseBool := func() (bool, error) { return strconv.ParseBool(value) }
	parseInt := func() (int, error) { return strconv.Atoi(value) }

	var err error
	switch key {
	case "server.base_url":
		cfg.Server.BaseURL = value
	case "server.timeout_secs":
		cfg.Server.TimeoutSecs, err = parseInt()
	case "server.max_retries":
		cfg.Server.MaxRetries, err = parseInt()
	case "chat.save_history":
		cfg.Chat.SaveHistory, err = parseBool()
	case "chat.max_history":
		cfg.Chat.MaxHistory, err = parseInt()
	case "chat.show_sources":
		cfg.Chat.ShowSources, err = parseBool()
	case "chat.show_suggested":
		cfg.Chat.ShowSuggested, err = parseBool()
	case "ui.theme":
		cfg.UI.Theme = value
	case "ui.compact_mode":
		cfg.UI.CompactMode, err = parseBool()
	case "ui.render_markdown":
		cfg.UI.RenderMarkdown, err = parseBool()
	case "logging.verbose":
		cfg.Logging.Verbose, err = parseBool()
	default:
		return fmt.Errorf("unknown config key %q (run 'nyaya config show' for the key list)", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}
