// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// admin_cmd.go - Provider administration commands.
//
// Every subcommand here hits the backend's admin surface, which answers
// 403 for non-admin accounts. The local role check is a courtesy so the
// error message is actionable instead of a bare HTTP status.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nyayantar/nyaya-tui/internal/api"
)

// HandleAdmin dispatches the admin subcommands.
func HandleAdmin(args Args) error {
	rig, err := BuildRig(args)
	if err != nil {
		return err
	}
	defer rig.Close()

	if !rig.Manager.IsAuthenticated() {
		return fmt.Errorf("admin commands require signing in first ('nyaya login')")
	}
	if !rig.Manager.IsAdmin() {
		return fmt.Errorf("admin commands require an admin account")
	}

	ctx := context.Background()
	parser := NewArgParser(args.Raw)

	switch args.Subcommand {
	case "providers", "provider":
		return adminProviders(ctx, rig, parser, args)
	case "current":
		return adminCurrent(ctx, rig, args)
	case "switch":
		name := parser.Positional(1)
		if name == "" {
			return fmt.Errorf("usage: nyaya admin switch <provider-name>")
		}
		if err := rig.Client.SwitchProvider(ctx, name); err != nil {
			return fmt.Errorf("switch provider: %s", describeAPIError(err))
		}
		fmt.Println(SuccessStyle.Render("Switched active provider to " + name + "."))
		return nil
	case "status":
		return adminStatus(ctx, rig, args)
	case "analytics", "docs":
		return adminAnalytics(ctx, rig, args)
	default:
		return fmt.Errorf("unknown admin subcommand %q (try: providers, current, switch, status, analytics)", args.Subcommand)
	}
}

// =============================================================================
// PROVIDER CRUD
// =============================================================================

func adminProviders(ctx context.Context, rig *Rig, parser *ArgParser, args Args) error {
	action := parser.Positional(1)

	switch action {
	case "", "list", "ls":
		return providerList(ctx, rig, args)
	case "get":
		return providerGet(ctx, rig, parser, args)
	case "create":
		return providerCreate(ctx, rig, parser)
	case "update":
		return providerUpdate(ctx, rig, parser)
	case "delete", "rm":
		return providerDelete(ctx, rig, parser)
	case "test":
		return providerTest(ctx, rig, parser)
	case "enable":
		return providerToggle(ctx, rig, parser, true)
	case "disable":
		return providerToggle(ctx, rig, parser, false)
	default:
		return fmt.Errorf("unknown providers action %q", action)
	}
}

func providerList(ctx context.Context, rig *Rig, args Args) error {
	configs, err := rig.Client.ListProviderConfigs(ctx)
	if err != nil {
		return fmt.Errorf("list providers: %s", describeAPIError(err))
	}
	if args.JSON {
		return printJSON(configs)
	}

	if len(configs) == 0 {
		fmt.Println(DimStyle.Render("No provider configurations."))
		return nil
	}
	for _, cfg := range configs {
		state := "disabled"
		if cfg.Enabled {
			state = "enabled"
		}
		fmt.Printf("%s %s %s\n",
			RenderStatus(state),
			ValueStyle.Render(cfg.Name),
			DimStyle.Render(fmt.Sprintf("(%s, model %s, id %s)", cfg.ProviderType, cfg.Model, cfg.ID)))
		if cfg.ErrorMessage != "" {
			fmt.Println(ErrorStyle.Render("       " + cfg.ErrorMessage))
		}
	}
	return nil
}

func providerGet(ctx context.Context, rig *Rig, parser *ArgParser, args Args) error {
	id := parser.Positional(2)
	if id == "" {
		return fmt.Errorf("usage: nyaya admin providers get <id>")
	}
	cfg, err := rig.Client.GetProviderConfig(ctx, id)
	if err != nil {
		return fmt.Errorf("get provider: %s", describeAPIError(err))
	}
	if args.JSON {
		return printJSON(cfg)
	}

	fmt.Println(TitleStyle.Render(cfg.Name))
	fmt.Println(RenderLabel("Type") + ValueStyle.Render(string(cfg.ProviderType)))
	fmt.Println(RenderLabel("Model") + ValueStyle.Render(cfg.Model))
	fmt.Println(RenderLabel("Embedding") + ValueStyle.Render(cfg.EmbeddingModel))
	fmt.Println(RenderLabel("Temperature") + ValueStyle.Render(fmt.Sprintf("%.2f", cfg.Temperature)))
	enabled := "no"
	if cfg.Enabled {
		enabled = "yes"
	}
	fmt.Println(RenderLabel("Enabled") + ValueStyle.Render(enabled))
	if cfg.BaseURL != "" {
		fmt.Println(RenderLabel("Base URL") + ValueStyle.Render(cfg.BaseURL))
	}
	if cfg.Status != "" {
		fmt.Println(RenderLabel("Status") + RenderStatus(cfg.Status))
	}
	if cfg.LastTested != "" {
		fmt.Println(RenderLabel("Last tested") + DimStyle.Render(cfg.LastTested))
	}
	if cfg.ErrorMessage != "" {
		fmt.Println(RenderLabel("Error") + ErrorStyle.Render(cfg.ErrorMessage))
	}
	return nil
}

func providerCreate(ctx context.Context, rig *Rig, parser *ArgParser) error {
	name := parser.Flag("name")
	ptype := api.ProviderType(parser.Flag("type"))
	modelName := parser.Flag("model")
	if name == "" || ptype == "" || modelName == "" {
		return fmt.Errorf("usage: nyaya admin providers create --name N --type T --model M [--api-key K] [--base-url U] [--embedding-model E] [--temperature F]")
	}
	if !ptype.Valid() {
		return fmt.Errorf("unknown provider type %q (known: %v)", ptype, api.KnownProviderTypes)
	}

	cfg := api.ProviderConfig{
		Name:           name,
		ProviderType:   ptype,
		Model:          modelName,
		APIKey:         parser.Flag("api-key"),
		BaseURL:        parser.Flag("base-url"),
		EmbeddingModel: parser.Flag("embedding-model"),
	}
	if temp, err := parser.FlagFloat("temperature"); err == nil {
		cfg.Temperature = temp
	}
	if tokens, err := parser.FlagInt("max-tokens"); err == nil {
		cfg.MaxTokens = tokens
	}

	created, err := rig.Client.CreateProviderConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create provider: %s", describeAPIError(err))
	}
	fmt.Println(SuccessStyle.Render("Created " + created.Name + " (id " + created.ID + ")."))
	return nil
}

func providerUpdate(ctx context.Context, rig *Rig, parser *ArgParser) error {
	id := parser.Positional(2)
	if id == "" {
		return fmt.Errorf("usage: nyaya admin providers update <id> [--model M] [--api-key K] [...]")
	}

	var update api.ProviderConfigUpdate
	touched := false
	setString := func(flag string, dst **string) {
		if parser.HasFlag(flag) {
			v := parser.Flag(flag)
			*dst = &v
			touched = true
		}
	}
	setString("name", &update.Name)
	setString("model", &update.Model)
	setString("api-key", &update.APIKey)
	setString("base-url", &update.BaseURL)
	setString("embedding-model", &update.EmbeddingModel)
	if parser.HasFlag("temperature") {
		if temp, err := parser.FlagFloat("temperature"); err == nil {
			update.Temperature = &temp
			touched = true
		}
	}
	if parser.HasFlag("max-tokens") {
		if tokens, err := parser.FlagInt("max-tokens"); err == nil {
			update.MaxTokens = &tokens
			touched = true
		}
	}
	if !touched {
		return fmt.Errorf("nothing to update; pass at least one field flag")
	}

	updated, err := rig.Client.UpdateProviderConfig(ctx, id, update)
	if err != nil {
		return fmt.Errorf("update provider: %s", describeAPIError(err))
	}
	fmt.Println(SuccessStyle.Render("Updated " + updated.Name + "."))
	return nil
}

func providerDelete(ctx context.Context, rig *Rig, parser *ArgParser) error {
	id := parser.Positional(2)
	if id == "" {
		return fmt.Errorf("usage: nyaya admin providers delete <id>")
	}
	if err := rig.Client.DeleteProviderConfig(ctx, id); err != nil {
		return fmt.Errorf("delete provider: %s", describeAPIError(err))
	}
	fmt.Println(SuccessStyle.Render("Deleted " + id + "."))
	return nil
}

func providerTest(ctx context.Context, rig *Rig, parser *ArgParser) error {
	id := parser.Positional(2)
	if id == "" {
		return fmt.Errorf("usage: nyaya admin providers test <id>")
	}
	result, err := rig.Client.TestProvider(ctx, id)
	if err != nil {
		return fmt.Errorf("test provider: %s", describeAPIError(err))
	}

	if result.Success {
		fmt.Println(SuccessStyle.Render("Provider test passed."))
	} else {
		fmt.Println(ErrorStyle.Render("Provider test failed."))
	}
	if result.Message != "" {
		fmt.Println(ValueStyle.Render("  " + result.Message))
	}
	if result.LLMTest != nil {
		fmt.Println(RenderLabel("  LLM") + boolStatus(*result.LLMTest))
	}
	if result.EmbeddingTest != nil {
		fmt.Println(RenderLabel("  Embeddings") + boolStatus(*result.EmbeddingTest))
	}
	if result.ResponseTime > 0 {
		fmt.Println(RenderLabel("  Latency") + DimStyle.Render(fmt.Sprintf("%.2fs", result.ResponseTime)))
	}
	return nil
}

func boolStatus(ok bool) string {
	if ok {
		return RenderStatus("ok")
	}
	return RenderStatus("fail")
}

func providerToggle(ctx context.Context, rig *Rig, parser *ArgParser, enabled bool) error {
	id := parser.Positional(2)
	verb := "enable"
	if !enabled {
		verb = "disable"
	}
	if id == "" {
		return fmt.Errorf("usage: nyaya admin providers %s <id>", verb)
	}
	if err := rig.Client.ToggleProvider(ctx, id, enabled); err != nil {
		return fmt.Errorf("%s provider: %s", verb, describeAPIError(err))
	}
	fmt.Println(SuccessStyle.Render("Provider " + id + " " + verb + "d."))
	return nil
}

// =============================================================================
// STATUS AND ANALYTICS
// =============================================================================

func adminCurrent(ctx context.Context, rig *Rig, args Args) error {
	info, err := rig.Client.CurrentProvider(ctx)
	if err != nil {
		return fmt.Errorf("current provider: %s", describeAPIError(err))
	}
	if args.JSON {
		return printJSON(info)
	}
	fmt.Println(RenderLabel("Active provider") + ValueStyle.Render(info.CurrentProvider))
	for key, val := range info.ProviderInfo {
		fmt.Println(RenderLabel("  "+key) + DimStyle.Render(fmt.Sprint(val)))
	}
	return nil
}

func adminStatus(ctx context.Context, rig *Rig, args Args) error {
	listing, err := rig.Client.ProviderStatuses(ctx)
	if err != nil {
		return fmt.Errorf("provider statuses: %s", describeAPIError(err))
	}
	if args.JSON {
		return printJSON(listing)
	}

	fmt.Println(TitleStyle.Render("Provider status"))
	for _, p := range listing.Providers {
		marker := " "
		if p.Name == listing.ActiveProvider {
			marker = "*"
		}
		fmt.Printf("%s %s %s %s\n",
			marker,
			RenderStatus(p.Status),
			ValueStyle.Render(p.Name),
			DimStyle.Render(fmt.Sprintf("(%s, %s)", p.ProviderType, p.Model)))
	}
	fmt.Println(DimStyle.Render(fmt.Sprintf("%d providers, * marks active", listing.TotalCount)))
	return nil
}

func adminAnalytics(ctx context.Context, rig *Rig, args Args) error {
	report, err := rig.Client.FetchDocumentAnalytics(ctx)
	if err != nil {
		return fmt.Errorf("document analytics: %s", describeAPIError(err))
	}
	if args.JSON {
		fmt.Println(string(report.Raw))
		return nil
	}

	fmt.Println(TitleStyle.Render("Document analytics"))
	fmt.Println(RenderLabel("Total documents") + ValueStyle.Render(fmt.Sprint(report.TotalDocuments)))
	for _, row := range report.Rows {
		data, err := json.Marshal(row)
		if err != nil {
			continue
		}
		fmt.Println(DimStyle.Render("  " + string(data)))
	}
	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
