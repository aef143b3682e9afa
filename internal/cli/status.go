// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Connection and session status command.
package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nyayantar/nyaya-tui/internal/auth"
	"github.com/nyayantar/nyaya-tui/internal/config"
	"github.com/nyayantar/nyaya-tui/internal/guest"
	"github.com/nyayantar/nyaya-tui/internal/logging"
)

// HandleStatus prints backend, session and guest-allowance status.
func HandleStatus(args Args) error {
	rig, err := BuildRig(args)
	if err != nil {
		return err
	}
	defer rig.Close()

	reachable := probeServer(rig.Config.Server.BaseURL)

	if args.JSON {
		return statusJSON(rig, reachable)
	}

	fmt.Println(TitleStyle.Render("nyaya status"))

	fmt.Println(SectionStyle.Render("Server"))
	fmt.Println(RenderLabel("URL") + ValueStyle.Render(rig.Config.Server.BaseURL))
	if reachable {
		fmt.Println(RenderLabel("Reachable") + RenderStatus("ok"))
	} else {
		fmt.Println(RenderLabel("Reachable") + RenderStatus("fail"))
	}

	fmt.Println(SectionStyle.Render("Session"))
	if rig.Manager.IsAuthenticated() {
		sess := rig.Manager.Session()
		fmt.Println(RenderLabel("Signed in as") + ValueStyle.Render(sess.DisplayName()))
		fmt.Println(RenderLabel("Role") + ValueStyle.Render(sess.Role))
		if expiry, err := auth.TokenExpiry(sess.AccessToken); err == nil {
			label := "valid until " + expiry.Local().Format("15:04:05")
			if time.Now().After(expiry) {
				label = "expired (will refresh on next request)"
			}
			fmt.Println(RenderLabel("Access token") + DimStyle.Render(label))
		}
	} else {
		fmt.Println(RenderLabel("Signed in") + DimStyle.Render("no (guest mode)"))
		fmt.Println(RenderLabel("Free questions") + ValueStyle.Render(
			fmt.Sprintf("%d of %d left", rig.Policy.Remaining(), guest.Limit)))
	}

	fmt.Println(SectionStyle.Render("Local"))
	if dir, err := config.Dir(); err == nil {
		fmt.Println(RenderLabel("Config dir") + DimStyle.Render(dir))
		fmt.Println(RenderLabel("Log file") + DimStyle.Render(dir+"/"+logging.FileName))
	}
	if metas, err := rig.Store.List(); err == nil {
		fmt.Println(RenderLabel("Conversations") + ValueStyle.Render(fmt.Sprint(len(metas))))
	}
	return nil
}

func statusJSON(rig *Rig, reachable bool) error {
	out := map[string]any{
		"server":        rig.Config.Server.BaseURL,
		"reachable":     reachable,
		"authenticated": rig.Manager.IsAuthenticated(),
	}
	if rig.Manager.IsAuthenticated() {
		sess := rig.Manager.Session()
		out["email"] = sess.Email
		out["role"] = sess.Role
	} else {
		out["guest_remaining"] = rig.Policy.Remaining()
		out["guest_limit"] = guest.Limit
	}
	return printJSON(out)
}

// probeServer checks basic TCP/HTTP reachability. Any HTTP response
// counts; only transport failures mean the server is down.
func probeServer(baseURL string) bool {
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(baseURL)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
