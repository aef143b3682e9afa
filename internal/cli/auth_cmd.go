// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - login, logout, signup and whoami commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nyayantar/nyaya-tui/internal/api"
	"github.com/nyayantar/nyaya-tui/internal/guest"
)

// describeAPIError prefers the backend's detail message over transport noise.
func describeAPIError(err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fmt.Sprintf("could not reach the server: %v", err)
}

// HandleLogin signs in and stores the session.
func HandleLogin(args Args) error {
	if !IsTTY() {
		return &TTYRequiredError{Command: "nyaya login"}
	}

	rig, err := BuildRig(args)
	if err != nil {
		return err
	}
	defer rig.Close()

	if rig.Manager.IsAuthenticated() {
		fmt.Println(DimStyle.Render("Already signed in as " + rig.Manager.Session().DisplayName() + ". Run 'nyaya logout' first to switch accounts."))
		return nil
	}

	editor := newLineEditor()
	defer editor.close()

	email, err := editor.prompt("Email: ")
	if err != nil {
		return err
	}
	password, err := editor.promptPassword("Password: ")
	if err != nil {
		return err
	}
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return fmt.Errorf("email and password are required")
	}

	if err := rig.Manager.Login(context.Background(), email, password); err != nil {
		return fmt.Errorf("sign in failed: %s", describeAPIError(err))
	}

	fmt.Println(SuccessStyle.Render("Signed in as " + rig.Manager.Session().DisplayName() + "."))
	fmt.Println(DimStyle.Render("Your question allowance is now unlimited."))
	return nil
}

// HandleLogout clears the stored session.
func HandleLogout(args Args) error {
	rig, err := BuildRig(args)
	if err != nil {
		return err
	}
	defer rig.Close()

	if !rig.Manager.IsAuthenticated() {
		fmt.Println(DimStyle.Render("Not signed in."))
		return nil
	}

	name := rig.Manager.Session().DisplayName()
	rig.Manager.Logout()
	fmt.Println(SuccessStyle.Render("Signed out " + name + "."))
	return nil
}

// HandleSignup creates an account and signs in.
func HandleSignup(args Args) error {
	if !IsTTY() {
		return &TTYRequiredError{Command: "nyaya signup"}
	}

	rig, err := BuildRig(args)
	if err != nil {
		return err
	}
	defer rig.Close()

	editor := newLineEditor()
	defer editor.close()

	req, err := promptSignup(editor)
	if err != nil {
		return err
	}

	if err := rig.Manager.Signup(context.Background(), *req); err != nil {
		return fmt.Errorf("signup failed: %s", describeAPIError(err))
	}

	fmt.Println(SuccessStyle.Render("Account created. Signed in as " + rig.Manager.Session().DisplayName() + "."))
	return nil
}

func promptSignup(editor *lineEditor) (*api.SignupRequest, error) {
	first, err := editor.prompt("First name: ")
	if err != nil {
		return nil, err
	}
	last, err := editor.prompt("Last name: ")
	if err != nil {
		return nil, err
	}
	email, err := editor.prompt("Email: ")
	if err != nil {
		return nil, err
	}
	password, err := editor.promptPassword("Password (min 8 chars): ")
	if err != nil {
		return nil, err
	}
	confirm, err := editor.promptPassword("Confirm password: ")
	if err != nil {
		return nil, err
	}

	email = strings.TrimSpace(email)
	switch {
	case email == "" || password == "":
		return nil, fmt.Errorf("email and password are required")
	case !strings.Contains(email, "@"):
		return nil, fmt.Errorf("that does not look like an email address")
	case len(password) < 8:
		return nil, fmt.Errorf("password must be at least 8 characters")
	case password != confirm:
		return nil, fmt.Errorf("passwords do not match")
	}

	return &api.SignupRequest{
		Email:     email,
		Password:  password,
		FirstName: strings.TrimSpace(first),
		LastName:  strings.TrimSpace(last),
	}, nil
}

// HandleWhoami shows the signed-in account.
func HandleWhoami(args Args) error {
	rig, err := BuildRig(args)
	if err != nil {
		return err
	}
	defer rig.Close()

	if !rig.Manager.IsAuthenticated() {
		if args.JSON {
			fmt.Println(`{"authenticated":false}`)
			return nil
		}
		fmt.Println(DimStyle.Render(fmt.Sprintf(
			"Not signed in. Guest mode: %d of %d free questions left.",
			rig.Policy.Remaining(), guest.Limit)))
		return nil
	}

	sess := rig.Manager.Session()
	if args.JSON {
		fmt.Printf(`{"authenticated":true,"email":%q,"name":%q,"role":%q}`+"\n",
			sess.Email, sess.DisplayName(), sess.Role)
		return nil
	}

	fmt.Println(RenderLabel("Email") + ValueStyle.Render(sess.Email))
	fmt.Println(RenderLabel("Name") + ValueStyle.Render(sess.DisplayName()))
	fmt.Println(RenderLabel("Role") + ValueStyle.Render(sess.Role))
	return nil
}
