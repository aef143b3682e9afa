// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui composes the application views: sign-in, sign-up, and chat.
//
// This file implements the authentication forms.
package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nyayantar/nyaya-tui/internal/api"
	"github.com/nyayantar/nyaya-tui/internal/ui/styles"
)

// =============================================================================
// FORM MESSAGES
// =============================================================================

// SignInSubmitMsg carries sign-in credentials to the app layer.
type SignInSubmitMsg struct {
	Email    string
	Password string
}

// SignUpSubmitMsg carries a registration request to the app layer.
type SignUpSubmitMsg struct {
	Request api.SignupRequest
}

// FormCancelMsg returns to the chat view without signing in.
type FormCancelMsg struct{}

// SwitchFormMsg toggles between the sign-in and sign-up forms.
type SwitchFormMsg struct{}

// =============================================================================
// SIGN-IN FORM
// =============================================================================

const (
	signInFieldEmail = iota
	signInFieldPassword
	signInFieldCount
)

// SignInForm collects credentials for an existing account.
type SignInForm struct {
	theme  *styles.Theme
	inputs []textinput.Model
	focus  int

	errText    string
	submitting bool
	width      int
	height     int
}

// NewSignInForm creates an empty sign-in form.
func NewSignInForm(theme *styles.Theme) SignInForm {
	email := textinput.New()
	email.Placeholder = "advocate@example.in"
	email.Prompt = ""
	email.CharLimit = 254
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = ""
	password.CharLimit = 128
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'

	return SignInForm{
		theme:  theme,
		inputs: []textinput.Model{email, password},
	}
}

// Reset clears entered values and errors.
func (f *SignInForm) Reset() {
	for i := range f.inputs {
		f.inputs[i].Reset()
		f.inputs[i].Blur()
	}
	f.focus = signInFieldEmail
	f.inputs[f.focus].Focus()
	f.errText = ""
	f.submitting = false
}

// SetError shows a failure message and unlocks the form.
func (f *SignInForm) SetError(text string) {
	f.errText = text
	f.submitting = false
}

// SetSize stores the window dimensions.
func (f *SignInForm) SetSize(width, height int) {
	f.width = width
	f.height = height
	for i := range f.inputs {
		f.inputs[i].Width = formInputWidth(width)
	}
}

// Init starts the cursor blink.
func (f SignInForm) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles key input for the form.
func (f SignInForm) Update(msg tea.Msg) (SignInForm, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return f.updateInputs(msg)
	}
	if f.submitting {
		return f, nil
	}

	switch keyMsg.String() {
	case "esc":
		return f, func() tea.Msg { return FormCancelMsg{} }

	case "ctrl+u":
		return f, func() tea.Msg { return SwitchFormMsg{} }

	case "tab", "down":
		return f.moveFocus(1), textinput.Blink

	case "shift+tab", "up":
		return f.moveFocus(-1), textinput.Blink

	case "enter":
		if f.focus < signInFieldCount-1 {
			return f.moveFocus(1), textinput.Blink
		}
		return f.submit()
	}

	return f.updateInputs(msg)
}

func (f SignInForm) moveFocus(delta int) SignInForm {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + signInFieldCount) % signInFieldCount
	f.inputs[f.focus].Focus()
	return f
}

func (f SignInForm) updateInputs(msg tea.Msg) (SignInForm, tea.Cmd) {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f SignInForm) submit() (SignInForm, tea.Cmd) {
	email := strings.TrimSpace(f.inputs[signInFieldEmail].Value())
	password := f.inputs[signInFieldPassword].Value()

	if email == "" || password == "" {
		f.errText = "Email and password are required."
		return f, nil
	}

	f.errText = ""
	f.submitting = true
	return f, func() tea.Msg {
		return SignInSubmitMsg{Email: email, Password: password}
	}
}

// View renders the sign-in form centered in the window.
func (f SignInForm) View() string {
	labels := []string{"Email", "Password"}

	rows := []string{f.theme.FormTitle.Render("Sign in to Nyaya"), ""}
	for i, input := range f.inputs {
		label := f.theme.FormLabel
		if i == f.focus {
			label = f.theme.FormLabelFocused
		}
		rows = append(rows, label.Render(labels[i]), input.View(), "")
	}

	if f.errText != "" {
		rows = append(rows, f.theme.FormError.Render(styles.StatusIndicators.Error+" "+f.errText), "")
	}
	if f.submitting {
		rows = append(rows, f.theme.FormHint.Render("Signing in..."))
	} else {
		rows = append(rows,
			f.theme.FormHint.Render("Enter submit | Tab next field | Ctrl+U sign up | Esc back"))
	}

	box := f.theme.FormBox.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	return lipgloss.Place(f.width, f.height, lipgloss.Center, lipgloss.Center, box)
}

// =============================================================================
// SIGN-UP FORM
// =============================================================================

const (
	signUpFieldFirstName = iota
	signUpFieldLastName
	signUpFieldEmail
	signUpFieldPassword
	signUpFieldConfirm
	signUpFieldCount
)

// SignUpForm collects details for a new account.
type SignUpForm struct {
	theme  *styles.Theme
	inputs []textinput.Model
	focus  int

	errText    string
	submitting bool
	width      int
	height     int
}

// NewSignUpForm creates an empty sign-up form.
func NewSignUpForm(theme *styles.Theme) SignUpForm {
	mk := func(placeholder string) textinput.Model {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.Prompt = ""
		ti.CharLimit = 254
		return ti
	}

	first := mk("First name")
	first.Focus()
	last := mk("Last name")
	email := mk("advocate@example.in")

	password := mk("password")
	password.CharLimit = 128
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'

	confirm := mk("repeat password")
	confirm.CharLimit = 128
	confirm.EchoMode = textinput.EchoPassword
	confirm.EchoCharacter = '*'

	return SignUpForm{
		theme:  theme,
		inputs: []textinput.Model{first, last, email, password, confirm},
	}
}

// Reset clears entered values and errors.
func (f *SignUpForm) Reset() {
	for i := range f.inputs {
		f.inputs[i].Reset()
		f.inputs[i].Blur()
	}
	f.focus = signUpFieldFirstName
	f.inputs[f.focus].Focus()
	f.errText = ""
	f.submitting = false
}

// SetError shows a failure message and unlocks the form.
func (f *SignUpForm) SetError(text string) {
	f.errText = text
	f.submitting = false
}

// SetSize stores the window dimensions.
func (f *SignUpForm) SetSize(width, height int) {
	f.width = width
	f.height = height
	for i := range f.inputs {
		f.inputs[i].Width = formInputWidth(width)
	}
}

// Init starts the cursor blink.
func (f SignUpForm) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles key input for the form.
func (f SignUpForm) Update(msg tea.Msg) (SignUpForm, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return f.updateInputs(msg)
	}
	if f.submitting {
		return f, nil
	}

	switch keyMsg.String() {
	case "esc":
		return f, func() tea.Msg { return FormCancelMsg{} }

	case "ctrl+u":
		return f, func() tea.Msg { return SwitchFormMsg{} }

	case "tab", "down":
		return f.moveFocus(1), textinput.Blink

	case "shift+tab", "up":
		return f.moveFocus(-1), textinput.Blink

	case "enter":
		if f.focus < signUpFieldCount-1 {
			return f.moveFocus(1), textinput.Blink
		}
		return f.submit()
	}

	return f.updateInputs(msg)
}

func (f SignUpForm) moveFocus(delta int) SignUpForm {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + signUpFieldCount) % signUpFieldCount
	f.inputs[f.focus].Focus()
	return f
}

func (f SignUpForm) updateInputs(msg tea.Msg) (SignUpForm, tea.Cmd) {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f SignUpForm) submit() (SignUpForm, tea.Cmd) {
	first := strings.TrimSpace(f.inputs[signUpFieldFirstName].Value())
	last := strings.TrimSpace(f.inputs[signUpFieldLastName].Value())
	email := strings.TrimSpace(f.inputs[signUpFieldEmail].Value())
	password := f.inputs[signUpFieldPassword].Value()
	confirm := f.inputs[signUpFieldConfirm].Value()

	switch {
	case email == "" || password == "":
		f.errText = "Email and password are required."
		return f, nil
	case !strings.Contains(email, "@"):
		f.errText = "That does not look like an email address."
		return f, nil
	case len(password) < 8:
		f.errText = "Password must be at least 8 characters."
		return f, nil
	case password != confirm:
		f.errText = "Passwords do not match."
		return f, nil
	}

	f.errText = ""
	f.submitting = true
	req := api.SignupRequest{
		Email:     email,
		Password:  password,
		FirstName: first,
		LastName:  last,
	}
	return f, func() tea.Msg { return SignUpSubmitMsg{Request: req} }
}

// View renders the sign-up form centered in the window.
func (f SignUpForm) View() string {
	labels := []string{"First name", "Last name", "Email", "Password", "Confirm password"}

	rows := []string{f.theme.FormTitle.Render("Create your Nyaya account"), ""}
	for i, input := range f.inputs {
		label := f.theme.FormLabel
		if i == f.focus {
			label = f.theme.FormLabelFocused
		}
		rows = append(rows, label.Render(labels[i]), input.View(), "")
	}

	if f.errText != "" {
		rows = append(rows, f.theme.FormError.Render(styles.StatusIndicators.Error+" "+f.errText), "")
	}
	if f.submitting {
		rows = append(rows, f.theme.FormHint.Render("Creating account..."))
	} else {
		rows = append(rows,
			f.theme.FormHint.Render("Enter submit | Tab next field | Ctrl+U sign in | Esc back"))
	}

	box := f.theme.FormBox.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	return lipgloss.Place(f.width, f.height, lipgloss.Center, lipgloss.Center, box)
}

// =============================================================================
// SHARED
// =============================================================================

// formInputWidth sizes text inputs against the window width.
func formInputWidth(width int) int {
	w := width / 2
	if w < 24 {
		w = 24
	}
	if w > 48 {
		w = 48
	}
	return w
}

// describeAuthError maps an authentication failure to user-facing text.
func describeAuthError(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fmt.Sprintf("Could not reach the server: %v", err)
}
