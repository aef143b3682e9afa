// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// =============================================================================
// INTERCEPTOR OUTCOME
// =============================================================================

// OutcomeKind discriminates interceptor decisions.
type OutcomeKind int

const (
	// OutcomeProceed forwards the request with the given token (or
	// untouched when the token is empty).
	OutcomeProceed OutcomeKind = iota
	// OutcomeRefreshed forwards with a token obtained by a refresh
	// exchange performed for this request.
	OutcomeRefreshed
	// OutcomeAbort drops the request; the user has been signed out.
	OutcomeAbort
)

// Outcome is the interceptor's decision for one request.
type Outcome struct {
	Kind   OutcomeKind
	Token  string
	Reason error
}

// Proceed forwards with the given token.
func Proceed(token string) Outcome {
	return Outcome{Kind: OutcomeProceed, Token: token}
}

// Refreshed forwards with a freshly exchanged token.
func Refreshed(token string) Outcome {
	return Outcome{Kind: OutcomeRefreshed, Token: token}
}

// Abort drops the request for the given reason.
func Abort(reason error) Outcome {
	return Outcome{Kind: OutcomeAbort, Reason: reason}
}

// =============================================================================
// INTERCEPTOR
// =============================================================================

// Interceptor decides, per request, whether to attach the held access
// token as-is, refresh it first, or abort.
//
// At most one refresh runs per request: an expired or undecodable token
// triggers exactly one exchange, and a failed exchange aborts the request
// (the manager signs out as part of the failure).
type Interceptor struct {
	manager *Manager
}

// NewInterceptor creates an interceptor over the manager.
func NewInterceptor(m *Manager) *Interceptor {
	return &Interceptor{manager: m}
}

// Prepare returns the decision for a request about to be sent.
func (i *Interceptor) Prepare(ctx context.Context) Outcome {
	token := i.manager.AccessToken()

	// No session: forward unmodified. Guest endpoints work without auth
	// and protected endpoints will answer 401 on their own.
	if token == "" {
		return Proceed("")
	}

	if !TokenExpired(token) {
		return Proceed(token)
	}

	if err := i.manager.RefreshTokens(ctx); err != nil {
		return Abort(err)
	}

	fresh := i.manager.AccessToken()
	if fresh == "" {
		// A concurrent logout won the race.
		return Abort(ErrNotSignedIn)
	}
	return Refreshed(fresh)
}

// =============================================================================
// TRANSPORT
// =============================================================================

// AbortError is returned by the transport when the interceptor aborted
// the request.
type AbortError struct {
	Reason error
}

// Error implements the error interface.
func (e *AbortError) Error() string {
	return fmt.Sprintf("request aborted: %v", e.Reason)
}

// Unwrap returns the abort reason.
func (e *AbortError) Unwrap() error {
	return e.Reason
}

// exemptPaths are forwarded untouched: they carry their own credentials
// in the body, and routing them through the refresh logic would recurse
// (the refresh exchange itself travels over this transport).
var exemptPaths = []string{
	"/api/auth/login",
	"/api/auth/signup",
	"/api/auth/refresh",
}

// Transport is an http.RoundTripper that runs the interceptor before
// every request and attaches the resulting bearer token.
type Transport struct {
	interceptor *Interceptor
	base        http.RoundTripper
}

// NewTransport creates the auth transport. A nil base falls back to
// http.DefaultTransport.
func NewTransport(m *Manager, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		interceptor: NewInterceptor(m),
		base:        base,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if isExempt(req.URL.Path) {
		return t.base.RoundTrip(req)
	}

	outcome := t.interceptor.Prepare(req.Context())
	if outcome.Kind == OutcomeAbort {
		return nil, &AbortError{Reason: outcome.Reason}
	}

	if outcome.Token != "" {
		// RoundTrippers must not mutate the caller's request.
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+outcome.Token)
	}
	return t.base.RoundTrip(req)
}

// isExempt reports whether the path bypasses the interceptor.
func isExempt(path string) bool {
	for _, p := range exemptPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
