// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the Nyayantar backend.
//
// It covers the authentication endpoints (login, signup, refresh, me), the
// streaming chat endpoints for guests and signed-in users, and the admin
// surface for provider configurations and document analytics. Chat responses
// arrive as a line-oriented stream of text deltas and data annotations; the
// parser in stream.go decodes them incrementally.
package api
