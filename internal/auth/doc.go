// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth owns the client's authentication state: the durable session
// file, the session manager state machine, access-token expiry decoding,
// and the HTTP transport that attaches and refreshes bearer tokens.
//
// The manager is the single source of truth. Everything else observes it:
// the transport reads tokens through it, the UI reads state through it,
// and navigation side effects run through an injected Navigator.
package auth
