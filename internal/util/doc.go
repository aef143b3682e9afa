// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for the nyaya client:
// atomic file writes, rune-safe string truncation, and numeric
// formatting used by the terminal surfaces.
package util
