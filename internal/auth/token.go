// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// expirySkew refreshes a little early so a token that expires in flight
// does not bounce off the server.
const expirySkew = 30 * time.Second

// ErrNoExpiry indicates the token carries no exp claim.
var ErrNoExpiry = errors.New("token has no expiry claim")

// tokenParser decodes without verifying: the client holds no signing key,
// and the server re-verifies every request anyway. Only the expiry claim
// is consulted here.
var tokenParser = jwt.NewParser()

// TokenExpiry returns the expiry time embedded in the access token.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := tokenParser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, err
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}

// TokenExpired reports whether the token is expired or close enough to
// count. A token that cannot be decoded is treated as expired so the
// refresh path gets a chance to replace it.
func TokenExpired(token string) bool {
	exp, err := TokenExpiry(token)
	if err != nil {
		return true
	}
	return time.Now().Add(expirySkew).After(exp)
}
