// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/login" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "at-1",
			"refresh_token": "rt-1",
			"email": "adv@example.in",
			"first_name": "Asha",
			"last_name": "Rao"
		}`))
	}))
	defer srv.Close()

	client := New(srv.URL)
	resp, err := client.Login(context.Background(), Credentials{Email: "adv@example.in", Password: "pw"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.AccessToken != "at-1" || resp.RefreshToken != "rt-1" {
		t.Errorf("tokens = %q/%q", resp.AccessToken, resp.RefreshToken)
	}
	if resp.Email != "adv@example.in" || resp.FirstName != "Asha" {
		t.Errorf("profile = %+v", resp)
	}
}

func TestRefreshRotatesPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/refresh" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"access_token":"at-2","refresh_token":"rt-2"}`))
	}))
	defer srv.Close()

	client := New(srv.URL)
	pair, err := client.Refresh(context.Background(), "rt-1")
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if pair.AccessToken != "at-2" || pair.RefreshToken != "rt-2" {
		t.Errorf("pair = %+v", pair)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		sentinel error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"detail":"Not authenticated"}`, ErrNotAuthenticated},
		{"forbidden", http.StatusForbidden, `{"detail":"Admin access required"}`, ErrForbidden},
		{"rate limited", http.StatusTooManyRequests, `{"detail":"slow down"}`, ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := New(srv.URL, WithMaxRetries(1))
			_, err := client.Me(context.Background())
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("Me error = %v, want %v", err, tt.sentinel)
			}
		})
	}
}

func TestAPIErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"Conversation ID is required for authenticated requests."}`))
	}))
	defer srv.Close()

	client := New(srv.URL)
	_, err := client.Me(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("Status = %d", apiErr.Status)
	}
	if apiErr.Detail != "Conversation ID is required for authenticated requests." {
		t.Errorf("Detail = %q", apiErr.Detail)
	}
}

func TestRetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"email":"adv@example.in","role":"user"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, WithMaxRetries(2))
	profile, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("Me failed after retry: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if profile.Role != "user" {
		t.Errorf("Role = %q", profile.Role)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Not authenticated"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, WithMaxRetries(3))
	_, err := client.Me(context.Background())
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("error = %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (4xx must not retry)", attempts)
	}
}

func TestProviderTypeValid(t *testing.T) {
	for _, pt := range KnownProviderTypes {
		if !pt.Valid() {
			t.Errorf("%q should be valid", pt)
		}
	}
	if ProviderType("bedrock").Valid() {
		t.Error("unknown type reported valid")
	}
}
