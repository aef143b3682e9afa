// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// wire.go - Shared construction of the client stack for CLI commands.
package cli

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/nyayantar/nyaya-tui/internal/api"
	"github.com/nyayantar/nyaya-tui/internal/auth"
	"github.com/nyayantar/nyaya-tui/internal/chat"
	"github.com/nyayantar/nyaya-tui/internal/config"
	"github.com/nyayantar/nyaya-tui/internal/guest"
	"github.com/nyayantar/nyaya-tui/internal/logging"
	"github.com/nyayantar/nyaya-tui/internal/state"
	"github.com/nyayantar/nyaya-tui/internal/storage"
)

// Rig bundles the wired client stack. Every command builds one, uses
// what it needs, and closes it on the way out.
type Rig struct {
	Config    *config.Config
	Log       zerolog.Logger
	State     *state.Store
	Policy    *guest.Policy
	Manager   *auth.Manager
	Client    *api.Client
	Submitter *chat.Submitter
	Store     *storage.ConversationStore
}

// BuildRig loads configuration and wires the full client stack.
// Construction order matters: the manager must exist before the
// transport, and the client is bound back into the manager so the
// refresh interceptor can reach the auth endpoints.
func BuildRig(args Args, managerOpts ...auth.ManagerOption) (*Rig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnvOverrides()
	if args.Server != "" {
		cfg.Server.BaseURL = args.Server
	}
	if args.Verbose {
		cfg.Logging.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := config.EnsureDir(); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}

	log := logging.Setup(dir, cfg.Logging.Verbose)

	st, err := state.Open(filepath.Join(dir, "state.db"))
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	policy := guest.NewPolicy(guest.NewCounterStore(st, log))

	sessionPath, err := auth.DefaultSessionPath()
	if err != nil {
		st.Close()
		return nil, err
	}
	sessions := auth.NewSessionStore(sessionPath, log)

	// NewSubmitter registers the guest-counter reset on login; nothing
	// else hooks the manager here.
	opts := append([]auth.ManagerOption{auth.WithManagerLogger(log)}, managerOpts...)
	manager := auth.NewManager(nil, sessions, opts...)

	httpClient := &http.Client{
		Transport: auth.NewTransport(manager, nil),
		Timeout:   cfg.Server.Timeout(),
	}
	client := api.New(cfg.Server.BaseURL,
		api.WithHTTPClient(httpClient),
		api.WithTimeout(cfg.Server.Timeout()),
		api.WithMaxRetries(cfg.Server.MaxRetries),
		api.WithLogger(log),
	)
	manager.SetClient(client)
	manager.Hydrate()

	submitter := chat.NewSubmitter(client, manager, policy, log)

	// The store is always opened; Chat.SaveHistory only controls
	// whether chat sessions write to it.
	store, err := storage.NewConversationStore(st,
		storage.WithMaxConversations(cfg.Chat.MaxHistory),
		storage.WithStoreLogger(log),
	)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("open conversation store: %w", err)
	}

	return &Rig{
		Config:    cfg,
		Log:       log,
		State:     st,
		Policy:    policy,
		Manager:   manager,
		Client:    client,
		Submitter: submitter,
		Store:     store,
	}, nil
}

// Close releases the rig's resources.
func (r *Rig) Close() {
	if r.State != nil {
		r.State.Close()
	}
}
