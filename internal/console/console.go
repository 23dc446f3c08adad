// Package console assembles the client side of the admin console: the
// action client, the credential guard and the file table controller.
package console

import (
	"context"
	"fmt"
	"time"

	"github.com/orgdesk/orgdesk/internal/actionclient"
	"github.com/orgdesk/orgdesk/internal/authguard"
	"github.com/orgdesk/orgdesk/internal/filetable"
	"github.com/orgdesk/orgdesk/internal/prefs"
)

// Config holds client configuration.
type Config struct {
	ServerURL   string
	AuthToken   string
	AccessToken string

	// PrefsPath is the file holding the selected-folder preference.
	// Empty keeps the preference in memory only.
	PrefsPath string

	Timeout time.Duration

	// Clipboard receives shareable URLs on copy. Defaults to a no-op.
	Clipboard func(string) error

	// Prompt collects a new name for rename. Defaults to cancel.
	Prompt func(currentName string) (string, bool)
}

// Core is the wired client stack.
type Core struct {
	Client *actionclient.Client
	Guard  *authguard.Guard
	Table  *filetable.Controller

	accessToken string
}

// New wires the client stack for the given server.
func New(cfg Config) (*Core, error) {
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("server URL required")
	}

	client := actionclient.New(actionclient.Config{
		BaseURL:     cfg.ServerURL,
		Timeout:     cfg.Timeout,
		AuthToken:   cfg.AuthToken,
		AccessToken: cfg.AccessToken,
	})

	var store prefs.Store
	if cfg.PrefsPath != "" {
		store = prefs.NewFileStore(cfg.PrefsPath)
	} else {
		store = prefs.NewMemory()
	}

	table := filetable.New(filetable.Options{
		Actions:   client,
		Prefs:     store,
		Clipboard: cfg.Clipboard,
		Prompt:    cfg.Prompt,
	})

	return &Core{
		Client:      client,
		Guard:       authguard.New(client.Validator()),
		Table:       table,
		accessToken: cfg.AccessToken,
	}, nil
}

// Start validates the storage credential and, once admitted, loads the file
// table. Returns an error when the guard does not admit.
func (c *Core) Start(ctx context.Context) error {
	switch c.Guard.Check(ctx, c.accessToken) {
	case authguard.ViewConnectPrompt:
		return fmt.Errorf("no access token configured")
	case authguard.ViewError:
		return fmt.Errorf("credential validation failed: %s", c.Guard.Err())
	}

	c.Table.Load(ctx)
	return nil
}
