// Package authguard gates protected views behind a remote-service
// credential check.
package authguard

import (
	"context"

	"go.uber.org/zap"

	"github.com/orgdesk/orgdesk/internal/drive"
	"github.com/orgdesk/orgdesk/internal/logging"
)

// State is the guard's lifecycle state.
type State int

// Guard states. Verifying exists only during the asynchronous check.
const (
	Unauthenticated State = iota
	Verifying
	Authorized
	Failed
)

// View is what the guard decides to render.
type View int

// Render decisions.
const (
	ViewConnectPrompt View = iota
	ViewError
	ViewChildren
)

// Validator is the credential check surface. drive.Service satisfies it.
type Validator interface {
	ListFiles(ctx context.Context, token string) ([]drive.File, error)
}

// Guard validates an access credential against the remote file service
// before admitting protected content. The credential is checked once; there
// is no revalidation on subsequent calls by the children.
type Guard struct {
	validator Validator

	state   State
	lastErr string
}

// New creates a guard.
func New(validator Validator) *Guard {
	return &Guard{validator: validator}
}

// Check runs the guard for the given credential and returns the render
// decision. An empty credential short-circuits to the connect prompt with
// zero validation calls.
func (g *Guard) Check(ctx context.Context, token string) View {
	if token == "" {
		g.state = Unauthenticated
		g.lastErr = ""
		return ViewConnectPrompt
	}

	g.state = Verifying
	if _, err := g.validator.ListFiles(ctx, token); err != nil {
		g.state = Failed
		g.lastErr = err.Error()
		logging.Warn("credential validation failed", zap.Error(err))
		return ViewError
	}

	g.state = Authorized
	g.lastErr = ""
	return ViewChildren
}

// State returns the current guard state.
func (g *Guard) State() State {
	return g.state
}

// Err returns the validation error message, or "" when none.
func (g *Guard) Err() string {
	return g.lastErr
}
