package authguard

import (
	"context"
	"errors"
	"testing"

	"github.com/orgdesk/orgdesk/internal/drive"
)

type fakeValidator struct {
	calls int
	err   error
}

func (f *fakeValidator) ListFiles(ctx context.Context, token string) ([]drive.File, error) {
	f.calls++
	return nil, f.err
}

func TestEmptyTokenRendersConnectPromptWithoutValidation(t *testing.T) {
	v := &fakeValidator{}
	g := New(v)

	view := g.Check(context.Background(), "")

	if view != ViewConnectPrompt {
		t.Errorf("expected connect prompt, got %v", view)
	}
	if v.calls != 0 {
		t.Errorf("empty token must issue zero validation calls, got %d", v.calls)
	}
	if g.State() != Unauthenticated {
		t.Errorf("expected Unauthenticated, got %v", g.State())
	}
}

func TestFailedValidationRendersErrorNotChildren(t *testing.T) {
	v := &fakeValidator{err: errors.New("token expired")}
	g := New(v)

	view := g.Check(context.Background(), "some-token")

	if view != ViewError {
		t.Errorf("expected error view, got %v", view)
	}
	if g.State() != Failed {
		t.Errorf("expected Failed, got %v", g.State())
	}
	if g.Err() == "" {
		t.Error("expected validation error to be recorded")
	}
	if v.calls != 1 {
		t.Errorf("expected exactly 1 validation call, got %d", v.calls)
	}
}

func TestValidTokenAdmitsChildren(t *testing.T) {
	v := &fakeValidator{}
	g := New(v)

	view := g.Check(context.Background(), "good-token")

	if view != ViewChildren {
		t.Errorf("expected children, got %v", view)
	}
	if g.State() != Authorized {
		t.Errorf("expected Authorized, got %v", g.State())
	}
	if g.Err() != "" {
		t.Errorf("expected no error, got %q", g.Err())
	}
}

func TestRetryAfterFailure(t *testing.T) {
	v := &fakeValidator{err: errors.New("transient")}
	g := New(v)

	if got := g.Check(context.Background(), "tok"); got != ViewError {
		t.Fatalf("expected error view, got %v", got)
	}

	// User-triggered retry succeeds once the service recovers
	v.err = nil
	if got := g.Check(context.Background(), "tok"); got != ViewChildren {
		t.Errorf("retry should admit children, got %v", got)
	}
	if g.Err() != "" {
		t.Errorf("error should be cleared on success, got %q", g.Err())
	}
}
