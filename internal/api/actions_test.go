package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/orgdesk/orgdesk/internal/drive"
)

type fakeDrive struct {
	files   []drive.File
	folders []drive.File
	url     string
	err     error

	renameCalls int
	deleteCalls int
	lastToken   string
	lastFileID  string
	lastName    string
}

func (f *fakeDrive) ListFiles(ctx context.Context, token string) ([]drive.File, error) {
	f.lastToken = token
	return f.files, f.err
}

func (f *fakeDrive) ListFolders(ctx context.Context, token string) ([]drive.File, error) {
	f.lastToken = token
	return f.folders, f.err
}

func (f *fakeDrive) Rename(ctx context.Context, token, fileID, newName string) error {
	f.renameCalls++
	f.lastToken, f.lastFileID, f.lastName = token, fileID, newName
	return f.err
}

func (f *fakeDrive) Delete(ctx context.Context, token, fileID string) error {
	f.deleteCalls++
	f.lastToken, f.lastFileID = token, fileID
	return f.err
}

func (f *fakeDrive) FileURL(ctx context.Context, token, fileID string) (string, error) {
	f.lastToken, f.lastFileID = token, fileID
	return f.url, f.err
}

func doAction(t *testing.T, srv *Server, body string) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/actions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.handleAction(rec, req)

	var env Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rec, env
}

func TestActionListFiles(t *testing.T) {
	fd := &fakeDrive{files: []drive.File{{ID: "a", Name: "report.pdf", MimeType: "application/pdf"}}}
	srv := NewServer(fd, nil, nil)

	rec, env := doAction(t, srv, `{"action":"listFiles","accessToken":"tok"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !env.Success {
		t.Fatalf("success = false, message %q", env.Message)
	}
	if fd.lastToken != "tok" {
		t.Errorf("token forwarded = %q, want %q", fd.lastToken, "tok")
	}
}

func TestActionMissingTokenRejected(t *testing.T) {
	fd := &fakeDrive{}
	srv := NewServer(fd, nil, nil)

	rec, env := doAction(t, srv, `{"action":"listFiles"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if env.Success {
		t.Error("success = true for missing token")
	}
}

func TestActionRenameRequiresParams(t *testing.T) {
	fd := &fakeDrive{}
	srv := NewServer(fd, nil, nil)

	rec, _ := doAction(t, srv, `{"action":"rename","accessToken":"tok","fileId":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if fd.renameCalls != 0 {
		t.Errorf("rename calls = %d, want 0", fd.renameCalls)
	}
}

func TestActionRenameForwardsParams(t *testing.T) {
	fd := &fakeDrive{}
	srv := NewServer(fd, nil, nil)

	rec, env := doAction(t, srv, `{"action":"rename","accessToken":"tok","fileId":"x","fileName":"new.txt"}`)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("status = %d, success = %v", rec.Code, env.Success)
	}
	if fd.lastFileID != "x" || fd.lastName != "new.txt" {
		t.Errorf("forwarded (%q, %q), want (x, new.txt)", fd.lastFileID, fd.lastName)
	}
}

func TestActionGetURL(t *testing.T) {
	fd := &fakeDrive{url: "https://files.example/abc?sig=1"}
	srv := NewServer(fd, nil, nil)

	rec, env := doAction(t, srv, `{"action":"getUrl","accessToken":"tok","fileId":"abc"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if env.URL != fd.url {
		t.Errorf("url = %q, want %q", env.URL, fd.url)
	}
}

func TestActionUnknownRejected(t *testing.T) {
	srv := NewServer(&fakeDrive{}, nil, nil)

	rec, env := doAction(t, srv, `{"action":"format","accessToken":"tok"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.Success {
		t.Error("success = true for unknown action")
	}
}

func TestActionErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid token", drive.ErrInvalidToken, http.StatusUnauthorized},
		{"not found", drive.ErrNotFound, http.StatusNotFound},
		{"other", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(&fakeDrive{err: tt.err}, nil, nil)
			rec, env := doAction(t, srv, `{"action":"delete","accessToken":"tok","fileId":"x"}`)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if env.Success {
				t.Error("success = true on error")
			}
		})
	}
}
