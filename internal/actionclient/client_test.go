package actionclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/orgdesk/orgdesk/internal/api"
	"github.com/orgdesk/orgdesk/internal/drive"
)

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, req api.ActionRequest)) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/actions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req api.ActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		handler(w, req)
	}))
	t.Cleanup(srv.Close)

	c := New(Config{BaseURL: srv.URL, AuthToken: "jwt", AccessToken: "storage-token"})
	return srv, c
}

func TestListFilesRoundTrip(t *testing.T) {
	want := []drive.File{{ID: "f1", Name: "notes.txt", MimeType: "text/plain"}}

	_, c := newTestServer(t, func(w http.ResponseWriter, req api.ActionRequest) {
		if req.Action != api.ActionListFiles {
			t.Errorf("action = %q", req.Action)
		}
		if req.AccessToken != "storage-token" {
			t.Errorf("accessToken = %q", req.AccessToken)
		}
		json.NewEncoder(w).Encode(api.Envelope{Success: true, Data: want})
	})

	files, err := c.ListFiles(context.Background())
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 1 || files[0].ID != "f1" || files[0].Name != "notes.txt" {
		t.Errorf("files = %+v", files)
	}
}

func TestRenameSendsParams(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, req api.ActionRequest) {
		if req.FileID != "f1" || req.FileName != "renamed.txt" {
			t.Errorf("params = (%q, %q)", req.FileID, req.FileName)
		}
		json.NewEncoder(w).Encode(api.Envelope{Success: true})
	})

	if err := c.Rename(context.Background(), "f1", "renamed.txt"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
}

func TestFileURLReturnsURL(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, req api.ActionRequest) {
		json.NewEncoder(w).Encode(api.Envelope{Success: true, URL: "https://files.example/f1"})
	})

	url, err := c.FileURL(context.Background(), "f1")
	if err != nil {
		t.Fatalf("FileURL: %v", err)
	}
	if url != "https://files.example/f1" {
		t.Errorf("url = %q", url)
	}
}

func TestErrorEnvelopeMapsSentinels(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, drive.ErrInvalidToken},
		{"not found", http.StatusNotFound, drive.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c := newTestServer(t, func(w http.ResponseWriter, req api.ActionRequest) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(api.Envelope{Success: false, Message: tt.name})
			})

			err := c.Delete(context.Background(), "f1")
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidateEmptyTokenSkipsNetwork(t *testing.T) {
	called := false
	_, c := newTestServer(t, func(w http.ResponseWriter, req api.ActionRequest) {
		called = true
		json.NewEncoder(w).Encode(api.Envelope{Success: true})
	})

	err := c.Validate(context.Background(), "")
	if !errors.Is(err, drive.ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
	if called {
		t.Error("server was called for empty token")
	}
}
