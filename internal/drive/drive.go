// Package drive defines the remote file service surface: credentialed
// list/rename/delete/URL-retrieval over opaque file identifiers.
package drive

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// File is a read-only snapshot of a remote file or folder.
type File struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
}

// IsFolder reports whether the entry is a folder.
// Folder detection is by MIME type substring, matching the remote service's
// vendor MIME convention (e.g. "application/vnd.google-apps.folder").
func (f File) IsFolder() bool {
	return strings.Contains(f.MimeType, "folder")
}

// Sentinel errors returned by Service implementations.
var (
	ErrInvalidToken = errors.New("drive: invalid access token")
	ErrNotFound     = errors.New("drive: file not found")
)

// Service is the remote file service. Every call carries the caller's access
// credential; implementations validate it and never cache authorization.
type Service interface {
	// ListFiles returns all non-folder entries.
	ListFiles(ctx context.Context, token string) ([]File, error)

	// ListFolders returns all folder entries.
	ListFolders(ctx context.Context, token string) ([]File, error)

	// Rename changes the display name of the file identified by fileID.
	Rename(ctx context.Context, token, fileID, newName string) error

	// Delete permanently removes the file identified by fileID.
	Delete(ctx context.Context, token, fileID string) error

	// FileURL returns a shareable URL for the file identified by fileID.
	FileURL(ctx context.Context, token, fileID string) (string, error)
}

var (
	filePathIDRe = regexp.MustCompile(`/file/d/([^/?#]+)`)
	queryIDRe    = regexp.MustCompile(`[?&]id=([^&#]+)`)
)

// ExtractFileID pulls the opaque file ID out of a drive-style share URL.
// It understands the "/file/d/{id}/…" path form and the "?id={id}" query
// form. Returns "" when no ID can be found.
func ExtractFileID(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	if m := filePathIDRe.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	if m := queryIDRe.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return ""
}
