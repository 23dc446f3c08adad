// Package filetable implements the file-management table controller: a
// filterable view over the remote file list that mediates user-initiated
// rename, delete and copy-URL operations through the server action layer.
package filetable

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/orgdesk/orgdesk/internal/drive"
	"github.com/orgdesk/orgdesk/internal/logging"
	"github.com/orgdesk/orgdesk/internal/prefs"
)

// Actions is the server action surface the controller drives.
type Actions interface {
	ListFiles(ctx context.Context) ([]drive.File, error)
	ListFolders(ctx context.Context) ([]drive.File, error)
	Rename(ctx context.Context, fileID, newName string) error
	Delete(ctx context.Context, fileID string) error
	FileURL(ctx context.Context, fileID string) (string, error)
}

// Filter selects which entries of the snapshot are visible.
type Filter string

// Filter values.
const (
	FilterAll     Filter = "all"
	FilterFiles   Filter = "files"
	FilterFolders Filter = "folders"
)

// copiedWindow is how long a row stays marked "copied" after a copy-URL.
const copiedWindow = 2000 * time.Millisecond

// Loading tracks in-flight request categories. The flags gate UI
// affordances; they are not a correctness mechanism.
type Loading struct {
	Files      bool
	Folders    bool
	Operations bool
}

// DeleteConfirm is the ephemeral delete-confirmation state.
type DeleteConfirm struct {
	IsOpen   bool
	FileID   string
	FileName string
}

// Controller coordinates the file table state. All mutating operations share
// one operations flag and one error slot; the most recent error wins.
type Controller struct {
	actions   Actions
	prefs     prefs.Store
	clipboard func(string) error
	prompt    func(currentName string) (string, bool)
	schedule  func(d time.Duration, f func())

	mu             sync.Mutex
	files          []drive.File
	folders        []drive.File
	filter         Filter
	loading        Loading
	opErr          string
	filesErr       string
	foldersErr     string
	confirm        DeleteConfirm
	copiedID       string
	copiedGen      uint64
	selectedFolder string
}

// Options configures a Controller.
type Options struct {
	Actions Actions
	Prefs   prefs.Store

	// Clipboard receives the shareable URL on copy-URL success.
	Clipboard func(string) error

	// Prompt collects a new name for rename. Returning ok=false cancels.
	Prompt func(currentName string) (string, bool)

	// Schedule defers f by d; defaults to time.AfterFunc. Injected by tests.
	Schedule func(d time.Duration, f func())
}

// New creates a controller and reads the persisted folder preference once.
func New(opts Options) *Controller {
	c := &Controller{
		actions:   opts.Actions,
		prefs:     opts.Prefs,
		clipboard: opts.Clipboard,
		prompt:    opts.Prompt,
		schedule:  opts.Schedule,
		filter:    FilterAll,
	}
	if c.prefs == nil {
		c.prefs = prefs.NewMemory()
	}
	if c.clipboard == nil {
		c.clipboard = func(string) error { return nil }
	}
	if c.prompt == nil {
		c.prompt = func(string) (string, bool) { return "", false }
	}
	if c.schedule == nil {
		c.schedule = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}
	if v, err := c.prefs.Load(); err == nil {
		c.selectedFolder = v
	}
	return c
}

// Load issues the two list fetches. Each updates its own loading flag and
// surfaces its own error; a failure in one never blocks the other.
func (c *Controller) Load(ctx context.Context) {
	c.mu.Lock()
	c.loading.Files = true
	c.loading.Folders = true
	c.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		files, err := c.actions.ListFiles(ctx)
		c.mu.Lock()
		defer c.mu.Unlock()
		c.loading.Files = false
		if err != nil {
			c.filesErr = errMessage(err)
			return
		}
		c.filesErr = ""
		c.files = files
	}()

	go func() {
		defer wg.Done()
		folders, err := c.actions.ListFolders(ctx)
		c.mu.Lock()
		defer c.mu.Unlock()
		c.loading.Folders = false
		if err != nil {
			c.foldersErr = errMessage(err)
			return
		}
		c.foldersErr = ""
		c.folders = folders
	}()

	wg.Wait()
}

// refetchFiles re-fetches the file list after a successful mutation.
// No optimistic updates: the snapshot always comes from the service.
func (c *Controller) refetchFiles(ctx context.Context) {
	c.mu.Lock()
	c.loading.Files = true
	c.mu.Unlock()

	files, err := c.actions.ListFiles(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading.Files = false
	if err != nil {
		c.filesErr = errMessage(err)
		return
	}
	c.filesErr = ""
	c.files = files
}

// SetFilter switches the view predicate. Pure recomputation; never touches
// the fetched snapshot and issues no network calls.
func (c *Controller) SetFilter(f Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch f {
	case FilterAll, FilterFiles, FilterFolders:
		c.filter = f
	}
}

// Visible returns the snapshot entries matching the current filter.
func (c *Controller) Visible() []drive.File {
	c.mu.Lock()
	defer c.mu.Unlock()

	all := make([]drive.File, 0, len(c.folders)+len(c.files))
	all = append(all, c.folders...)
	all = append(all, c.files...)

	switch c.filter {
	case FilterFiles:
		out := []drive.File{}
		for _, f := range all {
			if !f.IsFolder() {
				out = append(out, f)
			}
		}
		return out
	case FilterFolders:
		out := []drive.File{}
		for _, f := range all {
			if f.IsFolder() {
				out = append(out, f)
			}
		}
		return out
	default:
		return all
	}
}

// Rename collects a new name and renames the file. A missing fileID is a
// silent no-op. Empty or whitespace-only input is rejected before any
// network call. On success the file list is re-fetched exactly once.
func (c *Controller) Rename(ctx context.Context, fileID, currentName string) {
	if fileID == "" {
		return
	}

	newName, ok := c.prompt(currentName)
	if !ok {
		return
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		c.setOpError("name cannot be empty")
		return
	}

	c.beginOperation()
	err := c.actions.Rename(ctx, fileID, newName)
	c.endOperation(err)
	if err != nil {
		return
	}

	c.refetchFiles(ctx)
}

// RequestDelete opens the confirmation prompt for the target file. Nothing
// is deleted until ConfirmDelete.
func (c *Controller) RequestDelete(fileID, fileName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirm = DeleteConfirm{IsOpen: true, FileID: fileID, FileName: fileName}
}

// ConfirmDelete issues the delete for the pending confirmation. The
// confirmation state is always cleared afterward, success or failure.
func (c *Controller) ConfirmDelete(ctx context.Context) {
	c.mu.Lock()
	target := c.confirm
	c.mu.Unlock()

	if !target.IsOpen || target.FileID == "" {
		c.CancelDelete()
		return
	}

	c.beginOperation()
	err := c.actions.Delete(ctx, target.FileID)
	c.endOperation(err)
	c.CancelDelete()

	if err == nil {
		c.refetchFiles(ctx)
	}
}

// CancelDelete clears the confirmation state.
func (c *Controller) CancelDelete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirm = DeleteConfirm{}
}

// CopyURL fetches a shareable URL for the file and copies it to the
// clipboard. On success the row is marked "copied" for two seconds, then
// auto-reverts. On failure the clipboard is never touched.
func (c *Controller) CopyURL(ctx context.Context, fileID string) {
	c.beginOperation()
	url, err := c.actions.FileURL(ctx, fileID)
	if err == nil && url == "" {
		err = fmt.Errorf("no URL returned for file")
	}
	if err == nil {
		if cbErr := c.clipboard(url); cbErr != nil {
			err = fmt.Errorf("copy to clipboard: %w", cbErr)
		}
	}
	c.endOperation(err)
	if err != nil {
		return
	}

	c.mu.Lock()
	c.copiedID = fileID
	c.copiedGen++
	gen := c.copiedGen
	c.mu.Unlock()

	c.schedule(copiedWindow, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		// A newer copy owns the marker now
		if c.copiedGen == gen {
			c.copiedID = ""
		}
	})
}

// SelectFolder records the folder selection and persists it.
func (c *Controller) SelectFolder(folderID string) {
	c.mu.Lock()
	c.selectedFolder = folderID
	c.mu.Unlock()

	if err := c.prefs.Save(folderID); err != nil {
		logging.Warn("failed to persist folder preference", zap.Error(err))
	}
}

// SelectedFolder returns the current folder selection.
func (c *Controller) SelectedFolder() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedFolder
}

// Files returns the current file snapshot.
func (c *Controller) Files() []drive.File {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.files
}

// Folders returns the current folder snapshot.
func (c *Controller) Folders() []drive.File {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.folders
}

// LoadingState returns the current loading flags.
func (c *Controller) LoadingState() Loading {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Confirm returns the current delete-confirmation state.
func (c *Controller) Confirm() DeleteConfirm {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confirm
}

// Err returns the most recent operation error message, or "".
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opErr
}

// FilesErr returns the most recent file-list fetch error, or "".
func (c *Controller) FilesErr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filesErr
}

// FoldersErr returns the most recent folder-list fetch error, or "".
func (c *Controller) FoldersErr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.foldersErr
}

// CopiedID returns the ID of the row currently marked "copied", or "".
func (c *Controller) CopiedID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copiedID
}

func (c *Controller) beginOperation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading.Operations = true
}

func (c *Controller) endOperation(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading.Operations = false
	if err != nil {
		c.opErr = errMessage(err)
	} else {
		c.opErr = ""
	}
}

func (c *Controller) setOpError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opErr = msg
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
