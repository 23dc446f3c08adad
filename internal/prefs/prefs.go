// Package prefs persists the user's selected-folder preference.
package prefs

import (
	"os"
	"path/filepath"
	"strings"
)

// Store loads and saves a single preference string.
type Store interface {
	Load() (string, error)
	Save(value string) error
}

// FileStore keeps the preference in a plain file, written on every change.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed preference store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the stored preference. A missing file is not an error; it
// yields the empty preference.
func (s *FileStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes the preference, creating parent directories as needed.
func (s *FileStore) Save(value string) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, []byte(value), 0o644)
}

// Memory is an in-memory Store for tests and for running without a
// configured preference file.
type Memory struct {
	value string
}

// NewMemory creates an in-memory preference store.
func NewMemory() *Memory { return &Memory{} }

// Load returns the current value.
func (m *Memory) Load() (string, error) { return m.value, nil }

// Save replaces the current value.
func (m *Memory) Save(value string) error {
	m.value = value
	return nil
}
