package tokenstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store holds a single opaque credential string. Set and Clear are durable
// before they return so a restarted process always sees the latest value.
type Store interface {
	Get() string
	Set(value string) error
	Clear() error
}

// FileStore persists one token per file (0600) with atomic replacement.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by <dir>/<name>. Distinct names give
// independently keyed stores; the onboarding session token and the admin
// bearer token must never share one.
func NewFileStore(dir, name string) (*FileStore, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("token name required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("mkdir token dir: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, name)}, nil
}

// DefaultDir resolves the per-user token directory.
func DefaultDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "bluecone-console"), nil
}

// Get returns the stored token, or "" when absent or unreadable.
func (s *FileStore) Get() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (s *FileStore) Set(value string) error {
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strings.TrimSpace(value)+"\n"), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// MemStore is an in-memory Store for tests and throwaway sessions.
type MemStore struct {
	value string
}

func NewMemStore(value string) *MemStore { return &MemStore{value: value} }

func (s *MemStore) Get() string { return s.value }

func (s *MemStore) Set(value string) error {
	s.value = strings.TrimSpace(value)
	return nil
}

func (s *MemStore) Clear() error {
	s.value = ""
	return nil
}
