// Package storage persists uploaded brand assets on the local filesystem.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store writes uploads under a base directory. Filenames are randomly
// generated and never reused, so concurrent writers need no locking.
type Store struct {
	baseDir string
}

// NewStore ensures the base directory exists and returns a Store.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("platform/storage: mkdir %s: %w", baseDir, err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Save streams the reader to a new file and returns the stored filename.
// The original name contributes only its extension.
func (s *Store) Save(originalName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	name := uuid.NewString() + ext
	path := filepath.Join(s.baseDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("platform/storage: create: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("platform/storage: write: %w", err)
	}
	return name, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *Store) Remove(name string) error {
	if name == "" || strings.Contains(name, "..") || strings.ContainsRune(name, filepath.Separator) {
		return nil
	}
	err := os.Remove(filepath.Join(s.baseDir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("platform/storage: remove: %w", err)
	}
	return nil
}
