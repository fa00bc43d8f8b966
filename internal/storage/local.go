package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore writes uploads under a directory served statically at /uploads/
type LocalStore struct {
	root    string
	baseURL string
	now     func() time.Time
}

// NewLocalStore creates a store rooted at dir; baseURL is the server's public address
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &LocalStore{root: dir, baseURL: baseURL, now: time.Now}, nil
}

// Root returns the directory files are written to
func (s *LocalStore) Root() string {
	return s.root
}

// Save writes the upload to a temp file first and renames it into place
func (s *LocalStore) Save(ctx context.Context, up Upload) (string, error) {
	tmp, err := os.CreateTemp(s.root, ".incoming-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmpPath != "" {
			_ = os.Remove(tmpPath)
		}
	}()

	size, err := io.Copy(tmp, up.Body)
	if err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload: %w", err)
	}
	if size == 0 {
		return "", ErrEmptyFile
	}

	name := ObjectName(s.now(), up.Filename)
	if err := os.Rename(tmpPath, filepath.Join(s.root, name)); err != nil {
		return "", fmt.Errorf("failed to move upload: %w", err)
	}
	if err := os.Chmod(filepath.Join(s.root, name), 0o644); err != nil {
		return "", fmt.Errorf("failed to set upload permissions: %w", err)
	}
	tmpPath = ""

	return Prefix + "/" + name, nil
}

// URL returns the absolute URL for a stored reference
func (s *LocalStore) URL(ref string) string {
	return JoinURL(s.baseURL, ref)
}

// Delete removes the file behind ref
func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	name := filepath.Base(strings.TrimPrefix(ref, Prefix+"/"))
	if err := os.Remove(filepath.Join(s.root, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete upload: %w", err)
	}
	return nil
}
