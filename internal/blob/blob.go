package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"visitor-system-backend/internal/apperr"
)

// Store keeps binary content under opaque names.
type Store interface {
	Put(ctx context.Context, name string, r io.Reader) (int64, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Exists(ctx context.Context, name string) (bool, error)
	Remove(ctx context.Context, name string) error
}

// LocalStore is a Store backed by a single directory.
type LocalStore struct {
	root string
}

// NewLocalStore creates the directory if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", root, err)
	}
	return &LocalStore{root: root}, nil
}

// Root returns the backing directory.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", apperr.NewValidationError("filename", "invalid blob name")
	}
	return filepath.Join(s.root, name), nil
}

// Put writes r to name. The content becomes visible only after it is fully
// written; a failed write leaves nothing behind.
func (s *LocalStore) Put(ctx context.Context, name string, r io.Reader) (int64, error) {
	dst, err := s.path(name)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return 0, apperr.Storage("create temp file", err)
	}
	n, err := io.Copy(tmp, r)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, apperr.Storage("write "+name, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return 0, apperr.Storage("rename "+name, err)
	}
	return n, nil
}

// Open returns a reader for name. Missing blobs yield apperr.ErrNotFound.
func (s *LocalStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.NotFound("file", name)
	}
	if err != nil {
		return nil, apperr.Storage("open "+name, err)
	}
	return f, nil
}

// Exists reports whether name is stored.
func (s *LocalStore) Exists(_ context.Context, name string) (bool, error) {
	p, err := s.path(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, apperr.Storage("stat "+name, err)
}

// Remove deletes name. Removing a missing blob is not an error.
func (s *LocalStore) Remove(_ context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperr.Storage("remove "+name, err)
	}
	return nil
}
