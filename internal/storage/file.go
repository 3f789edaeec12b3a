package storage

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
)

var _ Storage = (*FileStorage)(nil)

// FileStorage keeps one "<key>.json" file per key inside a directory.
// Writes go through a temporary file and rename, so a crash never leaves a
// half-written snapshot behind.
type FileStorage struct {
	dir string
}

// NewFileStorage returns a FileStorage rooted at dir, creating it with
// owner-only permissions if needed.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create state dir")
	}
	return &FileStorage{dir: dir}, nil
}

// Dir returns the storage directory.
func (s *FileStorage) Dir() string { return s.dir }

func (s *FileStorage) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return "", errors.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

// Get reads the value stored under key.
func (s *FileStorage) Get(key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "read")
	}
	return data, nil
}

// Set atomically replaces the value stored under key.
func (s *FileStorage) Set(key string, value []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(s.dir, "."+key+"-*")
	if err != nil {
		return errors.Wrap(err, "create temp")
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(value); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "write")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close")
	}
	if err := os.Rename(tmp, p); err != nil {
		return errors.Wrap(err, "rename")
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *FileStorage) Delete(key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "remove")
	}
	return nil
}
