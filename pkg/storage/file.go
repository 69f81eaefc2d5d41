package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const fileExt = ".inkboard"

// FileStore keeps one file per document in a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ioError(dir, fmt.Errorf("failed to create store directory: %w", err))
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, id+fileExt), nil
}

// Save writes to a temporary file and renames it over the target so a crash
// never leaves a half-written document.
func (s *FileStore) Save(_ context.Context, id string, data []byte) error {
	p, err := s.path(id)
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(s.dir, "."+id+"-*.tmp")
	if err != nil {
		return ioError(id, fmt.Errorf("failed to create temp file: %w", err))
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return ioError(id, fmt.Errorf("failed to write: %w", err))
	}
	if err := f.Close(); err != nil {
		return ioError(id, fmt.Errorf("failed to close: %w", err))
	}
	if err := os.Rename(f.Name(), p); err != nil {
		return ioError(id, fmt.Errorf("failed to rename: %w", err))
	}
	return nil
}

func (s *FileStore) Load(_ context.Context, id string) ([]byte, error) {
	p, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(id)
	} else if err != nil {
		return nil, ioError(id, err)
	}
	return data, nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	p, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); errors.Is(err, fs.ErrNotExist) {
		return notFound(id)
	} else if err != nil {
		return ioError(id, err)
	}
	return nil
}

func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, ioError(s.dir, err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FileStore) Exists(_ context.Context, id string) (bool, error) {
	p, err := s.path(id)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, ioError(id, err)
	}
	return true, nil
}

func (s *FileStore) Close() error {
	return nil
}
