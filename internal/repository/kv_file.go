package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var validFileKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// FileKVRepositoryImpl stores each key as <dir>/<key>.json.
// Writes go to a temp file first and are renamed into place, so a crash
// mid-write leaves the previous value readable.
type FileKVRepositoryImpl struct {
	dir string
}

// NewFileKVRepository creates the directory if needed
func NewFileKVRepository(dir string) (*FileKVRepositoryImpl, error) {
	if dir == "" {
		return nil, fmt.Errorf("file kv: directory is empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("file kv: create %s: %w", dir, err)
	}
	return &FileKVRepositoryImpl{dir: dir}, nil
}

func (r *FileKVRepositoryImpl) path(key string) (string, error) {
	if !validFileKey.MatchString(key) {
		return "", fmt.Errorf("file kv: invalid key %q", key)
	}
	return filepath.Join(r.dir, key+".json"), nil
}

// Get returns nil, nil when the file does not exist
func (r *FileKVRepositoryImpl) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := r.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p) //nolint:gosec // path is built from a validated key
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("file kv: read %s: %w", key, err)
	}
	return data, nil
}

func (r *FileKVRepositoryImpl) Set(ctx context.Context, key string, value []byte) error {
	p, err := r.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(r.dir, filepath.Base(p)+".tmp-*")
	if err != nil {
		return fmt.Errorf("file kv: temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("file kv: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("file kv: close %s: %w", key, err)
	}
	if err := os.Rename(tmpPath, p); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("file kv: rename %s: %w", key, err)
	}
	return nil
}
