package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"glow/internal/core"
)

// File stores each snapshot as <dir>/<key>.json. Writes go to a temporary
// file in the same directory and are renamed into place, so readers never
// observe a half-written snapshot.
type File struct {
	dir string
}

func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(f.dir, key+".json"), nil
}

func (f *File) Read(_ context.Context, key string) ([]byte, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, unavailable("read", key, err)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("read", key, err)
	}
	return data, nil
}

func (f *File) Write(_ context.Context, key string, data []byte) error {
	path, err := f.path(key)
	if err != nil {
		return unavailable("write", key, err)
	}

	tmp, err := os.CreateTemp(f.dir, "."+key+".*.tmp")
	if err != nil {
		return unavailable("write", key, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return unavailable("write", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return unavailable("sync", key, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return unavailable("close", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return unavailable("rename", key, err)
	}
	return nil
}
