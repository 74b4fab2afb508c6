package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// FileStorage keeps workbooks in a local directory.
type FileStorage struct {
	root   string
	logger *zap.Logger
}

func NewFile(root string, logger *zap.Logger) (*FileStorage, error) {
	if root == "" {
		root = "."
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStorage{root: root, logger: logger}, nil
}

// Store writes the object through a temporary file so readers never see a
// partial workbook.
func (f *FileStorage) Store(ctx context.Context, r io.Reader, key string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	path := f.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Object{}, fmt.Errorf("failed to store file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("failed to store file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return Object{}, fmt.Errorf("failed to store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Object{}, fmt.Errorf("failed to store file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Object{}, fmt.Errorf("failed to store file: %w", err)
	}

	f.logger.Info("stored object", zap.String("path", path))
	return Object{Bucket: f.root, Key: key}, nil
}

func (f *FileStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, f.path(key))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return file, nil
}

// path keeps every key, absolute ones included, under root.
func (f *FileStorage) path(key string) string {
	return filepath.Join(f.root, filepath.Clean("/"+key))
}
