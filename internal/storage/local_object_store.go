package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type LocalObjectStore struct {
	baseDir string
}

var _ ObjectStore = (*LocalObjectStore)(nil)

func NewLocalObjectStore(dir string) (*LocalObjectStore, error) {
	baseDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for %s: %w", dir, err)
	}

	if err := os.MkdirAll(baseDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", baseDir, err)
	}

	return &LocalObjectStore{baseDir: baseDir}, nil
}

func (s *LocalObjectStore) fullPath(key string) string {
	return filepath.Join(s.baseDir, key)
}

func (s *LocalObjectStore) PutObject(ctx context.Context, key string, data io.Reader) error {
	path := s.fullPath(key)
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directory for %s/%s: %w", s.baseDir, key, err)
	}

	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s/%s: %w", s.baseDir, key, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, data); err != nil {
		return fmt.Errorf("failed to write file %s/%s: %w", s.baseDir, key, err)
	}

	return nil
}

func (s *LocalObjectStore) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	file, err := os.Open(s.fullPath(key))
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s/%s: %w", s.baseDir, key, err)
	}
	return file, nil
}

func (s *LocalObjectStore) DeleteObjects(ctx context.Context, prefix string) error {
	if err := os.RemoveAll(s.fullPath(prefix)); err != nil {
		return fmt.Errorf("failed to delete objects in %s/%s: %w", s.baseDir, prefix, err)
	}
	return nil
}

func (s *LocalObjectStore) LocalPath(ctx context.Context, key string) (string, error) {
	path := s.fullPath(key)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("object %s not found in %s: %w", key, s.baseDir, err)
	}
	return path, nil
}
