package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ImageStore persists downloaded course images under a relative key. The
// key is what gets recorded as the course's localImagePath.
type ImageStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
}

// FileImageStore writes images to disk under a base directory.
type FileImageStore struct {
	basePath string
}

// NewFileImageStore creates the base directory if missing.
func NewFileImageStore(basePath string) (*FileImageStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("image storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &FileImageStore{basePath: basePath}, nil
}

// Save writes an image file, creating intermediate directories as needed.
// Directory creation is idempotent so parallel sync workers never conflict.
func (f *FileImageStore) Save(_ context.Context, key string, data []byte, _ string) error {
	target := filepath.Join(f.basePath, filepath.FromSlash(safeKey(key)))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create image subdir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	return nil
}

func safeKey(key string) string {
	parts := strings.Split(key, "/")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || part == "." || part == ".." {
			continue
		}
		cleaned = append(cleaned, part)
	}
	if len(cleaned) == 0 {
		return "image"
	}
	return strings.Join(cleaned, "/")
}
