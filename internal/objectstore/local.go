package objectstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Local serves objects from a directory on disk. Used for development
// and tests, where provisioning a bucket is overkill.
type Local struct {
	dir string
}

// NewLocal creates a directory-backed store rooted at dir.
func NewLocal(dir string) (*Local, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("object store directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("object store path %q is not a directory", dir)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.Join(l.dir, key))
	if !strings.HasPrefix(clean, filepath.Clean(l.dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("object key %q escapes store root", key)
	}
	return clean, nil
}

// Fetch returns the contents of the file stored under key.
func (l *Local) Fetch(_ context.Context, key string) ([]byte, error) {
	path, err := l.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read object %q: %w", key, err)
	}
	return data, nil
}

// Download copies the file stored under key to destPath.
func (l *Local) Download(ctx context.Context, key, destPath string) error {
	data, err := l.Fetch(ctx, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}
	if err := os.WriteFile(destPath, data, 0644); err != nil {
		return fmt.Errorf("write object %q to %q: %w", key, destPath, err)
	}
	return nil
}
