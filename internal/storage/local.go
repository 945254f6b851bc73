package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hirehub/apiserver/config"
)

// LocalClient stores objects as files under a root directory.
type LocalClient struct {
	root string
}

// NewLocalClient constructs a filesystem backend from config.
func NewLocalClient(cfg config.LocalStorageConfig) (*LocalClient, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("local storage path is required")
	}
	return &LocalClient{root: filepath.Clean(cfg.Path)}, nil
}

// EnsureBucket creates the root directory if needed.
func (l *LocalClient) EnsureBucket(ctx context.Context) error {
	return os.MkdirAll(l.root, 0o755)
}

// Put writes the object to a temporary file and renames it into place, so a
// failed write never leaves a partial object behind.
func (l *LocalClient) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	dst, err := l.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(l.root, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write object: %w", err)
	}
	if size >= 0 && written != size {
		return fmt.Errorf("write object: wrote %d of %d bytes", written, size)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.Rename(tmpName, dst)
}

// Delete removes the object.
func (l *LocalClient) Delete(ctx context.Context, key string) error {
	path, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrObjectNotFound
		}
		return err
	}
	return nil
}

// Bucket returns the root directory.
func (l *LocalClient) Bucket() string {
	return l.root
}

func (l *LocalClient) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(l.root, key), nil
}
