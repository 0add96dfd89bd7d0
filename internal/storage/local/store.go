package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/chainpipe/chainpipe/internal/storage"
)

// Store writes objects as files below a root directory.
type Store struct {
	root string
}

func New(root string) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("archive directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory %q: %w", root, err)
	}
	return &Store{root: root}, nil
}

func (s *Store) Put(ctx context.Context, key string, body io.Reader, _ int64, _ storage.PutOptions) (storage.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return storage.ObjectInfo{}, err
	}
	cleaned := path.Clean(strings.TrimPrefix(strings.TrimSpace(key), "/"))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return storage.ObjectInfo{}, fmt.Errorf("invalid object key: %q", key)
	}

	target := filepath.Join(s.root, filepath.FromSlash(cleaned))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("create directory for %q: %w", cleaned, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".partial-*")
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("create temp file for %q: %w", cleaned, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	written, err := io.Copy(tmp, body)
	if err != nil {
		_ = tmp.Close()
		return storage.ObjectInfo{}, fmt.Errorf("write %q: %w", cleaned, err)
	}
	if err := tmp.Close(); err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("close %q: %w", cleaned, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("rename %q: %w", cleaned, err)
	}
	return storage.ObjectInfo{Key: cleaned, Size: written}, nil
}
