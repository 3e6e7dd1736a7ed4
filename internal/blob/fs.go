package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FS stores blobs under a local directory. The web layer serves that
// directory, so the returned URL is baseURL + "/" + key. Intended for local
// development, not production.
type FS struct {
	dir     string
	baseURL string
}

var _ Store = (*FS)(nil)

// NewFS creates the root directory if needed.
func NewFS(dir, baseURL string) (*FS, error) {
	if dir == "" {
		dir = "blobs"
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &FS{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the root directory, for the web layer to serve.
func (f *FS) Dir() string { return f.dir }

func (f *FS) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}

	dst := filepath.Join(f.dir, clean)
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return "", fmt.Errorf("create key dirs: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".put-*")
	if err != nil {
		return "", fmt.Errorf("create temp blob: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("finalize blob: %w", err)
	}
	return f.baseURL + "/" + escapeKey(key), nil
}
