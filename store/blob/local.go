// Package blob stores uploaded attachments on the local filesystem. Files
// are written under a root directory with generated names; the returned URL
// is the path the HTTP layer serves them from.
package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/warp/billing-engine/store"
)

type Local struct {
	root string
}

// NewLocal creates the root directory if needed.
func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Local{root: root}, nil
}

func (l *Local) Upload(ctx context.Context, name string, r io.Reader) (store.BlobRef, error) {
	if err := ctx.Err(); err != nil {
		return store.BlobRef{}, err
	}

	// Keep the extension so served files get a sensible content type.
	stored := uuid.NewString() + filepath.Ext(name)
	full := filepath.Join(l.root, stored)

	f, err := os.Create(full)
	if err != nil {
		return store.BlobRef{}, fmt.Errorf("create blob: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(full)
		return store.BlobRef{}, fmt.Errorf("write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return store.BlobRef{}, fmt.Errorf("close blob: %w", err)
	}

	return store.BlobRef{URL: "/blobs/" + stored, Path: stored}, nil
}

func (l *Local) Delete(_ context.Context, path string) error {
	// Reject anything that could escape the root.
	if filepath.Base(path) != path {
		return fmt.Errorf("invalid blob path %q", path)
	}
	err := os.Remove(filepath.Join(l.root, path))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// Root returns the directory served at /blobs/.
func (l *Local) Root() string {
	return l.root
}
