package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DiskBlobs keeps blobs as plain files under a root directory, the way the
// upload endpoint historically dropped files into files/.
type DiskBlobs struct {
	root string
}

// NewDiskBlobs creates root if needed.
func NewDiskBlobs(root string) (*DiskBlobs, error) {
	if root == "" {
		return nil, errors.New("blob directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &DiskBlobs{root: root}, nil
}

// path maps a key to a file below root, rejecting anything that escapes it.
func (d *DiskBlobs) path(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	clean = strings.TrimPrefix(clean, string(filepath.Separator))
	if clean == "" || clean == "." {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(d.root, clean), nil
}

func (d *DiskBlobs) PutBlob(ctx context.Context, key string, r io.Reader) (int64, error) {
	dst, err := d.path(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}

	// Write next to the target and rename so readers never see half a file.
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return 0, err
	}
	return n, nil
}

func (d *DiskBlobs) OpenBlob(_ context.Context, key string) (io.ReadCloser, error) {
	src, err := d.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(src)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (d *DiskBlobs) DeleteBlob(_ context.Context, key string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
