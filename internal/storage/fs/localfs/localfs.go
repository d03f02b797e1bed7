// Package localfs implements fs.FileSystem over the local POSIX filesystem
// using the standard library only. There is no idiomatic third-party
// wrapper for local file I/O in the retrieval pack or the wider ecosystem
// worth adding here; every example repo that touches local files (e.g.
// chycee-cryptoGo's internal/infra/paths.go) uses stdlib os/io directly.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	corefs "github.com/alanyoungcy/orderbookcore/internal/storage/fs"
)

// FileSystem roots all paths under a base directory.
type FileSystem struct {
	root string
}

// New creates a FileSystem rooted at root, creating the directory if
// needed.
func New(root string) (*FileSystem, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("localfs: create root %s: %w", root, err)
	}
	return &FileSystem{root: root}, nil
}

func (f *FileSystem) abs(path string) string {
	return filepath.Join(f.root, filepath.FromSlash(path))
}

// MkdirAll creates path (relative to root) and its parents.
func (f *FileSystem) MkdirAll(_ context.Context, path string) error {
	if err := os.MkdirAll(f.abs(path), 0o755); err != nil {
		return fmt.Errorf("localfs: mkdir %s: %w", path, err)
	}
	return nil
}

// Put writes data to path, creating parent directories as needed and
// replacing any existing content.
func (f *FileSystem) Put(_ context.Context, path string, data io.Reader) error {
	abs := f.abs(path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("localfs: mkdir for %s: %w", path, err)
	}
	file, err := os.Create(abs)
	if err != nil {
		return fmt.Errorf("localfs: create %s: %w", path, err)
	}
	defer file.Close()
	if _, err := io.Copy(file, data); err != nil {
		return fmt.Errorf("localfs: write %s: %w", path, err)
	}
	return nil
}

// Open opens path for reading.
func (f *FileSystem) Open(_ context.Context, path string) (io.ReadCloser, error) {
	file, err := os.Open(f.abs(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("localfs: open %s: %w", path, corefs.ErrNotFound)
		}
		return nil, fmt.Errorf("localfs: open %s: %w", path, err)
	}
	return file, nil
}

// ListRecursive walks prefix (relative to root) and returns file metadata.
// A missing prefix directory yields an empty slice, not an error.
func (f *FileSystem) ListRecursive(_ context.Context, prefix string) ([]corefs.Info, error) {
	root := f.abs(prefix)
	var out []corefs.Info

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		out = append(out, corefs.Info{
			Path:    filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("localfs: list %s: %w", prefix, err)
	}
	return out, nil
}

// Exists reports whether path refers to an existing file.
func (f *FileSystem) Exists(_ context.Context, path string) (bool, error) {
	info, err := os.Stat(f.abs(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("localfs: stat %s: %w", path, err)
	}
	return !info.IsDir(), nil
}

var _ corefs.FileSystem = (*FileSystem)(nil)
