// Package fs defines the directory-and-file abstraction the columnar
// repository is built on (spec §6.1), with local POSIX and S3-compatible
// object-store backends in the localfs and s3fs subpackages.
package fs

import (
	"context"
	"io"
	"time"
)

// Info describes one entry returned by ListRecursive.
type Info struct {
	Path    string
	Size    int64
	IsDir   bool
	ModTime time.Time
}

// FileSystem is the storage-backend abstraction the columnar repository
// writes to and reads from. Implementations must distinguish file,
// directory, and not-found outcomes: MkdirAll is idempotent, Open returns
// ErrNotFound (wrapped with domain.ErrIO semantics by callers) when the
// path does not exist, and ListRecursive returns an empty slice — not an
// error — when the prefix has no entries yet.
type FileSystem interface {
	// MkdirAll ensures path exists as a directory, creating parents as
	// needed. A no-op for backends with no real directory concept (e.g. S3).
	MkdirAll(ctx context.Context, path string) error

	// Put writes data to path, replacing any existing content.
	Put(ctx context.Context, path string, data io.Reader) error

	// Open opens path for reading. The caller must close the returned
	// reader. Returns an error satisfying errors.Is(err, ErrNotFound) if the
	// path does not exist.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// ListRecursive returns metadata for every file (not directory) under
	// prefix, recursively. Returns an empty slice if prefix has no entries.
	ListRecursive(ctx context.Context, prefix string) ([]Info, error)

	// Exists reports whether path refers to an existing file.
	Exists(ctx context.Context, path string) (bool, error)
}
