package fs

import "errors"

// ErrNotFound is returned (wrapped) by Open when path does not exist.
var ErrNotFound = errors.New("fs: not found")
