package source

import "errors"

var (
	// ErrNoContent indicates the source root holds no content files (assets alone do not count).
	ErrNoContent = errors.New("no content files found")

	// ErrRootNotDirectory indicates the source root exists but is not a directory.
	ErrRootNotDirectory = errors.New("source root is not a directory")
)
