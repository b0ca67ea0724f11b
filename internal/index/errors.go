package index

import (
	"github.com/meisterluk/dupescan/internal/dupescanerr"
	"github.com/pkg/errors"
)

// Sentinel errors matching the taxonomy in spec.md §7. ErrMissingChild wraps
// dupescanerr.ErrNotFound so callers can test against either the specific or
// the general sentinel with errors.Is.
var (
	// ErrMissingChild is raised when a directory's digest computation finds
	// a child without a completed record. Under correct post-order
	// traversal this cannot happen; it indicates corruption or a race.
	ErrMissingChild = errors.Wrap(dupescanerr.ErrNotFound, "index: missing-child: child lacks a completed record")
	// ErrUnknownPathKind is raised for filesystem nodes that are none of a
	// regular file, a directory, or a symlink (sockets, block devices, ...).
	ErrUnknownPathKind = errors.Wrap(dupescanerr.ErrUnknownPathKind, "index: unknown-path-kind")
)
