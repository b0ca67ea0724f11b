// Package dupescanerr collects the sentinel errors shared across dupescan's
// packages, matching the taxonomy in spec.md §7. Package boundaries wrap
// these with github.com/pkg/errors so a top-level `%+v` log line carries a
// stack trace back to the failing call, the same pattern the
// mutagen-io/mutagen example uses for its own error wrapping.
package dupescanerr

import "github.com/pkg/errors"

var (
	// ErrNotFound means a path has no record where one was required: a
	// directory's child lacks a completed record, or a `dedupe`/`quarantine`
	// base path was never indexed.
	ErrNotFound = errors.New("dupescan: not found")
	// ErrPermissionDenied means a directory could not be listed while
	// marking; recorded in the skipped list, traversal continues.
	ErrPermissionDenied = errors.New("dupescan: permission denied")
	// ErrUnknownPathKind means a filesystem node is neither a regular file
	// nor a directory (socket, device, ...).
	ErrUnknownPathKind = errors.New("dupescan: unknown path kind")
	// ErrIO means a read failed while hashing a file.
	ErrIO = errors.New("dupescan: I/O error")
	// ErrUserAbort means an interactive confirmation was declined.
	ErrUserAbort = errors.New("dupescan: aborted by user")
)
