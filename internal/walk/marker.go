// Package walk implements the pre-indexing crawl (spec.md §4.3): a
// post-order list of paths that still need processing, respecting ignore
// rules and permission errors. Grounded on the teacher's internals/walk.go
// traversal and on original_source/sink/scripts.py's recursive_mark_crawl.
package walk

import (
	"os"
	"path/filepath"
)

// Marker produces the post-order work list for a single `add` run.
type Marker struct {
	// StorePath is excluded from traversal unconditionally (spec.md §3).
	StorePath string
	// IgnoreNames are exact basename matches to skip (e.g. the quarantine
	// directory, "$RECYCLE.BIN").
	IgnoreNames map[string]bool
	// FollowSymlinks controls whether a symlink is dereferenced before
	// classification. Default false (Open Question 3, resolved in
	// DESIGN.md): symlinks are treated as non-directories.
	FollowSymlinks bool

	existsFn func(path string) (bool, error)

	skipped []string
}

// NewMarker builds a Marker. existsFn reports whether path already has a
// completed record (wraps store.Store.Exists with status="completed").
func NewMarker(storePath string, ignoreNames []string, followSymlinks bool, existsFn func(path string) (bool, error)) *Marker {
	names := make(map[string]bool, len(ignoreNames))
	for _, n := range ignoreNames {
		names[n] = true
	}
	return &Marker{
		StorePath:      storePath,
		IgnoreNames:    names,
		FollowSymlinks: followSymlinks,
		existsFn:       existsFn,
	}
}

// Skipped returns the paths that were not descended into due to a
// permission error, in the order encountered.
func (m *Marker) Skipped() []string { return m.skipped }

// Mark walks root and returns the post-order list of paths requiring
// processing: children before their enclosing directory, so that by the
// time the indexing engine reaches a directory, every child already has a
// record (spec.md §4.3 rule 3).
func (m *Marker) Mark(root string) ([]string, error) {
	marked := make([]string, 0, 256)
	if err := m.mark(root, &marked); err != nil {
		return nil, err
	}
	return marked, nil
}

func (m *Marker) mark(path string, marked *[]string) error {
	if m.skip(path) {
		return nil
	}

	info, err := os.Lstat(path)
	if err != nil {
		// the path vanished between being enumerated by a parent and being
		// visited here; spec.md §4.3 rule 1 treats this as "does not exist".
		return nil
	}

	isDir := info.IsDir()
	if info.Mode()&os.ModeSymlink != 0 && m.FollowSymlinks {
		if target, err := os.Stat(path); err == nil {
			isDir = target.IsDir()
		}
	}

	if isDir {
		entries, err := os.ReadDir(path)
		if err != nil {
			if os.IsPermission(err) {
				m.skipped = append(m.skipped, path)
				return nil
			}
			return err
		}
		for _, entry := range entries {
			child := filepath.Join(path, entry.Name())
			if err := m.mark(child, marked); err != nil {
				return err
			}
		}
	}

	*marked = append(*marked, path)
	return nil
}

// skip implements spec.md §4.3 rule 1, including the "already completed"
// check via existsFn; a nil existsFn disables that check so paths are marked
// unconditionally (e.g. in tests).
func (m *Marker) skip(path string) bool {
	if m.StorePath != "" && samePath(path, m.StorePath) {
		return true
	}
	if m.IgnoreNames[filepath.Base(path)] {
		return true
	}
	if _, err := os.Lstat(path); err != nil {
		return true
	}
	if m.existsFn != nil {
		if exists, err := m.existsFn(path); err == nil && exists {
			return true
		}
	}
	return false
}

func samePath(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	if err1 != nil || err2 != nil {
		return a == b
	}
	return aa == bb
}
