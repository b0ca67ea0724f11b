// Package cluster implements the duplicate-cluster resolver (spec.md §4.5):
// given an indexed subtree, find the minimal set of nodes ("leaf cover")
// that surfaces every duplicated subtree at its shallowest point, then group
// those leaves into candidate duplicate groups.
//
// Grounded on the teacher's internals/find_duplicates.go "bubbling"
// algorithm (generalized here to a single-store, SQL-driven design) and on
// original_source/sink/scripts.py's find_path_duplicates, whose terminals
// map / recursive leaf crawl / candidate-group extraction this package
// follows closely.
package cluster

import (
	"os"
	"path/filepath"

	"github.com/meisterluk/dupescan/internal/dupescanerr"
	"github.com/meisterluk/dupescan/internal/store"
	"github.com/pkg/errors"
)

// Class is the classification of a Cluster's members (spec.md §4.5 step 2).
type Class int

const (
	// Reject means sizes disagree across members sharing a digest — a hash
	// collision (astronomically unlikely) or corrupted data; never treated
	// as a duplicate.
	Reject Class = iota
	// Maybe means sizes agree but basenames or mtimes differ.
	Maybe
	// Accept means size, basename, and mtime all agree across members.
	Accept
)

func (c Class) String() string {
	switch c {
	case Accept:
		return "accept"
	case Maybe:
		return "maybe"
	default:
		return "reject"
	}
}

// Cluster groups every record sharing one digest within the query subtree.
type Cluster struct {
	Digest  string
	Members []store.PathRecord
	Class   Class
}

// classify implements spec.md §4.5 step 2.
func classify(members []store.PathRecord) Class {
	if len(members) < 2 {
		return Reject
	}
	size := members[0].Size
	name := filepath.Base(members[0].Path)
	mtime := members[0].MTime
	sameSize, sameNameAndTime := true, true
	for _, m := range members[1:] {
		if m.Size != size {
			sameSize = false
		}
		if filepath.Base(m.Path) != name || m.MTime != mtime {
			sameNameAndTime = false
		}
	}
	if !sameSize {
		return Reject
	}
	if sameNameAndTime {
		return Accept
	}
	return Maybe
}

// FormClusters implements spec.md §4.5 step 1: bucket every duplicate record
// under base by digest, then classify each bucket.
func FormClusters(s *store.Store, base string) ([]Cluster, error) {
	byDigest := make(map[string][]store.PathRecord)
	order := make([]string, 0, 64)

	err := s.IterDuplicates(base, func(rec store.PathRecord) error {
		if _, ok := byDigest[rec.Digest]; !ok {
			order = append(order, rec.Digest)
		}
		byDigest[rec.Digest] = append(byDigest[rec.Digest], rec)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "cluster: forming clusters")
	}

	clusters := make([]Cluster, 0, len(order))
	for _, digest := range order {
		members := byDigest[digest]
		clusters = append(clusters, Cluster{
			Digest:  digest,
			Members: members,
			Class:   classify(members),
		})
	}
	return clusters, nil
}

// Result is the outcome of resolving duplicates under a base path.
type Result struct {
	Groups       [][]string
	OriginalSize uint64
	NewSize      uint64
}

// Reduction is the number of bytes reclaimable by keeping one copy of every
// candidate group.
func (r Result) Reduction() uint64 {
	if r.OriginalSize < r.NewSize {
		return 0
	}
	return r.OriginalSize - r.NewSize
}

// Resolve runs the full cluster-resolver pipeline (spec.md §4.5 steps 1-4)
// over base: cluster formation, classification, leaf cover, and candidate
// group extraction.
func Resolve(s *store.Store, base string) (Result, error) {
	clusters, err := FormClusters(s, base)
	if err != nil {
		return Result{}, err
	}

	terminals := make(map[string]string, 256)
	for _, c := range clusters {
		if c.Class == Reject {
			continue
		}
		for _, m := range c.Members {
			terminals[m.Path] = c.Digest
		}
	}

	baseRec, ok, err := s.Lookup(base, store.StatusCompleted)
	if err != nil {
		return Result{}, errors.Wrap(err, "cluster: looking up base")
	}
	if !ok {
		return Result{}, errors.Wrapf(dupescanerr.ErrNotFound, "cluster: base path %q (run `add` first)", base)
	}

	leaves, err := leafCover(base, terminals)
	if err != nil {
		return Result{}, errors.Wrap(err, "cluster: building leaf cover")
	}
	// the index file is excluded from traversal and has no record of its own.
	storePath, _ := filepath.Abs(s.Path())
	kept := leaves[:0]
	for _, leaf := range leaves {
		if leaf != storePath {
			kept = append(kept, leaf)
		}
	}
	leaves = kept

	groups, newSize, err := candidateGroups(s, leaves, terminals)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Groups:       groups,
		OriginalSize: baseRec.Size,
		NewSize:      newSize,
	}, nil
}

// leafCover implements spec.md §4.5 step 3: descend from base, stopping at
// any node that is a terminal (member of an accept/maybe cluster) or a
// regular file, yielding the smallest set of nodes that partitions base and
// surfaces every duplicated subtree at its shallowest point.
func leafCover(base string, terminals map[string]string) ([]string, error) {
	var leaves []string
	var recur func(path string) error
	recur = func(path string) error {
		info, err := os.Lstat(path)
		if err != nil {
			// vanished since indexing; nothing to cover here.
			return nil
		}
		if _, isTerminal := terminals[path]; isTerminal || !info.IsDir() {
			leaves = append(leaves, path)
			return nil
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return errors.Wrapf(err, "listing %q", path)
		}
		for _, entry := range entries {
			if err := recur(filepath.Join(path, entry.Name())); err != nil {
				return err
			}
		}
		return nil
	}
	if err := recur(base); err != nil {
		return nil, err
	}
	return leaves, nil
}

// candidateGroups implements spec.md §4.5 step 4: group leaves by digest,
// keep only groups of size >= 2, and compute the size of the subtree after
// deduplication (one copy per distinct digest among the leaves).
func candidateGroups(s *store.Store, leaves []string, terminals map[string]string) ([][]string, uint64, error) {
	byDigest := make(map[string][]string)
	order := make([]string, 0, len(leaves))

	var newSize uint64
	seenDigest := make(map[string]bool, len(leaves))

	for _, leaf := range leaves {
		digest, isDup := terminals[leaf]

		rec, ok, err := s.Lookup(leaf, store.StatusCompleted)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "cluster: looking up leaf %q", leaf)
		}
		if !ok {
			return nil, 0, errors.Wrapf(dupescanerr.ErrNotFound, "cluster: leaf %q", leaf)
		}

		if !isDup || !seenDigest[digest] {
			newSize += rec.Size
		}
		if isDup {
			seenDigest[digest] = true
			if _, ok := byDigest[digest]; !ok {
				order = append(order, digest)
			}
			byDigest[digest] = append(byDigest[digest], leaf)
		}
	}

	groups := make([][]string, 0, len(order))
	for _, digest := range order {
		if len(byDigest[digest]) >= 2 {
			groups = append(groups, byDigest[digest])
		}
	}
	return groups, newSize, nil
}
