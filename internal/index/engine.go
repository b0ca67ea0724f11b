// Package index implements the indexing engine (spec.md §4.4): for each
// marked path, in post-order, compute a PathRecord and upsert it into the
// store, consulting the store to skip already-known subtrees.
//
// Grounded on the teacher's internals/evaluate.go directory-hash combination
// and on original_source/sink/onestep.py & twostep.py's worker-pool design
// for parallel file hashing.
package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/meisterluk/dupescan/internal/digest"
	"github.com/meisterluk/dupescan/internal/store"
	"github.com/pkg/errors"
)

// Engine computes PathRecords for a marked list of paths and commits them
// to a Store.
type Engine struct {
	Store *store.Store
	Algo  digest.Algo

	// ChunkSize is the read granularity for file hashing; 0 selects
	// digest.DefaultChunkSize.
	ChunkSize int
	// Parallelism bounds the number of files hashed concurrently within a
	// single batch of siblings. 0 or 1 means sequential (spec.md §5).
	Parallelism int

	// ReportID is the report under which every upsert in this run is
	// recorded (spec.md §3).
	ReportID int64
}

// Process runs the engine over a post-order list of paths (as produced by
// walk.Marker.Mark), returning the number of paths that were successfully
// indexed. Per-path errors (I/O failures, unknown file kinds, missing
// children caused by an earlier sibling's failure) are logged and do not
// abort the run; a store-level error does (spec.md §7).
func (e *Engine) Process(ctx context.Context, marked []string) (int, error) {
	processed := 0
	i := 0
	for i < len(marked) {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		// batch consecutive file entries so they can be hashed concurrently;
		// a directory entry ends the batch, since it must wait for every
		// preceding file's commit (spec.md §5).
		batchStart := i
		for i < len(marked) && !isDirPath(marked[i]) {
			i++
		}
		n, err := e.processFileBatch(ctx, marked[batchStart:i])
		processed += n
		if err != nil {
			return processed, err
		}

		if i < len(marked) {
			if err := e.processOne(marked[i]); err != nil {
				if isRecoverable(err) {
					slog.Error("index: skipping path after error", "path", marked[i], "error", err)
				} else {
					return processed, err
				}
			} else {
				processed++
			}
			i++
		}
	}
	return processed, nil
}

func isDirPath(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.IsDir()
}

// processFileBatch hashes a run of sibling (non-directory) paths, bounded
// by Parallelism, and upserts each successfully hashed one.
func (e *Engine) processFileBatch(ctx context.Context, paths []string) (int, error) {
	if len(paths) == 0 {
		return 0, nil
	}

	workers := e.Parallelism
	if workers < 1 {
		workers = 1
	}

	var (
		mu        sync.Mutex
		processed int
		fatalErr  error
		wg        sync.WaitGroup
		sem       = make(chan struct{}, workers)
	)

	for _, p := range paths {
		p := p
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}
			if err := e.processOne(p); err != nil {
				if isRecoverable(err) {
					slog.Error("index: skipping path after error", "path", p, "error", err)
					return
				}
				slog.Error("index: fatal error processing path", "path", p, "error", err)
				mu.Lock()
				if fatalErr == nil {
					fatalErr = err
				}
				mu.Unlock()
				return
			}
			mu.Lock()
			processed++
			mu.Unlock()
		}()
	}
	wg.Wait()
	return processed, fatalErr
}

// processOne computes and upserts the record for a single path (spec.md
// §4.4).
func (e *Engine) processOne(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return errors.Wrapf(err, "index: stat %q", path)
	}

	switch {
	case info.Mode().IsRegular():
		return e.processFile(path, info)
	case info.IsDir():
		return e.processDir(path, info)
	case info.Mode()&os.ModeSymlink != 0:
		return e.processSymlink(path, info)
	default:
		return errors.Wrapf(ErrUnknownPathKind, "path %q (mode %s)", path, info.Mode())
	}
}

func (e *Engine) processFile(path string, info os.FileInfo) error {
	digestHex, err := digest.HashFile(e.Algo, path, e.ChunkSize)
	if err != nil {
		return errors.Wrapf(err, "index: hashing file %q", path)
	}

	rec := store.PathRecord{
		Path:     path,
		Digest:   digestHex,
		IsDir:    false,
		Count:    1,
		Size:     uint64(info.Size()),
		MTime:    mtimeSeconds(info),
		Status:   store.StatusCompleted,
		ReportID: e.ReportID,
	}
	return e.Store.Upsert(rec)
}

// processSymlink records a symlink as a non-directory leaf without
// dereferencing it (walk.Marker's default, spec.md §4.3 rule 4 / Open
// Question 3): the digest is taken over the link's target string, since
// that target is the symlink's only content-identifying data.
func (e *Engine) processSymlink(path string, info os.FileInfo) error {
	target, err := os.Readlink(path)
	if err != nil {
		return errors.Wrapf(err, "index: reading symlink %q", path)
	}

	rec := store.PathRecord{
		Path:     path,
		Digest:   digest.HashBytes(e.Algo, []byte(target)),
		IsDir:    false,
		Count:    1,
		Size:     uint64(len(target)),
		MTime:    mtimeSeconds(info),
		Status:   store.StatusCompleted,
		ReportID: e.ReportID,
	}
	return e.Store.Upsert(rec)
}

func (e *Engine) processDir(path string, info os.FileInfo) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return errors.Wrapf(err, "index: listing directory %q", path)
	}

	var (
		childDigests []string
		totalSize    uint64
		totalCount   uint64
	)
	storePath, _ := filepath.Abs(e.Store.Path())
	for _, entry := range entries {
		childPath := filepath.Join(path, entry.Name())
		if childPath == storePath {
			// the index file is never marked, so it has no record of its own.
			continue
		}
		child, ok, err := e.Store.Lookup(childPath, store.StatusCompleted)
		if err != nil {
			return errors.Wrapf(err, "index: looking up child %q", childPath)
		}
		if !ok {
			return errors.Wrapf(ErrMissingChild, "directory %q, child %q", path, childPath)
		}
		childDigests = append(childDigests, child.Digest)
		totalSize += child.Size
		totalCount += child.Count
	}

	var dirDigest string
	if len(childDigests) == 0 {
		dirDigest = digest.HashBytes(e.Algo, []byte(path))
	} else {
		dirDigest, err = digest.Combine(childDigests...)
		if err != nil {
			return errors.Wrapf(err, "index: combining children of %q", path)
		}
	}

	rec := store.PathRecord{
		Path:     path,
		Digest:   dirDigest,
		IsDir:    true,
		Count:    totalCount,
		Size:     totalSize,
		MTime:    mtimeSeconds(info),
		Status:   store.StatusCompleted,
		ReportID: e.ReportID,
	}
	return e.Store.Upsert(rec)
}

func mtimeSeconds(info os.FileInfo) float64 {
	t := info.ModTime()
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// isRecoverable reports whether err should be logged-and-skipped (per-file
// I/O error, unknown path kind, or a missing child caused by a sibling's
// earlier failure) rather than aborting the whole run. A store.Error (a
// database write/query failure) is never recoverable (spec.md §7).
func isRecoverable(err error) bool {
	var storeErr *store.Error
	return !errors.As(err, &storeErr)
}
