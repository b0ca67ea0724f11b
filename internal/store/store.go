// Package store implements the persistent index: a transactional key-value
// mapping path -> PathRecord backed by a single-file SQLite database
// (spec.md §4.2, §6).
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Error wraps a database failure (write, commit, or query) so callers can
// distinguish it from recoverable per-path errors with errors.As. It
// corresponds to the StoreError category in spec.md §7: propagated to the
// caller unchanged, since SQLite commits are atomic and leave no partial
// state to clean up.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// Store is the durable index. All writes are serialized through a single
// mutex; SQLite itself only allows one writer at a time, so this simply
// avoids "database is locked" retries under concurrent hashing (spec.md §5).
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

func openRaw(dbPath string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal=WAL&_timeout=5000&_fk=true", dbPath)
	return sql.Open("sqlite3", dsn)
}

// Open creates or opens the index store at dbPath, applying any pending
// schema migrations. Callers must Close the returned Store.
func Open(dbPath string) (*Store, error) {
	if err := runMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := openRaw(dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "store: opening database")
	}
	// a single connection keeps writer serialization trivial and matches
	// SQLite's own single-writer model.
	db.SetMaxOpenConns(1)

	return &Store{db: db, path: dbPath}, nil
}

// Path returns the filesystem path of the backing database file, so callers
// (the marker) can exclude it from traversal (spec.md §3).
func (s *Store) Path() string { return s.path }

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewReport inserts a new report row and returns its id (spec.md §4.2).
func (s *Store) NewReport(description string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var desc sql.NullString
	if description != "" {
		desc = sql.NullString{String: description, Valid: true}
	}

	res, err := s.db.Exec(`INSERT INTO reports (created_at, description) VALUES (?, ?)`,
		time.Now().UTC(), desc)
	if err != nil {
		return 0, wrapStoreErr("creating report", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapStoreErr("reading new report id", err)
	}
	slog.Debug("store: created report", "report_id", id, "description", description)
	return id, nil
}

// Exists reports whether path has a record with the given status.
func (s *Store) Exists(path string, status Status) (bool, error) {
	var n int
	row := s.db.QueryRow(`SELECT COUNT(1) FROM files WHERE path = ? AND status = ?`, path, status)
	if err := row.Scan(&n); err != nil {
		return false, wrapStoreErr("checking existence", err)
	}
	return n > 0, nil
}

// Lookup returns the record for path under the given status, or ok=false if
// absent.
func (s *Store) Lookup(path string, status Status) (rec PathRecord, ok bool, err error) {
	row := s.db.QueryRow(`
		SELECT path, hash, is_dir, filecount, filesize, modification_time, status, report
		FROM files WHERE path = ? AND status = ?`, path, status)

	var isDir int
	if err = row.Scan(&rec.Path, &rec.Digest, &isDir, &rec.Count, &rec.Size, &rec.MTime, &rec.Status, &rec.ReportID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PathRecord{}, false, nil
		}
		return PathRecord{}, false, wrapStoreErr("looking up path", err)
	}
	rec.IsDir = isDir != 0
	return rec, true, nil
}

// Upsert inserts or replaces the record for rec.Path, committing
// immediately so the store survives a crash between upserts (spec.md §5).
func (s *Store) Upsert(rec PathRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO files (path, report, status, hash, is_dir, filecount, filesize, modification_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Path, rec.ReportID, rec.Status, rec.Digest, boolToInt(rec.IsDir), rec.Count, rec.Size, rec.MTime)
	if err != nil {
		return wrapStoreErr("upserting path", err)
	}
	return nil
}

// IterAll streams every record whose path begins with rootPrefix (all
// records if rootPrefix is empty), under the given status, calling fn for
// each. Iteration stops at the first error fn returns.
func (s *Store) IterAll(rootPrefix string, status Status, fn func(PathRecord) error) error {
	query := `SELECT path, hash, is_dir, filecount, filesize, modification_time, status, report
		FROM files WHERE status = ?`
	args := []any{status}
	if rootPrefix != "" {
		query += ` AND path LIKE ? ESCAPE '\'`
		args = append(args, likePrefix(rootPrefix))
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return wrapStoreErr("iterating records", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec PathRecord
		var isDir int
		if err := rows.Scan(&rec.Path, &rec.Digest, &isDir, &rec.Count, &rec.Size, &rec.MTime, &rec.Status, &rec.ReportID); err != nil {
			return wrapStoreErr("scanning record", err)
		}
		rec.IsDir = isDir != 0
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// IterDuplicates streams every record (optionally restricted to rootPrefix)
// whose digest appears at least twice among records with size > 0, calling
// fn for each (spec.md §4.2). The size > 0 filter suppresses the enormous
// equivalence class of empty files and directories.
func (s *Store) IterDuplicates(rootPrefix string, fn func(PathRecord) error) error {
	query := `
		SELECT path, hash, is_dir, filecount, filesize, modification_time, status, report
		FROM files
		WHERE status = ? AND filesize > 0 AND hash IN (
			SELECT hash FROM files WHERE status = ? AND filesize > 0`
	args := []any{StatusCompleted, StatusCompleted}
	if rootPrefix != "" {
		query += ` AND path LIKE ? ESCAPE '\'`
		args = append(args, likePrefix(rootPrefix))
	}
	query += ` GROUP BY hash HAVING COUNT(1) >= 2)`
	if rootPrefix != "" {
		query += ` AND path LIKE ? ESCAPE '\'`
		args = append(args, likePrefix(rootPrefix))
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return wrapStoreErr("iterating duplicates", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec PathRecord
		var isDir int
		if err := rows.Scan(&rec.Path, &rec.Digest, &isDir, &rec.Count, &rec.Size, &rec.MTime, &rec.Status, &rec.ReportID); err != nil {
			return wrapStoreErr("scanning duplicate record", err)
		}
		rec.IsDir = isDir != 0
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// likePrefix escapes SQLite LIKE metacharacters in an otherwise literal
// prefix and appends the wildcard.
func likePrefix(prefix string) string {
	escaped := make([]byte, 0, len(prefix)+1)
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		if c == '%' || c == '_' || c == '\\' {
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, c)
	}
	return string(escaped) + "%"
}
