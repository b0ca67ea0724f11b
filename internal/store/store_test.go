package store

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "files.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewReportMonotonic(t *testing.T) {
	s := openTestStore(t)

	r1, err := s.NewReport("first run")
	if err != nil {
		t.Fatal(err)
	}
	r2, err := s.NewReport("")
	if err != nil {
		t.Fatal(err)
	}
	if r2 <= r1 {
		t.Errorf("expected monotonically increasing report ids, got %d then %d", r1, r2)
	}
}

func TestUpsertLookupExists(t *testing.T) {
	s := openTestStore(t)
	report, err := s.NewReport("")
	if err != nil {
		t.Fatal(err)
	}

	rec := PathRecord{
		Path:     "/tmp/a",
		Digest:   "abc123",
		IsDir:    false,
		Count:    1,
		Size:     13,
		MTime:    1700000000.5,
		Status:   StatusCompleted,
		ReportID: report,
	}
	if err := s.Upsert(rec); err != nil {
		t.Fatal(err)
	}

	ok, err := s.Exists(rec.Path, StatusCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected record to exist after upsert")
	}

	got, ok, err := s.Lookup(rec.Path, StatusCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected Lookup to find the record")
	}
	if got != rec {
		t.Errorf("Lookup = %+v, want %+v", got, rec)
	}
}

// TestLookupStableUntilNextUpsert covers spec.md §8 invariant 2: lookup(p)
// returns the same record until the next upsert(p, ...).
func TestLookupStableUntilNextUpsert(t *testing.T) {
	s := openTestStore(t)
	report, _ := s.NewReport("")

	rec := PathRecord{Path: "/tmp/a", Digest: "d1", Size: 1, MTime: 1, Status: StatusCompleted, ReportID: report, Count: 1}
	if err := s.Upsert(rec); err != nil {
		t.Fatal(err)
	}

	first, _, _ := s.Lookup(rec.Path, StatusCompleted)
	second, _, _ := s.Lookup(rec.Path, StatusCompleted)
	if first != second {
		t.Errorf("repeated lookups diverged: %+v vs %+v", first, second)
	}

	rec.Digest = "d2"
	if err := s.Upsert(rec); err != nil {
		t.Fatal(err)
	}
	third, _, _ := s.Lookup(rec.Path, StatusCompleted)
	if third.Digest != "d2" {
		t.Errorf("expected upsert to overwrite the record, digest = %q", third.Digest)
	}
}

func TestLookupAbsent(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.Lookup("/does/not/exist", StatusCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected ok=false for an absent path")
	}
}

func TestIterAllPrefix(t *testing.T) {
	s := openTestStore(t)
	report, _ := s.NewReport("")

	paths := []string{"/root/a", "/root/sub/b", "/other/c"}
	for _, p := range paths {
		err := s.Upsert(PathRecord{Path: p, Digest: "d", Size: 1, MTime: 1, Status: StatusCompleted, ReportID: report, Count: 1})
		if err != nil {
			t.Fatal(err)
		}
	}

	var seen []string
	err := s.IterAll("/root", StatusCompleted, func(r PathRecord) error {
		seen = append(seen, r.Path)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 {
		t.Errorf("expected 2 records under /root, got %d: %v", len(seen), seen)
	}
}

// TestIterDuplicatesExcludesZeroSize covers S6: zero-byte files never form a
// candidate group.
func TestIterDuplicatesExcludesZeroSize(t *testing.T) {
	s := openTestStore(t)
	report, _ := s.NewReport("")

	for i := 0; i < 10; i++ {
		p := filepath.Join("/root", "empty", string(rune('a'+i)))
		err := s.Upsert(PathRecord{Path: p, Digest: "same-hash", Size: 0, MTime: 1, Status: StatusCompleted, ReportID: report, Count: 1})
		if err != nil {
			t.Fatal(err)
		}
	}

	var seen int
	err := s.IterDuplicates("/root", func(r PathRecord) error {
		seen++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if seen != 0 {
		t.Errorf("expected no duplicates among zero-size files, got %d", seen)
	}
}

func TestIterDuplicatesRequiresAtLeastTwo(t *testing.T) {
	s := openTestStore(t)
	report, _ := s.NewReport("")

	err := s.Upsert(PathRecord{Path: "/root/a", Digest: "unique", Size: 5, MTime: 1, Status: StatusCompleted, ReportID: report, Count: 1})
	if err != nil {
		t.Fatal(err)
	}
	err = s.Upsert(PathRecord{Path: "/root/b", Digest: "shared", Size: 5, MTime: 1, Status: StatusCompleted, ReportID: report, Count: 1})
	if err != nil {
		t.Fatal(err)
	}
	err = s.Upsert(PathRecord{Path: "/root/c", Digest: "shared", Size: 5, MTime: 1, Status: StatusCompleted, ReportID: report, Count: 1})
	if err != nil {
		t.Fatal(err)
	}

	var seen []string
	err = s.IterDuplicates("/root", func(r PathRecord) error {
		seen = append(seen, r.Path)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 {
		t.Errorf("expected exactly the 2 shared-digest records, got %v", seen)
	}
}
