package cluster

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/meisterluk/dupescan/internal/digest"
	"github.com/meisterluk/dupescan/internal/index"
	"github.com/meisterluk/dupescan/internal/store"
	"github.com/meisterluk/dupescan/internal/walk"
)

func indexPath(t *testing.T, s *store.Store, root string) {
	t.Helper()
	m := walk.NewMarker(s.Path(), nil, false, func(p string) (bool, error) {
		return s.Exists(p, store.StatusCompleted)
	})
	marked, err := m.Mark(root)
	if err != nil {
		t.Fatal(err)
	}
	report, err := s.NewReport("test")
	if err != nil {
		t.Fatal(err)
	}
	e := &index.Engine{Store: s, Algo: digest.SHA256, ReportID: report}
	if _, err := e.Process(context.Background(), marked); err != nil {
		t.Fatal(err)
	}
}

func openStore(t *testing.T, dir string) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(dir, "files.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestS1IdenticalFilesOneGroup implements scenario S1 from spec.md §8.
func TestS1IdenticalFilesOneGroup(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a")
	b := filepath.Join(root, "b")
	os.WriteFile(a, []byte("Hello, world!"), 0o644)
	os.WriteFile(b, []byte("Hello, world!"), 0o644)

	s := openStore(t, root)
	indexPath(t, s, root)

	result, err := Resolve(s, root)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Groups) != 1 {
		t.Fatalf("expected exactly one candidate group, got %v", result.Groups)
	}
	got := append([]string{}, result.Groups[0]...)
	sort.Strings(got)
	want := []string{a, b}
	sort.Strings(want)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("group = %v, want %v", got, want)
	}
}

// TestS5LeafCoverPrunes implements scenario S5: two equivalent 100-file
// subtrees under a common root must surface as exactly one group of their
// two directory roots, never descending into the 200 underlying files.
func TestS5LeafCoverPrunes(t *testing.T) {
	root := t.TempDir()
	dupA := filepath.Join(root, "dupA")
	dupB := filepath.Join(root, "dupB")
	os.Mkdir(dupA, 0o755)
	os.Mkdir(dupB, 0o755)
	for i := 0; i < 100; i++ {
		name := fmt.Sprintf("file%03d", i)
		content := []byte(fmt.Sprintf("content-%d", i))
		os.WriteFile(filepath.Join(dupA, name), content, 0o644)
		os.WriteFile(filepath.Join(dupB, name), content, 0o644)
	}

	s := openStore(t, root)
	indexPath(t, s, root)

	result, err := Resolve(s, root)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Groups) != 1 {
		t.Fatalf("expected exactly one candidate group (dupA, dupB), got %d groups: %v", len(result.Groups), result.Groups)
	}
	got := append([]string{}, result.Groups[0]...)
	sort.Strings(got)
	want := []string{dupA, dupB}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("leaf cover = %v, want exactly %v (not the 200 underlying files)", got, want)
	}
}

// TestS6EmptyFileExclusion implements scenario S6: zero-byte files never
// form a candidate group, since IterDuplicates filters filesize > 0.
func TestS6EmptyFileExclusion(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 10; i++ {
		os.WriteFile(filepath.Join(root, fmt.Sprintf("empty%d", i)), nil, 0o644)
	}

	s := openStore(t, root)
	indexPath(t, s, root)

	result, err := Resolve(s, root)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Groups) != 0 {
		t.Errorf("expected no candidate groups among zero-byte files, got %v", result.Groups)
	}
}

func TestClassifyAccept(t *testing.T) {
	members := []store.PathRecord{
		{Path: "/a/f", Size: 10, MTime: 5},
		{Path: "/b/f", Size: 10, MTime: 5},
	}
	if got := classify(members); got != Accept {
		t.Errorf("classify = %v, want Accept", got)
	}
}

func TestClassifyMaybeOnNameMismatch(t *testing.T) {
	members := []store.PathRecord{
		{Path: "/a/f", Size: 10, MTime: 5},
		{Path: "/b/g", Size: 10, MTime: 5},
	}
	if got := classify(members); got != Maybe {
		t.Errorf("classify = %v, want Maybe", got)
	}
}

func TestClassifyRejectOnSizeMismatch(t *testing.T) {
	members := []store.PathRecord{
		{Path: "/a/f", Size: 10, MTime: 5},
		{Path: "/b/f", Size: 11, MTime: 5},
	}
	if got := classify(members); got != Reject {
		t.Errorf("classify = %v, want Reject", got)
	}
}

func TestResultReductionNeverNegative(t *testing.T) {
	r := Result{OriginalSize: 5, NewSize: 10}
	if r.Reduction() != 0 {
		t.Errorf("Reduction() = %d, want 0 when NewSize > OriginalSize", r.Reduction())
	}
}
