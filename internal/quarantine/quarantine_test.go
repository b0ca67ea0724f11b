package quarantine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/meisterluk/dupescan/internal/digest"
	"github.com/meisterluk/dupescan/internal/index"
	"github.com/meisterluk/dupescan/internal/store"
	"github.com/meisterluk/dupescan/internal/walk"
)

func setupStore(t *testing.T, root string) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "files.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })

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
	return s
}

func TestDefaultComparatorOldSortsLast(t *testing.T) {
	a := store.PathRecord{Path: "/data/old/report.txt"}
	b := store.PathRecord{Path: "/data/current/report.txt"}
	if DefaultComparator(a, b) {
		t.Error("expected the 'old' path to NOT sort before the current path (old paths are preferred quarantine targets, never keepers)")
	}
	if !DefaultComparator(b, a) {
		t.Error("expected the non-'old' path to sort first and become the keeper")
	}
}

func TestDefaultComparatorPrefersShallower(t *testing.T) {
	shallow := store.PathRecord{Path: "/a/f"}
	deep := store.PathRecord{Path: "/a/b/c/f"}
	if !DefaultComparator(shallow, deep) {
		t.Error("expected the shallower path to sort first")
	}
}

func TestBuildKeepsShallowestNonOldPath(t *testing.T) {
	root := t.TempDir()
	keep := filepath.Join(root, "keep.txt")
	nested := filepath.Join(root, "sub", "nested.txt")
	oldCopy := filepath.Join(root, "old_backup", "copy.txt")
	os.Mkdir(filepath.Join(root, "sub"), 0o755)
	os.Mkdir(filepath.Join(root, "old_backup"), 0o755)
	content := []byte("duplicate content")
	os.WriteFile(keep, content, 0o644)
	os.WriteFile(nested, content, 0o644)
	os.WriteFile(oldCopy, content, 0o644)

	s := setupStore(t, root)

	group := []string{nested, oldCopy, keep}
	plan, err := Build(s, [][]string{group}, filepath.Join(root, "quarantine"), root, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(plan.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(plan.Groups))
	}
	if plan.Groups[0].Keeper != keep {
		t.Errorf("keeper = %q, want %q", plan.Groups[0].Keeper, keep)
	}
	if len(plan.Groups[0].Targets) != 2 {
		t.Errorf("expected 2 targets, got %v", plan.Groups[0].Targets)
	}
}

func TestUniqueNameResolvesCollisions(t *testing.T) {
	taken := map[string]bool{}
	a := uniqueName("/x/report.txt", taken)
	taken[a] = true
	b := uniqueName("/y/report.txt", taken)
	taken[b] = true
	c := uniqueName("/z/report.txt", taken)
	taken[c] = true

	if a != "report.txt" {
		t.Errorf("first name = %q, want report.txt", a)
	}
	if b != "report (1).txt" {
		t.Errorf("second name = %q, want 'report (1).txt'", b)
	}
	if c != "report (2).txt" {
		t.Errorf("third name = %q, want 'report (2).txt'", c)
	}
}

func TestApplyMovesTargetsNotKeeper(t *testing.T) {
	root := t.TempDir()
	keep := filepath.Join(root, "keep.txt")
	dup := filepath.Join(root, "duplicate.txt")
	content := []byte("same bytes")
	os.WriteFile(keep, content, 0o644)
	os.WriteFile(dup, content, 0o644)

	s := setupStore(t, root)
	qRoot := filepath.Join(root, "dupescan-quarantine")

	plan, err := Build(s, [][]string{{keep, dup}}, qRoot, root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := Apply(plan); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(keep); err != nil {
		t.Errorf("expected keeper to remain at %q: %v", keep, err)
	}
	if _, err := os.Stat(dup); !os.IsNotExist(err) {
		t.Errorf("expected target to be moved away from %q", dup)
	}

	name := plan.ReverseMap[dup]
	moved := filepath.Join(qRoot, "content", name)
	if _, err := os.Stat(moved); err != nil {
		t.Errorf("expected target at %q: %v", moved, err)
	}
}

func TestBuildOrdersGroupsByKeeperSizeDescending(t *testing.T) {
	root := t.TempDir()
	smallA := filepath.Join(root, "smallA.txt")
	smallB := filepath.Join(root, "smallB.txt")
	bigA := filepath.Join(root, "bigA.txt")
	bigB := filepath.Join(root, "bigB.txt")
	os.WriteFile(smallA, []byte("s"), 0o644)
	os.WriteFile(smallB, []byte("s"), 0o644)
	os.WriteFile(bigA, []byte("much much bigger content here"), 0o644)
	os.WriteFile(bigB, []byte("much much bigger content here"), 0o644)

	s := setupStore(t, root)
	plan, err := Build(s, [][]string{{smallA, smallB}, {bigA, bigB}}, filepath.Join(root, "q"), root, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(plan.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(plan.Groups))
	}
	if plan.Groups[0].KeeperSize < plan.Groups[1].KeeperSize {
		t.Errorf("expected groups ordered by keeper size descending, got sizes %d then %d",
			plan.Groups[0].KeeperSize, plan.Groups[1].KeeperSize)
	}
}
