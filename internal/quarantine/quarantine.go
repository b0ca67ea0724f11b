// Package quarantine implements the quarantine planner (spec.md §4.6): pick
// one keeper per candidate duplicate group, order groups for review, resolve
// basename collisions in the quarantine directory, and apply the resulting
// plan by moving every non-keeper target aside.
//
// Grounded on original_source/sink/scripts.py's quarantine_targets (keeper
// sort, kill_list construction, the `fixed`/`reverse_fixed` collision-name
// maps) and on the teacher's cli/cmd_apply.go for the Run(w, log)-style
// command shape later wired into cmd/dupescan.
package quarantine

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/meisterluk/dupescan/internal/dupescanerr"
	"github.com/meisterluk/dupescan/internal/store"
	"github.com/pkg/errors"
)

// Comparator reports whether a should sort before b within a candidate
// group, i.e. a is preferred as the keeper over b.
type Comparator func(a, b store.PathRecord) bool

// DefaultComparator implements spec.md §4.6 step 1, with Open Question 1
// resolved (see DESIGN.md): paths containing "old" (case-insensitive) sort
// last, since they are the preferred quarantine *targets*, never the keeper.
func DefaultComparator(a, b store.PathRecord) bool {
	aOld, bOld := containsOld(a.Path), containsOld(b.Path)
	if aOld != bOld {
		return !aOld // the non-"old" path sorts first (is preferred as keeper)
	}

	aDepth, bDepth := depth(a.Path), depth(b.Path)
	if aDepth != bDepth {
		return aDepth < bDepth
	}

	aBase, bBase := filepath.Base(a.Path), filepath.Base(b.Path)
	if len(aBase) != len(bBase) {
		return len(aBase) < len(bBase)
	}

	if len(a.Path) != len(b.Path) {
		return len(a.Path) < len(b.Path)
	}

	return aBase < bBase
}

func containsOld(path string) bool {
	return strings.Contains(strings.ToLower(path), "old")
}

func depth(path string) int {
	return strings.Count(filepath.Clean(path), string(filepath.Separator))
}

// Group is one candidate duplicate group after keeper selection.
type Group struct {
	Keeper     string
	KeeperSize uint64
	Targets    []string
}

// Plan is the quarantine manifest: the immutable record of what Apply will
// do, suitable for JSON serialization (spec.md §6) and for user review
// before execution.
type Plan struct {
	BasePath       string
	QuarantineRoot string
	Timestamp      time.Time
	Groups         []Group

	// NameMap maps a unique quarantine-directory basename to the original
	// absolute path; ReverseMap is its inverse (spec.md §4.6 step 4).
	NameMap    map[string]string
	ReverseMap map[string]string
}

// TotalTargets returns the total number of paths that Apply will move.
func (p Plan) TotalTargets() int {
	n := 0
	for _, g := range p.Groups {
		n += len(g.Targets)
	}
	return n
}

// Build implements spec.md §4.6 steps 1-4. groups is the candidate-group
// output of cluster.Resolve; cmp selects the keeper within each group (nil
// selects DefaultComparator).
func Build(s *store.Store, groups [][]string, quarantineRoot, basePath string, cmp Comparator) (Plan, error) {
	if cmp == nil {
		cmp = DefaultComparator
	}

	type resolvedGroup struct {
		members []store.PathRecord
	}
	resolved := make([]resolvedGroup, 0, len(groups))

	for _, group := range groups {
		members := make([]store.PathRecord, 0, len(group))
		for _, path := range group {
			rec, ok, err := s.Lookup(path, store.StatusCompleted)
			if err != nil {
				return Plan{}, errors.Wrapf(err, "quarantine: looking up %q", path)
			}
			if !ok {
				return Plan{}, errors.Wrapf(dupescanerr.ErrNotFound, "quarantine: %q", path)
			}
			members = append(members, rec)
		}
		sort.Slice(members, func(i, j int) bool { return cmp(members[i], members[j]) })
		resolved = append(resolved, resolvedGroup{members: members})
	}

	// inter-group ordering: keeper size descending (spec.md §4.6 step 3).
	sort.SliceStable(resolved, func(i, j int) bool {
		return resolved[i].members[0].Size > resolved[j].members[0].Size
	})

	plan := Plan{
		BasePath:       basePath,
		QuarantineRoot: quarantineRoot,
		Timestamp:      time.Now().UTC(),
		NameMap:        make(map[string]string),
		ReverseMap:     make(map[string]string),
	}

	taken := make(map[string]bool)
	for _, rg := range resolved {
		keeper := rg.members[0]
		targets := make([]string, 0, len(rg.members)-1)
		for _, m := range rg.members[1:] {
			targets = append(targets, m.Path)
			name := uniqueName(m.Path, taken)
			taken[name] = true
			plan.NameMap[name] = m.Path
			plan.ReverseMap[m.Path] = name
		}
		plan.Groups = append(plan.Groups, Group{
			Keeper:     keeper.Path,
			KeeperSize: keeper.Size,
			Targets:    targets,
		})
	}
	return plan, nil
}

// uniqueName implements spec.md §4.6 step 4's collision resolution: take the
// basename; if taken, append " (k)" before the extension with k = 1, 2, ...
// until unique.
func uniqueName(path string, taken map[string]bool) string {
	base := filepath.Base(path)
	if !taken[base] {
		return base
	}

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for k := 1; ; k++ {
		candidate := stem + " (" + strconv.Itoa(k) + ")" + ext
		if !taken[candidate] {
			return candidate
		}
	}
}

// Apply moves every target path into the "content" subdirectory of
// plan.QuarantineRoot under its assigned unique name (spec.md §4.6 step 6). Moves are not transactional: a failure
// partway through leaves plan as the authoritative record of what was
// intended, with earlier moves already applied.
func Apply(plan Plan) error {
	contentDir := filepath.Join(plan.QuarantineRoot, "content")
	if err := os.MkdirAll(contentDir, 0o755); err != nil {
		return errors.Wrapf(err, "quarantine: creating %q", contentDir)
	}

	for _, group := range plan.Groups {
		for _, target := range group.Targets {
			name, ok := plan.ReverseMap[target]
			if !ok {
				return errors.Wrapf(dupescanerr.ErrNotFound, "quarantine: %q has no assigned quarantine name", target)
			}
			dest := filepath.Join(contentDir, name)
			if err := os.Rename(target, dest); err != nil {
				return errors.Wrapf(err, "quarantine: moving %q to %q", target, dest)
			}
		}
	}
	return nil
}
