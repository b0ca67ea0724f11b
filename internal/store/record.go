package store

import "time"

// Status is the lifecycle state of a PathRecord. Only StatusCompleted
// records participate in queries by default (spec.md §3).
type Status string

const (
	StatusCompleted  Status = "completed"
	StatusInProgress Status = "in-progress"
)

// PathRecord is one row of the `files` table: the fingerprint and metadata
// dupescan has associated with a single filesystem path (spec.md §3).
type PathRecord struct {
	Path     string
	Digest   string
	IsDir    bool
	Count    uint64
	Size     uint64
	MTime    float64
	Status   Status
	ReportID int64
}

// Report labels a batch of index upserts produced by a single `add` run
// (spec.md §3).
type Report struct {
	ID          int64
	CreatedAt   time.Time
	Description string
}
