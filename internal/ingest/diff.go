package ingest

import (
	"github.com/hyperjump/docbert/internal/configstore"
	"github.com/hyperjump/docbert/internal/docid"
	"github.com/hyperjump/docbert/internal/walker"
)

// Diff is the reconciliation plan between stored metadata and the files
// currently on disk.
type Diff struct {
	// New files have no metadata row yet.
	New []walker.File
	// Changed files exist but with a different mtime.
	Changed []walker.File
	// Deleted numeric IDs have metadata but no file anymore.
	Deleted []uint64
}

// Empty reports whether the diff requires no work.
func (d Diff) Empty() bool {
	return len(d.New) == 0 && len(d.Changed) == 0 && len(d.Deleted) == 0
}

// ComputeDiff compares observed files against stored metadata for one
// collection. Identity is the derived numeric ID, so renames count as a
// delete plus an add.
func ComputeDiff(collection string, stored []configstore.Metadata, observed []walker.File) Diff {
	byID := make(map[uint64]configstore.Metadata, len(stored))
	for _, m := range stored {
		byID[m.NumericID] = m
	}

	var d Diff
	seen := make(map[uint64]bool, len(observed))
	for _, f := range observed {
		numID := uint64(docid.Derive(collection, f.RelativePath))
		seen[numID] = true
		prev, ok := byID[numID]
		switch {
		case !ok:
			d.New = append(d.New, f)
		case prev.Mtime != f.Mtime:
			d.Changed = append(d.Changed, f)
		}
	}
	for _, m := range stored {
		if !seen[m.NumericID] {
			d.Deleted = append(d.Deleted, m.NumericID)
		}
	}
	return d
}
