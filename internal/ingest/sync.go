package ingest

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/docbert/internal/walker"
)

// SyncStats summarizes one sync pass.
type SyncStats struct {
	Collection string `json:"collection"`
	New        int    `json:"new"`
	Changed    int    `json:"changed"`
	Deleted    int    `json:"deleted"`
}

// SyncCollection reconciles one collection with its directory: new and
// changed files are ingested, vanished files are purged.
func (in *Ingestor) SyncCollection(ctx context.Context, name string) (SyncStats, error) {
	stats := SyncStats{Collection: name}

	col, err := in.cfg.GetCollection(ctx, name)
	if err != nil {
		return stats, err
	}
	observed, err := walker.Discover(col.Path)
	if err != nil {
		return stats, err
	}
	stored, err := in.cfg.ListMetadataIn(ctx, name)
	if err != nil {
		return stats, err
	}

	diff := ComputeDiff(name, stored, observed)
	if diff.Empty() {
		in.logger.Debug("collection up to date", zap.String("collection", name))
		return stats, nil
	}

	if len(diff.New) > 0 {
		n, err := in.IngestFiles(ctx, name, diff.New)
		if err != nil {
			return stats, err
		}
		stats.New = n
	}
	if len(diff.Changed) > 0 {
		n, err := in.IngestFiles(ctx, name, diff.Changed)
		if err != nil {
			return stats, err
		}
		stats.Changed = n
	}
	if len(diff.Deleted) > 0 {
		if err := in.ApplyDeletions(ctx, diff.Deleted); err != nil {
			return stats, err
		}
		stats.Deleted = len(diff.Deleted)
	}

	in.logger.Info("synced collection",
		zap.String("collection", name),
		zap.Int("new", stats.New),
		zap.Int("changed", stats.Changed),
		zap.Int("deleted", stats.Deleted))
	return stats, nil
}

// SyncAll syncs every registered collection.
func (in *Ingestor) SyncAll(ctx context.Context) ([]SyncStats, error) {
	cols, err := in.cfg.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SyncStats, 0, len(cols))
	for _, col := range cols {
		stats, err := in.SyncCollection(ctx, col.Name)
		if err != nil {
			return out, err
		}
		out = append(out, stats)
	}
	return out, nil
}

// RebuildCollection drops everything stored for the collection and ingests
// the directory from scratch. The remedy for corrupt embeddings or an
// index left behind by a crash.
func (in *Ingestor) RebuildCollection(ctx context.Context, name string) (int, error) {
	col, err := in.cfg.GetCollection(ctx, name)
	if err != nil {
		return 0, err
	}

	stored, err := in.cfg.ListMetadataIn(ctx, name)
	if err != nil {
		return 0, err
	}
	ids := make([]uint64, len(stored))
	for i, m := range stored {
		ids[i] = m.NumericID
	}
	if err := in.ApplyDeletions(ctx, ids); err != nil {
		return 0, err
	}

	observed, err := walker.Discover(col.Path)
	if err != nil {
		return 0, err
	}
	return in.IngestFiles(ctx, name, observed)
}
