package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/docbert/internal/ingest"
	"github.com/hyperjump/docbert/internal/watcher"
)

var (
	syncCollection    string
	syncWatch         bool
	rebuildCollection string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync collections with source files (incremental)",
	Long: `Reconciles collections with their directories: new and changed files are
ingested, vanished files are purged. With --watch, keeps running and
re-syncs a collection whenever files under its root change.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runApp(cmd, func(ctx context.Context, a *app) error {
			if err := runSync(ctx, cmd, a); err != nil {
				return err
			}
			if syncWatch {
				return runWatch(ctx, cmd, a)
			}
			return nil
		})
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild indexes from source files (full rebuild)",
	Long: `Drops and re-ingests every document, recomputing embeddings and index
entries. The remedy for corruption or a model change.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runApp(cmd, func(ctx context.Context, a *app) error {
			in := a.ingestor()
			names, err := collectionNames(ctx, a, rebuildCollection)
			if err != nil {
				return err
			}
			for _, name := range names {
				n, err := in.RebuildCollection(ctx, name)
				if err != nil {
					return err
				}
				cmd.Printf("Rebuilt '%s': %d documents\n", name, n)
			}
			return nil
		})
	},
}

func init() {
	syncCmd.Flags().StringVarP(&syncCollection, "collection", "c", "", "sync only this collection")
	syncCmd.Flags().BoolVar(&syncWatch, "watch", false, "keep running and re-sync on file changes")
	rootCmd.AddCommand(syncCmd)

	rebuildCmd.Flags().StringVarP(&rebuildCollection, "collection", "c", "", "rebuild only this collection")
	rootCmd.AddCommand(rebuildCmd)
}

func runSync(ctx context.Context, cmd *cobra.Command, a *app) error {
	in := a.ingestor()
	if syncCollection != "" {
		stats, err := in.SyncCollection(ctx, syncCollection)
		if err != nil {
			return err
		}
		printSyncStats(cmd, stats)
		return nil
	}
	all, err := in.SyncAll(ctx)
	if err != nil {
		return err
	}
	for _, stats := range all {
		printSyncStats(cmd, stats)
	}
	return nil
}

// runWatch blocks until ctx is cancelled, re-syncing a collection after its
// files settle.
func runWatch(ctx context.Context, cmd *cobra.Command, a *app) error {
	collections, err := a.cfg.ListCollections(ctx)
	if err != nil {
		return err
	}
	if syncCollection != "" {
		c, err := a.cfg.GetCollection(ctx, syncCollection)
		if err != nil {
			return err
		}
		collections = collections[:0]
		collections = append(collections, c)
	}

	roots := make([]watcher.Root, len(collections))
	for i, c := range collections {
		roots[i] = watcher.Root{Collection: c.Name, Path: c.Path}
	}

	in := a.ingestor()
	w := watcher.New(roots, func(collection string) {
		stats, err := in.SyncCollection(ctx, collection)
		if err != nil {
			a.logger.Error("watch sync failed", zap.String("collection", collection), zap.Error(err))
			return
		}
		printSyncStats(cmd, stats)
	}, watcher.WithLogger(a.logger))

	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	cmd.Printf("Watching %d collection(s), press Ctrl-C to stop\n", len(roots))
	<-ctx.Done()
	return nil
}

func collectionNames(ctx context.Context, a *app, only string) ([]string, error) {
	if only != "" {
		if _, err := a.cfg.GetCollection(ctx, only); err != nil {
			return nil, err
		}
		return []string{only}, nil
	}
	collections, err := a.cfg.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(collections))
	for i, c := range collections {
		names[i] = c.Name
	}
	return names, nil
}

func printSyncStats(cmd *cobra.Command, stats ingest.SyncStats) {
	cmd.Printf("Synced '%s': %d new, %d changed, %d deleted\n",
		stats.Collection, stats.New, stats.Changed, stats.Deleted)
}
