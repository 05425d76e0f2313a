package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hyperjump/docbert/internal/docerr"
)

var (
	collectionAddName  string
	collectionListJSON bool
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage document collections",
}

var collectionAddCmd = &cobra.Command{
	Use:   "add [path]",
	Short: "Register a directory as a named collection and index its contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd, func(ctx context.Context, a *app) error {
			return collectionAdd(ctx, cmd, a, args[0], collectionAddName)
		})
	},
}

var collectionRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove a collection and all its indexed data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd, func(ctx context.Context, a *app) error {
			purged, err := a.ingestor().RemoveCollection(ctx, args[0])
			if err != nil {
				return err
			}
			cmd.Printf("Removed collection '%s' (%d documents purged)\n", args[0], purged)
			return nil
		})
	},
}

var collectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered collections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runApp(cmd, func(ctx context.Context, a *app) error {
			collections, err := a.cfg.ListCollections(ctx)
			if err != nil {
				return err
			}
			if collectionListJSON {
				return printJSON(cmd, collections)
			}
			if len(collections) == 0 {
				cmd.Println("No collections registered.")
				return nil
			}
			for _, c := range collections {
				n, err := a.cfg.CountMetadata(ctx, c.Name)
				if err != nil {
					return err
				}
				cmd.Printf("%s  %s  (%d documents)\n", pathStyle.Render(c.Name), c.Path, n)
			}
			return nil
		})
	},
}

func init() {
	collectionAddCmd.Flags().StringVar(&collectionAddName, "name", "", "collection name")
	_ = collectionAddCmd.MarkFlagRequired("name")
	collectionListCmd.Flags().BoolVar(&collectionListJSON, "json", false, "output as JSON")

	collectionCmd.AddCommand(collectionAddCmd, collectionRemoveCmd, collectionListCmd)
	rootCmd.AddCommand(collectionCmd)
}

func collectionAdd(ctx context.Context, cmd *cobra.Command, a *app, path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		return docerr.New(docerr.KindConfig, "directory does not exist: %s", path)
	}
	if !info.IsDir() {
		return docerr.New(docerr.KindConfig, "path is not a directory: %s", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return docerr.Wrap(docerr.KindConfig, err, "cannot resolve path %s", path)
	}

	if _, err := a.cfg.GetCollection(ctx, name); err == nil {
		return docerr.New(docerr.KindConfig, "collection '%s' already exists", name)
	} else if !docerr.IsKind(err, docerr.KindNotFound) {
		return err
	}

	if err := a.cfg.UpsertCollection(ctx, name, abs); err != nil {
		return err
	}
	cmd.Printf("Added collection '%s' -> %s\n", name, abs)

	stats, err := a.ingestor().SyncCollection(ctx, name)
	if err != nil {
		return err
	}
	printSyncStats(cmd, stats)
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}
