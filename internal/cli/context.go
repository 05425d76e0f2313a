package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/docbert/internal/docerr"
	"github.com/hyperjump/docbert/internal/docref"
)

var contextListJSON bool

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Manage context descriptions for collections and documents",
}

var contextAddCmd = &cobra.Command{
	Use:   "add [uri] [description]",
	Short: "Add or update a context description for a bert:// URI",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd, func(ctx context.Context, a *app) error {
			uri := args[0]
			if !strings.HasPrefix(uri, docref.Scheme) {
				return docerr.New(docerr.KindConfig, "malformed uri %q: expected %s...", uri, docref.Scheme)
			}
			if err := a.cfg.SetContext(ctx, uri, args[1]); err != nil {
				return err
			}
			cmd.Printf("Set context for %s\n", uri)
			return nil
		})
	},
}

var contextRemoveCmd = &cobra.Command{
	Use:   "remove [uri]",
	Short: "Remove the context description for a bert:// URI",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.cfg.RemoveContext(ctx, args[0]); err != nil {
				return err
			}
			cmd.Printf("Removed context for %s\n", args[0])
			return nil
		})
	},
}

var contextListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all context descriptions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runApp(cmd, func(ctx context.Context, a *app) error {
			contexts, err := a.cfg.ListContexts(ctx)
			if err != nil {
				return err
			}
			if contextListJSON {
				return printJSON(cmd, contexts)
			}
			if len(contexts) == 0 {
				cmd.Println("No contexts set.")
				return nil
			}
			for _, c := range contexts {
				cmd.Printf("%s\n    %s\n", pathStyle.Render(c.URI), c.Description)
			}
			return nil
		})
	},
}

func init() {
	contextListCmd.Flags().BoolVar(&contextListJSON, "json", false, "output as JSON")
	contextCmd.AddCommand(contextAddCmd, contextRemoveCmd, contextListCmd)
	rootCmd.AddCommand(contextCmd)
}
