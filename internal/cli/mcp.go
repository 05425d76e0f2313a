package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/hyperjump/docbert/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve search and retrieval over the Model Context Protocol",
	Long: `Starts the MCP server over stdio for AI assistant integration.

Client configuration (e.g. claude_desktop_config.json):
  {
    "mcpServers": {
      "docbert": {
        "command": "/path/to/docbert",
        "args": ["mcp"]
      }
    }
  }

Logs go to stderr; stdout carries only protocol frames.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runApp(cmd, func(ctx context.Context, a *app) error {
			srv := mcpserver.New(mcpserver.Deps{
				DataRoot:   a.paths.Root,
				Config:     a.cfg,
				Embeddings: a.emb,
				Engine:     a.engine(),
				Logger:     a.logger,
			})
			return srv.Run(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
