package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var statusJSON bool

type statusCollection struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Documents int    `json:"documents"`
}

type statusReport struct {
	DataDir     string             `json:"data_dir"`
	Model       string             `json:"model"`
	ModelSource string             `json:"model_source"`
	Documents   int                `json:"documents"`
	Embeddings  int                `json:"embeddings"`
	Indexed     uint64             `json:"indexed"`
	Collections []statusCollection `json:"collections"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runApp(cmd, func(ctx context.Context, a *app) error {
			report, err := buildStatus(ctx, a)
			if err != nil {
				return err
			}
			if statusJSON {
				return printJSON(cmd, report)
			}
			cmd.Printf("Data dir:   %s\n", report.DataDir)
			cmd.Printf("Model:      %s (%s)\n", report.Model, report.ModelSource)
			cmd.Printf("Documents:  %d\n", report.Documents)
			cmd.Printf("Embeddings: %d\n", report.Embeddings)
			cmd.Printf("Indexed:    %d\n", report.Indexed)
			cmd.Printf("Collections (%d):\n", len(report.Collections))
			for _, c := range report.Collections {
				cmd.Printf("  %s  %s  (%d documents)\n", pathStyle.Render(c.Name), c.Path, c.Documents)
			}
			return nil
		})
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statusCmd)
}

func buildStatus(ctx context.Context, a *app) (statusReport, error) {
	report := statusReport{
		DataDir:     a.paths.Root,
		Model:       a.model,
		ModelSource: string(a.source),
	}

	collections, err := a.cfg.ListCollections(ctx)
	if err != nil {
		return report, err
	}
	for _, c := range collections {
		n, err := a.cfg.CountMetadata(ctx, c.Name)
		if err != nil {
			return report, err
		}
		report.Collections = append(report.Collections, statusCollection{
			Name: c.Name, Path: c.Path, Documents: n,
		})
	}

	if report.Documents, err = a.cfg.CountMetadata(ctx, ""); err != nil {
		return report, err
	}
	if report.Embeddings, err = a.emb.Count(); err != nil {
		return report, err
	}
	if report.Indexed, err = a.ix.DocCount(); err != nil {
		return report, err
	}
	return report, nil
}
