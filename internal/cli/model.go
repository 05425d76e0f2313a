package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/hyperjump/docbert/internal/encoder"
)

var modelShowJSON bool

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Manage the embedding model",
}

var modelShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active model and where it was configured",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runApp(cmd, func(ctx context.Context, a *app) error {
			if modelShowJSON {
				return printJSON(cmd, struct {
					Model  string `json:"model"`
					Source string `json:"source"`
				}{Model: a.model, Source: string(a.source)})
			}
			cmd.Printf("Model:  %s\n", pathStyle.Render(a.model))
			cmd.Printf("Source: %s\n", a.source)
			return nil
		})
	},
}

var modelSetCmd = &cobra.Command{
	Use:   "set [model-id]",
	Short: "Persist a model id in the config store",
	Long: `Sets the model used for embeddings. Changing the model invalidates stored
embeddings; run rebuild afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.cfg.SetSetting(ctx, encoder.SettingModelName, args[0]); err != nil {
				return err
			}
			cmd.Printf("Model set to %s\n", args[0])
			cmd.Println("Run 'docbert rebuild' to recompute embeddings with the new model.")
			return nil
		})
	},
}

var modelClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the configured model, falling back to the default",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.cfg.ClearSetting(ctx, encoder.SettingModelName); err != nil {
				return err
			}
			cmd.Printf("Model cleared; default is %s\n", encoder.DefaultModel)
			return nil
		})
	},
}

func init() {
	modelShowCmd.Flags().BoolVar(&modelShowJSON, "json", false, "output as JSON")
	modelCmd.AddCommand(modelShowCmd, modelSetCmd, modelClearCmd)
	rootCmd.AddCommand(modelCmd)
}
