// Package cli implements the docbert command tree.
package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/docbert/internal/configstore"
	"github.com/hyperjump/docbert/internal/datadir"
	"github.com/hyperjump/docbert/internal/embedstore"
	"github.com/hyperjump/docbert/internal/encoder"
	"github.com/hyperjump/docbert/internal/ingest"
	"github.com/hyperjump/docbert/internal/search"
	"github.com/hyperjump/docbert/internal/textindex"
	"github.com/hyperjump/docbert/pkg/utils"
)

var (
	dataDirFlag string
	modelFlag   string
)

var rootCmd = &cobra.Command{
	Use:           "docbert",
	Short:         "Semantic search for your documents",
	Long:          "docbert indexes directories of Markdown and text files and searches them\nwith BM25 plus ColBERT late-interaction reranking.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "override the data directory")
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "override the embedding model id")
}

// Execute runs the command tree.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// app bundles the opened stores for one command invocation.
type app struct {
	paths  datadir.Paths
	cfg    *configstore.Store
	emb    *embedstore.Store
	ix     *textindex.Index
	enc    *encoder.Colbert
	model  string
	source encoder.Source
	logger *zap.Logger
}

// openApp resolves the data directory and opens all three stores. The
// encoder is constructed but loads its model lazily, so commands that never
// encode pay nothing for it.
func openApp(ctx context.Context) (*app, error) {
	logger := utils.NewLoggerOrNop()

	paths, err := datadir.Resolve(dataDirFlag)
	if err != nil {
		return nil, err
	}
	cfg, err := configstore.Open(paths.ConfigDB())
	if err != nil {
		return nil, err
	}
	emb, err := embedstore.Open(paths.EmbeddingDB())
	if err != nil {
		_ = cfg.Close()
		return nil, err
	}
	ix, err := textindex.Open(paths.TextIndexDir())
	if err != nil {
		_ = emb.Close()
		_ = cfg.Close()
		return nil, err
	}

	model, source, err := encoder.ResolveModel(ctx, modelFlag, cfg)
	if err != nil {
		_ = ix.Close()
		_ = emb.Close()
		_ = cfg.Close()
		return nil, err
	}

	return &app{
		paths:  paths,
		cfg:    cfg,
		emb:    emb,
		ix:     ix,
		enc:    encoder.NewColbert(model, logger),
		model:  model,
		source: source,
		logger: logger,
	}, nil
}

func (a *app) close() {
	_ = a.enc.Close()
	_ = a.ix.Close()
	_ = a.emb.Close()
	_ = a.cfg.Close()
	_ = a.logger.Sync()
}

func (a *app) engine() *search.Engine {
	return search.New(a.cfg, a.emb, a.ix, a.enc, search.WithLogger(a.logger))
}

func (a *app) ingestor() *ingest.Ingestor {
	return ingest.New(a.cfg, a.emb, a.ix, a.enc, ingest.WithLogger(a.logger))
}

// runApp opens the stores, runs fn, and closes everything again.
func runApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}
