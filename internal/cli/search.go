package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hyperjump/docbert/internal/search"
)

var (
	searchCount      int
	searchCollection string
	searchJSON       bool
	searchAll        bool
	searchFiles      bool
	searchMinScore   float64
	searchBM25Only   bool
	searchNoFuzzy    bool

	ssearchCount    int
	ssearchJSON     bool
	ssearchAll      bool
	ssearchFiles    bool
	ssearchMinScore float64
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search across collections",
	Long: `Runs the hybrid pipeline: BM25 candidate retrieval with typo-tolerant
matching, reranked by ColBERT MaxSim over stored embeddings.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd, func(ctx context.Context, a *app) error {
			results, err := a.engine().Search(ctx, search.Params{
				Query:      args[0],
				Count:      searchCount,
				Collection: searchCollection,
				MinScore:   searchMinScore,
				BM25Only:   searchBM25Only,
				NoFuzzy:    searchNoFuzzy,
				All:        searchAll,
			})
			if err != nil {
				return err
			}
			return writeResults(cmd, a, args[0], results, searchJSON, searchFiles)
		})
	},
}

var ssearchCmd = &cobra.Command{
	Use:   "ssearch [query]",
	Short: "Semantic-only search over every indexed document",
	Long: `Scores every stored document against the query by embedding similarity,
bypassing the keyword index entirely. Linear in the corpus size.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd, func(ctx context.Context, a *app) error {
			results, err := a.engine().Semantic(ctx, search.SemanticParams{
				Query:    args[0],
				Count:    ssearchCount,
				MinScore: ssearchMinScore,
				All:      ssearchAll,
			})
			if err != nil {
				return err
			}
			return writeResults(cmd, a, args[0], results, ssearchJSON, ssearchFiles)
		})
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchCount, "count", "n", search.DefaultCount, "number of results to return")
	searchCmd.Flags().StringVarP(&searchCollection, "collection", "c", "", "search only within this collection")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().BoolVar(&searchAll, "all", false, "return all results above the score threshold")
	searchCmd.Flags().BoolVar(&searchFiles, "files", false, "output only file paths (one per line)")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0, "minimum score threshold")
	searchCmd.Flags().BoolVar(&searchBM25Only, "bm25-only", false, "skip ColBERT reranking, return BM25 results directly")
	searchCmd.Flags().BoolVar(&searchNoFuzzy, "no-fuzzy", false, "disable fuzzy matching in the first stage")
	rootCmd.AddCommand(searchCmd)

	ssearchCmd.Flags().IntVarP(&ssearchCount, "count", "n", search.DefaultCount, "number of results to return")
	ssearchCmd.Flags().BoolVar(&ssearchJSON, "json", false, "output results as JSON")
	ssearchCmd.Flags().BoolVar(&ssearchAll, "all", false, "return all results above the score threshold")
	ssearchCmd.Flags().BoolVar(&ssearchFiles, "files", false, "output only file paths (one per line)")
	ssearchCmd.Flags().Float64Var(&ssearchMinScore, "min-score", 0, "minimum score threshold")
	rootCmd.AddCommand(ssearchCmd)
}

func writeResults(cmd *cobra.Command, a *app, query string, results []search.Result, asJSON, filesOnly bool) error {
	switch {
	case asJSON:
		return printJSON(cmd, struct {
			Query       string          `json:"query"`
			ResultCount int             `json:"result_count"`
			Results     []search.Result `json:"results"`
		}{Query: query, ResultCount: len(results), Results: results})
	case filesOnly:
		return writeResultFiles(cmd, a, results)
	default:
		writeResultsHuman(cmd, results)
		return nil
	}
}

// writeResultFiles prints one absolute path per line for piping into other
// tools. Results whose collection vanished are skipped.
func writeResultFiles(cmd *cobra.Command, a *app, results []search.Result) error {
	ctx := cmd.Context()
	for _, r := range results {
		c, err := a.cfg.GetCollection(ctx, r.Collection)
		if err != nil {
			continue
		}
		cmd.Println(filepath.Join(c.Path, r.Path))
	}
	return nil
}

func writeResultsHuman(cmd *cobra.Command, results []search.Result) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}
	for _, r := range results {
		cmd.Printf("%3d. %s %s %s\n",
			r.Rank,
			scoreStyle.Render(fmt.Sprintf("[%.3f]", r.Score)),
			pathStyle.Render(r.Collection+":"+r.Path),
			idStyle.Render(r.DocID),
		)
		if r.Title != "" {
			cmd.Printf("     %s\n", titleStyle.Render(truncate(r.Title, 120)))
		}
	}
	cmd.Printf("\n%d result(s)\n", len(results))
}
