package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hyperjump/docbert/internal/docerr"
	"github.com/hyperjump/docbert/internal/docid"
	"github.com/hyperjump/docbert/internal/docref"
	"github.com/hyperjump/docbert/internal/textutil"
)

var (
	getJSON        bool
	getMeta        bool
	getFromLine    int
	getMaxLines    int
	getLineNumbers bool

	multiGetCollection  string
	multiGetJSON        bool
	multiGetFiles       bool
	multiGetMaxLines    int
	multiGetMaxBytes    int64
	multiGetLineNumbers bool
)

// getDocument is the JSON shape of one retrieved document.
type getDocument struct {
	DocID      string `json:"doc_id"`
	URI        string `json:"uri"`
	Collection string `json:"collection"`
	Path       string `json:"path"`
	FullPath   string `json:"full_path"`
	Mtime      uint64 `json:"mtime,omitempty"`
	Content    string `json:"content,omitempty"`
}

var getCmd = &cobra.Command{
	Use:   "get [reference]",
	Short: "Retrieve a document by reference",
	Long: `Retrieves a document by collection:path, #doc_id, or bare relative path.
A trailing :N on the reference starts output at line N.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd, func(ctx context.Context, a *app) error {
			return runGet(ctx, cmd, a, args[0])
		})
	},
}

var multiGetCmd = &cobra.Command{
	Use:   "multi-get [pattern]",
	Short: "Retrieve multiple documents matching a glob pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd, func(ctx context.Context, a *app) error {
			return runMultiGet(ctx, cmd, a, args[0])
		})
	},
}

func init() {
	getCmd.Flags().BoolVar(&getJSON, "json", false, "output as JSON with metadata")
	getCmd.Flags().BoolVar(&getMeta, "meta", false, "print only metadata")
	getCmd.Flags().IntVar(&getFromLine, "from-line", 0, "start output at this 1-indexed line")
	getCmd.Flags().IntVar(&getMaxLines, "max-lines", 0, "maximum number of lines to print")
	getCmd.Flags().BoolVar(&getLineNumbers, "line-numbers", false, "prefix lines with their numbers")
	rootCmd.AddCommand(getCmd)

	multiGetCmd.Flags().StringVarP(&multiGetCollection, "collection", "c", "", "restrict to a specific collection")
	multiGetCmd.Flags().BoolVar(&multiGetJSON, "json", false, "output as JSON array")
	multiGetCmd.Flags().BoolVar(&multiGetFiles, "files", false, "output only file paths")
	multiGetCmd.Flags().IntVar(&multiGetMaxLines, "max-lines", 0, "maximum lines per file")
	multiGetCmd.Flags().Int64Var(&multiGetMaxBytes, "max-bytes", 0, "skip files larger than this many bytes")
	multiGetCmd.Flags().BoolVar(&multiGetLineNumbers, "line-numbers", false, "prefix lines with their numbers")
	rootCmd.AddCommand(multiGetCmd)
}

func runGet(ctx context.Context, cmd *cobra.Command, a *app, reference string) error {
	fromLine := getFromLine
	if fromLine == 0 {
		reference, fromLine = docref.TrimLineSuffix(reference)
	}

	ref, err := docref.Resolve(ctx, a.cfg, reference)
	if err != nil {
		return err
	}
	fullPath, err := docref.FullPath(ctx, a.cfg, ref)
	if err != nil {
		return err
	}

	doc := getDocument{
		DocID:      docid.Derive(ref.Collection, ref.Path).String(),
		URI:        docref.URI(ref),
		Collection: ref.Collection,
		Path:       ref.Path,
		FullPath:   fullPath,
	}
	if m, found, err := a.cfg.GetMetadata(ctx, uint64(docid.Derive(ref.Collection, ref.Path))); err == nil && found {
		doc.Mtime = m.Mtime
	}

	if !getMeta {
		raw, err := os.ReadFile(fullPath)
		if err != nil {
			return docerr.Wrap(docerr.KindIO, err, "read document %s", fullPath)
		}
		startLine := fromLine
		if startLine == 0 {
			startLine = 1
		}
		body := textutil.ApplyLineLimits(string(raw), startLine, getMaxLines)
		if getLineNumbers {
			body = textutil.AddLineNumbers(body, startLine)
		}
		if desc, ok := docref.ContextFor(ctx, a.cfg, ref); ok {
			body = "<!-- Context: " + desc + " -->\n\n" + body
		}
		doc.Content = body
	}

	if getJSON {
		return printJSON(cmd, doc)
	}
	if getMeta {
		cmd.Printf("%s  %s\n", idStyle.Render(doc.DocID), pathStyle.Render(doc.Collection+":"+doc.Path))
		cmd.Printf("file:  %s\n", doc.FullPath)
		if doc.Mtime != 0 {
			cmd.Printf("mtime: %d\n", doc.Mtime)
		}
		return nil
	}
	cmd.Println(doc.Content)
	return nil
}

func runMultiGet(ctx context.Context, cmd *cobra.Command, a *app, pattern string) error {
	matches, err := docref.Glob(ctx, a.cfg, pattern, multiGetCollection)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return docerr.NotFound("documents matching", pattern)
	}

	var docs []getDocument
	for _, ref := range matches {
		fullPath, err := docref.FullPath(ctx, a.cfg, ref)
		if err != nil {
			continue
		}
		doc := getDocument{
			DocID:      docid.Derive(ref.Collection, ref.Path).String(),
			URI:        docref.URI(ref),
			Collection: ref.Collection,
			Path:       ref.Path,
			FullPath:   fullPath,
		}

		if !multiGetFiles {
			if multiGetMaxBytes > 0 {
				if info, err := os.Stat(fullPath); err == nil && info.Size() > multiGetMaxBytes {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s\n",
						errStyle.Render(fmt.Sprintf("skipped %s: exceeds %d bytes", doc.Path, multiGetMaxBytes)))
					continue
				}
			}
			raw, err := os.ReadFile(fullPath)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s\n",
					errStyle.Render(fmt.Sprintf("skipped %s: %v", doc.Path, err)))
				continue
			}
			body := textutil.ApplyLineLimits(string(raw), 1, multiGetMaxLines)
			if multiGetLineNumbers {
				body = textutil.AddLineNumbers(body, 1)
			}
			if desc, ok := docref.ContextFor(ctx, a.cfg, ref); ok {
				body = "<!-- Context: " + desc + " -->\n\n" + body
			}
			doc.Content = body
		}
		docs = append(docs, doc)
	}

	switch {
	case multiGetJSON:
		return printJSON(cmd, docs)
	case multiGetFiles:
		for _, doc := range docs {
			cmd.Println(doc.FullPath)
		}
		return nil
	default:
		for i, doc := range docs {
			if i > 0 {
				cmd.Println()
			}
			cmd.Printf("==> %s <==\n", pathStyle.Render(doc.Collection+":"+doc.Path))
			cmd.Println(doc.Content)
		}
		return nil
	}
}
