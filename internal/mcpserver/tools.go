package mcpserver

import (
	"context"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/hyperjump/docbert/internal/docerr"
	"github.com/hyperjump/docbert/internal/docref"
	"github.com/hyperjump/docbert/internal/encoder"
	"github.com/hyperjump/docbert/internal/search"
	"github.com/hyperjump/docbert/internal/textutil"
)

// DefaultMultiGetMaxBytes caps per-file reads in docbert_multi_get unless
// the caller raises it.
const DefaultMultiGetMaxBytes int64 = 10_240

// SearchInput is the input schema for docbert_search.
type SearchInput struct {
	Query          string  `json:"query" jsonschema:"the search query"`
	Limit          int     `json:"limit,omitempty" jsonschema:"maximum number of results (default 10)"`
	MinScore       float64 `json:"min_score,omitempty" jsonschema:"drop results scoring below this threshold"`
	Collection     string  `json:"collection,omitempty" jsonschema:"restrict the search to one collection"`
	BM25Only       bool    `json:"bm25_only,omitempty" jsonschema:"skip the semantic reranking stage"`
	NoFuzzy        bool    `json:"no_fuzzy,omitempty" jsonschema:"disable typo-tolerant term matching"`
	All            bool    `json:"all,omitempty" jsonschema:"return every result above the threshold"`
	IncludeSnippet *bool   `json:"include_snippet,omitempty" jsonschema:"include a snippet preview (default true)"`
}

// SemanticInput is the input schema for semantic_search.
type SemanticInput struct {
	Query          string  `json:"query" jsonschema:"the search query"`
	Limit          int     `json:"limit,omitempty" jsonschema:"maximum number of results (default 10)"`
	MinScore       float64 `json:"min_score,omitempty" jsonschema:"drop results scoring below this threshold"`
	All            bool    `json:"all,omitempty" jsonschema:"return every result above the threshold"`
	IncludeSnippet *bool   `json:"include_snippet,omitempty" jsonschema:"include a snippet preview (default true)"`
}

// SearchResult is one entry in a search tool response.
type SearchResult struct {
	DocID      string  `json:"doc_id"`
	Collection string  `json:"collection"`
	Path       string  `json:"path"`
	File       string  `json:"file"`
	Title      string  `json:"title,omitempty"`
	Score      float64 `json:"score"`
	Context    string  `json:"context,omitempty"`
	Snippet    string  `json:"snippet,omitempty"`
}

// SearchOutput is the output schema for both search tools.
type SearchOutput struct {
	Query       string         `json:"query"`
	ResultCount int            `json:"result_count"`
	Results     []SearchResult `json:"results"`
}

// GetInput is the input schema for docbert_get.
type GetInput struct {
	Reference   string `json:"reference" jsonschema:"document reference: collection:path, #doc_id, or path; a trailing :N starts at line N"`
	FromLine    int    `json:"from_line,omitempty" jsonschema:"start from this 1-indexed line"`
	MaxLines    int    `json:"max_lines,omitempty" jsonschema:"maximum number of lines to return"`
	MaxBytes    int64  `json:"max_bytes,omitempty" jsonschema:"fail instead of reading files larger than this many bytes"`
	LineNumbers bool   `json:"line_numbers,omitempty" jsonschema:"prefix each line with its number"`
}

// GetOutput is the output schema for docbert_get.
type GetOutput struct {
	URI        string `json:"uri"`
	Collection string `json:"collection"`
	Path       string `json:"path"`
	Content    string `json:"content"`
}

// MultiGetInput is the input schema for docbert_multi_get.
type MultiGetInput struct {
	Pattern     string `json:"pattern" jsonschema:"glob pattern matched against relative paths (** supported)"`
	Collection  string `json:"collection,omitempty" jsonschema:"restrict matches to one collection"`
	MaxLines    int    `json:"max_lines,omitempty" jsonschema:"maximum lines per file"`
	MaxBytes    int64  `json:"max_bytes,omitempty" jsonschema:"skip files larger than this many bytes (default 10240)"`
	LineNumbers bool   `json:"line_numbers,omitempty" jsonschema:"prefix each line with its number"`
}

// MultiGetFile is one entry in a docbert_multi_get response. Skipped is set
// instead of Content when the file was passed over.
type MultiGetFile struct {
	URI        string `json:"uri"`
	Collection string `json:"collection"`
	Path       string `json:"path"`
	Content    string `json:"content,omitempty"`
	Skipped    string `json:"skipped,omitempty"`
}

// MultiGetOutput is the output schema for docbert_multi_get.
type MultiGetOutput struct {
	Pattern string         `json:"pattern"`
	Files   []MultiGetFile `json:"files"`
}

// StatusInput is the (empty) input schema for docbert_status.
type StatusInput struct{}

// StatusCollection summarizes one collection.
type StatusCollection struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Documents int    `json:"documents"`
}

// StatusOutput is the output schema for docbert_status.
type StatusOutput struct {
	DataDir     string             `json:"data_dir"`
	Model       string             `json:"model"`
	Documents   int                `json:"documents"`
	Embeddings  int                `json:"embeddings"`
	Collections []StatusCollection `json:"collections"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "docbert_search",
		Description: "Search indexed documents. Supports collection filtering, score thresholds, and BM25-only mode.",
	}, s.handleSearch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "semantic_search",
		Description: "Score every indexed document against the query by embedding similarity, bypassing the keyword index.",
	}, s.handleSemanticSearch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "docbert_get",
		Description: "Retrieve a document by reference (collection:path, #doc_id, or path). Supports optional line ranges.",
	}, s.handleGet)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "docbert_multi_get",
		Description: "Retrieve multiple documents by glob pattern. Supports collection filters and size limits.",
	}, s.handleMultiGet)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "docbert_status",
		Description: "Show index status, collections, and document counts.",
	}, s.handleStatus)
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	results, err := s.engine.Search(ctx, search.Params{
		Query:      input.Query,
		Count:      input.Limit,
		Collection: input.Collection,
		MinScore:   input.MinScore,
		BM25Only:   input.BM25Only,
		NoFuzzy:    input.NoFuzzy,
		All:        input.All,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}
	return nil, s.searchOutput(ctx, input.Query, results, includeSnippet(input.IncludeSnippet)), nil
}

func (s *Server) handleSemanticSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SemanticInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	results, err := s.engine.Semantic(ctx, search.SemanticParams{
		Query:    input.Query,
		Count:    input.Limit,
		MinScore: input.MinScore,
		All:      input.All,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}
	return nil, s.searchOutput(ctx, input.Query, results, includeSnippet(input.IncludeSnippet)), nil
}

func includeSnippet(flag *bool) bool {
	return flag == nil || *flag
}

// searchOutput maps engine results into the tool response, filling in
// context annotations and, when asked, a query-anchored snippet read from
// the source file.
func (s *Server) searchOutput(ctx context.Context, query string, results []search.Result, withSnippet bool) SearchOutput {
	items := make([]SearchResult, len(results))
	for i, r := range results {
		ref := docref.Ref{Collection: r.Collection, Path: r.Path}
		item := SearchResult{
			DocID:      r.DocID,
			Collection: r.Collection,
			Path:       r.Path,
			File:       r.Collection + "/" + r.Path,
			Title:      r.Title,
			Score:      r.Score,
		}
		if desc, ok := docref.ContextFor(ctx, s.cfg, ref); ok {
			item.Context = desc
		}
		if withSnippet {
			item.Snippet = s.snippetFor(ctx, ref, query)
		}
		items[i] = item
	}
	return SearchOutput{Query: query, ResultCount: len(items), Results: items}
}

// snippetFor is best-effort: a vanished or unreadable file simply yields no
// snippet.
func (s *Server) snippetFor(ctx context.Context, ref docref.Ref, query string) string {
	fullPath, err := docref.FullPath(ctx, s.cfg, ref)
	if err != nil {
		return ""
	}
	raw, err := os.ReadFile(fullPath)
	if err != nil {
		s.logger.Debug("snippet read failed", zap.String("path", fullPath), zap.Error(err))
		return ""
	}
	snippet, startLine, ok := textutil.ExtractSnippet(string(raw), query)
	if !ok {
		return ""
	}
	return textutil.AddLineNumbers(snippet, startLine)
}

func (s *Server) handleGet(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetInput,
) (*mcp.CallToolResult, GetOutput, error) {
	reference := input.Reference
	fromLine := input.FromLine
	if fromLine == 0 {
		reference, fromLine = docref.TrimLineSuffix(reference)
	}

	ref, err := docref.Resolve(ctx, s.cfg, reference)
	if err != nil {
		return nil, GetOutput{}, err
	}
	fullPath, err := docref.FullPath(ctx, s.cfg, ref)
	if err != nil {
		return nil, GetOutput{}, err
	}

	if input.MaxBytes > 0 {
		if info, err := os.Stat(fullPath); err == nil && info.Size() > input.MaxBytes {
			return nil, GetOutput{}, docerr.New(docerr.KindConfig,
				"file too large (%d bytes > %d): %s", info.Size(), input.MaxBytes, fullPath)
		}
	}

	raw, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, GetOutput{}, docerr.Wrap(docerr.KindIO, err, "read document %s", fullPath)
	}

	startLine := fromLine
	if startLine == 0 {
		startLine = 1
	}
	body := textutil.ApplyLineLimits(string(raw), startLine, input.MaxLines)
	if input.LineNumbers {
		body = textutil.AddLineNumbers(body, startLine)
	}
	if desc, ok := docref.ContextFor(ctx, s.cfg, ref); ok {
		body = "<!-- Context: " + desc + " -->\n\n" + body
	}

	return nil, GetOutput{
		URI:        docref.URI(ref),
		Collection: ref.Collection,
		Path:       ref.Path,
		Content:    body,
	}, nil
}

func (s *Server) handleMultiGet(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input MultiGetInput,
) (*mcp.CallToolResult, MultiGetOutput, error) {
	matches, err := docref.Glob(ctx, s.cfg, input.Pattern, input.Collection)
	if err != nil {
		return nil, MultiGetOutput{}, err
	}
	if len(matches) == 0 {
		return nil, MultiGetOutput{}, docerr.NotFound("documents matching", input.Pattern)
	}

	maxBytes := input.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMultiGetMaxBytes
	}

	out := MultiGetOutput{Pattern: input.Pattern, Files: make([]MultiGetFile, 0, len(matches))}
	for _, ref := range matches {
		file := MultiGetFile{URI: docref.URI(ref), Collection: ref.Collection, Path: ref.Path}

		fullPath, err := docref.FullPath(ctx, s.cfg, ref)
		if err != nil {
			file.Skipped = "collection not found"
			out.Files = append(out.Files, file)
			continue
		}
		if info, err := os.Stat(fullPath); err == nil && info.Size() > maxBytes {
			file.Skipped = fmt.Sprintf("%d bytes exceeds limit %d", info.Size(), maxBytes)
			out.Files = append(out.Files, file)
			continue
		}
		raw, err := os.ReadFile(fullPath)
		if err != nil {
			file.Skipped = "failed to read"
			out.Files = append(out.Files, file)
			continue
		}

		body := textutil.ApplyLineLimits(string(raw), 1, input.MaxLines)
		if input.LineNumbers {
			body = textutil.AddLineNumbers(body, 1)
		}
		if desc, ok := docref.ContextFor(ctx, s.cfg, ref); ok {
			body = "<!-- Context: " + desc + " -->\n\n" + body
		}
		file.Content = body
		out.Files = append(out.Files, file)
	}
	return nil, out, nil
}

func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	collections, err := s.cfg.ListCollections(ctx)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	documents, err := s.cfg.CountMetadata(ctx, "")
	if err != nil {
		return nil, StatusOutput{}, err
	}
	embeddings, err := s.emb.Count()
	if err != nil {
		return nil, StatusOutput{}, err
	}
	model, err := s.cfg.GetSettingOr(ctx, encoder.SettingModelName, encoder.DefaultModel)
	if err != nil {
		return nil, StatusOutput{}, err
	}

	out := StatusOutput{
		DataDir:     s.dataRoot,
		Model:       model,
		Documents:   documents,
		Embeddings:  embeddings,
		Collections: make([]StatusCollection, len(collections)),
	}
	for i, c := range collections {
		n, err := s.cfg.CountMetadata(ctx, c.Name)
		if err != nil {
			return nil, StatusOutput{}, err
		}
		out.Collections[i] = StatusCollection{Name: c.Name, Path: c.Path, Documents: n}
	}
	return nil, out, nil
}
