// Package mcpserver exposes retrieval over the Model Context Protocol.
// All tools are read-only adapters; indexing stays with the CLI.
package mcpserver

import (
	"context"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/hyperjump/docbert/internal/configstore"
	"github.com/hyperjump/docbert/internal/docref"
	"github.com/hyperjump/docbert/internal/embedstore"
	"github.com/hyperjump/docbert/internal/search"
	"github.com/hyperjump/docbert/internal/textutil"
)

// Version is the MCP server version.
const Version = "0.1.0"

// Deps carries the opened stores the server operates over.
type Deps struct {
	DataRoot   string
	Config     *configstore.Store
	Embeddings *embedstore.Store
	Engine     *search.Engine
	Logger     *zap.Logger
}

// Server is the docbert MCP server.
type Server struct {
	dataRoot string
	cfg      *configstore.Store
	emb      *embedstore.Store
	engine   *search.Engine
	logger   *zap.Logger
	server   *mcp.Server
}

// New builds the server and registers its tools, resources, and prompt.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		dataRoot: deps.DataRoot,
		cfg:      deps.Config,
		emb:      deps.Embeddings,
		engine:   deps.Engine,
		logger:   logger,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "docbert",
			Title:   "docbert MCP",
			Version: Version,
		}, &mcp.ServerOptions{
			Instructions: "Use docbert_search to find documents, then docbert_get or " +
				"docbert_multi_get to retrieve content. Use docbert_status for index health.",
		}),
	}

	s.registerTools()
	s.registerResources()
	s.registerPrompts()
	return s
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// registerResources exposes documents as bert:// resources.
func (s *Server) registerResources() {
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "bert://{collection}/{+path}",
		Name:        "docbert-document",
		Description: "A document from the docbert index. Use the search tools to discover documents.",
		MIMEType:    "text/markdown",
	}, s.handleDocumentResource)
}

func (s *Server) handleDocumentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	ref, err := docref.ParseURI(req.Params.URI)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	fullPath, err := docref.FullPath(ctx, s.cfg, ref)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	raw, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	text := textutil.AddLineNumbers(string(raw), 1)
	if desc, ok := docref.ContextFor(ctx, s.cfg, ref); ok {
		text = "<!-- Context: " + desc + " -->\n\n" + text
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     text,
		}},
	}, nil
}

const queryGuide = `# Docbert MCP Quick Guide

docbert indexes local document collections and provides MCP tools for search and retrieval.

## Tools

- docbert_search: keyword + semantic search (use collection filters when possible)
- semantic_search: embedding-only scan, no keyword index involved
- docbert_get: fetch a single document by path or #doc_id
- docbert_multi_get: fetch multiple documents by glob pattern
- docbert_status: index health and collection summary

## Tips

- Use min_score to filter low-confidence results
- Use bm25_only for fast keyword-only search
- docbert_get supports from_line/max_lines and optional line numbers
`

func (s *Server) registerPrompts() {
	s.server.AddPrompt(&mcp.Prompt{
		Name:        "docbert_query",
		Title:       "Docbert Query Guide",
		Description: "How to search and retrieve documents with docbert MCP",
	}, func(context.Context, *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return &mcp.GetPromptResult{
			Messages: []*mcp.PromptMessage{{
				Role:    "user",
				Content: &mcp.TextContent{Text: queryGuide},
			}},
		}, nil
	})
}
