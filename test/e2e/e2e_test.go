package e2e

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/docbert/internal/configstore"
	"github.com/hyperjump/docbert/internal/embedstore"
	"github.com/hyperjump/docbert/internal/encoder"
	"github.com/hyperjump/docbert/internal/ingest"
	"github.com/hyperjump/docbert/internal/search"
	"github.com/hyperjump/docbert/internal/textindex"
)

const (
	e2eCorpusSize  = 100
	e2eSearchLimit = 10
)

type stack struct {
	cfg    *configstore.Store
	emb    *embedstore.Store
	ix     *textindex.Index
	enc    encoder.Encoder
	engine *search.Engine
	in     *ingest.Ingestor
}

func openStack(t *testing.T, dir string) *stack {
	t.Helper()

	cfg, err := configstore.Open(filepath.Join(dir, "config.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = cfg.Close() })

	emb, err := embedstore.Open(filepath.Join(dir, "embeddings.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = emb.Close() })

	ix, err := textindex.Open(filepath.Join(dir, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ix.Close() })

	enc := encoder.NewStub()
	return &stack{
		cfg:    cfg,
		emb:    emb,
		ix:     ix,
		enc:    enc,
		engine: search.New(cfg, emb, ix, enc),
		in:     ingest.New(cfg, emb, ix, enc),
	}
}

func TestHybridSearchOverGeneratedCorpus(t *testing.T) {
	dir := t.TempDir()
	docs := filepath.Join(dir, "docs")

	corpus := BuildCorpus(e2eCorpusSize)
	if err := corpus.WriteTo(docs); err != nil {
		t.Fatal(err)
	}

	s := openStack(t, dir)
	ctx := context.Background()
	if err := s.cfg.UpsertCollection(ctx, "corpus", docs); err != nil {
		t.Fatal(err)
	}
	stats, err := s.in.SyncCollection(ctx, "corpus")
	if err != nil {
		t.Fatal(err)
	}
	if stats.New != e2eCorpusSize {
		t.Fatalf("expected %d new documents, got %d", e2eCorpusSize, stats.New)
	}

	for _, tc := range corpus.Cases {
		t.Run(tc.Description, func(t *testing.T) {
			results, err := s.engine.Search(ctx, search.Params{
				Query: tc.Query,
				Count: e2eSearchLimit,
			})
			if err != nil {
				t.Fatalf("search failed: %v", err)
			}
			if !containsAny(resultPaths(results), tc.ExpectedPaths) {
				t.Errorf("query %q: expected one of %v in the top %d, got %v",
					tc.Query, tc.ExpectedPaths, e2eSearchLimit, resultPaths(results))
			}
		})
	}
}

func TestBM25OnlyOverGeneratedCorpus(t *testing.T) {
	dir := t.TempDir()
	docs := filepath.Join(dir, "docs")

	corpus := BuildCorpus(e2eCorpusSize)
	if err := corpus.WriteTo(docs); err != nil {
		t.Fatal(err)
	}

	s := openStack(t, dir)
	ctx := context.Background()
	if err := s.cfg.UpsertCollection(ctx, "corpus", docs); err != nil {
		t.Fatal(err)
	}
	if _, err := s.in.SyncCollection(ctx, "corpus"); err != nil {
		t.Fatal(err)
	}

	for _, tc := range corpus.Cases {
		t.Run(tc.Description, func(t *testing.T) {
			results, err := s.engine.Search(ctx, search.Params{
				Query:    tc.Query,
				Count:    e2eSearchLimit,
				BM25Only: true,
			})
			if err != nil {
				t.Fatalf("search failed: %v", err)
			}
			if !containsAny(resultPaths(results), tc.ExpectedPaths) {
				t.Errorf("query %q: expected one of %v in the top %d, got %v",
					tc.Query, tc.ExpectedPaths, e2eSearchLimit, resultPaths(results))
			}
		})
	}
}

func resultPaths(results []search.Result) []string {
	paths := make([]string, len(results))
	for i, r := range results {
		paths[i] = r.Path
	}
	return paths
}

func containsAny(got, expected []string) bool {
	set := make(map[string]bool, len(got))
	for _, p := range got {
		set[p] = true
	}
	for _, p := range expected {
		if set[p] {
			return true
		}
	}
	return false
}
