// Package integration exercises the pipeline against real on-disk stores,
// including reopening them between operations.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/docbert/internal/configstore"
	"github.com/hyperjump/docbert/internal/embedstore"
	"github.com/hyperjump/docbert/internal/encoder"
	"github.com/hyperjump/docbert/internal/ingest"
	"github.com/hyperjump/docbert/internal/search"
	"github.com/hyperjump/docbert/internal/textindex"
)

type stack struct {
	cfg    *configstore.Store
	emb    *embedstore.Store
	ix     *textindex.Index
	engine *search.Engine
	in     *ingest.Ingestor
}

func open(t *testing.T, dir string) *stack {
	t.Helper()
	cfg, err := configstore.Open(filepath.Join(dir, "config.db"))
	if err != nil {
		t.Fatal(err)
	}
	emb, err := embedstore.Open(filepath.Join(dir, "embeddings.db"))
	if err != nil {
		t.Fatal(err)
	}
	ix, err := textindex.Open(filepath.Join(dir, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	enc := encoder.NewStub()
	return &stack{
		cfg:    cfg,
		emb:    emb,
		ix:     ix,
		engine: search.New(cfg, emb, ix, enc),
		in:     ingest.New(cfg, emb, ix, enc),
	}
}

func (s *stack) close(t *testing.T) {
	t.Helper()
	if err := s.ix.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.emb.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.cfg.Close(); err != nil {
		t.Fatal(err)
	}
}

func writeDoc(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSearchSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	docs := filepath.Join(dir, "docs")
	writeDoc(t, docs, "ml.md", "# ML\nmachine learning algorithms learn from data\n")
	writeDoc(t, docs, "web.md", "# Web\nsemantic search uses embeddings\n")
	ctx := context.Background()

	s := open(t, dir)
	if err := s.cfg.UpsertCollection(ctx, "notes", docs); err != nil {
		t.Fatal(err)
	}
	if _, err := s.in.SyncCollection(ctx, "notes"); err != nil {
		t.Fatal(err)
	}
	s.close(t)

	// Everything below runs against freshly opened stores.
	s = open(t, dir)
	defer s.close(t)

	results, err := s.engine.Search(ctx, search.Params{Query: "machine learning"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 || results[0].Path != "ml.md" {
		t.Fatalf("expected ml.md first after reopen, got %+v", results)
	}

	sem, err := s.engine.Semantic(ctx, search.SemanticParams{Query: "semantic search embeddings"})
	if err != nil {
		t.Fatal(err)
	}
	if len(sem) == 0 || sem[0].Path != "web.md" {
		t.Fatalf("expected web.md first semantically after reopen, got %+v", sem)
	}
}

func TestIncrementalSyncAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	docs := filepath.Join(dir, "docs")
	writeDoc(t, docs, "a.md", "alpha original content\n")
	ctx := context.Background()

	s := open(t, dir)
	if err := s.cfg.UpsertCollection(ctx, "notes", docs); err != nil {
		t.Fatal(err)
	}
	stats, err := s.in.SyncCollection(ctx, "notes")
	if err != nil {
		t.Fatal(err)
	}
	if stats.New != 1 {
		t.Fatalf("expected 1 new, got %+v", stats)
	}
	s.close(t)

	// Change one file, add another, then sync with a fresh set of handles.
	// Mtime is bumped explicitly so coarse filesystem timestamps cannot
	// hide the change.
	writeDoc(t, docs, "a.md", "alpha revised content\n")
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(filepath.Join(docs, "a.md"), future, future); err != nil {
		t.Fatal(err)
	}
	writeDoc(t, docs, "b.md", "beta brand new\n")

	s = open(t, dir)
	defer s.close(t)
	stats, err = s.in.SyncCollection(ctx, "notes")
	if err != nil {
		t.Fatal(err)
	}
	if stats.New != 1 || stats.Changed != 1 {
		t.Fatalf("expected 1 new and 1 changed, got %+v", stats)
	}

	results, err := s.engine.Search(ctx, search.Params{Query: "revised", BM25Only: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Path != "a.md" {
		t.Fatalf("expected revised a.md, got %+v", results)
	}
}

func TestRemoveCollectionPurgesOnDisk(t *testing.T) {
	dir := t.TempDir()
	docs := filepath.Join(dir, "docs")
	writeDoc(t, docs, "a.md", "gamma text body\n")
	ctx := context.Background()

	s := open(t, dir)
	if err := s.cfg.UpsertCollection(ctx, "notes", docs); err != nil {
		t.Fatal(err)
	}
	if _, err := s.in.SyncCollection(ctx, "notes"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.in.RemoveCollection(ctx, "notes"); err != nil {
		t.Fatal(err)
	}
	s.close(t)

	s = open(t, dir)
	defer s.close(t)

	n, err := s.emb.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected empty embedding store after reopen, got %d", n)
	}
	count, err := s.ix.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("expected empty text index after reopen, got %d", count)
	}
}
