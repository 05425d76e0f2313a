package textindex

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func indexDocs(t *testing.T, ix *Index, docs ...Document) {
	t.Helper()
	b := ix.NewBatch()
	for _, d := range docs {
		require.NoError(t, b.Add(d))
	}
	require.NoError(t, ix.Execute(b))
}

func testCorpus() []Document {
	return []Document{
		{Short: "000001", NumID: 1, Collection: "notes", Path: "rust.md",
			Title: "Rust ownership", Body: "The borrow checker enforces ownership rules.", Mtime: 100},
		{Short: "000002", NumID: 2, Collection: "notes", Path: "go.md",
			Title: "Go concurrency", Body: "Goroutines and channels make concurrency simple.", Mtime: 200},
		{Short: "000003", NumID: 3, Collection: "work", Path: "design.md",
			Title: "Service design", Body: "Concurrency patterns for the ingestion service.", Mtime: 300},
	}
}

func TestSearchReturnsStoredFields(t *testing.T) {
	ix := openTestIndex(t)
	indexDocs(t, ix, testCorpus()...)

	hits, err := ix.Search("ownership", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 1)

	h := hits[0]
	assert.Equal(t, uint64(1), h.NumID)
	assert.Equal(t, "000001", h.Short)
	assert.Equal(t, "notes", h.Collection)
	assert.Equal(t, "rust.md", h.Path)
	assert.Equal(t, "Rust ownership", h.Title)
	assert.Equal(t, uint64(100), h.Mtime)
	assert.Positive(t, h.Score)
}

func TestSearchEnglishStemming(t *testing.T) {
	ix := openTestIndex(t)
	indexDocs(t, ix, testCorpus()...)

	// "goroutine" should match the indexed plural "goroutines".
	hits, err := ix.Search("goroutine", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, uint64(2), hits[0].NumID)
}

func TestSearchTitleBoost(t *testing.T) {
	ix := openTestIndex(t)
	indexDocs(t, ix,
		Document{Short: "00000a", NumID: 10, Collection: "c", Path: "a.md",
			Title: "Concurrency", Body: "unrelated body text here", Mtime: 1},
		Document{Short: "00000b", NumID: 11, Collection: "c", Path: "b.md",
			Title: "Unrelated", Body: "a note that mentions concurrency once", Mtime: 1},
	)

	hits, err := ix.Search("concurrency", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, uint64(10), hits[0].NumID, "title match outranks body match")
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestSearchCollectionFilter(t *testing.T) {
	ix := openTestIndex(t)
	indexDocs(t, ix, testCorpus()...)

	hits, err := ix.Search("concurrency", SearchOptions{Collection: "work"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, uint64(3), hits[0].NumID)

	hits, err = ix.Search("concurrency", SearchOptions{Collection: "nope"})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchFuzzy(t *testing.T) {
	ix := openTestIndex(t)
	indexDocs(t, ix, testCorpus()...)

	// One edit away from "ownership".
	hits, err := ix.Search("ownershop", SearchOptions{Fuzzy: true})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, uint64(1), hits[0].NumID)

	hits, err = ix.Search("ownershop", SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, hits, "no fuzzy expansion without the flag")
}

func TestSearchLenientOnMalformedQuery(t *testing.T) {
	ix := openTestIndex(t)
	indexDocs(t, ix, testCorpus()...)

	// Match queries treat operator characters as text, never as syntax.
	_, err := ix.Search(`AND OR ((("`, SearchOptions{})
	assert.NoError(t, err)
}

func TestDeleteByNumID(t *testing.T) {
	ix := openTestIndex(t)
	indexDocs(t, ix, testCorpus()...)

	require.NoError(t, ix.DeleteByNumID(1))

	hits, err := ix.Search("ownership", SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, hits)

	n, err := ix.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestBatchReplaceKeepsOneEntry(t *testing.T) {
	ix := openTestIndex(t)
	doc := testCorpus()[0]
	indexDocs(t, ix, doc)

	doc.Title = "Rust ownership, revised"
	indexDocs(t, ix, doc)

	n, err := ix.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	hits, err := ix.Search("revised", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, uint64(1), hits[0].NumID)
}

func TestLargeNumIDExact(t *testing.T) {
	ix := openTestIndex(t)
	// Above 2^53: would be mangled by a float64 round-trip.
	big := uint64(0xFEDCBA9876543210)
	indexDocs(t, ix, Document{
		Short: "543210", NumID: big, Collection: "c", Path: "x.md",
		Title: "Precision", Body: "sixty four bit identifiers", Mtime: 1,
	})

	hits, err := ix.Search("identifiers", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, big, hits[0].NumID)
}

func TestOpenPersistsOnDisk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bleve")

	ix, err := Open(dir)
	require.NoError(t, err)
	indexDocs(t, ix, testCorpus()...)
	require.NoError(t, ix.Close())

	ix2, err := Open(dir)
	require.NoError(t, err)
	defer ix2.Close()

	n, err := ix2.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
}
