// Package textindex wraps the Bleve full-text index that backs the lexical
// retrieval stage.
package textindex

import (
	"os"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/docbert/internal/docerr"
)

// CandidateLimit is the canonical number of lexical candidates handed to
// the reranking stage.
const CandidateLimit = 1000

// titleBoost weights title matches over body matches.
const titleBoost = 2.0

// minFuzzyTermLen excludes short terms from fuzzy expansion; distance-1
// variants of one- and two-character terms match nearly everything.
const minFuzzyTermLen = 3

// Document is one index entry. NumID doubles as the Bleve document ID in
// decimal form, which keeps the full 64-bit value exact (numeric fields are
// stored as float64 internally and lose precision above 2^53).
type Document struct {
	Short      string
	NumID      uint64
	Collection string
	Path       string
	Title      string
	Body       string
	Mtime      uint64
}

// Hit is one search result.
type Hit struct {
	NumID      uint64
	Score      float64
	Short      string
	Collection string
	Path       string
	Title      string
	Mtime      uint64
}

// SearchOptions narrow a search.
type SearchOptions struct {
	// Collection restricts hits to one collection when non-empty.
	Collection string
	// Fuzzy adds distance-1 term queries for typo tolerance.
	Fuzzy bool
	// Limit caps the result count; 0 means CandidateLimit.
	Limit int
}

// Index is a Bleve-backed inverted index.
type Index struct {
	index bleve.Index
}

func buildMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	doc := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = en.AnalyzerName
	doc.AddFieldMappingsAt("title", title)

	body := bleve.NewTextFieldMapping()
	body.Analyzer = en.AnalyzerName
	body.Store = false
	doc.AddFieldMappingsAt("body", body)

	for _, exact := range []string{"doc_id", "collection", "path"} {
		doc.AddFieldMappingsAt(exact, bleve.NewKeywordFieldMapping())
	}
	doc.AddFieldMappingsAt("mtime", bleve.NewNumericFieldMapping())

	im.DefaultMapping = doc
	return im
}

// Open opens the index directory, creating it with the current mapping when
// absent.
func Open(dir string) (*Index, error) {
	if _, err := os.Stat(dir); err == nil {
		ix, openErr := bleve.Open(dir)
		if openErr != nil {
			return nil, docerr.Wrap(docerr.KindTextIndex, openErr, "open index %s", dir)
		}
		return &Index{index: ix}, nil
	}
	ix, err := bleve.New(dir, buildMapping())
	if err != nil {
		return nil, docerr.Wrap(docerr.KindTextIndex, err, "create index %s", dir)
	}
	return &Index{index: ix}, nil
}

// OpenInMemory returns a non-persistent index. Used by tests.
func OpenInMemory() (*Index, error) {
	ix, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, docerr.Wrap(docerr.KindTextIndex, err, "create in-memory index")
	}
	return &Index{index: ix}, nil
}

// Close releases the index.
func (ix *Index) Close() error {
	return ix.index.Close()
}

// Batch stages adds and deletes until Execute commits them.
type Batch struct {
	batch *bleve.Batch
}

// NewBatch returns an empty staging batch.
func (ix *Index) NewBatch() *Batch {
	return &Batch{batch: ix.index.NewBatch()}
}

// Add stages one document, replacing any entry with the same numeric ID.
func (b *Batch) Add(doc Document) error {
	return b.batch.Index(formatNumID(doc.NumID), map[string]any{
		"doc_id":     doc.Short,
		"collection": doc.Collection,
		"path":       doc.Path,
		"title":      doc.Title,
		"body":       doc.Body,
		"mtime":      float64(doc.Mtime),
	})
}

// Delete stages removal of the entry for a numeric ID.
func (b *Batch) Delete(numID uint64) {
	b.batch.Delete(formatNumID(numID))
}

// Size returns the number of staged operations.
func (b *Batch) Size() int {
	return b.batch.Size()
}

// Execute commits the staged batch.
func (ix *Index) Execute(b *Batch) error {
	if err := ix.index.Batch(b.batch); err != nil {
		return docerr.Wrap(docerr.KindTextIndex, err, "commit batch of %d", b.batch.Size())
	}
	return nil
}

// Add indexes a single document outside a batch.
func (ix *Index) Add(doc Document) error {
	b := ix.NewBatch()
	if err := b.Add(doc); err != nil {
		return docerr.Wrap(docerr.KindTextIndex, err, "stage document %d", doc.NumID)
	}
	return ix.Execute(b)
}

// DeleteByNumID removes a single entry outside a batch.
func (ix *Index) DeleteByNumID(numID uint64) error {
	b := ix.NewBatch()
	b.Delete(numID)
	return ix.Execute(b)
}

// DocCount returns the number of indexed documents.
func (ix *Index) DocCount() (uint64, error) {
	return ix.index.DocCount()
}

// Search runs a lenient match query over title and body, title boosted 2x,
// ordered by BM25 score descending. With Fuzzy set, distance-1 term queries
// join the disjunction for every significant query term, so a document
// matched both exactly and fuzzily sums the clause scores.
func (ix *Index) Search(query string, opts SearchOptions) ([]Hit, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = CandidateLimit
	}

	q := buildQuery(query, opts.Fuzzy)
	if opts.Collection != "" {
		filter := blevequery.NewTermQuery(opts.Collection)
		filter.SetField("collection")
		q = bleve.NewConjunctionQuery(q, filter)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{"doc_id", "collection", "path", "title", "mtime"}

	res, err := ix.index.Search(req)
	if err != nil {
		return nil, docerr.Wrap(docerr.KindTextIndex, err, "search %q", query)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		numID, err := strconv.ParseUint(h.ID, 10, 64)
		if err != nil {
			return nil, docerr.New(docerr.KindCorrupt, "malformed index doc id %q", h.ID)
		}
		hit := Hit{NumID: numID, Score: h.Score}
		if v, ok := h.Fields["doc_id"].(string); ok {
			hit.Short = v
		}
		if v, ok := h.Fields["collection"].(string); ok {
			hit.Collection = v
		}
		if v, ok := h.Fields["path"].(string); ok {
			hit.Path = v
		}
		if v, ok := h.Fields["title"].(string); ok {
			hit.Title = v
		}
		if v, ok := h.Fields["mtime"].(float64); ok {
			hit.Mtime = uint64(v)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// StoredDocs returns the stored fields for the given numeric IDs, keyed by
// ID. Absent IDs are simply missing from the map.
func (ix *Index) StoredDocs(numIDs []uint64) (map[uint64]Hit, error) {
	if len(numIDs) == 0 {
		return map[uint64]Hit{}, nil
	}
	ids := make([]string, len(numIDs))
	for i, id := range numIDs {
		ids[i] = formatNumID(id)
	}

	req := bleve.NewSearchRequest(blevequery.NewDocIDQuery(ids))
	req.Size = len(ids)
	req.Fields = []string{"doc_id", "collection", "path", "title", "mtime"}

	res, err := ix.index.Search(req)
	if err != nil {
		return nil, docerr.Wrap(docerr.KindTextIndex, err, "lookup %d docs", len(ids))
	}

	out := make(map[uint64]Hit, len(res.Hits))
	for _, h := range res.Hits {
		numID, err := strconv.ParseUint(h.ID, 10, 64)
		if err != nil {
			return nil, docerr.New(docerr.KindCorrupt, "malformed index doc id %q", h.ID)
		}
		hit := Hit{NumID: numID}
		if v, ok := h.Fields["doc_id"].(string); ok {
			hit.Short = v
		}
		if v, ok := h.Fields["collection"].(string); ok {
			hit.Collection = v
		}
		if v, ok := h.Fields["path"].(string); ok {
			hit.Path = v
		}
		if v, ok := h.Fields["title"].(string); ok {
			hit.Title = v
		}
		if v, ok := h.Fields["mtime"].(float64); ok {
			hit.Mtime = uint64(v)
		}
		out[numID] = hit
	}
	return out, nil
}

func buildQuery(query string, fuzzy bool) blevequery.Query {
	title := bleve.NewMatchQuery(query)
	title.SetField("title")
	title.SetBoost(titleBoost)

	body := bleve.NewMatchQuery(query)
	body.SetField("body")

	clauses := []blevequery.Query{title, body}

	if fuzzy {
		for _, term := range strings.Fields(strings.ToLower(query)) {
			if len([]rune(term)) < minFuzzyTermLen {
				continue
			}
			for _, field := range []string{"title", "body"} {
				fq := bleve.NewFuzzyQuery(term)
				fq.SetFuzziness(1)
				fq.SetField(field)
				clauses = append(clauses, fq)
			}
		}
	}

	if len(clauses) == 2 && !fuzzy {
		return bleve.NewDisjunctionQuery(title, body)
	}
	return bleve.NewDisjunctionQuery(clauses...)
}

func formatNumID(numID uint64) string {
	return strconv.FormatUint(numID, 10)
}
