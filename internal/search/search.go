// Package search runs the two-stage retrieval pipelines: lexical candidates
// from the text index, optionally reranked by MaxSim over stored embeddings.
package search

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/hyperjump/docbert/internal/configstore"
	"github.com/hyperjump/docbert/internal/docid"
	"github.com/hyperjump/docbert/internal/embedstore"
	"github.com/hyperjump/docbert/internal/encoder"
	"github.com/hyperjump/docbert/internal/maxsim"
	"github.com/hyperjump/docbert/internal/textindex"
)

// DefaultCount is how many results a search returns unless asked otherwise.
const DefaultCount = 10

// Params control a hybrid search.
type Params struct {
	Query      string
	Count      int
	Collection string
	MinScore   float64
	// BM25Only skips the reranking stage; the encoder is never touched.
	BM25Only bool
	// NoFuzzy disables the distance-1 term expansion in the lexical stage.
	NoFuzzy bool
	// All returns every match regardless of Count.
	All bool
}

// SemanticParams control an index-free semantic scan.
type SemanticParams struct {
	Query    string
	Count    int
	MinScore float64
	All      bool
}

// Result is one ranked document.
type Result struct {
	Rank       int     `json:"rank"`
	Score      float64 `json:"score"`
	DocID      string  `json:"doc_id"`
	DocNumID   uint64  `json:"doc_num_id"`
	Collection string  `json:"collection"`
	Path       string  `json:"path"`
	Title      string  `json:"title"`
}

// Engine wires the stores and encoder behind the search operations.
type Engine struct {
	cfg    *configstore.Store
	emb    *embedstore.Store
	index  *textindex.Index
	enc    encoder.Encoder
	logger *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New returns a search engine over the given stores.
func New(cfg *configstore.Store, emb *embedstore.Store, index *textindex.Index, enc encoder.Encoder, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		emb:    emb,
		index:  index,
		enc:    enc,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// scored carries a candidate through filtering and ranking. bm25Rank is the
// position in the lexical result list and breaks score ties so hybrid
// ordering stays deterministic.
type scored struct {
	hit      textindex.Hit
	score    float64
	bm25Rank int
}

// Search runs the hybrid pipeline.
func (e *Engine) Search(ctx context.Context, p Params) ([]Result, error) {
	candidates, err := e.index.Search(p.Query, textindex.SearchOptions{
		Collection: p.Collection,
		Fuzzy:      !p.NoFuzzy,
		Limit:      textindex.CandidateLimit,
	})
	if err != nil {
		// A broken lexical stage yields no candidates, not a failed search.
		e.logger.Error("lexical stage failed", zap.String("query", p.Query), zap.Error(err))
		candidates = nil
	}
	if len(candidates) == 0 {
		return []Result{}, nil
	}

	if p.BM25Only {
		ranked := make([]scored, len(candidates))
		for i, h := range candidates {
			ranked[i] = scored{hit: h, score: h.Score, bm25Rank: i}
		}
		return finalize(ranked, p.MinScore, p.Count, p.All), nil
	}

	q, err := e.enc.EncodeQuery(ctx, p.Query)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, len(candidates))
	for i, h := range candidates {
		ids[i] = h.NumID
	}
	matrices, err := e.emb.BatchGet(ids)
	if err != nil {
		return nil, err
	}

	ranked := make([]scored, 0, len(candidates))
	for i, h := range candidates {
		if matrices[i] == nil {
			// Candidate indexed but not yet embedded; next sync reconciles.
			continue
		}
		score, err := maxsim.Score(q, *matrices[i])
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, scored{hit: h, score: float64(score), bm25Rank: i})
	}
	return finalize(ranked, p.MinScore, p.Count, p.All), nil
}

// Semantic scores every stored document against the query, no lexical
// stage. Linear in the corpus size.
func (e *Engine) Semantic(ctx context.Context, p SemanticParams) ([]Result, error) {
	q, err := e.enc.EncodeQuery(ctx, p.Query)
	if err != nil {
		return nil, err
	}

	// Metadata enumerates exactly the chunk-0 IDs and already carries the
	// fields results need.
	docs, err := e.cfg.ListAllMetadata(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, len(docs))
	for i, m := range docs {
		ids[i] = m.NumericID
	}
	matrices, err := e.emb.BatchGet(ids)
	if err != nil {
		return nil, err
	}
	stored, err := e.index.StoredDocs(ids)
	if err != nil {
		e.logger.Warn("title lookup failed", zap.Error(err))
		stored = map[uint64]textindex.Hit{}
	}

	ranked := make([]scored, 0, len(docs))
	for i, m := range docs {
		if matrices[i] == nil {
			continue
		}
		score, err := maxsim.Score(q, *matrices[i])
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, scored{
			hit: textindex.Hit{
				NumID:      m.NumericID,
				Short:      docid.DocumentID(m.NumericID).Short(),
				Collection: m.Collection,
				Path:       m.Path,
				Title:      stored[m.NumericID].Title,
			},
			score:    float64(score),
			bm25Rank: i,
		})
	}
	return finalize(ranked, p.MinScore, p.Count, p.All), nil
}

// finalize filters by minimum score, orders by score descending with the
// lexical rank as tiebreak, and applies the count limit.
func finalize(ranked []scored, minScore float64, count int, all bool) []Result {
	kept := ranked[:0]
	for _, r := range ranked {
		if r.score >= minScore {
			kept = append(kept, r)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].score != kept[j].score {
			return kept[i].score > kept[j].score
		}
		return kept[i].bm25Rank < kept[j].bm25Rank
	})

	if !all {
		if count <= 0 {
			count = DefaultCount
		}
		if len(kept) > count {
			kept = kept[:count]
		}
	}

	out := make([]Result, len(kept))
	for i, r := range kept {
		out[i] = Result{
			Rank:       i + 1,
			Score:      r.score,
			DocID:      "#" + r.hit.Short,
			DocNumID:   r.hit.NumID,
			Collection: r.hit.Collection,
			Path:       r.hit.Path,
			Title:      r.hit.Title,
		}
	}
	return out
}
