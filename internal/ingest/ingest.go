// Package ingest drives documents from the filesystem into the three
// stores: embeddings first, then metadata, then the text index batch.
package ingest

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/docbert/internal/chunker"
	"github.com/hyperjump/docbert/internal/configstore"
	"github.com/hyperjump/docbert/internal/docid"
	"github.com/hyperjump/docbert/internal/embedstore"
	"github.com/hyperjump/docbert/internal/encoder"
	"github.com/hyperjump/docbert/internal/maxsim"
	"github.com/hyperjump/docbert/internal/textindex"
	"github.com/hyperjump/docbert/internal/walker"
)

// Document is a loaded, identified file ready for ingestion.
type Document struct {
	ID           docid.DocumentID
	Collection   string
	RelativePath string
	Title        string
	Body         string
	Mtime        uint64
}

// Ingestor owns the write path across all three stores.
type Ingestor struct {
	cfg    *configstore.Store
	emb    *embedstore.Store
	index  *textindex.Index
	enc    encoder.Encoder
	logger *zap.Logger
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(in *Ingestor) {
		if logger != nil {
			in.logger = logger
		}
	}
}

// New returns an Ingestor over the given stores and encoder.
func New(cfg *configstore.Store, emb *embedstore.Store, index *textindex.Index, enc encoder.Encoder, opts ...Option) *Ingestor {
	in := &Ingestor{
		cfg:    cfg,
		emb:    emb,
		index:  index,
		enc:    enc,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// LoadDocuments reads each discovered file and derives its identity and
// title. Unreadable files are logged and skipped.
func (in *Ingestor) LoadDocuments(collection string, files []walker.File) []Document {
	docs := make([]Document, 0, len(files))
	for _, f := range files {
		body, err := walker.ReadBody(f.AbsolutePath)
		if err != nil {
			in.logger.Warn("skipping unreadable file",
				zap.String("path", f.AbsolutePath), zap.Error(err))
			continue
		}
		docs = append(docs, Document{
			ID:           docid.Derive(collection, f.RelativePath),
			Collection:   collection,
			RelativePath: f.RelativePath,
			Title:        walker.ParseTitle(body, f.RelativePath),
			Body:         body,
			Mtime:        f.Mtime,
		})
	}
	return docs
}

// IngestFiles loads and writes the given files under a collection,
// returning how many documents were ingested. Per-document failures are
// logged and skipped; the rest of the batch proceeds.
//
// Write order per document: chunk embeddings, then metadata. The text
// index entries are staged throughout and committed once at the end, so a
// crash can leave metadata ahead of the index but never metadata without
// its embedding; the next sync reconciles the index.
func (in *Ingestor) IngestFiles(ctx context.Context, collection string, files []walker.File) (int, error) {
	docs := in.LoadDocuments(collection, files)
	if len(docs) == 0 {
		return 0, nil
	}

	encoded, err := in.encodeAll(ctx, docs)
	if err != nil {
		return 0, err
	}

	batch := in.index.NewBatch()
	count := 0
	for i, doc := range docs {
		if encoded[i] == nil {
			continue
		}
		if err := in.writeDocument(ctx, doc, encoded[i], batch); err != nil {
			in.logger.Warn("skipping document",
				zap.String("doc", doc.Collection+":"+doc.RelativePath),
				zap.Error(err))
			continue
		}
		count++
	}

	if err := in.index.Execute(batch); err != nil {
		return count, err
	}
	return count, nil
}

// encodeAll runs the encoder over every document's chunks with bounded
// parallelism. A document whose encode fails gets a nil entry and a log
// line; only context cancellation aborts the whole batch.
func (in *Ingestor) encodeAll(ctx context.Context, docs []Document) ([][]maxsim.Matrix, error) {
	encoded := make([][]maxsim.Matrix, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chunks := chunker.Split(doc.Body, chunker.DefaultSize, chunker.DefaultOverlap)
			texts := make([]string, len(chunks))
			for k, c := range chunks {
				texts[k] = c.Text
			}
			matrices, err := in.enc.EncodeDocuments(gctx, texts)
			if err != nil {
				in.logger.Warn("encode failed",
					zap.String("doc", doc.Collection+":"+doc.RelativePath),
					zap.Error(err))
				return nil
			}
			encoded[i] = matrices
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return encoded, nil
}

// writeDocument persists one document everywhere but the index commit.
func (in *Ingestor) writeDocument(ctx context.Context, doc Document, matrices []maxsim.Matrix, batch *textindex.Batch) error {
	embeddings := make(map[uint64]maxsim.Matrix, len(matrices))
	for k, m := range matrices {
		embeddings[docid.ChunkID(doc.ID, uint16(k))] = m
	}
	if err := in.emb.BatchPut(embeddings); err != nil {
		return err
	}

	if err := in.cfg.PutMetadata(ctx, configstore.Metadata{
		NumericID:  uint64(doc.ID),
		Collection: doc.Collection,
		Path:       doc.RelativePath,
		Mtime:      doc.Mtime,
	}); err != nil {
		return err
	}

	// Staging a re-add for an existing ID replaces the previous entry.
	batch.Delete(uint64(doc.ID))
	return batch.Add(textindex.Document{
		Short:      doc.ID.Short(),
		NumID:      uint64(doc.ID),
		Collection: doc.Collection,
		Path:       doc.RelativePath,
		Title:      doc.Title,
		Body:       doc.Body,
		Mtime:      doc.Mtime,
	})
}

// removeDocument purges one document from all stores: index entry, chunk
// embeddings, then metadata.
func (in *Ingestor) removeDocument(ctx context.Context, numID uint64, batch *textindex.Batch) error {
	batch.Delete(numID)

	base := docid.DocumentID(numID)
	if _, err := in.emb.Remove(numID); err != nil {
		return err
	}
	// Chunk embeddings are written contiguously from index 1 upward.
	for k := uint16(1); ; k++ {
		existed, err := in.emb.Remove(docid.ChunkID(base, k))
		if err != nil {
			return err
		}
		if !existed {
			break
		}
	}

	return in.cfg.DeleteMetadata(ctx, numID)
}

// ApplyDeletions purges the given numeric IDs from every store.
func (in *Ingestor) ApplyDeletions(ctx context.Context, numIDs []uint64) error {
	if len(numIDs) == 0 {
		return nil
	}
	batch := in.index.NewBatch()
	for _, id := range numIDs {
		if err := in.removeDocument(ctx, id, batch); err != nil {
			return err
		}
	}
	return in.index.Execute(batch)
}

// RemoveCollection deletes a collection and purges every document that was
// under it from the embedding store and the text index.
func (in *Ingestor) RemoveCollection(ctx context.Context, name string) (int, error) {
	purged, err := in.cfg.RemoveCollection(ctx, name)
	if err != nil {
		return 0, err
	}

	batch := in.index.NewBatch()
	base := make([]uint64, 0, len(purged))
	for _, numID := range purged {
		batch.Delete(numID)
		base = append(base, numID)
		for k := uint16(1); ; k++ {
			existed, err := in.emb.Remove(docid.ChunkID(docid.DocumentID(numID), k))
			if err != nil {
				return 0, err
			}
			if !existed {
				break
			}
		}
	}
	if err := in.emb.BatchRemove(base); err != nil {
		return 0, err
	}
	if err := in.index.Execute(batch); err != nil {
		return 0, err
	}
	return len(purged), nil
}
