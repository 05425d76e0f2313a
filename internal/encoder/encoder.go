// Package encoder produces ColBERT token embedding matrices for documents
// and queries.
package encoder

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/docbert/internal/docerr"
	"github.com/hyperjump/docbert/internal/maxsim"
)

// Fallback sequence lengths when the model ships no sentence-transformers
// config.
const (
	DefaultDocumentLength = 180
	DefaultQueryLength    = 32
)

// Encoder turns text into L2-normalized token embedding matrices.
type Encoder interface {
	// EncodeDocuments embeds each text with the document marker, truncated
	// to DocumentLength, one matrix per input.
	EncodeDocuments(ctx context.Context, texts []string) ([]maxsim.Matrix, error)
	// EncodeQuery embeds text with the query marker, padded to QueryLength
	// with mask tokens (query expansion).
	EncodeQuery(ctx context.Context, text string) (maxsim.Matrix, error)
	DocumentLength() int
	QueryLength() int
}

// Colbert is the ONNX-backed encoder. The model loads lazily on first use;
// a failed load surfaces on the triggering call and the next call retries
// from scratch.
type Colbert struct {
	modelID string
	logger  *zap.Logger

	mu     sync.Mutex
	model  *colbertModel
	docLen int
	qryLen int
}

// NewColbert returns an encoder for the given model ID. Sequence lengths
// come from the model's config_sentence_transformers.json when the model is
// already on disk, else the compiled-in fallbacks.
func NewColbert(modelID string, logger *zap.Logger) *Colbert {
	if logger == nil {
		logger = zap.NewNop()
	}
	docLen, qryLen := DefaultDocumentLength, DefaultQueryLength
	if dir, err := locateModelDir(modelID); err == nil {
		if cfg, err := loadSequenceLengths(dir); err == nil {
			if cfg.DocumentLength > 0 {
				docLen = cfg.DocumentLength
			}
			if cfg.QueryLength > 0 {
				qryLen = cfg.QueryLength
			}
		}
	}
	return &Colbert{
		modelID: modelID,
		logger:  logger,
		docLen:  docLen,
		qryLen:  qryLen,
	}
}

// DocumentLength returns the maximum document sequence length in tokens.
func (c *Colbert) DocumentLength() int { return c.docLen }

// QueryLength returns the fixed query sequence length in tokens.
func (c *Colbert) QueryLength() int { return c.qryLen }

// ensureLoaded loads the model under the lock. The model pointer stays nil
// after a failure so a later call can retry.
func (c *Colbert) ensureLoaded() (*colbertModel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model != nil {
		return c.model, nil
	}

	dir, err := locateModelDir(c.modelID)
	if err != nil {
		return nil, err
	}
	c.logger.Info("loading model", zap.String("model", c.modelID), zap.String("dir", dir))

	model, err := loadColbertModel(dir, c.docLen, c.qryLen)
	if err != nil {
		return nil, docerr.Wrap(docerr.KindEncoder, err, "load model %s", c.modelID)
	}
	c.model = model
	return model, nil
}

// EncodeDocuments implements Encoder.
func (c *Colbert) EncodeDocuments(ctx context.Context, texts []string) ([]maxsim.Matrix, error) {
	model, err := c.ensureLoaded()
	if err != nil {
		return nil, err
	}
	return model.encodeDocuments(ctx, texts)
}

// EncodeQuery implements Encoder.
func (c *Colbert) EncodeQuery(ctx context.Context, text string) (maxsim.Matrix, error) {
	model, err := c.ensureLoaded()
	if err != nil {
		return maxsim.Matrix{}, err
	}
	return model.encodeQuery(ctx, text)
}

// Close releases the loaded model, if any.
func (c *Colbert) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model == nil {
		return nil
	}
	err := c.model.close()
	c.model = nil
	return err
}
