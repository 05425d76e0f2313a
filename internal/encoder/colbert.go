//go:build cgo
// +build cgo

package encoder

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/docbert/internal/docerr"
	"github.com/hyperjump/docbert/internal/maxsim"
	"github.com/hyperjump/docbert/pkg/utils"
)

// colbertModel owns the ONNX session for one loaded model.
type colbertModel struct {
	session *ort.DynamicAdvancedSession
	tok     *tokenizer
	docLen  int
	qryLen  int

	// The session is stateful across Run calls.
	mu sync.Mutex
}

func loadColbertModel(modelDir string, docLen, qryLen int) (*colbertModel, error) {
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	modelPath, err := findModelFile(modelDir)
	if err != nil {
		return nil, err
	}
	tok, err := loadTokenizer(modelDir)
	if err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"last_hidden_state"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create session for %s: %w", modelPath, err)
	}

	return &colbertModel{
		session: session,
		tok:     tok,
		docLen:  docLen,
		qryLen:  qryLen,
	}, nil
}

func (m *colbertModel) close() error {
	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	return err
}

func (m *colbertModel) encodeDocuments(ctx context.Context, texts []string) ([]maxsim.Matrix, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ids := make([][]int64, len(texts))
	masks := make([][]int64, len(texts))
	maxLen := 0
	for i, text := range texts {
		ids[i], masks[i] = m.tok.DocumentIDs(text, m.docLen)
		if len(ids[i]) > maxLen {
			maxLen = len(ids[i])
		}
	}

	return m.run(ctx, ids, masks, maxLen)
}

func (m *colbertModel) encodeQuery(ctx context.Context, text string) (maxsim.Matrix, error) {
	ids, mask := m.tok.QueryIDs(text, m.qryLen)
	out, err := m.run(ctx, [][]int64{ids}, [][]int64{mask}, len(ids))
	if err != nil {
		return maxsim.Matrix{}, err
	}
	return out[0], nil
}

// run pads the batch to maxLen, executes the graph, and splits the token
// embeddings back into one normalized matrix per input sequence.
func (m *colbertModel) run(ctx context.Context, ids, masks [][]int64, maxLen int) ([]maxsim.Matrix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch := len(ids)
	flatIDs := make([]int64, batch*maxLen)
	flatMask := make([]int64, batch*maxLen)
	for i := range ids {
		row := flatIDs[i*maxLen : (i+1)*maxLen]
		for j := range row {
			row[j] = m.tok.PadID()
		}
		copy(row, ids[i])
		copy(flatMask[i*maxLen:(i+1)*maxLen], masks[i])
	}

	shape := ort.NewShape(int64(batch), int64(maxLen))
	idsTensor, err := ort.NewTensor(shape, flatIDs)
	if err != nil {
		return nil, docerr.Wrap(docerr.KindEncoder, err, "create input_ids tensor")
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor(shape, flatMask)
	if err != nil {
		return nil, docerr.Wrap(docerr.KindEncoder, err, "create attention_mask tensor")
	}
	defer maskTensor.Destroy()

	m.mu.Lock()
	outputs := []ort.ArbitraryTensor{nil}
	err = m.session.Run([]ort.ArbitraryTensor{idsTensor, maskTensor}, outputs)
	m.mu.Unlock()
	if err != nil {
		return nil, docerr.Wrap(docerr.KindEncoder, err, "inference over batch of %d", batch)
	}

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, docerr.New(docerr.KindEncoder, "unexpected output tensor type")
	}
	defer out.Destroy()

	outShape := out.GetShape()
	if len(outShape) != 3 {
		return nil, docerr.New(docerr.KindNumeric,
			"output rank %d, want 3", len(outShape))
	}
	dim := int(outShape[2])
	data := out.GetData()

	matrices := make([]maxsim.Matrix, batch)
	for i := range ids {
		tokens := len(ids[i])
		rows := make([]float32, tokens*dim)
		copy(rows, data[i*maxLen*dim:i*maxLen*dim+tokens*dim])
		for r := 0; r < tokens; r++ {
			utils.NormalizeL2(rows[r*dim : (r+1)*dim])
		}
		matrices[i] = maxsim.NewMatrix(tokens, dim, rows)
	}
	return matrices, nil
}
