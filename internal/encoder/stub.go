package encoder

import (
	"context"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/hyperjump/docbert/internal/maxsim"
)

// Stub is a deterministic encoder for tests. Each word maps to a fixed
// unit vector derived from its hash, so MaxSim over stub matrices tracks
// token overlap: shared words contribute near-1 similarities, disjoint
// words contribute small ones.
type Stub struct {
	Dim    int
	DocLen int
	QryLen int
}

// NewStub returns a stub encoder with small default shapes.
func NewStub() *Stub {
	return &Stub{Dim: 128, DocLen: DefaultDocumentLength, QryLen: DefaultQueryLength}
}

// EncodeDocuments implements Encoder.
func (s *Stub) EncodeDocuments(_ context.Context, texts []string) ([]maxsim.Matrix, error) {
	out := make([]maxsim.Matrix, len(texts))
	for i, text := range texts {
		out[i] = s.encode(text, s.DocLen)
	}
	return out, nil
}

// EncodeQuery implements Encoder.
func (s *Stub) EncodeQuery(_ context.Context, text string) (maxsim.Matrix, error) {
	return s.encode(text, s.QryLen), nil
}

// DocumentLength implements Encoder.
func (s *Stub) DocumentLength() int { return s.DocLen }

// QueryLength implements Encoder.
func (s *Stub) QueryLength() int { return s.QryLen }

func (s *Stub) encode(text string, maxTokens int) maxsim.Matrix {
	words := splitWords(text)
	if len(words) > maxTokens {
		words = words[:maxTokens]
	}
	if len(words) == 0 {
		words = []string{""}
	}

	data := make([]float32, 0, len(words)*s.Dim)
	for _, w := range words {
		data = append(data, s.wordVector(w)...)
	}
	return maxsim.NewMatrix(len(words), s.Dim, data)
}

// wordVector builds a sparse unit vector seeded by the word hash. Two
// hash-chosen components keep distinct words close to orthogonal, so the
// same word always scores 1.0 against itself and well below that against
// anything else.
func (s *Stub) wordVector(word string) []float32 {
	seed := xxhash.Sum64String(word)
	v := make([]float32, s.Dim)
	v[int(seed%uint64(s.Dim))] += 0.8
	v[int((seed>>16)%uint64(s.Dim))] += 0.6
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= inv
	}
	return v
}
