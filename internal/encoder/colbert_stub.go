//go:build !cgo
// +build !cgo

package encoder

import (
	"context"
	"errors"

	"github.com/hyperjump/docbert/internal/maxsim"
)

// colbertModel stub when built without CGO (see colbert.go for the real
// implementation).
type colbertModel struct{}

func loadColbertModel(string, int, int) (*colbertModel, error) {
	return nil, errors.New("onnx inference requires cgo; build with CGO_ENABLED=1 and onnxruntime")
}

func (m *colbertModel) close() error { return nil }

func (m *colbertModel) encodeDocuments(context.Context, []string) ([]maxsim.Matrix, error) {
	return nil, errors.New("onnx inference requires cgo")
}

func (m *colbertModel) encodeQuery(context.Context, string) (maxsim.Matrix, error) {
	return maxsim.Matrix{}, errors.New("onnx inference requires cgo")
}
