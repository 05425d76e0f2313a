// Package maxsim implements late-interaction scoring over token embedding
// matrices.
package maxsim

import (
	"github.com/hyperjump/docbert/internal/docerr"
)

// Matrix is a dense row-major f32 matrix. Rows are token embeddings.
type Matrix struct {
	Rows int
	Cols int
	Data []float32
}

// NewMatrix wraps data as a rows x cols matrix. len(data) must equal
// rows*cols; callers construct from validated sources.
func NewMatrix(rows, cols int, data []float32) Matrix {
	return Matrix{Rows: rows, Cols: cols, Data: data}
}

// Row returns row i as a slice into the backing array.
func (m Matrix) Row(i int) []float32 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

// Empty reports whether the matrix has no rows.
func (m Matrix) Empty() bool { return m.Rows == 0 }

// Score computes the MaxSim late-interaction score between a query matrix q
// and a document matrix d: for each query token, the maximum dot product
// against all document tokens, summed over query tokens.
//
// An empty document scores 0. Non-finite input values propagate into the
// result unchanged. Mismatched embedding widths are a shape error.
func Score(q, d Matrix) (float32, error) {
	if q.Empty() || d.Empty() {
		return 0, nil
	}
	if q.Cols != d.Cols {
		return 0, docerr.New(docerr.KindNumeric,
			"embedding width mismatch: query %d, document %d", q.Cols, d.Cols)
	}

	cols := q.Cols
	var total float32
	for i := 0; i < q.Rows; i++ {
		qrow := q.Data[i*cols : (i+1)*cols]
		best := dot(qrow, d.Data[:cols])
		for j := 1; j < d.Rows; j++ {
			drow := d.Data[j*cols : (j+1)*cols]
			if s := dot(qrow, drow); s > best {
				best = s
			}
		}
		total += best
	}
	return total, nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
