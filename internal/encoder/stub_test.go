package encoder

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/docbert/internal/maxsim"
)

func TestStubDeterministic(t *testing.T) {
	s := NewStub()
	ctx := context.Background()

	a, err := s.EncodeQuery(ctx, "hello world")
	require.NoError(t, err)
	b, err := s.EncodeQuery(ctx, "hello world")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestStubRowsAreUnitVectors(t *testing.T) {
	s := NewStub()
	m, err := s.EncodeQuery(context.Background(), "unit vectors here")
	require.NoError(t, err)

	for i := 0; i < m.Rows; i++ {
		var norm float64
		for _, v := range m.Row(i) {
			norm += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, norm, 1e-5)
	}
}

func TestStubScoresTokenOverlap(t *testing.T) {
	s := NewStub()
	ctx := context.Background()

	q, err := s.EncodeQuery(ctx, "rust ownership")
	require.NoError(t, err)

	docs, err := s.EncodeDocuments(ctx, []string{
		"rust ownership and borrowing",
		"cooking pasta at home tonight",
	})
	require.NoError(t, err)

	relevant, err := maxsim.Score(q, docs[0])
	require.NoError(t, err)
	unrelated, err := maxsim.Score(q, docs[1])
	require.NoError(t, err)

	assert.Greater(t, relevant, unrelated)
	// Both query words appear verbatim in the first document.
	assert.InDelta(t, float64(q.Rows), float64(relevant), 1e-3)
}

func TestStubTruncatesToLengths(t *testing.T) {
	s := &Stub{Dim: 32, DocLen: 4, QryLen: 3}
	ctx := context.Background()

	docs, err := s.EncodeDocuments(ctx, []string{"one two three four five six"})
	require.NoError(t, err)
	assert.Equal(t, 4, docs[0].Rows)

	q, err := s.EncodeQuery(ctx, "one two three four five")
	require.NoError(t, err)
	assert.Equal(t, 3, q.Rows)
}

func TestStubEmptyText(t *testing.T) {
	s := NewStub()
	m, err := s.EncodeQuery(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Rows, "empty text still yields one row")
	assert.False(t, math.IsNaN(float64(m.Data[0])))
}
