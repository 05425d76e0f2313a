package embedstore

import (
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/docbert/internal/docerr"
	"github.com/hyperjump/docbert/internal/maxsim"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "embeddings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sample(rows, cols int, seed float32) maxsim.Matrix {
	data := make([]float32, rows*cols)
	for i := range data {
		data[i] = seed + float32(i)*0.25
	}
	return maxsim.NewMatrix(rows, cols, data)
}

func TestCodecRoundTrip(t *testing.T) {
	cases := []maxsim.Matrix{
		sample(3, 4, 0.5),
		sample(1, 128, -2),
		maxsim.NewMatrix(0, 0, nil),
		maxsim.NewMatrix(1, 3, []float32{float32(math.Inf(1)), 0, -0.0}),
	}
	for _, m := range cases {
		decoded, err := Decode(Encode(m))
		require.NoError(t, err)
		assert.Equal(t, m.Rows, decoded.Rows)
		assert.Equal(t, m.Cols, decoded.Cols)
		for i, v := range m.Data {
			assert.Equal(t, math.Float32bits(v), math.Float32bits(decoded.Data[i]),
				"bit-exact at %d", i)
		}
	}
}

func TestCodecWireLayout(t *testing.T) {
	m := maxsim.NewMatrix(2, 1, []float32{1.0, 2.0})
	buf := Encode(m)

	require.Len(t, buf, 8+2*4)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(buf[0:4]), "num_tokens first")
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(buf[4:8]), "dimension second")
	assert.Equal(t, math.Float32bits(1.0), binary.LittleEndian.Uint32(buf[8:12]))
}

func TestDecodeRejectsLengthMismatch(t *testing.T) {
	buf := Encode(sample(2, 3, 1))

	_, err := Decode(buf[:len(buf)-4])
	assert.True(t, docerr.IsKind(err, docerr.KindCorrupt))

	_, err = Decode(buf[:5])
	assert.True(t, docerr.IsKind(err, docerr.KindCorrupt))

	_, err = Decode(append(buf, 0, 0, 0, 0))
	assert.True(t, docerr.IsKind(err, docerr.KindCorrupt))
}

func TestPutGetRemove(t *testing.T) {
	s := openTestStore(t)
	m := sample(4, 8, 0.1)

	require.NoError(t, s.Put(42, m))

	got, found, err := s.Get(42)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, m, got)

	_, found, err = s.Get(43)
	require.NoError(t, err)
	assert.False(t, found)

	existed, err := s.Remove(42)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = s.Remove(42)
	require.NoError(t, err)
	assert.False(t, existed)

	_, found, err = s.Get(42)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPutReplaces(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put(7, sample(2, 2, 0)))
	require.NoError(t, s.Put(7, sample(3, 2, 9)))

	got, found, err := s.Get(7)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 3, got.Rows)
}

func TestBatchOps(t *testing.T) {
	s := openTestStore(t)
	entries := map[uint64]maxsim.Matrix{
		1: sample(1, 4, 0),
		5: sample(2, 4, 1),
		3: sample(3, 4, 2),
	}
	require.NoError(t, s.BatchPut(entries))

	got, err := s.BatchGet([]uint64{5, 99, 1})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, entries[5], *got[0])
	assert.Nil(t, got[1], "missing id yields nil in place")
	assert.Equal(t, entries[1], *got[2])

	ids, err := s.ListIDs()
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3, 5}, ids, "ascending key order")

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, s.BatchRemove([]uint64{1, 3, 77}))
	ids, err = s.ListIDs()
	require.NoError(t, err)
	assert.Equal(t, []uint64{5}, ids)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "embeddings.db")

	s, err := Open(path)
	require.NoError(t, err)
	m := sample(2, 4, 0.5)
	require.NoError(t, s.Put(11, m))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, found, err := s2.Get(11)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, m, got)
}
