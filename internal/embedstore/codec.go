package embedstore

import (
	"encoding/binary"
	"math"

	"github.com/hyperjump/docbert/internal/docerr"
	"github.com/hyperjump/docbert/internal/maxsim"
)

// headerLen is the fixed prefix: u32 token count, u32 dimension.
const headerLen = 8

// Encode serializes a token embedding matrix into the wire layout:
// [u32 LE num_tokens][u32 LE dimension][f32 LE data, row-major].
func Encode(m maxsim.Matrix) []byte {
	buf := make([]byte, headerLen+len(m.Data)*4)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(m.Rows))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(m.Cols))
	for i, v := range m.Data {
		binary.LittleEndian.PutUint32(buf[headerLen+i*4:], math.Float32bits(v))
	}
	return buf
}

// Decode parses the wire layout back into a matrix. A payload whose length
// disagrees with its own header is corrupt, never silently truncated.
func Decode(buf []byte) (maxsim.Matrix, error) {
	if len(buf) < headerLen {
		return maxsim.Matrix{}, docerr.New(docerr.KindCorrupt,
			"embedding payload too short: %d bytes", len(buf))
	}
	rows := int(binary.LittleEndian.Uint32(buf[0:4]))
	cols := int(binary.LittleEndian.Uint32(buf[4:8]))
	want := headerLen + rows*cols*4
	if len(buf) != want {
		return maxsim.Matrix{}, docerr.New(docerr.KindCorrupt,
			"embedding payload length %d, header implies %d (tokens=%d dim=%d)",
			len(buf), want, rows, cols)
	}
	data := make([]float32, rows*cols)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[headerLen+i*4:]))
	}
	return maxsim.NewMatrix(rows, cols, data), nil
}
