// Package docid derives stable document identifiers.
//
// A document's numeric ID is a 64-bit hash of its collection name and
// collection-relative path. The hash input and algorithm are part of the
// on-disk schema: embedding keys and index entries written by one release
// must resolve under every later release, so the derivation below is frozen.
package docid

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ShortLen is the number of hex characters in the default short form.
const ShortLen = 6

// chunkShift positions the chunk index in the top 16 bits of a chunk ID.
const chunkShift = 48

// DocumentID identifies one document across all stores.
type DocumentID uint64

// Derive computes the ID for a document. Schema v1: xxhash64 over
// collection, a NUL separator, and the relative path. The separator keeps
// ("ab","c") and ("a","bc") distinct.
func Derive(collection, relPath string) DocumentID {
	h := xxhash.New()
	_, _ = h.WriteString(collection)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(relPath)
	return DocumentID(h.Sum64())
}

// Short returns the low 24 bits as 6 lowercase hex characters.
func (id DocumentID) Short() string {
	return fmt.Sprintf("%06x", uint64(id)&0xFFFFFF)
}

// Extend returns a short form widened to n hex characters (clamped to
// [ShortLen, 16]) for callers that need to disambiguate a collision.
func (id DocumentID) Extend(n int) string {
	if n < ShortLen {
		n = ShortLen
	}
	if n > 16 {
		n = 16
	}
	mask := ^uint64(0)
	if n < 16 {
		mask = (uint64(1) << (4 * n)) - 1
	}
	return fmt.Sprintf("%0*x", n, uint64(id)&mask)
}

// String renders the display form, e.g. "#a3f2c1".
func (id DocumentID) String() string {
	return "#" + id.Short()
}

// MatchesShort reports whether s (with or without a leading '#') equals
// this ID's short form at s's own width.
func (id DocumentID) MatchesShort(s string) bool {
	s = strings.TrimPrefix(s, "#")
	n := len(s)
	if n < ShortLen || n > 16 {
		return false
	}
	return strings.EqualFold(id.Extend(n), s)
}

// ChunkID keys chunk index within a document. Chunk 0 shares the document's
// own ID, so single-chunk documents need no translation anywhere.
func ChunkID(base DocumentID, index uint16) uint64 {
	return uint64(base) ^ (uint64(index) << chunkShift)
}

// ParseChunkID splits a chunk key back into its base ID and chunk index.
// The split is only unambiguous when the caller knows the base; it is used
// for keys enumerated from a store where chunk 0 rows carry the base
// directly.
func ParseChunkID(key uint64, base DocumentID) (uint16, bool) {
	idx := uint16((key ^ uint64(base)) >> chunkShift)
	if ChunkID(base, idx) != key {
		return 0, false
	}
	return idx, true
}
