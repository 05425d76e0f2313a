// Package chunker splits document bodies into overlapping windows sized for
// the encoder's document length.
package chunker

import (
	"strings"
	"unicode"
)

const (
	// DefaultSize is the window size in characters.
	DefaultSize = 1024
	// DefaultOverlap is the number of characters shared between adjacent
	// windows.
	DefaultOverlap = 200

	// boundaryLookback bounds how far a window end may move back to land
	// on whitespace.
	boundaryLookback = 100
)

// Chunk is one window of a document body.
type Chunk struct {
	// Index is the zero-based position of the chunk within the document.
	Index int
	// Text is the window contents.
	Text string
	// StartOffset is the byte offset of Text within the original body.
	StartOffset int
}

// Split partitions text into windows of at most size characters with
// overlap characters reused between adjacent windows. Window ends snap back
// to the nearest whitespace within the look-back range; a window with no
// whitespace there is cut mid-character-run. Adjacent windows always share
// at least their boundary character position, so concatenating the windows
// with overlaps removed reproduces text exactly.
//
// Split counts characters, not bytes, so multi-byte runes never straddle a
// window edge. It is pure and deterministic.
func Split(text string, size, overlap int) []Chunk {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultOverlap
		if overlap >= size {
			overlap = size / 2
		}
	}

	runes := []rune(text)
	n := len(runes)
	if n <= size {
		return []Chunk{{Index: 0, Text: text, StartOffset: 0}}
	}

	// Byte offset of each rune, plus the end sentinel, for O(1) slicing.
	offsets := make([]int, 0, n+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(text))

	step := size - overlap
	if step < 1 {
		step = 1
	}

	var chunks []Chunk
	start := 0
	for start < n {
		end := start + size
		if end >= n {
			end = n
		} else {
			end = snapToBoundary(runes, start, end)
		}

		chunks = append(chunks, Chunk{
			Index:       len(chunks),
			Text:        text[offsets[start]:offsets[end]],
			StartOffset: offsets[start],
		})
		if end == n {
			break
		}

		next := start + step
		// A snapped end can land before the nominal step. Clamping keeps
		// the windows contiguous so no text falls between them.
		if next > end {
			next = end
		}
		start = next
	}
	return chunks
}

// snapToBoundary moves end back to just after the last whitespace rune in
// the look-back range, or returns end unchanged when the range has none.
func snapToBoundary(runes []rune, start, end int) int {
	low := end - boundaryLookback
	if low < start+1 {
		low = start + 1
	}
	for i := end - 1; i >= low; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return end
}

// Reassemble joins chunks back into the original text by dropping each
// chunk's overlap with its predecessor. Used by tests to check coverage.
func Reassemble(chunks []Chunk) string {
	var b strings.Builder
	covered := 0
	for _, c := range chunks {
		if c.StartOffset >= covered {
			b.WriteString(c.Text)
			covered = c.StartOffset + len(c.Text)
			continue
		}
		skip := covered - c.StartOffset
		if skip < len(c.Text) {
			b.WriteString(c.Text[skip:])
			covered = c.StartOffset + len(c.Text)
		}
	}
	return b.String()
}
