package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortTextSingleChunk(t *testing.T) {
	chunks := Split("Hello, world!", DefaultSize, DefaultOverlap)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Hello, world!", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 0, chunks[0].StartOffset)
}

func TestLongTextOverlappingChunks(t *testing.T) {
	text := strings.Repeat("word ", 500) // 2500 chars
	chunks := Split(text, 1000, 200)

	require.GreaterOrEqual(t, len(chunks), 2)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.LessOrEqual(t, len([]rune(c.Text)), 1000)
	}

	firstEnd := chunks[0].StartOffset + len(chunks[0].Text)
	assert.Less(t, chunks[1].StartOffset, firstEnd, "adjacent chunks overlap")
}

func TestWordBoundarySnap(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta ", 100)
	chunks := Split(text, 500, 100)

	for _, c := range chunks[:len(chunks)-1] {
		assert.True(t, strings.HasSuffix(c.Text, " "),
			"chunk %d should end after whitespace, got %q", c.Index, c.Text[len(c.Text)-10:])
	}
}

func TestMidWordCutWithoutBoundary(t *testing.T) {
	text := strings.Repeat("x", 3000)
	chunks := Split(text, 1000, 200)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Len(t, chunks[0].Text, 1000, "no whitespace to snap to")
}

func TestReassembleReproducesText(t *testing.T) {
	cases := map[string]string{
		"prose":       strings.Repeat("the quick brown fox jumps over the lazy dog ", 120),
		"unbroken":    strings.Repeat("y", 5000),
		"short tail":  strings.Repeat("word ", 210), // tail shorter than size/4
		"mixed runes": strings.Repeat("café ☕ naïve 日本語 ", 200),
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			chunks := Split(text, 1024, 200)
			assert.Equal(t, text, Reassemble(chunks))
		})
	}
}

func TestMultibyteRunesNeverSplit(t *testing.T) {
	text := strings.Repeat("Hello \U0001F449 world \U0001F30D test ", 100)
	chunks := Split(text, 200, 50)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.True(t, strings.ToValidUTF8(c.Text, "") == c.Text, "chunk text must stay valid UTF-8")
	}
}

func TestDeterministic(t *testing.T) {
	text := strings.Repeat("alpha beta gamma ", 300)
	a := Split(text, 1024, 200)
	b := Split(text, 1024, 200)
	assert.Equal(t, a, b)
}

func TestZeroOverlapStillCovers(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet ", 150)
	chunks := Split(text, 500, 0)
	assert.Equal(t, text, Reassemble(chunks))
}
