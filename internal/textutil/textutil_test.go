package textutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddLineNumbers(t *testing.T) {
	assert.Equal(t, "1: foo\n2: bar", AddLineNumbers("foo\nbar", 1))
	assert.Equal(t, "10: foo\n11: bar", AddLineNumbers("foo\nbar", 10))
	assert.Equal(t, "5: hello", AddLineNumbers("hello", 5))
}

func TestExtractSnippetMatch(t *testing.T) {
	text := "line1\nline2\nline3\nrust is great\nline5\nline6\nline7"
	snippet, start, ok := ExtractSnippet(text, "RUST")
	require.True(t, ok)
	assert.Contains(t, snippet, "rust is great")
	assert.Equal(t, 2, start, "two lines of context above the match")
	assert.Contains(t, snippet, "line2")
	assert.Contains(t, snippet, "line6")
	assert.NotContains(t, snippet, "line7")
}

func TestExtractSnippetNoMatchReturnsHead(t *testing.T) {
	text := "line1\nline2\nline3\nline4\nline5\nline6\nline7\nline8"
	snippet, start, ok := ExtractSnippet(text, "zzz_nomatch")
	require.True(t, ok)
	assert.Equal(t, 1, start)
	assert.True(t, strings.HasPrefix(snippet, "line1"))
	assert.Contains(t, snippet, "line6")
	assert.NotContains(t, snippet, "line7")
}

func TestExtractSnippetEmptyText(t *testing.T) {
	_, _, ok := ExtractSnippet("", "query")
	assert.False(t, ok)
}

func TestExtractSnippetTruncatesLong(t *testing.T) {
	longLine := strings.Repeat("a", 500)
	snippet, _, ok := ExtractSnippet(longLine+"\n"+longLine, "a")
	require.True(t, ok)
	assert.LessOrEqual(t, len(snippet), SnippetMaxChars+3)
	assert.True(t, strings.HasSuffix(snippet, "..."))
}

func TestApplyLineLimits(t *testing.T) {
	text := "line1\nline2\nline3\nline4\nline5"

	assert.Equal(t, text, ApplyLineLimits(text, 1, 0), "no limit returns all")
	assert.Equal(t, "line3\nline4\nline5", ApplyLineLimits(text, 3, 0))

	limited := ApplyLineLimits(text, 1, 2)
	assert.True(t, strings.HasPrefix(limited, "line1\nline2"))
	assert.Contains(t, limited, "truncated 3 more lines")

	offsetAndMax := ApplyLineLimits(text, 2, 2)
	assert.True(t, strings.HasPrefix(offsetAndMax, "line2\nline3"))
	assert.Contains(t, offsetAndMax, "truncated")

	assert.Empty(t, ApplyLineLimits(text, 100, 0))
	assert.Empty(t, ApplyLineLimits("", 1, 0))
}

func TestApplyLineLimitsExactEnd(t *testing.T) {
	text := "a\nb\nc"
	assert.Equal(t, "b\nc", ApplyLineLimits(text, 2, 2), "no notice when nothing is cut")
}
