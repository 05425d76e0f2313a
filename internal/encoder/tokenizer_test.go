package encoder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testVocab lays out IDs 0..N in file order.
var testVocab = []string{
	"[PAD]", "[UNK]", "[CLS]", "[SEP]", "[MASK]", "[Q]", "[D]",
	"hello", "world", "search", "##ing", "engine", ",",
}

func writeVocab(t *testing.T) *tokenizer {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "vocab.txt"),
		[]byte(strings.Join(testVocab, "\n")+"\n"), 0o644))
	tok, err := loadTokenizer(dir)
	require.NoError(t, err)
	return tok
}

func id(token string) int64 {
	for i, t := range testVocab {
		if t == token {
			return int64(i)
		}
	}
	return -1
}

func TestLoadTokenizerSpecials(t *testing.T) {
	tok := writeVocab(t)
	assert.Equal(t, id("[PAD]"), tok.PadID())
	assert.Equal(t, id("[MASK]"), tok.mask)
	assert.Equal(t, id("[Q]"), tok.qMarker)
	assert.Equal(t, id("[D]"), tok.dMarker)
}

func TestLoadTokenizerMissingVocab(t *testing.T) {
	_, err := loadTokenizer(t.TempDir())
	assert.Error(t, err)
}

func TestDocumentIDs(t *testing.T) {
	tok := writeVocab(t)
	ids, mask := tok.DocumentIDs("Hello, world", 10)

	assert.Equal(t, []int64{id("[CLS]"), id("[D]"), id("hello"), id(","), id("world"), id("[SEP]")}, ids)
	assert.Equal(t, []int64{1, 1, 1, 1, 1, 1}, mask)
}

func TestDocumentIDsTruncates(t *testing.T) {
	tok := writeVocab(t)
	ids, _ := tok.DocumentIDs(strings.Repeat("hello ", 50), 8)
	assert.Len(t, ids, 8)
	assert.Equal(t, id("[SEP]"), ids[len(ids)-1])
}

func TestQueryIDsMaskPadding(t *testing.T) {
	tok := writeVocab(t)
	ids, mask := tok.QueryIDs("hello", 8)

	require.Len(t, ids, 8)
	assert.Equal(t, []int64{id("[CLS]"), id("[Q]"), id("hello"), id("[SEP]")}, ids[:4])
	for _, padID := range ids[4:] {
		assert.Equal(t, id("[MASK]"), padID)
	}
	// Mask expansion tokens are attended.
	assert.Equal(t, []int64{1, 1, 1, 1, 1, 1, 1, 1}, mask)
}

func TestWordPieceContinuation(t *testing.T) {
	tok := writeVocab(t)
	ids, _ := tok.DocumentIDs("searching", 10)
	assert.Equal(t, []int64{id("[CLS]"), id("[D]"), id("search"), id("##ing"), id("[SEP]")}, ids)
}

func TestUnknownWord(t *testing.T) {
	tok := writeVocab(t)
	ids, _ := tok.DocumentIDs("zebra", 10)
	assert.Equal(t, []int64{id("[CLS]"), id("[D]"), id("[UNK]"), id("[SEP]")}, ids)
}

func TestSplitWords(t *testing.T) {
	assert.Equal(t, []string{"hello", ",", "world", "!"}, splitWords("Hello, World!"))
	assert.Empty(t, splitWords("   \n\t"))
}
