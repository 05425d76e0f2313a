package encoder

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/hyperjump/docbert/internal/docerr"
)

// maxWordPieceLen caps greedy matching; BERT vocabularies drop longer words
// to [UNK].
const maxWordPieceLen = 100

// tokenizer converts text into model input IDs with ColBERT markers.
type tokenizer struct {
	vocab map[string]int64

	unk  int64
	cls  int64
	sep  int64
	pad  int64
	mask int64

	// qMarker / dMarker are the ColBERT role tokens inserted after [CLS].
	qMarker int64
	dMarker int64
}

// loadTokenizer reads vocab.txt from the model directory.
func loadTokenizer(modelDir string) (*tokenizer, error) {
	path := filepath.Join(modelDir, "vocab.txt")
	f, err := os.Open(path)
	if err != nil {
		return nil, docerr.Wrap(docerr.KindEncoder, err, "open vocabulary %s", path)
	}
	defer f.Close()

	vocab := make(map[string]int64)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var id int64
	for scanner.Scan() {
		vocab[strings.TrimRight(scanner.Text(), "\r")] = id
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, docerr.Wrap(docerr.KindEncoder, err, "read vocabulary %s", path)
	}

	t := &tokenizer{vocab: vocab}
	var ok bool
	if t.unk, ok = vocab["[UNK]"]; !ok {
		return nil, docerr.New(docerr.KindEncoder, "vocabulary %s has no [UNK]", path)
	}
	t.cls = lookupOr(vocab, "[CLS]", t.unk)
	t.sep = lookupOr(vocab, "[SEP]", t.unk)
	t.pad = lookupOr(vocab, "[PAD]", 0)
	t.mask = lookupOr(vocab, "[MASK]", t.unk)
	t.qMarker = lookupFirst(vocab, t.unk, "[Q]", "[unused0]")
	t.dMarker = lookupFirst(vocab, t.unk, "[D]", "[unused1]")
	return t, nil
}

func lookupOr(vocab map[string]int64, token string, fallback int64) int64 {
	if id, ok := vocab[token]; ok {
		return id
	}
	return fallback
}

func lookupFirst(vocab map[string]int64, fallback int64, tokens ...string) int64 {
	for _, tok := range tokens {
		if id, ok := vocab[tok]; ok {
			return id
		}
	}
	return fallback
}

// DocumentIDs encodes text as [CLS] [D] tokens... [SEP], truncated to
// maxLen. The attention mask covers every emitted token.
func (t *tokenizer) DocumentIDs(text string, maxLen int) (ids, attention []int64) {
	body := t.wordPieces(text, maxLen-3)
	ids = make([]int64, 0, len(body)+3)
	ids = append(ids, t.cls, t.dMarker)
	ids = append(ids, body...)
	ids = append(ids, t.sep)
	attention = ones(len(ids))
	return ids, attention
}

// QueryIDs encodes text as [CLS] [Q] tokens... [SEP] padded to qryLen with
// [MASK] (query expansion). Mask tokens are attended like real tokens.
func (t *tokenizer) QueryIDs(text string, qryLen int) (ids, attention []int64) {
	body := t.wordPieces(text, qryLen-3)
	ids = make([]int64, 0, qryLen)
	ids = append(ids, t.cls, t.qMarker)
	ids = append(ids, body...)
	ids = append(ids, t.sep)
	for len(ids) < qryLen {
		ids = append(ids, t.mask)
	}
	attention = ones(len(ids))
	return ids, attention
}

// PadID is the batch padding token.
func (t *tokenizer) PadID() int64 { return t.pad }

// wordPieces runs greedy longest-match WordPiece over lowercased,
// punctuation-split words, returning at most limit IDs.
func (t *tokenizer) wordPieces(text string, limit int) []int64 {
	if limit <= 0 {
		return nil
	}
	var out []int64
	for _, word := range splitWords(text) {
		if len(out) >= limit {
			break
		}
		out = t.appendWord(out, word, limit)
	}
	return out
}

func (t *tokenizer) appendWord(out []int64, word string, limit int) []int64 {
	runes := []rune(word)
	if len(runes) > maxWordPieceLen {
		return append(out, t.unk)
	}

	pieces := make([]int64, 0, 4)
	start := 0
	for start < len(runes) {
		end := len(runes)
		var match int64 = -1
		for end > start {
			piece := string(runes[start:end])
			if start > 0 {
				piece = "##" + piece
			}
			if id, ok := t.vocab[piece]; ok {
				match = id
				break
			}
			end--
		}
		if match < 0 {
			// No prefix matched; the whole word is unknown.
			return append(out, t.unk)
		}
		pieces = append(pieces, match)
		start = end
	}

	for _, id := range pieces {
		if len(out) >= limit {
			break
		}
		out = append(out, id)
	}
	return out
}

// splitWords lowercases and splits on whitespace, separating punctuation
// into standalone tokens the way BERT basic tokenization does.
func splitWords(text string) []string {
	var words []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			words = append(words, string(r))
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return words
}

func ones(n int) []int64 {
	v := make([]int64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}
