// Package textutil formats document text for search and get output.
package textutil

import (
	"fmt"
	"strings"
)

const (
	// DefaultSnippetLines is the snippet length when the query has no match.
	DefaultSnippetLines = 6
	// SnippetMaxChars bounds a snippet before truncation.
	SnippetMaxChars = 400
)

// AddLineNumbers prefixes each line with its 1-indexed number, starting at
// startLine.
func AddLineNumbers(text string, startLine int) string {
	lines := splitLines(text)
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = fmt.Sprintf("%d: %s", startLine+i, line)
	}
	return strings.Join(out, "\n")
}

// ExtractSnippet returns a few lines around the first case-insensitive
// occurrence of query in text, plus the 1-indexed line number where the
// snippet starts. With no match the head of the document is returned.
// Empty text yields ok=false.
func ExtractSnippet(text, query string) (snippet string, startLine int, ok bool) {
	lines := splitLines(text)
	if len(lines) == 0 {
		return "", 0, false
	}

	matchIdx := -1
	queryLower := strings.ToLower(query)
	for i, line := range lines {
		if strings.Contains(strings.ToLower(line), queryLower) {
			matchIdx = i
			break
		}
	}

	var start, end int
	if matchIdx >= 0 {
		start = matchIdx - 2
		if start < 0 {
			start = 0
		}
		end = matchIdx + 3
		if end > len(lines) {
			end = len(lines)
		}
	} else {
		end = DefaultSnippetLines
		if end > len(lines) {
			end = len(lines)
		}
	}

	snippet = strings.Join(lines[start:end], "\n")
	if len(snippet) > SnippetMaxChars {
		snippet = snippet[:SnippetMaxChars] + "..."
	}
	return snippet, start + 1, true
}

// ApplyLineLimits slices text from the 1-indexed startLine, returning at
// most maxLines lines when maxLines > 0, with a truncation notice when
// lines remain.
func ApplyLineLimits(text string, startLine, maxLines int) string {
	lines := splitLines(text)
	if len(lines) == 0 {
		return ""
	}

	startIdx := startLine - 1
	if startIdx < 0 {
		startIdx = 0
	}
	if startIdx >= len(lines) {
		return ""
	}

	endIdx := len(lines)
	if maxLines > 0 && startIdx+maxLines < endIdx {
		endIdx = startIdx + maxLines
	}

	out := strings.Join(lines[startIdx:endIdx], "\n")
	if maxLines > 0 && endIdx < len(lines) {
		out += fmt.Sprintf("\n\n[... truncated %d more lines]", len(lines)-endIdx)
	}
	return out
}

// splitLines splits like lines(): no trailing empty element for a final
// newline.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}
