// Package docref resolves user-facing document references against the
// config store and maps documents to bert:// URIs.
package docref

import (
	"context"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/hyperjump/docbert/internal/configstore"
	"github.com/hyperjump/docbert/internal/docerr"
	"github.com/hyperjump/docbert/internal/docid"
)

// Scheme prefixes every document and collection URI.
const Scheme = "bert://"

// Ref names one ingested document.
type Ref struct {
	Collection string
	Path       string
}

// Resolve maps a reference string to a document. Three forms are accepted:
// "#a3f2c1" (a short ID of six or more hex characters), "collection:path",
// and a bare relative path matched across all collections.
func Resolve(ctx context.Context, cfg *configstore.Store, reference string) (Ref, error) {
	if short, ok := strings.CutPrefix(reference, "#"); ok {
		return resolveByShortID(ctx, cfg, short)
	}
	if collection, path, ok := strings.Cut(reference, ":"); ok {
		return Ref{Collection: collection, Path: path}, nil
	}
	return resolveByPath(ctx, cfg, reference)
}

func resolveByShortID(ctx context.Context, cfg *configstore.Store, short string) (Ref, error) {
	docs, err := cfg.ListAllMetadata(ctx)
	if err != nil {
		return Ref{}, err
	}
	for _, m := range docs {
		if docid.DocumentID(m.NumericID).MatchesShort(short) {
			return Ref{Collection: m.Collection, Path: m.Path}, nil
		}
	}
	return Ref{}, docerr.NotFound("document", "#"+short)
}

func resolveByPath(ctx context.Context, cfg *configstore.Store, path string) (Ref, error) {
	docs, err := cfg.ListAllMetadata(ctx)
	if err != nil {
		return Ref{}, err
	}
	for _, m := range docs {
		if m.Path == path {
			return Ref{Collection: m.Collection, Path: m.Path}, nil
		}
	}
	return Ref{}, docerr.NotFound("document", path)
}

// Glob returns the ingested documents whose relative path matches the
// pattern ("**" supported), ordered by collection then path. A non-empty
// collection restricts the scan.
func Glob(ctx context.Context, cfg *configstore.Store, pattern, collection string) ([]Ref, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, docerr.New(docerr.KindConfig, "invalid glob pattern %q", pattern)
	}
	docs, err := cfg.ListAllMetadata(ctx)
	if err != nil {
		return nil, err
	}

	var matches []Ref
	for _, m := range docs {
		if collection != "" && m.Collection != collection {
			continue
		}
		if ok, _ := doublestar.Match(pattern, m.Path); ok {
			matches = append(matches, Ref{Collection: m.Collection, Path: m.Path})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Collection != matches[j].Collection {
			return matches[i].Collection < matches[j].Collection
		}
		return matches[i].Path < matches[j].Path
	})
	return matches, nil
}

// TrimLineSuffix splits a trailing ":<digits>" line reference off a
// reference string, returning the bare reference and the 1-indexed line.
// line is 0 when no suffix is present.
func TrimLineSuffix(reference string) (string, int) {
	idx := strings.LastIndexByte(reference, ':')
	if idx < 0 || idx == len(reference)-1 {
		return reference, 0
	}
	line := 0
	for _, r := range reference[idx+1:] {
		if r < '0' || r > '9' {
			return reference, 0
		}
		line = line*10 + int(r-'0')
	}
	return reference[:idx], line
}

// FullPath joins the collection root with the document's relative path.
func FullPath(ctx context.Context, cfg *configstore.Store, ref Ref) (string, error) {
	c, err := cfg.GetCollection(ctx, ref.Collection)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.Path, ref.Path), nil
}

// ContextFor returns the context annotation for a document: the document's
// own URI wins, then the collection's. Lookup failures read as no context.
func ContextFor(ctx context.Context, cfg *configstore.Store, ref Ref) (string, bool) {
	if c, err := cfg.GetContext(ctx, URI(ref)); err == nil {
		return c.Description, true
	}
	if c, err := cfg.GetContext(ctx, Scheme+ref.Collection); err == nil {
		return c.Description, true
	}
	return "", false
}

// URI renders the document's bert:// URI with each path segment escaped.
func URI(ref Ref) string {
	segments := strings.Split(ref.Path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return Scheme + ref.Collection + "/" + strings.Join(segments, "/")
}

// ParseURI inverts URI. The collection is the first segment after the
// scheme; everything else is the relative path.
func ParseURI(uri string) (Ref, error) {
	rest, ok := strings.CutPrefix(uri, Scheme)
	if !ok {
		return Ref{}, docerr.New(docerr.KindConfig, "unsupported uri %q", uri)
	}
	collection, encoded, ok := strings.Cut(rest, "/")
	if !ok || collection == "" || encoded == "" {
		return Ref{}, docerr.New(docerr.KindConfig, "malformed uri %q", uri)
	}
	segments := strings.Split(encoded, "/")
	for i, s := range segments {
		decoded, err := url.PathUnescape(s)
		if err != nil {
			return Ref{}, docerr.New(docerr.KindConfig, "malformed uri %q", uri)
		}
		segments[i] = decoded
	}
	return Ref{Collection: collection, Path: strings.Join(segments, "/")}, nil
}
