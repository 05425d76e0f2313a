// Package docerr defines the error kinds shared across docbert components.
package docerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that dispatch on failure class
// rather than on a concrete error value.
type Kind int

const (
	// KindIO is a filesystem access failure.
	KindIO Kind = iota
	// KindConfig is an invalid input: duplicate collection, malformed URI, bad flag.
	KindConfig
	// KindNotFound is a missing document, collection, context, or setting.
	KindNotFound
	// KindDataDir means the data directory could not be resolved or created.
	KindDataDir
	// KindTextIndex is a full-text index open/commit/query failure.
	KindTextIndex
	// KindStore is a config or embedding store failure.
	KindStore
	// KindCorrupt is a store payload that fails validation. Never auto-repaired;
	// the remedy is a rebuild.
	KindCorrupt
	// KindEncoder is a model load, tokenization, or inference failure.
	KindEncoder
	// KindNumeric is a tensor shape mismatch or non-finite scoring result.
	KindNumeric
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindConfig:
		return "config"
	case KindNotFound:
		return "not found"
	case KindDataDir:
		return "data dir"
	case KindTextIndex:
		return "text index"
	case KindStore:
		return "store"
	case KindCorrupt:
		return "corrupt"
	case KindEncoder:
		return "encoder"
	case KindNumeric:
		return "numeric"
	default:
		return "unknown"
	}
}

// Error carries a kind plus an optional wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error of the given kind.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an existing error. Returns nil when err is nil.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// NotFound reports a missing entity, e.g. NotFound("collection", "notes").
func NotFound(entity, name string) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf("%s not found: %s", entity, name)}
}

// IsKind reports whether any error in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Kind == kind {
			return true
		}
		err = de.Err
		if err == nil {
			return false
		}
	}
	return false
}
