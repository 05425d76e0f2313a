// Package datadir resolves where docbert keeps its persistent state.
package datadir

import (
	"os"
	"path/filepath"

	"github.com/hyperjump/docbert/internal/docerr"
)

// EnvVar overrides the data directory location.
const EnvVar = "DOCBERT_DATA_DIR"

// appDir is the subdirectory under the XDG data home.
const appDir = "docbert"

// Paths locates the three stores inside a resolved data directory.
type Paths struct {
	Root string
}

// Resolve picks the data directory: the explicit argument when non-empty,
// else DOCBERT_DATA_DIR, else <XDG data home>/docbert. The directory is
// created when absent.
func Resolve(explicit string) (Paths, error) {
	root := explicit
	if root == "" {
		root = os.Getenv(EnvVar)
	}
	if root == "" {
		base, err := dataHome()
		if err != nil {
			return Paths{}, err
		}
		root = filepath.Join(base, appDir)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return Paths{}, docerr.Wrap(docerr.KindDataDir, err, "create data dir %s", root)
	}
	return Paths{Root: root}, nil
}

func dataHome() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", docerr.Wrap(docerr.KindDataDir, err, "resolve home directory")
	}
	return filepath.Join(home, ".local", "share"), nil
}

// ConfigDB is the SQLite config store file.
func (p Paths) ConfigDB() string {
	return filepath.Join(p.Root, "config.db")
}

// EmbeddingDB is the embedding store file.
func (p Paths) EmbeddingDB() string {
	return filepath.Join(p.Root, "embeddings.db")
}

// TextIndexDir is the full-text index directory.
func (p Paths) TextIndexDir() string {
	return filepath.Join(p.Root, "bleve")
}
