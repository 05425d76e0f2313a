// Package walker discovers document files under a collection root and
// parses them into indexable form.
package walker

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/docbert/internal/docerr"
)

// supportedExts lists the file extensions the walker accepts.
var supportedExts = map[string]bool{".md": true, ".txt": true}

// File is a discovered document file.
type File struct {
	// RelativePath is slash-separated, relative to the collection root.
	RelativePath string
	// AbsolutePath is the resolved filesystem path.
	AbsolutePath string
	// Mtime is the modification time in seconds since the Unix epoch.
	Mtime uint64
}

// Discover walks root recursively and returns the eligible files sorted by
// relative path. Entries whose name starts with '.' are skipped, files and
// directories alike. Only .md and .txt files are returned.
func Discover(root string) ([]File, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, docerr.Wrap(docerr.KindIO, err, "resolve root %s", root)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, docerr.Wrap(docerr.KindIO, err, "stat root %s", absRoot)
	}
	if !info.IsDir() {
		return nil, docerr.New(docerr.KindConfig, "not a directory: %s", absRoot)
	}

	var files []File
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if path != absRoot && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !supportedExts[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			// File vanished mid-walk.
			return nil
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		var mtime uint64
		if secs := fi.ModTime().Unix(); secs > 0 {
			mtime = uint64(secs)
		}
		files = append(files, File{
			RelativePath: filepath.ToSlash(rel),
			AbsolutePath: path,
			Mtime:        mtime,
		})
		return nil
	})
	if err != nil {
		return nil, docerr.Wrap(docerr.KindIO, err, "walk %s", absRoot)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].RelativePath < files[j].RelativePath
	})
	return files, nil
}

// ReadBody returns the file contents as UTF-8, replacing invalid byte
// sequences with U+FFFD.
func ReadBody(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", docerr.Wrap(docerr.KindIO, err, "read %s", path)
	}
	return strings.ToValidUTF8(string(raw), "�"), nil
}

// ParseTitle returns the document title: the first non-empty ATX level-1
// heading, or the file stem when the body has none.
func ParseTitle(body, relPath string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if heading, ok := strings.CutPrefix(trimmed, "# "); ok {
			if title := strings.TrimSpace(heading); title != "" {
				return title
			}
		}
	}
	stem := strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath))
	if stem == "" {
		return "untitled"
	}
	return stem
}
