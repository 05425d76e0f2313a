// Package configstore persists collections, contexts, document metadata,
// and settings in a single SQLite database.
package configstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/docbert/internal/docerr"
)

// Collection is a named directory of documents.
type Collection struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Context is a display annotation attached to a bert:// URI.
type Context struct {
	URI         string `json:"uri"`
	Description string `json:"description"`
}

// Metadata records one ingested document.
type Metadata struct {
	NumericID  uint64 `json:"numeric_id"`
	Collection string `json:"collection"`
	Path       string `json:"path"`
	Mtime      uint64 `json:"mtime"`
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path, enabling WAL so readers see
// a consistent snapshot without blocking the writer.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, docerr.Wrap(docerr.KindStore, err, "create store directory %s", dir)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_fk=on")
	if err != nil {
		return nil, docerr.Wrap(docerr.KindStore, err, "open config store %s", path)
	}
	// A single writer keeps transactions serial without SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		path TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS contexts (
		uri TEXT PRIMARY KEY,
		description TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS document_metadata (
		numeric_id INTEGER PRIMARY KEY,
		collection TEXT NOT NULL,
		path TEXT NOT NULL,
		mtime INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_metadata_collection
		ON document_metadata(collection);
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return docerr.Wrap(docerr.KindStore, err, "init schema")
	}
	return nil
}

// UpsertCollection creates or updates a collection's root path.
func (s *Store) UpsertCollection(ctx context.Context, name, path string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (name, path) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET path = excluded.path`,
		name, path)
	return docerr.Wrap(docerr.KindStore, err, "upsert collection %s", name)
}

// GetCollection returns the collection by name.
func (s *Store) GetCollection(ctx context.Context, name string) (Collection, error) {
	var c Collection
	err := s.db.QueryRowContext(ctx,
		`SELECT name, path FROM collections WHERE name = ?`, name).
		Scan(&c.Name, &c.Path)
	if errors.Is(err, sql.ErrNoRows) {
		return Collection{}, docerr.NotFound("collection", name)
	}
	if err != nil {
		return Collection{}, docerr.Wrap(docerr.KindStore, err, "get collection %s", name)
	}
	return c, nil
}

// ListCollections returns all collections ordered by name.
func (s *Store) ListCollections(ctx context.Context) ([]Collection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, path FROM collections ORDER BY name`)
	if err != nil {
		return nil, docerr.Wrap(docerr.KindStore, err, "list collections")
	}
	defer rows.Close()

	var out []Collection
	for rows.Next() {
		var c Collection
		if err := rows.Scan(&c.Name, &c.Path); err != nil {
			return nil, docerr.Wrap(docerr.KindStore, err, "scan collection")
		}
		out = append(out, c)
	}
	return out, docerr.Wrap(docerr.KindStore, rows.Err(), "list collections")
}

// RemoveCollection deletes the collection and all of its document metadata
// in one transaction, returning the numeric IDs that other stores must
// purge. Removing an unknown collection is a NotFound error.
func (s *Store) RemoveCollection(ctx context.Context, name string) ([]uint64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, docerr.Wrap(docerr.KindStore, err, "begin remove collection")
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM collections WHERE name = ?`, name).Scan(&exists)
	if err != nil {
		return nil, docerr.Wrap(docerr.KindStore, err, "check collection %s", name)
	}
	if exists == 0 {
		return nil, docerr.NotFound("collection", name)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT numeric_id FROM document_metadata WHERE collection = ?`, name)
	if err != nil {
		return nil, docerr.Wrap(docerr.KindStore, err, "list metadata for %s", name)
	}
	var purged []uint64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, docerr.Wrap(docerr.KindStore, err, "scan numeric id")
		}
		purged = append(purged, uint64(id))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, docerr.Wrap(docerr.KindStore, err, "list metadata for %s", name)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM document_metadata WHERE collection = ?`, name); err != nil {
		return nil, docerr.Wrap(docerr.KindStore, err, "purge metadata for %s", name)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM collections WHERE name = ?`, name); err != nil {
		return nil, docerr.Wrap(docerr.KindStore, err, "delete collection %s", name)
	}
	if err := tx.Commit(); err != nil {
		return nil, docerr.Wrap(docerr.KindStore, err, "commit remove collection %s", name)
	}
	return purged, nil
}

// SetContext creates or replaces a context annotation.
func (s *Store) SetContext(ctx context.Context, uri, description string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contexts (uri, description) VALUES (?, ?)
		 ON CONFLICT(uri) DO UPDATE SET description = excluded.description`,
		uri, description)
	return docerr.Wrap(docerr.KindStore, err, "set context %s", uri)
}

// GetContext returns the annotation for uri.
func (s *Store) GetContext(ctx context.Context, uri string) (Context, error) {
	var c Context
	err := s.db.QueryRowContext(ctx,
		`SELECT uri, description FROM contexts WHERE uri = ?`, uri).
		Scan(&c.URI, &c.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return Context{}, docerr.NotFound("context", uri)
	}
	if err != nil {
		return Context{}, docerr.Wrap(docerr.KindStore, err, "get context %s", uri)
	}
	return c, nil
}

// RemoveContext deletes the annotation for uri.
func (s *Store) RemoveContext(ctx context.Context, uri string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contexts WHERE uri = ?`, uri)
	if err != nil {
		return docerr.Wrap(docerr.KindStore, err, "remove context %s", uri)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return docerr.NotFound("context", uri)
	}
	return nil
}

// ListContexts returns all annotations ordered by URI.
func (s *Store) ListContexts(ctx context.Context) ([]Context, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT uri, description FROM contexts ORDER BY uri`)
	if err != nil {
		return nil, docerr.Wrap(docerr.KindStore, err, "list contexts")
	}
	defer rows.Close()

	var out []Context
	for rows.Next() {
		var c Context
		if err := rows.Scan(&c.URI, &c.Description); err != nil {
			return nil, docerr.Wrap(docerr.KindStore, err, "scan context")
		}
		out = append(out, c)
	}
	return out, docerr.Wrap(docerr.KindStore, rows.Err(), "list contexts")
}

// PutMetadata creates or replaces the metadata row for a document.
func (s *Store) PutMetadata(ctx context.Context, m Metadata) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO document_metadata (numeric_id, collection, path, mtime)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(numeric_id) DO UPDATE SET
			collection = excluded.collection,
			path = excluded.path,
			mtime = excluded.mtime`,
		int64(m.NumericID), m.Collection, m.Path, int64(m.Mtime))
	return docerr.Wrap(docerr.KindStore, err, "put metadata %d", m.NumericID)
}

// BatchPutMetadata writes all rows in one transaction.
func (s *Store) BatchPutMetadata(ctx context.Context, ms []Metadata) error {
	if len(ms) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return docerr.Wrap(docerr.KindStore, err, "begin metadata batch")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO document_metadata (numeric_id, collection, path, mtime)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(numeric_id) DO UPDATE SET
			collection = excluded.collection,
			path = excluded.path,
			mtime = excluded.mtime`)
	if err != nil {
		return docerr.Wrap(docerr.KindStore, err, "prepare metadata batch")
	}
	defer stmt.Close()

	for _, m := range ms {
		if _, err := stmt.ExecContext(ctx,
			int64(m.NumericID), m.Collection, m.Path, int64(m.Mtime)); err != nil {
			return docerr.Wrap(docerr.KindStore, err, "put metadata %d", m.NumericID)
		}
	}
	if err := tx.Commit(); err != nil {
		return docerr.Wrap(docerr.KindStore, err, "commit metadata batch")
	}
	return nil
}

// GetMetadata returns the row for a numeric ID, or found=false.
func (s *Store) GetMetadata(ctx context.Context, numericID uint64) (Metadata, bool, error) {
	var m Metadata
	var id, mtime int64
	err := s.db.QueryRowContext(ctx,
		`SELECT numeric_id, collection, path, mtime
		 FROM document_metadata WHERE numeric_id = ?`, int64(numericID)).
		Scan(&id, &m.Collection, &m.Path, &mtime)
	if errors.Is(err, sql.ErrNoRows) {
		return Metadata{}, false, nil
	}
	if err != nil {
		return Metadata{}, false, docerr.Wrap(docerr.KindStore, err, "get metadata %d", numericID)
	}
	m.NumericID = uint64(id)
	m.Mtime = uint64(mtime)
	return m, true, nil
}

// ListMetadataIn returns all rows under a collection ordered by path.
func (s *Store) ListMetadataIn(ctx context.Context, collection string) ([]Metadata, error) {
	return s.listMetadata(ctx,
		`SELECT numeric_id, collection, path, mtime
		 FROM document_metadata WHERE collection = ? ORDER BY path`, collection)
}

// ListAllMetadata returns every row ordered by collection then path.
func (s *Store) ListAllMetadata(ctx context.Context) ([]Metadata, error) {
	return s.listMetadata(ctx,
		`SELECT numeric_id, collection, path, mtime
		 FROM document_metadata ORDER BY collection, path`)
}

func (s *Store) listMetadata(ctx context.Context, query string, args ...any) ([]Metadata, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, docerr.Wrap(docerr.KindStore, err, "list metadata")
	}
	defer rows.Close()

	var out []Metadata
	for rows.Next() {
		var m Metadata
		var id, mtime int64
		if err := rows.Scan(&id, &m.Collection, &m.Path, &mtime); err != nil {
			return nil, docerr.Wrap(docerr.KindStore, err, "scan metadata")
		}
		m.NumericID = uint64(id)
		m.Mtime = uint64(mtime)
		out = append(out, m)
	}
	return out, docerr.Wrap(docerr.KindStore, rows.Err(), "list metadata")
}

// DeleteMetadata removes the row for a numeric ID, ignoring absent rows.
func (s *Store) DeleteMetadata(ctx context.Context, numericID uint64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM document_metadata WHERE numeric_id = ?`, int64(numericID))
	return docerr.Wrap(docerr.KindStore, err, "delete metadata %d", numericID)
}

// CountMetadata returns the number of documents, optionally scoped to one
// collection when collection is non-empty.
func (s *Store) CountMetadata(ctx context.Context, collection string) (int, error) {
	var n int
	var err error
	if collection == "" {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM document_metadata`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM document_metadata WHERE collection = ?`, collection).Scan(&n)
	}
	if err != nil {
		return 0, docerr.Wrap(docerr.KindStore, err, "count metadata")
	}
	return n, nil
}

// GetSetting returns the value for key, or found=false.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, docerr.Wrap(docerr.KindStore, err, "get setting %s", key)
	}
	return value, true, nil
}

// GetSettingOr returns the value for key, or fallback when unset.
func (s *Store) GetSettingOr(ctx context.Context, key, fallback string) (string, error) {
	value, found, err := s.GetSetting(ctx, key)
	if err != nil {
		return "", err
	}
	if !found {
		return fallback, nil
	}
	return value, nil
}

// SetSetting creates or replaces a setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return docerr.Wrap(docerr.KindStore, err, "set setting %s", key)
}

// ClearSetting removes a setting, ignoring absent keys.
func (s *Store) ClearSetting(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	return docerr.Wrap(docerr.KindStore, err, "clear setting %s", key)
}

// String renders a metadata row the way log lines reference documents.
func (m Metadata) String() string {
	return fmt.Sprintf("%s:%s", m.Collection, m.Path)
}
