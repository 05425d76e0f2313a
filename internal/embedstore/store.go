// Package embedstore persists per-document token embedding matrices.
//
// Keys are 64-bit document (or chunk) IDs; values use the fixed wire
// layout in codec.go. The store is single-writer with snapshot reads and
// fsync on every write transaction.
package embedstore

import (
	"encoding/binary"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/hyperjump/docbert/internal/docerr"
	"github.com/hyperjump/docbert/internal/maxsim"
)

var bucketEmbeddings = []byte("embeddings")

// Store is a bbolt-backed embedding store.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the store file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, docerr.Wrap(docerr.KindStore, err, "open embedding store %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEmbeddings)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, docerr.Wrap(docerr.KindStore, err, "init embedding store %s", path)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(id uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], id)
	return k[:]
}

// Put writes one embedding matrix, replacing any previous value.
func (s *Store) Put(id uint64, m maxsim.Matrix) error {
	payload := Encode(m)
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEmbeddings).Put(key(id), payload)
	})
	return docerr.Wrap(docerr.KindStore, err, "put embedding %d", id)
}

// Get returns the matrix for id, or found=false when absent.
func (s *Store) Get(id uint64) (maxsim.Matrix, bool, error) {
	var m maxsim.Matrix
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketEmbeddings).Get(key(id))
		if raw == nil {
			return nil
		}
		decoded, err := Decode(raw)
		if err != nil {
			return err
		}
		m = decoded
		found = true
		return nil
	})
	if err != nil {
		if docerr.IsKind(err, docerr.KindCorrupt) {
			return maxsim.Matrix{}, false, err
		}
		return maxsim.Matrix{}, false, docerr.Wrap(docerr.KindStore, err, "get embedding %d", id)
	}
	return m, found, nil
}

// Remove deletes the entry for id and reports whether it existed.
func (s *Store) Remove(id uint64) (bool, error) {
	existed := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEmbeddings)
		k := key(id)
		if b.Get(k) == nil {
			return nil
		}
		existed = true
		return b.Delete(k)
	})
	if err != nil {
		return false, docerr.Wrap(docerr.KindStore, err, "remove embedding %d", id)
	}
	return existed, nil
}

// BatchPut writes all entries in one transaction.
func (s *Store) BatchPut(entries map[uint64]maxsim.Matrix) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEmbeddings)
		for id, m := range entries {
			if err := b.Put(key(id), Encode(m)); err != nil {
				return err
			}
		}
		return nil
	})
	return docerr.Wrap(docerr.KindStore, err, "batch put %d embeddings", len(entries))
}

// BatchGet returns one entry per requested ID in input order; missing IDs
// yield nil.
func (s *Store) BatchGet(ids []uint64) ([]*maxsim.Matrix, error) {
	out := make([]*maxsim.Matrix, len(ids))
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEmbeddings)
		for i, id := range ids {
			raw := b.Get(key(id))
			if raw == nil {
				continue
			}
			m, err := Decode(raw)
			if err != nil {
				return err
			}
			out[i] = &m
		}
		return nil
	})
	if err != nil {
		if docerr.IsKind(err, docerr.KindCorrupt) {
			return nil, err
		}
		return nil, docerr.Wrap(docerr.KindStore, err, "batch get %d embeddings", len(ids))
	}
	return out, nil
}

// BatchRemove deletes all given IDs in one transaction, ignoring absent ones.
func (s *Store) BatchRemove(ids []uint64) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEmbeddings)
		for _, id := range ids {
			if err := b.Delete(key(id)); err != nil {
				return err
			}
		}
		return nil
	})
	return docerr.Wrap(docerr.KindStore, err, "batch remove %d embeddings", len(ids))
}

// ListIDs returns every stored key in ascending order.
func (s *Store) ListIDs() ([]uint64, error) {
	var ids []uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEmbeddings).ForEach(func(k, _ []byte) error {
			ids = append(ids, binary.BigEndian.Uint64(k))
			return nil
		})
	})
	if err != nil {
		return nil, docerr.Wrap(docerr.KindStore, err, "list embedding ids")
	}
	return ids, nil
}

// Count returns the number of stored embeddings.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketEmbeddings).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, docerr.Wrap(docerr.KindStore, err, "count embeddings")
	}
	return n, nil
}
