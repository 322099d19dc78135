// Package docstore keeps the verbatim stored fields of every document in a
// bolt file, keyed by big-endian document id.
package docstore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boltdb/bolt"

	"github.com/Adithya-Monish-Kumar-K/music-search/internal/document"
	apperrors "github.com/Adithya-Monish-Kumar-K/music-search/pkg/errors"
)

// FileName is the document table file name inside an index directory.
const FileName = "documents.db"

var (
	documentsBucket = []byte("documents")
	metaBucket      = []byte("meta")
	countKey        = []byte("count")
)

const defaultBatchSize = 1000

// Store is a document table. A Store opened with Create accepts writes; one
// opened with Open is read-only and safe for concurrent use.
type Store struct {
	db        *bolt.DB
	path      string
	pending   []entry
	count     uint32
	batchSize int
}

type entry struct {
	id   uint32
	data []byte
}

// Create opens a new writable store at path.
func Create(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("creating document store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(documentsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating document buckets: %w", err)
	}
	return &Store{db: db, path: path, batchSize: defaultBatchSize}, nil
}

// Open opens an existing store read-only.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o444, &bolt.Options{Timeout: time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("opening document store: %w", err)
	}
	s := &Store{db: db, path: path}
	err = db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(documentsBucket) == nil {
			return fmt.Errorf("missing %q bucket", documentsBucket)
		}
		meta := tx.Bucket(metaBucket)
		if meta == nil {
			return fmt.Errorf("missing %q bucket", metaBucket)
		}
		if v := meta.Get(countKey); len(v) == 4 {
			s.count = binary.BigEndian.Uint32(v)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening document store: %w", err)
	}
	return s, nil
}

// Put queues stored under id and writes a batch once enough are queued.
func (s *Store) Put(id uint32, stored document.Stored) error {
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encoding document %d: %w", id, err)
	}
	s.pending = append(s.pending, entry{id: id, data: data})
	if len(s.pending) >= s.batchSize {
		return s.Flush()
	}
	return nil
}

// Flush writes every queued document and the running count in one
// transaction.
func (s *Store) Flush() error {
	if len(s.pending) == 0 {
		return nil
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(documentsBucket)
		for _, e := range s.pending {
			if err := b.Put(key(e.id), e.data); err != nil {
				return err
			}
		}
		count := make([]byte, 4)
		binary.BigEndian.PutUint32(count, s.count+uint32(len(s.pending)))
		return tx.Bucket(metaBucket).Put(countKey, count)
	})
	if err != nil {
		return fmt.Errorf("writing document batch: %w", err)
	}
	s.count += uint32(len(s.pending))
	s.pending = s.pending[:0]
	return nil
}

// Get returns the stored fields of id.
func (s *Store) Get(id uint32) (document.Stored, error) {
	var stored document.Stored
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(documentsBucket).Get(key(id))
		if v == nil {
			return fmt.Errorf("%w: id %d", apperrors.ErrDocumentNotFound, id)
		}
		return json.Unmarshal(v, &stored)
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// Count is the number of documents written.
func (s *Store) Count() int {
	return int(s.count)
}

func (s *Store) Path() string {
	return s.path
}

// Close flushes queued documents of a writable store and closes the file.
func (s *Store) Close() error {
	var flushErr error
	if !s.db.IsReadOnly() {
		flushErr = s.Flush()
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	return flushErr
}

func key(id uint32) []byte {
	k := make([]byte, 4)
	binary.BigEndian.PutUint32(k, id)
	return k
}
