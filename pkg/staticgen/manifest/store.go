package manifest

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when a manifest record doesn't exist.
var ErrNotFound = errors.New("manifest record not found")

// Stats summarizes the manifest contents.
type Stats struct {
	Pages       int       `json:"pages" yaml:"pages"`
	AjaxPages   int       `json:"ajax_pages" yaml:"ajax_pages"`
	Bytes       int64     `json:"bytes" yaml:"bytes"`
	LastPublish time.Time `json:"last_publish" yaml:"last_publish"`
}

// Store wraps Badger for manifest operations.
type Store struct {
	db *badger.DB
}

// Open opens or creates a manifest store at the given path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable badger logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing manifest store without taking the write
// lock, so listings keep working while the daemon holds the store open.
// The store must already exist.
func OpenReadOnly(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.ReadOnly = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get retrieves the record for one page variant.
func (s *Store) Get(path, query string, ajax bool) (*Record, error) {
	key := MakeKey(path, query, ajax)
	var rec Record

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(rec.Decode)
	})

	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Put stores a record, replacing any previous one for the same variant.
func (s *Store) Put(rec *Record) error {
	key := MakeKey(rec.Path, rec.Query, rec.Ajax)
	value, err := rec.Encode()
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Delete removes the record for one page variant. Deleting a variant
// that was never recorded is not an error.
func (s *Store) Delete(path, query string, ajax bool) error {
	key := MakeKey(path, query, ajax)

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// DeleteTree removes every record whose path starts with prefix and
// reports how many were removed. Purging "/blog/" drops all pages
// beneath it in one pass.
func (s *Store) DeleteTree(prefix string) (int, error) {
	deleted := 0
	raw := []byte(prefix)

	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(raw); it.ValidForPrefix(raw); it.Next() {
			if err := txn.Delete(it.Item().KeyCopy(nil)); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})

	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// List returns records whose path starts with prefix, in key order.
// An empty prefix lists everything; limit 0 means no limit.
func (s *Store) List(prefix string, limit int) ([]*Record, error) {
	var records []*Record
	raw := []byte(prefix)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(raw); it.ValidForPrefix(raw); it.Next() {
			if limit > 0 && len(records) >= limit {
				return nil
			}
			var rec Record
			if err := it.Item().Value(rec.Decode); err != nil {
				return err
			}
			records = append(records, &rec)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return records, nil
}

// Count returns the total number of records.
func (s *Store) Count() (int, error) {
	count := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})

	if err != nil {
		return 0, err
	}
	return count, nil
}

// Stats scans the manifest and summarizes it.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{}

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec Record
			if err := it.Item().Value(rec.Decode); err != nil {
				return err
			}
			stats.Pages++
			stats.Bytes += rec.Size
			if rec.Ajax {
				stats.AjaxPages++
			}
			if rec.PublishedAt.After(stats.LastPublish) {
				stats.LastPublish = rec.PublishedAt
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return stats, nil
}
