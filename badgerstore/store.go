// Package badgerstore provides a badger-backed store for fscache results.
package badgerstore

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// keyPrefix namespaces result entries so Clear can drop them in one call.
var keyPrefix = []byte("fscache/v1/")

// Store wraps Badger. It satisfies fscache.Store.
type Store struct {
	db *badger.DB
}

// Open opens or creates a store at the given path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable badger logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store at %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// OpenInMemory opens a store that lives only in memory.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory badger store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key.
func (s *Store) Get(key string) ([]byte, bool, error) {
	if s.db.IsClosed() {
		return nil, false, ErrClosed
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeKey(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Put stores value under key.
func (s *Store) Put(key string, value []byte) error {
	if s.db.IsClosed() {
		return ErrClosed
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(makeKey(key), value)
	})
}

// Delete removes a stored entry.
func (s *Store) Delete(key string) error {
	if s.db.IsClosed() {
		return ErrClosed
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(makeKey(key))
	})
}

// Clear removes every entry.
func (s *Store) Clear() error {
	if s.db.IsClosed() {
		return ErrClosed
	}
	return s.db.DropPrefix(keyPrefix)
}

// Len counts stored entries.
func (s *Store) Len() (int, error) {
	if s.db.IsClosed() {
		return 0, ErrClosed
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Size returns the on-disk size of the LSM tree and value log.
func (s *Store) Size() (lsm, vlog int64) {
	return s.db.Size()
}

func makeKey(key string) []byte {
	return append(append([]byte(nil), keyPrefix...), key...)
}
