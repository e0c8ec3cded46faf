package fscache

import "errors"

// ErrNotFound is returned by store maintenance operations addressing a key
// that holds no entry.
var ErrNotFound = errors.New("cache entry not found")

// Store persists encoded results by key hash. Implementations must be safe
// for concurrent use.
type Store interface {
	// Get returns the value stored under key. ok is false on a miss.
	Get(key string) (value []byte, ok bool, err error)
	// Put stores value under key, replacing any previous value.
	Put(key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	// Clear removes every entry.
	Clear() error
}

// Description records what a stored entry was computed from.
type Description struct {
	Func        string   `json:"func"`
	Path        string   `json:"path,omitempty"`
	Fingerprint []string `json:"fingerprint,omitempty"`
}

// DescribingStore is implemented by stores that keep a Description next to
// each value. Cache uses it when available.
type DescribingStore interface {
	Store
	PutDescribed(key string, value []byte, desc Description) error
}
