package fscache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Stats represents store statistics.
type Stats struct {
	Entries     int           // Total number of entries
	TotalSize   int64         // Total size of all stored values in bytes
	OldestEntry time.Duration // Age of the oldest entry
	NewestEntry time.Duration // Age of the newest entry
}

// Entry describes a single stored entry.
type Entry struct {
	KeyHash     string
	Func        string
	Path        string
	Fingerprint []string
	CreatedAt   time.Time
	AccessedAt  time.Time
	Size        int64
}

// Stats returns statistics about the store.
func (s *FileStore) Stats() (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{}
	var oldest, newest time.Time

	err := s.walkManifests(func(keyHash string, m *manifest) error {
		stats.Entries++
		stats.TotalSize += m.Size

		if oldest.IsZero() || m.CreatedAt.Before(oldest) {
			oldest = m.CreatedAt
		}
		if newest.IsZero() || m.CreatedAt.After(newest) {
			newest = m.CreatedAt
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	now := s.nowFunc()
	if !oldest.IsZero() {
		stats.OldestEntry = now.Sub(oldest)
	}
	if !newest.IsZero() {
		stats.NewestEntry = now.Sub(newest)
	}

	return stats, nil
}

// Prune removes entries created more than olderThan ago.
// Returns the number of entries removed.
func (s *FileStore) Prune(olderThan time.Duration) (int, error) {
	cutoff := s.nowFunc().Add(-olderThan)
	return s.pruneWhere(func(m *manifest) bool {
		return m.CreatedAt.Before(cutoff)
	})
}

// PruneUnused removes entries not read for notAccessedSince.
// Returns the number of entries removed.
func (s *FileStore) PruneUnused(notAccessedSince time.Duration) (int, error) {
	cutoff := s.nowFunc().Add(-notAccessedSince)
	return s.pruneWhere(func(m *manifest) bool {
		return m.AccessedAt.Before(cutoff)
	})
}

// Entries returns every stored entry.
func (s *FileStore) Entries() ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []Entry

	err := s.walkManifests(func(keyHash string, m *manifest) error {
		entries = append(entries, Entry{
			KeyHash:     keyHash,
			Func:        m.Func,
			Path:        m.Path,
			Fingerprint: m.Fingerprint,
			CreatedAt:   m.CreatedAt,
			AccessedAt:  m.AccessedAt,
			Size:        m.Size,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Entry returns the entry stored under key, or ErrNotFound.
func (s *FileStore) Entry(key string) (Entry, error) {
	if err := validateKey(key); err != nil {
		return Entry{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	m, err := s.readManifest(key)
	if errors.Is(err, fs.ErrNotExist) {
		return Entry{}, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return Entry{}, err
	}

	return Entry{
		KeyHash:     key,
		Func:        m.Func,
		Path:        m.Path,
		Fingerprint: m.Fingerprint,
		CreatedAt:   m.CreatedAt,
		AccessedAt:  m.AccessedAt,
		Size:        m.Size,
	}, nil
}

func (s *FileStore) pruneWhere(expired func(m *manifest) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var toRemove []string
	err := s.walkManifests(func(keyHash string, m *manifest) error {
		if expired(m) {
			toRemove = append(toRemove, keyHash)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	count := 0
	for _, keyHash := range toRemove {
		if err := s.removeByHash(keyHash); err != nil {
			return count, fmt.Errorf("failed to remove entry %s: %w", keyHash, err)
		}
		count++
	}

	return count, nil
}

// walkManifests walks all manifest files and calls the function for each.
// Unreadable manifests are skipped.
func (s *FileStore) walkManifests(fn func(keyHash string, m *manifest) error) error {
	return afero.Walk(s.fs, s.manifestDir(), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		keyHash := strings.TrimSuffix(filepath.Base(path), ".json")
		if validateKey(keyHash) != nil {
			return nil
		}

		m, err := s.readManifest(keyHash)
		if err != nil {
			return nil
		}

		return fn(keyHash, m)
	})
}
