package fscache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
)

// manifest describes one stored entry. It is written after the value, so
// an entry exists exactly when its manifest does.
type manifest struct {
	// Key information
	KeyHash     string   `json:"keyHash"`
	Func        string   `json:"func,omitempty"`
	Path        string   `json:"path,omitempty"`
	Fingerprint []string `json:"fingerprint,omitempty"`

	// Value information
	ValueHash string `json:"valueHash"`
	Size      int64  `json:"size"`

	// Metadata
	CreatedAt  time.Time `json:"createdAt"`
	AccessedAt time.Time `json:"accessedAt"`
}

// valueHash returns the hex xxHash64 of a stored value.
func valueHash(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// saveManifest writes a manifest atomically.
func (s *FileStore) saveManifest(m *manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := s.writeAtomic(s.manifestPath(m.KeyHash), data); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

// readManifest loads a manifest without touching its access time.
func (s *FileStore) readManifest(keyHash string) (*manifest, error) {
	data, err := afero.ReadFile(s.fs, s.manifestPath(keyHash))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}

	return &m, nil
}
