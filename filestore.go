package fscache

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// FileStore stores entries as files under a root directory:
//
//	manifests/ab/abcdef....json    metadata, the commit point of an entry
//	objects/ab/abcdef.../value.dat the encoded value
//
// Files are written to a temporary name and renamed into place, so readers
// never observe a partial entry.
type FileStore struct {
	root    string
	fs      afero.Fs
	nowFunc NowFunc
	mu      sync.RWMutex
}

var _ DescribingStore = (*FileStore)(nil)

// StoreOption defines a function that configures a FileStore.
type StoreOption func(*FileStore)

// WithStoreFs sets the filesystem the store writes to.
func WithStoreFs(fs afero.Fs) StoreOption {
	return func(s *FileStore) {
		s.fs = fs
	}
}

// WithStoreNowFunc sets the clock used for entry timestamps.
func WithStoreNowFunc(nowFunc NowFunc) StoreOption {
	return func(s *FileStore) {
		s.nowFunc = nowFunc
	}
}

// OpenFileStore creates a store at the given root directory.
// The directory will be created if it doesn't exist.
func OpenFileStore(root string, options ...StoreOption) (*FileStore, error) {
	s := &FileStore{
		root:    root,
		fs:      afero.NewOsFs(),
		nowFunc: time.Now,
	}

	for _, option := range options {
		option(s)
	}

	if err := s.mkdirs(); err != nil {
		return nil, err
	}

	return s, nil
}

// Root returns the store directory.
func (s *FileStore) Root() string {
	return s.root
}

// Get implements Store. A value whose contents no longer match its manifest
// is removed and reported as a miss.
func (s *FileStore) Get(key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.readManifest(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	data, err := afero.ReadFile(s.fs, s.valuePath(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, false, fmt.Errorf("failed to read value: %w", err)
	}
	if err != nil || int64(len(data)) != m.Size || valueHash(data) != m.ValueHash {
		if err := s.removeByHash(key); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	m.AccessedAt = s.nowFunc()
	_ = s.saveManifest(m)

	return data, true, nil
}

// Put implements Store.
func (s *FileStore) Put(key string, value []byte) error {
	return s.PutDescribed(key, value, Description{})
}

// PutDescribed stores value and records desc in the entry's manifest.
func (s *FileStore) PutDescribed(key string, value []byte, desc Description) error {
	if err := validateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeAtomic(s.valuePath(key), value); err != nil {
		return fmt.Errorf("failed to write value: %w", err)
	}

	now := s.nowFunc()
	m := &manifest{
		KeyHash:     key,
		Func:        desc.Func,
		Path:        desc.Path,
		Fingerprint: desc.Fingerprint,
		ValueHash:   valueHash(value),
		Size:        int64(len(value)),
		CreatedAt:   now,
		AccessedAt:  now,
	}
	return s.saveManifest(m)
}

// Has checks if a key exists in the store.
func (s *FileStore) Has(key string) bool {
	if validateKey(key) != nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	exists, err := afero.Exists(s.fs, s.manifestPath(key))
	return err == nil && exists
}

// Delete implements Store.
func (s *FileStore) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.removeByHash(key)
}

// Clear implements Store.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.RemoveAll(s.manifestDir()); err != nil {
		return fmt.Errorf("failed to remove manifests: %w", err)
	}
	if err := s.fs.RemoveAll(s.objectsDir()); err != nil {
		return fmt.Errorf("failed to remove objects: %w", err)
	}

	return s.mkdirs()
}

// Close releases any resources. FileStore holds none.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) mkdirs() error {
	if err := s.fs.MkdirAll(s.manifestDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create manifests directory: %w", err)
	}
	if err := s.fs.MkdirAll(s.objectsDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create objects directory: %w", err)
	}
	return nil
}

// writeAtomic writes data to a temporary file next to path and renames it
// into place.
func (s *FileStore) writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	f, err := afero.TempFile(s.fs, dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}
	return nil
}

// removeByHash removes a store entry by its key hash, manifest first.
func (s *FileStore) removeByHash(keyHash string) error {
	if err := s.fs.Remove(s.manifestPath(keyHash)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove manifest: %w", err)
	}
	if err := s.fs.RemoveAll(s.objectPath(keyHash)); err != nil {
		return fmt.Errorf("failed to remove objects: %w", err)
	}
	return nil
}

// manifestDir returns the path to the manifests directory.
func (s *FileStore) manifestDir() string {
	return filepath.Join(s.root, "manifests")
}

// objectsDir returns the path to the objects directory.
func (s *FileStore) objectsDir() string {
	return filepath.Join(s.root, "objects")
}

// manifestPath returns the path to a manifest file for a given key hash.
func (s *FileStore) manifestPath(keyHash string) string {
	return filepath.Join(s.manifestDir(), keyHash[:2], keyHash+".json")
}

// objectPath returns the path to the object directory for a given key hash.
func (s *FileStore) objectPath(keyHash string) string {
	return filepath.Join(s.objectsDir(), keyHash[:2], keyHash)
}

// valuePath returns the path to the value file for a given key hash.
func (s *FileStore) valuePath(keyHash string) string {
	return filepath.Join(s.objectPath(keyHash), "value.dat")
}

// validateKey accepts lowercase hex strings of at least two characters,
// which is what Key.Hash produces.
func validateKey(key string) error {
	if len(key) < 2 {
		return fmt.Errorf("%w: %q is too short", ErrInvalidKey, key)
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("%w: %q is not lowercase hex", ErrInvalidKey, key)
		}
	}
	return nil
}
