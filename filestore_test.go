package fscache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/afero"
)

const (
	testKey1 = "0123456789abcdef"
	testKey2 = "fedcba9876543210"
)

func newTestFileStore(t *testing.T, fs afero.Fs, now NowFunc) *FileStore {
	t.Helper()
	store, err := OpenFileStore("/store", WithStoreFs(fs), WithStoreNowFunc(now))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	return store
}

func TestFileStoreRoundTrip(t *testing.T) {
	memFs := afero.NewMemMapFs()
	store := newTestFileStore(t, memFs, fixedNowFunc)

	if _, ok, err := store.Get(testKey1); err != nil || ok {
		t.Fatalf("Get() on empty store = ok %v, err %v; want miss", ok, err)
	}

	if err := store.Put(testKey1, []byte("value")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	value, ok, err := store.Get(testKey1)
	if err != nil || !ok {
		t.Fatalf("Get() = ok %v, err %v; want hit", ok, err)
	}
	if string(value) != "value" {
		t.Errorf("Get() = %q, want %q", value, "value")
	}
	if !store.Has(testKey1) {
		t.Errorf("Has() = false after Put")
	}

	// Layout is sharded by the first two characters of the key
	for _, p := range []string{
		"/store/manifests/01/0123456789abcdef.json",
		"/store/objects/01/0123456789abcdef/value.dat",
	} {
		if exists, _ := afero.Exists(memFs, p); !exists {
			t.Errorf("expected %s to exist", p)
		}
	}
}

func TestFileStoreOverwrite(t *testing.T) {
	store := newTestFileStore(t, afero.NewMemMapFs(), fixedNowFunc)

	if err := store.Put(testKey1, []byte("first")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Put(testKey1, []byte("second value")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	value, ok, err := store.Get(testKey1)
	if err != nil || !ok || string(value) != "second value" {
		t.Fatalf("Get() = %q, %v, %v; want second value", value, ok, err)
	}
}

func TestFileStoreInvalidKeys(t *testing.T) {
	store := newTestFileStore(t, afero.NewMemMapFs(), fixedNowFunc)

	for _, key := range []string{"", "a", "ABCDEF", "../etc", "zz00"} {
		t.Run(fmt.Sprintf("%q", key), func(t *testing.T) {
			if err := store.Put(key, []byte("x")); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("Put() error = %v, want ErrInvalidKey", err)
			}
			if _, _, err := store.Get(key); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("Get() error = %v, want ErrInvalidKey", err)
			}
			if store.Has(key) {
				t.Errorf("Has() = true for invalid key")
			}
		})
	}
}

func TestFileStoreCorruptValue(t *testing.T) {
	memFs := afero.NewMemMapFs()
	store := newTestFileStore(t, memFs, fixedNowFunc)

	if err := store.Put(testKey1, []byte("value")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := afero.WriteFile(memFs, store.valuePath(testKey1), []byte("tampered"), 0o644); err != nil {
		t.Fatalf("Failed to tamper with value: %v", err)
	}

	_, ok, err := store.Get(testKey1)
	if err != nil || ok {
		t.Fatalf("Get() = ok %v, err %v; want miss for corrupted value", ok, err)
	}
	if store.Has(testKey1) {
		t.Errorf("corrupted entry should have been removed")
	}
}

func TestFileStoreMissingValue(t *testing.T) {
	memFs := afero.NewMemMapFs()
	store := newTestFileStore(t, memFs, fixedNowFunc)

	if err := store.Put(testKey1, []byte("value")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := memFs.RemoveAll(store.objectPath(testKey1)); err != nil {
		t.Fatalf("Failed to remove object: %v", err)
	}

	if _, ok, err := store.Get(testKey1); err != nil || ok {
		t.Fatalf("Get() = ok %v, err %v; want miss", ok, err)
	}
}

func TestFileStoreDeleteAndClear(t *testing.T) {
	memFs := afero.NewMemMapFs()
	store := newTestFileStore(t, memFs, fixedNowFunc)

	for _, key := range []string{testKey1, testKey2} {
		if err := store.Put(key, []byte(key)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	if err := store.Delete(testKey1); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if store.Has(testKey1) || !store.Has(testKey2) {
		t.Errorf("Delete() removed the wrong entries")
	}
	if err := store.Delete(testKey1); err != nil {
		t.Errorf("Delete() of a missing key error = %v", err)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if store.Has(testKey2) {
		t.Errorf("Clear() left entries behind")
	}
	if exists, _ := afero.DirExists(memFs, "/store/manifests"); !exists {
		t.Errorf("Clear() should recreate the manifests directory")
	}

	// The store stays usable after Clear
	if err := store.Put(testKey1, []byte("again")); err != nil {
		t.Fatalf("Put() after Clear error = %v", err)
	}
}

func TestFileStoreManifest(t *testing.T) {
	isDebug := false // Set to true when you want to troubleshoot issues visually.
	memFs := afero.NewMemMapFs()
	store := newTestFileStore(t, memFs, fixedNowFunc)

	desc := Description{Func: "parse", Path: "/data/a.txt", Fingerprint: []string{"1", "2", "3", "4"}}
	if err := store.PutDescribed(testKey1, []byte("value"), desc); err != nil {
		t.Fatalf("PutDescribed() error = %v", err)
	}

	data, err := afero.ReadFile(memFs, store.manifestPath(testKey1))
	if err != nil {
		t.Fatalf("Failed to read manifest: %v", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Failed to unmarshal manifest: %v", err)
	}
	if isDebug {
		spew.Dump(m)
	}

	if m.KeyHash != testKey1 || m.Func != "parse" || m.Path != "/data/a.txt" {
		t.Errorf("manifest = %+v, want key, func and path recorded", m)
	}
	if m.Size != 5 || m.ValueHash != valueHash([]byte("value")) {
		t.Errorf("manifest value info = %d %s", m.Size, m.ValueHash)
	}
	if !m.CreatedAt.Equal(fixedNowFunc()) {
		t.Errorf("CreatedAt = %v, want %v", m.CreatedAt, fixedNowFunc())
	}

	entry, err := store.Entry(testKey1)
	if err != nil {
		t.Fatalf("Entry() error = %v", err)
	}
	if entry.Func != "parse" || len(entry.Fingerprint) != 4 {
		t.Errorf("Entry() = %+v", entry)
	}

	if _, err := store.Entry(testKey2); !errors.Is(err, ErrNotFound) {
		t.Errorf("Entry() of missing key error = %v, want ErrNotFound", err)
	}
}

func TestFileStoreNoTempFilesLeft(t *testing.T) {
	memFs := afero.NewMemMapFs()
	store := newTestFileStore(t, memFs, fixedNowFunc)

	if err := store.Put(testKey1, []byte("value")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	err := afero.Walk(memFs, "/store", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(filepath.Base(path), ".tmp-") {
			t.Errorf("temporary file left behind: %s", path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
}

func TestFileStoreFailures(t *testing.T) {
	t.Run("MkdirAll fails on open", func(t *testing.T) {
		fs := &mockFailingFs{fs: afero.NewMemMapFs(), failOnMkdirAll: true}
		if _, err := OpenFileStore("/store", WithStoreFs(fs)); err == nil {
			t.Fatal("expected error when directories cannot be created")
		}
	})

	t.Run("Write fails", func(t *testing.T) {
		fs := &mockFailingFs{fs: afero.NewMemMapFs()}
		store := newTestFileStore(t, fs, fixedNowFunc)
		fs.failOnWriteFile = true

		if err := store.Put(testKey1, []byte("value")); err == nil {
			t.Fatal("expected Put() error")
		}
		fs.failOnWriteFile = false
		if store.Has(testKey1) {
			t.Error("failed Put() must not leave an entry")
		}
	})

	t.Run("Read fails", func(t *testing.T) {
		fs := &mockFailingFs{fs: afero.NewMemMapFs()}
		store := newTestFileStore(t, fs, fixedNowFunc)
		if err := store.Put(testKey1, []byte("value")); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		fs.failOnReadFile = true

		if _, _, err := store.Get(testKey1); err == nil {
			t.Fatal("expected Get() error when the manifest cannot be read")
		}
	})

	t.Run("Rename fails", func(t *testing.T) {
		fs := &mockFailingFs{fs: afero.NewMemMapFs()}
		store := newTestFileStore(t, fs, fixedNowFunc)
		fs.failOnRename = true

		if err := store.Put(testKey1, []byte("value")); err == nil {
			t.Fatal("expected Put() error")
		}
		fs.failOnRename = false
		if store.Has(testKey1) {
			t.Error("failed Put() must not leave an entry")
		}
	})
}

// Mock filesystem that can be configured to fail on specific operations
type mockFailingFs struct {
	fs              afero.Fs
	failOnMkdirAll  bool
	failOnWriteFile bool
	failOnReadFile  bool
	failOnRename    bool
}

func (m *mockFailingFs) Create(name string) (afero.File, error) {
	if m.failOnWriteFile {
		return nil, fmt.Errorf("mock Create error")
	}
	return m.fs.Create(name)
}

func (m *mockFailingFs) Mkdir(name string, perm os.FileMode) error {
	return m.fs.Mkdir(name, perm)
}

func (m *mockFailingFs) MkdirAll(path string, perm os.FileMode) error {
	if m.failOnMkdirAll {
		return fmt.Errorf("mock MkdirAll error")
	}
	return m.fs.MkdirAll(path, perm)
}

func (m *mockFailingFs) Open(name string) (afero.File, error) {
	if m.failOnReadFile {
		return nil, fmt.Errorf("mock Open error")
	}
	return m.fs.Open(name)
}

func (m *mockFailingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if m.failOnWriteFile && (flag&os.O_CREATE != 0 || flag&os.O_WRONLY != 0 || flag&os.O_RDWR != 0) {
		return nil, fmt.Errorf("mock OpenFile error")
	}
	return m.fs.OpenFile(name, flag, perm)
}

func (m *mockFailingFs) Remove(name string) error {
	return m.fs.Remove(name)
}

func (m *mockFailingFs) RemoveAll(path string) error {
	return m.fs.RemoveAll(path)
}

func (m *mockFailingFs) Rename(oldname, newname string) error {
	if m.failOnRename {
		return fmt.Errorf("mock Rename error")
	}
	return m.fs.Rename(oldname, newname)
}

func (m *mockFailingFs) Stat(name string) (os.FileInfo, error) {
	return m.fs.Stat(name)
}

func (m *mockFailingFs) Name() string {
	return "mockFailingFs"
}

func (m *mockFailingFs) Chmod(name string, mode os.FileMode) error {
	return m.fs.Chmod(name, mode)
}

func (m *mockFailingFs) Chown(name string, uid, gid int) error {
	return m.fs.Chown(name, uid, gid)
}

func (m *mockFailingFs) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return m.fs.Chtimes(name, atime, mtime)
}
