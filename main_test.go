package fscache

import (
	"iter"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/gophersatwork/fscache/internal/logging"
)

func TestMain(t *testing.M) {
	code := t.Run()

	os.Exit(code)
}

func fixedNowFunc() time.Time {
	return time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
}

// longAgo is well outside any modification window relative to fixedNowFunc.
var longAgo = fixedNowFunc().Add(-time.Hour)

// writeFile creates path with content on fs and sets its mtime.
func writeFile(t *testing.T, fs afero.Fs, path, content string, mtime time.Time) {
	t.Helper()
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	if err := fs.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("Failed to set times on %s: %v", path, err)
	}
}

// testWalker returns a quiet stack walker over fs.
func testWalker(fs afero.Fs, workers int) *Walker {
	return NewWalker(fs, WithWalkWorkers(workers), WithWalkLogger(logging.Discard()))
}

// collect drains a walk into a map.
func collect(t *testing.T, seq iter.Seq2[string, FileFingerprint]) map[string]FileFingerprint {
	t.Helper()
	out := make(map[string]FileFingerprint)
	for path, fp := range seq {
		if _, dup := out[path]; dup {
			t.Errorf("path %s emitted twice", path)
		}
		out[path] = fp
	}
	return out
}
