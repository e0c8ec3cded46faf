package fscache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gophersatwork/fscache/internal/logging"
)

func TestFastWalkerMatchesWalker(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{"a/one.txt", "a/b/two.txt", "c/three.txt", "four.txt"} {
		full := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(p), 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	fast := NewFastWalker(WithWalkWorkers(4), WithWalkLogger(logging.Discard()))
	stack := testWalker(afero.NewOsFs(), 4)

	fastOut := collect(t, fast.Walk(context.Background(), root))
	stackOut := collect(t, stack.Walk(context.Background(), root))

	assert.Len(t, fastOut, 4)
	assert.Equal(t, stackOut, fastOut)
}

func TestFastWalkerRoots(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	fast := NewFastWalker(WithWalkLogger(logging.Discard()))

	assert.Empty(t, collect(t, fast.Walk(context.Background(), filepath.Join(dir, "missing"))))
	assert.Empty(t, collect(t, fast.Walk(context.Background(), file)))
}

func TestFastWalkerEarlyStop(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, string(rune('a'+i))+".txt"), []byte("x"), 0o644))
	}

	count := 0
	for range NewFastWalker(WithWalkWorkers(2), WithWalkLogger(logging.Discard())).Walk(context.Background(), root) {
		count++
		if count == 3 {
			break
		}
	}
	assert.Equal(t, 3, count)
}
