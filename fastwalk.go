package fscache

import (
	"context"
	"errors"
	"io/fs"
	"iter"
	"os"

	"github.com/charlievieth/fastwalk"
)

// FastWalker walks the local disk with fastwalk. It reads the operating
// system filesystem directly and ignores any afero.Fs the cache is
// configured with.
type FastWalker struct {
	walkerOptions
}

// NewFastWalker creates a FastWalker.
func NewFastWalker(opts ...WalkerOption) *FastWalker {
	return &FastWalker{walkerOptions: newWalkerOptions(opts)}
}

// Walk implements TreeWalker with the same error policy as Walker.
func (fw *FastWalker) Walk(ctx context.Context, root string) iter.Seq2[string, FileFingerprint] {
	return func(yield func(string, FileFingerprint) bool) {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			return
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		items := make(chan walkItem, fw.workers)
		go func() {
			defer close(items)
			fw.run(ctx, root, items)
		}()

		for item := range items {
			if !yield(item.path, item.fp) {
				cancel()
				break
			}
		}
		for range items {
		}
	}
}

func (fw *FastWalker) run(ctx context.Context, root string, items chan<- walkItem) {
	conf := fastwalk.Config{
		Follow:     true,
		NumWorkers: fw.workers,
	}

	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, walkErr error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if walkErr != nil {
			fw.logger.Error("failed to list directory", "path", path, "err", walkErr)
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, err := fastwalk.StatDirEntry(path, d)
		if err != nil {
			fw.logger.Debug("skipping entry", "path", path, "err", err)
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		select {
		case items <- walkItem{path: path, fp: fingerprintFromInfo(info)}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		fw.logger.Error("walk failed", "path", root, "err", err)
	}
}
