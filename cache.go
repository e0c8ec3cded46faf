package fscache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"github.com/gophersatwork/fscache/internal/logging"
)

// Cache memoizes functions in a Store. Results of path-keyed functions are
// keyed on the fingerprint of the path, so they are recomputed when the
// file or tree changes.
type Cache struct {
	store    Store
	fs       afero.Fs
	hashFunc HashFunc
	nowFunc  NowFunc
	mode     Mode
	tokens   []string
	window   time.Duration
	workers  int
	walker   TreeWalker
	logger   *log.Logger
	decider  *Decider
	group    singleflight.Group
}

// New creates a cache on top of store. In ModeClear the store is emptied
// first; a failure to do so is logged and otherwise ignored.
func New(store Store, options ...Option) *Cache {
	c := &Cache{
		store:    store,
		fs:       afero.NewOsFs(),
		hashFunc: defaultHashFunc,
		nowFunc:  time.Now,
		window:   DefaultWindow,
		workers:  DefaultWorkers,
	}

	for _, option := range options {
		option(c)
	}

	if c.logger == nil {
		c.logger = logging.Default()
	}
	if c.walker == nil {
		c.walker = NewWalker(c.fs, WithWalkWorkers(c.workers), WithWalkLogger(c.logger))
	}
	c.decider = NewDecider(DeciderConfig{
		Fs:     c.fs,
		Walker: c.walker,
		Window: c.window,
		Now:    c.nowFunc,
		Tokens: c.tokens,
		Logger: c.logger,
	})

	if c.mode == ModeClear {
		c.Clear()
	}

	return c
}

// OpenTemp creates a cache backed by an in-memory store, for tests.
func OpenTemp(options ...Option) *Cache {
	store, err := OpenFileStore("/fscache", WithStoreFs(afero.NewMemMapFs()))
	if err != nil {
		panic(fmt.Sprintf("failed to create temp store: %v", err))
	}
	return New(store, options...)
}

// Mode returns the cache mode.
func (c *Cache) Mode() Mode {
	return c.mode
}

// Store returns the underlying store.
func (c *Cache) Store() Store {
	return c.store
}

// Decider returns the decider used for path-keyed functions.
func (c *Cache) Decider() *Decider {
	return c.decider
}

// Key creates a new KeyBuilder using the cache's hash function.
func (c *Cache) Key() *KeyBuilder {
	return &KeyBuilder{hashFunc: c.hashFunc}
}

// Decide reports how a call with path would be served. In ModeIgnore the
// path is canonicalized but not fingerprinted.
func (c *Cache) Decide(ctx context.Context, path string) Decision {
	if c.mode == ModeIgnore {
		return Decision{Path: c.decider.Canonical(path), Bypass: true, Reason: BypassIgnoreMode}
	}
	return c.decider.Decide(ctx, path)
}

// Clear empties the store. Failures are logged, not returned.
func (c *Cache) Clear() {
	if err := c.store.Clear(); err != nil {
		c.logger.Warn("failed to clear cache", "err", err)
	}
}

// Close closes the store if it holds resources.
func (c *Cache) Close() error {
	if closer, ok := c.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// MemoizePath wraps fn so that its result is cached against the
// fingerprint of the path argument. fn is always called with the
// canonical path. When the path cannot be fingerprinted or was modified
// within the window, or the cache is in ModeIgnore, fn is called directly
// and nothing is stored.
func MemoizePath[R any](c *Cache, name string, fn func(ctx context.Context, path string) (R, error)) func(ctx context.Context, path string) (R, error) {
	return func(ctx context.Context, path string) (R, error) {
		dec := c.Decide(ctx, path)
		if dec.Bypass {
			c.logger.Debug("calling directly", "func", name, "path", dec.Path, "reason", dec.Reason)
			return fn(ctx, dec.Path)
		}

		key := c.Key().Func(name).Path(dec.Path).Fingerprint(dec.Fingerprint).Build()
		return getOrCompute(c, key, func() (R, error) {
			return fn(ctx, dec.Path)
		})
	}
}

// MemoizePathArg is MemoizePath for functions taking one more argument.
// The argument is part of the key.
func MemoizePathArg[A, R any](c *Cache, name string, fn func(ctx context.Context, path string, arg A) (R, error)) func(ctx context.Context, path string, arg A) (R, error) {
	return func(ctx context.Context, path string, arg A) (R, error) {
		dec := c.Decide(ctx, path)
		if dec.Bypass {
			c.logger.Debug("calling directly", "func", name, "path", dec.Path, "reason", dec.Reason)
			return fn(ctx, dec.Path, arg)
		}

		key := c.Key().Func(name).Path(dec.Path).Arg(arg).Fingerprint(dec.Fingerprint).Build()
		return getOrCompute(c, key, func() (R, error) {
			return fn(ctx, dec.Path, arg)
		})
	}
}

// Memoize wraps fn so that its result is cached by function name and
// argument alone. No path is fingerprinted and cache tokens do not apply.
func Memoize[A, R any](c *Cache, name string, fn func(ctx context.Context, arg A) (R, error)) func(ctx context.Context, arg A) (R, error) {
	if c.mode == ModeIgnore {
		return fn
	}

	return func(ctx context.Context, arg A) (R, error) {
		key := c.Key().Func(name).Arg(arg).Build()
		return getOrCompute(c, key, func() (R, error) {
			return fn(ctx, arg)
		})
	}
}

// getOrCompute returns the stored value for key or computes and stores it.
// Concurrent callers with the same key share one computation. Errors from
// compute are returned unchanged and nothing is stored. When storing
// fails, the computed value is returned together with an error wrapping
// ErrStoreWrite.
func getOrCompute[R any](c *Cache, key Key, compute func() (R, error)) (R, error) {
	var zero R

	keyHash, err := key.computeHash()
	if err != nil {
		return zero, err
	}

	data, ok, err := c.store.Get(keyHash)
	if err != nil {
		return zero, fmt.Errorf("failed to read cache entry: %w", err)
	}
	if ok {
		v, err := decodeValue[R](data)
		if err == nil {
			c.logger.Debug("cache hit", "key", keyHash, "func", key.fn)
			return v, nil
		}
		c.logger.Warn("discarding undecodable cache entry", "key", keyHash, "func", key.fn, "err", err)
	}

	v, err, _ := c.group.Do(keyHash, func() (any, error) {
		c.logger.Debug("cache miss", "key", keyHash, "func", key.fn)
		out, err := compute()
		if err != nil {
			return out, err
		}
		data, err := encodeValue(out)
		if err != nil {
			return out, fmt.Errorf("%w: failed to encode %s: %w", ErrStoreWrite, key.fn, err)
		}
		return out, c.put(keyHash, key, data)
	})
	out, _ := v.(R)
	return out, err
}

func (c *Cache) put(keyHash string, key Key, data []byte) error {
	var err error
	if ds, ok := c.store.(DescribingStore); ok {
		err = ds.PutDescribed(keyHash, data, Description{
			Func:        key.fn,
			Path:        key.path,
			Fingerprint: key.fingerprint,
		})
	} else {
		err = c.store.Put(keyHash, data)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	return nil
}

// IsStoreWrite reports whether err only means a computed value could not
// be cached.
func IsStoreWrite(err error) bool {
	return errors.Is(err, ErrStoreWrite)
}
