package fscache

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
)

// Option defines a function that configures a Cache.
type Option func(*Cache)

// WithFs sets the filesystem that paths are fingerprinted on.
// This is primarily useful for testing with in-memory filesystems.
//
// Example:
//
//	cache := fscache.OpenTemp(fscache.WithFs(afero.NewMemMapFs()))
func WithFs(fs afero.Fs) Option {
	return func(c *Cache) {
		c.fs = fs
	}
}

// WithHashFunc sets the hash function used for cache keys.
// The default is xxHash64.
//
// Note: Changing the hash function will invalidate existing cache entries.
func WithHashFunc(hashFunc HashFunc) Option {
	return func(c *Cache) {
		c.hashFunc = hashFunc
	}
}

// WithNowFunc sets a custom time function for the cache.
// This is primarily useful for testing the modification window with
// deterministic timestamps.
func WithNowFunc(nowFunc NowFunc) Option {
	return func(c *Cache) {
		c.nowFunc = nowFunc
	}
}

// WithMode sets the cache mode. See Mode.
func WithMode(mode Mode) Option {
	return func(c *Cache) {
		c.mode = mode
	}
}

// WithTokens appends tokens to the fingerprint of every path-keyed entry.
// Versions of components the wrapped functions depend on are typical tokens.
func WithTokens(tokens ...string) Option {
	return func(c *Cache) {
		c.tokens = append(c.tokens, tokens...)
	}
}

// WithWindow sets how recently a path may have been modified before its
// fingerprint is no longer trusted. The default is DefaultWindow.
func WithWindow(window time.Duration) Option {
	return func(c *Cache) {
		c.window = window
	}
}

// WithWorkers sets the number of goroutines used to walk directories.
// It has no effect when WithWalker is also given.
func WithWorkers(n int) Option {
	return func(c *Cache) {
		c.workers = n
	}
}

// WithWalker replaces the default Walker.
//
// Example:
//
//	cache := fscache.New(store, fscache.WithWalker(fscache.NewFastWalker()))
func WithWalker(walker TreeWalker) Option {
	return func(c *Cache) {
		c.walker = walker
	}
}

// WithLogger sets the logger for the cache and its walker.
func WithLogger(logger *log.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}
