/*
Package fscache caches function results against the observed state of files
and directory trees.

A cached result stays valid until the path it was computed from changes.
Change is detected from metadata alone: no file contents are read.

# Fingerprints

A FileFingerprint is taken from one stat of a file, following symlinks:

	(mtime_ns, ctime_ns, size, inode)

A DirFingerprint summarizes every regular file under a tree. Each
(path, fingerprint) pair is hashed into 128 bits and XOR-folded into the
aggregate, so the result does not depend on the order files are found in
and its size does not grow with the tree. Its tuple is a single element:
32 hex characters, or "empty" for a tree without files.

# Walking

Walker traverses a tree with a fixed pool of goroutines (DefaultWorkers,
60) that share a LIFO stack of pending directories. The wide pool hides
round-trip latency on network filesystems; the stack keeps related
directories together on local disks. Directories that cannot be listed are
logged and skipped rather than failing the walk. FastWalker is an
alternative built on fastwalk for local disks.

# Decisions

For every call of a path-keyed function the Decider:

 1. resolves symlinks, so every spelling of a path shares one entry
 2. fingerprints the file, or walks the directory
 3. bypasses the cache when no fingerprint could be taken
 4. bypasses the cache when the path was modified within the window
    (DefaultWindow, 10ms), since a further write may follow unnoticed
 5. otherwise keys the lookup on the canonical path, the fingerprint
    tuple and the configured tokens

# Basic Usage

	store, err := fscache.OpenFileStore(".cache")
	if err != nil {
	    log.Fatalf("Failed to open store: %v", err)
	}
	cache := fscache.New(store, fscache.WithTokens("parser-v2"))

	countLines := fscache.MemoizePath(cache, "countLines",
	    func(ctx context.Context, path string) (int, error) {
	        data, err := os.ReadFile(path)
	        if err != nil {
	            return 0, err
	        }
	        return bytes.Count(data, []byte("\n")), nil
	    })

	n, err := countLines(ctx, "data/input.txt")

Results are encoded with encoding/gob, so result types must be gob
encodable. Results of interface type need gob.Register.

# Modes

OpenNamed reads the mode from an environment variable (FSCACHE_CACHE by
default):

  - "" caches normally
  - "clear" empties the store when the cache is opened
  - "ignore" calls wrapped functions directly, still with the canonical path

# Stores

FileStore keeps one JSON manifest and one value file per entry and offers
Stats, Entries, Prune and PruneUnused. The badgerstore package provides a
Badger-backed Store.

# Errors

Fingerprinting problems never fail a call; they only bypass the cache.
Store failures are returned. When a result was computed but could not be
stored, the wrapper returns the result together with an error wrapping
ErrStoreWrite.
*/
package fscache
