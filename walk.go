package fscache

import (
	"context"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/gophersatwork/fscache/internal/logging"
)

// DefaultWorkers is the default number of walker goroutines. Walks over
// network filesystems are dominated by round trips, so the pool is wide.
const DefaultWorkers = 60

// TreeWalker emits the fingerprint of every regular file under a root.
type TreeWalker interface {
	// Walk returns a lazy, unordered sequence of (path, fingerprint) pairs.
	// It yields nothing when root is not an existing directory.
	Walk(ctx context.Context, root string) iter.Seq2[string, FileFingerprint]
}

// WalkerOption configures a Walker or FastWalker.
type WalkerOption func(*walkerOptions)

type walkerOptions struct {
	workers int
	logger  *log.Logger
}

// WithWalkWorkers sets the number of walker goroutines. Values below one
// are ignored.
func WithWalkWorkers(n int) WalkerOption {
	return func(o *walkerOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithWalkLogger sets the logger used to report unreadable directories.
func WithWalkLogger(logger *log.Logger) WalkerOption {
	return func(o *walkerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newWalkerOptions(opts []WalkerOption) walkerOptions {
	o := walkerOptions{
		workers: DefaultWorkers,
		logger:  logging.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Walker traverses a tree on any afero.Fs with a fixed pool of goroutines
// sharing a LIFO stack of pending directories.
type Walker struct {
	walkerOptions
	fs afero.Fs
}

// NewWalker creates a Walker over fs.
func NewWalker(fs afero.Fs, opts ...WalkerOption) *Walker {
	return &Walker{
		walkerOptions: newWalkerOptions(opts),
		fs:            fs,
	}
}

// Workers returns the size of the goroutine pool.
func (w *Walker) Workers() int {
	return w.workers
}

// Walk implements TreeWalker. Directories that cannot be listed are logged
// and skipped, and entries that cannot be stat'ed are omitted. Symlinks
// are followed, so a directory reachable through several links is walked
// under each of them. A link back to one of its own ancestors is not
// followed. The walk stops early when ctx is cancelled or the consumer stops
// iterating, and all goroutines have exited by the time iteration returns.
func (w *Walker) Walk(ctx context.Context, root string) iter.Seq2[string, FileFingerprint] {
	return func(yield func(string, FileFingerprint) bool) {
		info, err := w.fs.Stat(root)
		if err != nil || !info.IsDir() {
			return
		}

		s := newWalkState(w, root, info)
		stop := context.AfterFunc(ctx, s.abort)
		defer stop()

		for range w.workers {
			go s.work()
		}
		s.drain(yield)
	}
}

// walkItem is one unit of walker output. done marks a worker exiting.
type walkItem struct {
	path string
	fp   FileFingerprint
	done bool
}

// pendingDir is a directory waiting to be listed, with the identities of
// the directories it was reached through.
type pendingDir struct {
	path  string
	chain *dirChain
}

// dirChain links a directory identity to its parent's.
type dirChain struct {
	id     dirID
	parent *dirChain
}

func (c *dirChain) contains(id dirID) bool {
	for ; c != nil; c = c.parent {
		if c.id == id {
			return true
		}
	}
	return false
}

// dirID identifies a directory: device and inode where the platform
// reports them, the cleaned path otherwise.
type dirID struct {
	dev, ino uint64
	path     string
}

func newDirID(path string, info os.FileInfo) dirID {
	_, ino, dev, ok := statDetails(info)
	if ok && ino != 0 {
		return dirID{dev: dev, ino: ino}
	}
	return dirID{path: filepath.Clean(path)}
}

// walkState is the shared state of one walk. pending, tasks and output
// are only touched with mu held.
type walkState struct {
	w        *Walker
	mu       sync.Mutex
	onInput  *sync.Cond
	onOutput *sync.Cond
	pending  []pendingDir
	tasks    int
	output   []walkItem
	aborted  atomic.Bool
}

func newWalkState(w *Walker, root string, info os.FileInfo) *walkState {
	s := &walkState{
		w:       w,
		pending: []pendingDir{{path: root, chain: &dirChain{id: newDirID(root, info)}}},
		tasks:   1,
	}
	s.onInput = sync.NewCond(&s.mu)
	s.onOutput = sync.NewCond(&s.mu)
	return s
}

// abort stops workers before their next pop.
func (s *walkState) abort() {
	s.mu.Lock()
	s.aborted.Store(true)
	s.onInput.Broadcast()
	s.mu.Unlock()
}

// work pops directories until the outstanding task count reaches zero or
// the walk is aborted, then leaves one done marker.
func (s *walkState) work() {
	for {
		s.mu.Lock()
		for len(s.pending) == 0 && s.tasks > 0 && !s.aborted.Load() {
			s.onInput.Wait()
		}
		if s.tasks == 0 || s.aborted.Load() {
			s.output = append(s.output, walkItem{done: true})
			s.onOutput.Signal()
			s.mu.Unlock()
			return
		}
		dir := s.pending[len(s.pending)-1]
		s.pending = s.pending[:len(s.pending)-1]
		s.mu.Unlock()

		s.list(dir)

		s.mu.Lock()
		s.tasks--
		if s.tasks == 0 {
			s.onInput.Broadcast()
		}
		s.mu.Unlock()
	}
}

// list processes the entries of one directory in sorted order.
func (s *walkState) list(dir pendingDir) {
	names, err := readDirNames(s.w.fs, dir.path)
	if err != nil {
		s.w.logger.Error("failed to list directory", "path", dir.path, "err", err)
		return
	}
	slices.Sort(names)

	for _, name := range names {
		if s.aborted.Load() {
			return
		}

		path := filepath.Join(dir.path, name)
		info, err := s.w.fs.Stat(path)
		if err != nil {
			s.w.logger.Debug("skipping entry", "path", path, "err", err)
			continue
		}

		switch {
		case info.IsDir():
			id := newDirID(path, info)
			if dir.chain.contains(id) {
				s.w.logger.Debug("skipping link to ancestor", "path", path)
				continue
			}
			s.push(pendingDir{path: path, chain: &dirChain{id: id, parent: dir.chain}})
		case info.Mode().IsRegular():
			s.emit(walkItem{path: path, fp: fingerprintFromInfo(info)})
		}
	}
}

func (s *walkState) push(dir pendingDir) {
	s.mu.Lock()
	s.pending = append(s.pending, dir)
	s.tasks++
	s.onInput.Signal()
	s.mu.Unlock()
}

func (s *walkState) emit(item walkItem) {
	s.mu.Lock()
	s.output = append(s.output, item)
	s.onOutput.Signal()
	s.mu.Unlock()
}

// drain hands output to yield in arrival order until every worker has left
// its done marker. Once yield returns false the walk is aborted and the
// remaining output is discarded.
func (s *walkState) drain(yield func(string, FileFingerprint) bool) {
	finished := 0
	stopped := false
	for finished < s.w.workers {
		s.mu.Lock()
		for len(s.output) == 0 {
			s.onOutput.Wait()
		}
		batch := s.output
		s.output = nil
		s.mu.Unlock()

		for _, item := range batch {
			if item.done {
				finished++
				continue
			}
			if stopped {
				continue
			}
			if !yield(item.path, item.fp) {
				stopped = true
				s.abort()
			}
		}
	}
}

func readDirNames(fs afero.Fs, dir string) ([]string, error) {
	f, err := fs.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Readdirnames(-1)
}
