package fscache

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/afero"

	"github.com/gophersatwork/fscache/internal/logging"
)

// DefaultWindow is the default modification window. A path modified less
// than this long ago is not cached.
const DefaultWindow = 10 * time.Millisecond

// NowFunc defines a function that returns the current time.
type NowFunc func() time.Time

// PathFingerprint is the fingerprint of a file or a directory tree.
type PathFingerprint interface {
	Tuple() []string
	ModifiedInWindow(now time.Time, window time.Duration) bool
}

var (
	_ PathFingerprint = FileFingerprint{}
	_ PathFingerprint = (*DirFingerprint)(nil)
)

// BypassReason explains why a Decision skips the cache.
type BypassReason int

const (
	NoBypass BypassReason = iota
	BypassNoFingerprint
	BypassRecentlyModified
	BypassIgnoreMode
)

func (r BypassReason) String() string {
	switch r {
	case NoBypass:
		return "none"
	case BypassNoFingerprint:
		return "no fingerprint"
	case BypassRecentlyModified:
		return "recently modified"
	case BypassIgnoreMode:
		return "ignore mode"
	default:
		return "unknown"
	}
}

// Decision is the outcome of Decide. Path is the canonical path that the
// wrapped function must be called with. When Bypass is false, Fingerprint
// holds the fingerprint tuple followed by the configured tokens.
type Decision struct {
	Path        string
	Bypass      bool
	Reason      BypassReason
	Fingerprint []string
}

// DeciderConfig configures a Decider. Zero fields take defaults.
type DeciderConfig struct {
	Fs     afero.Fs
	Walker TreeWalker
	Window time.Duration
	Now    NowFunc
	Tokens []string
	Logger *log.Logger
}

// Decider decides whether a path's current state can be trusted as a
// cache key.
type Decider struct {
	fs     afero.Fs
	walker TreeWalker
	window time.Duration
	now    NowFunc
	tokens []string
	logger *log.Logger
}

// NewDecider creates a Decider from cfg.
func NewDecider(cfg DeciderConfig) *Decider {
	d := &Decider{
		fs:     cfg.Fs,
		walker: cfg.Walker,
		window: cfg.Window,
		now:    cfg.Now,
		tokens: append([]string(nil), cfg.Tokens...),
		logger: cfg.Logger,
	}
	if d.fs == nil {
		d.fs = afero.NewOsFs()
	}
	if d.logger == nil {
		d.logger = logging.Default()
	}
	if d.walker == nil {
		d.walker = NewWalker(d.fs, WithWalkLogger(d.logger))
	}
	if d.window <= 0 {
		d.window = DefaultWindow
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// Decide canonicalizes path and fingerprints it. The decision bypasses the
// cache when no fingerprint can be taken or when the path was modified
// within the window. Problems with the path never surface as errors.
func (d *Decider) Decide(ctx context.Context, path string) Decision {
	dec := d.decide(ctx, path)
	if d.logger.GetLevel() <= log.DebugLevel {
		d.logger.Debug("decided", "path", path, "decision", spew.Sdump(dec))
	}
	return dec
}

func (d *Decider) decide(ctx context.Context, path string) Decision {
	canonical, err := Realpath(d.fs, path)
	if err != nil {
		d.logger.Debug("cannot resolve path", "path", path, "err", err)
		return Decision{Path: path, Bypass: true, Reason: BypassNoFingerprint}
	}

	fp, ok := d.Fingerprint(ctx, canonical)
	if !ok {
		return Decision{Path: canonical, Bypass: true, Reason: BypassNoFingerprint}
	}
	if fp.ModifiedInWindow(d.now(), d.window) {
		return Decision{Path: canonical, Bypass: true, Reason: BypassRecentlyModified}
	}

	tuple := fp.Tuple()
	tuple = append(tuple, d.tokens...)
	return Decision{Path: canonical, Fingerprint: tuple}
}

// Canonical resolves path to its real path. A path that cannot be resolved
// is returned as given.
func (d *Decider) Canonical(path string) string {
	canonical, err := Realpath(d.fs, path)
	if err != nil {
		d.logger.Debug("cannot resolve path", "path", path, "err", err)
		return path
	}
	return canonical
}

// Fingerprint fingerprints an already canonical path: a single stat for a
// file, a full walk for a directory. ok is false when the path cannot be
// stat'ed or the walk was cancelled.
func (d *Decider) Fingerprint(ctx context.Context, path string) (PathFingerprint, bool) {
	info, err := d.fs.Stat(path)
	if err != nil {
		d.logger.Debug("cannot fingerprint", "path", path, "err", err)
		return nil, false
	}
	if !info.IsDir() {
		return fingerprintFromInfo(info), true
	}

	dir := &DirFingerprint{}
	for p, fp := range d.walker.Walk(ctx, path) {
		dir.AddFile(p, fp)
	}
	if err := ctx.Err(); err != nil {
		d.logger.Debug("directory walk cancelled", "path", path, "err", err)
		return nil, false
	}
	d.logger.Debug("fingerprinted directory", "path", path, "files", dir.Len())
	return dir, true
}

// Window returns the configured modification window.
func (d *Decider) Window() time.Duration {
	return d.window
}
