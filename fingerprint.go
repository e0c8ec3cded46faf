package fscache

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/afero"
)

// EmptyTree is the tuple element reported for a directory without regular files.
const EmptyTree = "empty"

// FileFingerprint identifies the observed state of one file from its
// metadata. It never reads file contents.
type FileFingerprint struct {
	MtimeNs int64
	CtimeNs int64
	Size    int64
	Inode   uint64
}

// FingerprintFile stats path, following symlinks, and returns its
// fingerprint. ok is false when the path cannot be stat'ed; the error is
// left to the caller to report.
func FingerprintFile(fs afero.Fs, path string) (FileFingerprint, bool) {
	info, err := fs.Stat(path)
	if err != nil {
		return FileFingerprint{}, false
	}
	return fingerprintFromInfo(info), true
}

// fingerprintFromInfo builds a fingerprint from an existing stat result.
// Filesystems that expose no change time or inode report the modification
// time and zero instead.
func fingerprintFromInfo(info os.FileInfo) FileFingerprint {
	ctime, inode, _, _ := statDetails(info)
	return FileFingerprint{
		MtimeNs: info.ModTime().UnixNano(),
		CtimeNs: ctime,
		Size:    info.Size(),
		Inode:   inode,
	}
}

// Tuple returns the canonical wire form: mtime, ctime, size and inode as
// decimal strings, in that order.
func (f FileFingerprint) Tuple() []string {
	return []string{
		strconv.FormatInt(f.MtimeNs, 10),
		strconv.FormatInt(f.CtimeNs, 10),
		strconv.FormatInt(f.Size, 10),
		strconv.FormatUint(f.Inode, 10),
	}
}

// ModifiedInWindow reports whether the file's modification time lies less
// than window away from now, in either direction.
func (f FileFingerprint) ModifiedInWindow(now time.Time, window time.Duration) bool {
	return withinWindow(now, f.MtimeNs, window)
}

func (f FileFingerprint) String() string {
	return fmt.Sprintf("mtime=%d ctime=%d size=%d inode=%d", f.MtimeNs, f.CtimeNs, f.Size, f.Inode)
}

// DirFingerprint is an order-independent summary of every file under a
// directory tree. Entries are folded in with XOR, so the result does not
// depend on arrival order and its size does not grow with the tree.
//
// A DirFingerprint is not safe for concurrent use.
type DirFingerprint struct {
	lastModified int64
	count        int
	lo, hi       uint64
}

// AddFile folds one entry into the aggregate. Adding the same pair twice
// cancels it out, so callers add each path at most once.
func (d *DirFingerprint) AddFile(path string, fp FileFingerprint) {
	lo, hi := entryDigest(path, fp)
	d.lo ^= lo
	d.hi ^= hi

	if d.count == 0 || fp.MtimeNs > d.lastModified {
		d.lastModified = fp.MtimeNs
	}
	d.count++
}

// Len returns the number of entries added.
func (d *DirFingerprint) Len() int {
	return d.count
}

// LastModified returns the newest modification time seen. ok is false when
// no file has been added.
func (d *DirFingerprint) LastModified() (int64, bool) {
	return d.lastModified, d.count > 0
}

// ModifiedInWindow reports whether the newest file was modified less than
// window away from now. A tree without files is never considered recently
// modified.
func (d *DirFingerprint) ModifiedInWindow(now time.Time, window time.Duration) bool {
	if d.count == 0 {
		return false
	}
	return withinWindow(now, d.lastModified, window)
}

// Tuple returns EmptyTree for a tree without files, else the aggregate as
// 32 lowercase hex characters.
func (d *DirFingerprint) Tuple() []string {
	if d.count == 0 {
		return []string{EmptyTree}
	}
	return []string{fmt.Sprintf("%016x%016x", d.hi, d.lo)}
}

// withinWindow reports whether mtimeNs lies less than window away from now.
// Time.Sub saturates, so extreme modification times cannot overflow.
func withinWindow(now time.Time, mtimeNs int64, window time.Duration) bool {
	delta := now.Sub(time.Unix(0, mtimeNs))
	return delta < window && delta > -window
}
