//go:build linux

package fscache

import (
	"os"
	"syscall"
)

// statDetails returns the change time, inode and device of a stat result.
// ok is false when the filesystem did not produce a syscall.Stat_t, in which
// case the change time falls back to the modification time.
func statDetails(info os.FileInfo) (ctimeNs int64, inode, dev uint64, ok bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.ModTime().UnixNano(), 0, 0, false
	}
	return st.Ctim.Nano(), st.Ino, uint64(st.Dev), true //nolint:unconvert // Dev width differs per arch
}
