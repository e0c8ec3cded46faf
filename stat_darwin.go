//go:build darwin

package fscache

import (
	"os"
	"syscall"
)

// statDetails returns the change time, inode and device of a stat result.
// On macOS the change time lives in Ctimespec.
func statDetails(info os.FileInfo) (ctimeNs int64, inode, dev uint64, ok bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.ModTime().UnixNano(), 0, 0, false
	}
	return st.Ctimespec.Nano(), st.Ino, uint64(st.Dev), true
}
