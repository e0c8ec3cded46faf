//go:build !darwin && !linux

package fscache

import "os"

// statDetails returns the change time, inode and device of a stat result.
// On unsupported platforms only the modification time is available.
func statDetails(info os.FileInfo) (ctimeNs int64, inode, dev uint64, ok bool) {
	return info.ModTime().UnixNano(), 0, 0, false
}
