package fscache

import (
	"hash"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// hiSeed seeds the second lane of the per-entry digest so the two 64-bit
// halves are independent.
const hiSeed = 0x9e3779b97f4a7c15

// Default capacity for the buffers used to render entry and key digests
const defaultBufferSize = 512

// bufferPool is a pool of byte slices used when rendering digest input
var bufferPool = sync.Pool{
	New: func() interface{} {
		buffer := make([]byte, 0, defaultBufferSize)
		return &buffer
	},
}

// HashFunc defines a function that creates a new hash.Hash instance.
type HashFunc func() hash.Hash

// defaultHashFunc returns the default hash function (xxHash64).
func defaultHashFunc() hash.Hash {
	return xxhash.New()
}

// entryDigest hashes one (path, fingerprint) pair into a 128-bit digest
// made of two independently seeded xxHash64 lanes.
func entryDigest(path string, fp FileFingerprint) (lo, hi uint64) {
	bufPtr := bufferPool.Get().(*[]byte)
	buf := appendEntry((*bufPtr)[:0], path, fp)
	defer func() {
		*bufPtr = buf[:0]
		bufferPool.Put(bufPtr)
	}()

	lo = xxhash.Sum64(buf)
	d := xxhash.NewWithSeed(hiSeed)
	_, _ = d.Write(buf)
	hi = d.Sum64()
	return lo, hi
}

// appendEntry renders path followed by the fingerprint's canonical tuple.
// Fields are NUL separated, which cannot appear in a path.
func appendEntry(buf []byte, path string, fp FileFingerprint) []byte {
	buf = append(buf, path...)
	buf = append(buf, 0)
	buf = strconv.AppendInt(buf, fp.MtimeNs, 10)
	buf = append(buf, 0)
	buf = strconv.AppendInt(buf, fp.CtimeNs, 10)
	buf = append(buf, 0)
	buf = strconv.AppendInt(buf, fp.Size, 10)
	buf = append(buf, 0)
	buf = strconv.AppendUint(buf, fp.Inode, 10)
	return buf
}
