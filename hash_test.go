package fscache

import (
	"testing"

	"github.com/cespare/xxhash/v2"
)

// TestEntryDigest checks that both lanes hash the canonical entry rendering
func TestEntryDigest(t *testing.T) {
	fp := FileFingerprint{MtimeNs: 10, CtimeNs: 20, Size: 30, Inode: 40}
	want := "/tree/a.txt\x0010\x0020\x0030\x0040"

	if got := string(appendEntry(nil, "/tree/a.txt", fp)); got != want {
		t.Fatalf("appendEntry() = %q, want %q", got, want)
	}

	lo, hi := entryDigest("/tree/a.txt", fp)
	if lo != xxhash.Sum64String(want) {
		t.Errorf("low lane = %x, want %x", lo, xxhash.Sum64String(want))
	}

	d := xxhash.NewWithSeed(hiSeed)
	_, _ = d.WriteString(want)
	if hi != d.Sum64() {
		t.Errorf("high lane = %x, want %x", hi, d.Sum64())
	}
	if lo == hi {
		t.Errorf("lanes must be independent")
	}
}

// TestEntryDigestPooledBuffer makes sure a reused buffer does not leak
// bytes from a longer previous entry
func TestEntryDigestPooledBuffer(t *testing.T) {
	fp := FileFingerprint{MtimeNs: 1}
	long := "/a/very/long/path/that/fills/the/buffer/first.txt"

	lo1, hi1 := entryDigest("/short", fp)
	entryDigest(long, fp)
	lo2, hi2 := entryDigest("/short", fp)

	if lo1 != lo2 || hi1 != hi2 {
		t.Errorf("digest changed after buffer reuse")
	}
}
