//go:build unix

package osx

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmap maps the first size bytes of f read-only and shared, the
// companion this package's file_mmap.go expects but does not itself
// provide a Unix implementation for.
func mmap(f *os.File, size int) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
}

// munmap releases a mapping previously returned by mmap.
func munmap(b []byte) error {
	return unix.Munmap(b)
}

// MadviseStrategy selects the access pattern hint passed to madvise(2)
// for a memory-mapped model file's eager/lazy load strategy.
type MadviseStrategy int

const (
	// MadviseSequential hints the kernel to read ahead sequentially
	// and drop pages behind the cursor, used for the lazy load
	// strategy (demand-fault, minimal resident set).
	MadviseSequential MadviseStrategy = iota
	// MadviseWillNeed hints the kernel to fault pages in eagerly,
	// used for the eager load strategy (prefault all pages).
	MadviseWillNeed
)

// Madvise applies the given strategy to an existing mapping.
func Madvise(b []byte, strategy MadviseStrategy) error {
	if len(b) == 0 {
		return nil
	}
	advice := unix.MADV_SEQUENTIAL
	if strategy == MadviseWillNeed {
		advice = unix.MADV_WILLNEED
	}
	return unix.Madvise(b, advice)
}
